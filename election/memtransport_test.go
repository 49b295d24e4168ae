// Copyright 2020-2025 The NRG Cluster Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package election

// MemNetwork wires a set of MemTransports together in memory so a whole
// cluster of Elections can be driven from a single test goroutine
// against an in-process transport rather than real sockets.
type MemNetwork struct {
	transports map[int32]*MemTransport
	partition  map[int32]bool
}

func NewMemNetwork() *MemNetwork {
	return &MemNetwork{
		transports: make(map[int32]*MemTransport),
		partition:  make(map[int32]bool),
	}
}

// Partition marks id as unreachable: every Send to or from it fails and
// every inbound message queued for it is dropped, until Heal.
func (n *MemNetwork) Partition(id int32) { n.partition[id] = true }

func (n *MemNetwork) Heal(id int32) { delete(n.partition, id) }

func (n *MemNetwork) reachable(a, b int32) bool {
	return !n.partition[a] && !n.partition[b]
}

type memMsg func(*Election, int64)

// MemTransport is an in-memory Transport for one cluster member. Bind
// must be called with the owning Election before the first Tick.
type MemTransport struct {
	net    *MemNetwork
	id     int32
	e      *Election
	inbox  []memMsg
	accept func() bool // nil means always accept
}

func NewMemTransport(net *MemNetwork, id int32) *MemTransport {
	t := &MemTransport{net: net, id: id}
	net.transports[id] = t
	return t
}

// Bind attaches the Election this transport delivers into. Elections and
// transports are constructed in two phases because Config.Transport must
// already exist when New is called.
func (t *MemTransport) Bind(e *Election) { t.e = e }

func (t *MemTransport) Poll(nowMs int64) int {
	if t.net.partition[t.id] {
		t.inbox = nil
		return 0
	}
	if len(t.inbox) == 0 {
		return 0
	}
	msgs := t.inbox
	t.inbox = nil
	for _, m := range msgs {
		m(t.e, nowMs)
	}
	return len(msgs)
}

func (t *MemTransport) enqueue(to *Member, msg memMsg) bool {
	if !t.net.reachable(t.id, to.ID) {
		return false
	}
	if t.accept != nil && !t.accept() {
		return false
	}
	peer := t.net.transports[to.ID]
	if peer == nil {
		return false
	}
	peer.inbox = append(peer.inbox, msg)
	return true
}

func (t *MemTransport) SendCanvassPosition(to *Member, logLeadershipTermID, logPosition int64, followerID int32) bool {
	return t.enqueue(to, func(e *Election, nowMs int64) {
		e.OnCanvassPosition(logLeadershipTermID, logPosition, followerID, nowMs)
	})
}

func (t *MemTransport) SendRequestVote(to *Member, logLeadershipTermID, logPosition, candidateTermID int64, candidateID int32) bool {
	return t.enqueue(to, func(e *Election, nowMs int64) {
		e.OnRequestVote(logLeadershipTermID, logPosition, candidateTermID, candidateID, nowMs)
	})
}

func (t *MemTransport) SendVote(to *Member, candidateTermID, logLeadershipTermID, logPosition int64, candidateID, followerID int32, granted bool) bool {
	return t.enqueue(to, func(e *Election, nowMs int64) {
		e.OnVote(candidateTermID, logLeadershipTermID, logPosition, candidateID, followerID, granted)
	})
}

func (t *MemTransport) SendNewLeadershipTerm(to *Member, logLeadershipTermID, logPosition, leadershipTermID int64, leaderID, logSessionID int32) bool {
	return t.enqueue(to, func(e *Election, nowMs int64) {
		e.OnNewLeadershipTerm(logLeadershipTermID, logPosition, leadershipTermID, leaderID, logSessionID, nowMs)
	})
}

func (t *MemTransport) SendAppendedPosition(to *Member, leadershipTermID, logPosition int64, followerID int32) bool {
	return t.enqueue(to, func(e *Election, nowMs int64) {
		e.OnAppendedPosition(leadershipTermID, logPosition, followerID)
	})
}

func (t *MemTransport) SendCommitPosition(to *Member, leadershipTermID, logPosition int64, leaderID int32) bool {
	return t.enqueue(to, func(e *Election, nowMs int64) {
		e.OnCommitPosition(leadershipTermID, logPosition, leaderID)
	})
}
