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

// MemSubscription is a no-op Subscription for tests; it records every
// destination the election ever adds.
type MemSubscription struct {
	Destinations []string
}

func (s *MemSubscription) AddDestination(uri string) error {
	s.Destinations = append(s.Destinations, uri)
	return nil
}

// MemAgent is a scriptable Agent for tests. Role changes, leader
// promotions, PrepareForElection inputs, catch-up polls and member-detail
// updates are recorded so a test can assert on them; the subscription
// and await calls record nothing.
type MemAgent struct {
	RecordingID int64

	Roles          []Role
	BecameLeader   int
	PreparedFrom   []int64
	CatchupPolls   []int64
	MembersUpdated int

	// complete gates ElectionComplete; nil means always true.
	complete func(nowMs int64) bool
}

func NewMemAgent(recordingID int64) *MemAgent {
	return &MemAgent{RecordingID: recordingID}
}

func (a *MemAgent) PrepareForElection(logPosition int64) int64 {
	a.PreparedFrom = append(a.PreparedFrom, logPosition)
	return logPosition
}

func (a *MemAgent) Role(r Role) { a.Roles = append(a.Roles, r) }

func (a *MemAgent) BecomeLeader() { a.BecameLeader++ }

func (a *MemAgent) LogRecordingID() int64 { return a.RecordingID }

func (a *MemAgent) CreateAndRecordLogSubscriptionAsFollower(channelURI string, fromPosition int64) Subscription {
	return &MemSubscription{}
}

func (a *MemAgent) AwaitServicesReady(channelURI string, sessionID int32) {}

func (a *MemAgent) AwaitImageAndCreateFollowerLogAdapter(sub Subscription, sessionID int32) {}

func (a *MemAgent) CatchupLogPoll(targetPosition int64) {
	a.CatchupPolls = append(a.CatchupPolls, targetPosition)
}

func (a *MemAgent) UpdateMemberDetails() { a.MembersUpdated++ }

func (a *MemAgent) ElectionComplete(nowMs int64) bool {
	if a.complete == nil {
		return true
	}
	return a.complete(nowMs)
}
