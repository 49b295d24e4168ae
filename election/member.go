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

// NullValue mirrors the sentinel used throughout this codebase's lineage
// for "no value" on an otherwise valid int64/int32 field, instead of a
// pointer or an extra boolean.
const NullValue = -1

// NullPosition marks a log position that has not been reported.
const NullPosition int64 = -1

// Vote is the tri-state outcome of a ballot cast for a peer.
type Vote int8

const (
	VoteUnknown Vote = iota
	VoteGranted
	VoteDenied
)

// SendHandle is the transport's per-peer send handle. It is opaque to
// the election; only the Transport implementation interprets it.
type SendHandle interface{}

// Member is this node's view of one peer (or of itself) in the fixed
// cluster membership. The election mutates these fields directly on
// message receipt; there is no separate "peer state" object to keep in
// sync, since membership is cluster-static for the life of an election.
type Member struct {
	ID   int32
	Send SendHandle

	// LogEndpoint is this member's transport endpoint for the live log
	// destination, consumed by FollowerLogDestination. Only ever read
	// for self.
	LogEndpoint string

	LeadershipTermID int64
	LogPosition      int64
	CandidateTermID  int64
	Vote             Vote
	IsBallotSent     bool
}

// NewMember constructs a Member with its election-scoped fields reset.
func NewMember(id int32, send SendHandle) *Member {
	m := &Member{ID: id, Send: send}
	m.reset()
	return m
}

func (m *Member) reset() {
	m.LeadershipTermID = NullValue
	m.LogPosition = NullPosition
	m.CandidateTermID = NullValue
	m.Vote = VoteUnknown
	m.IsBallotSent = false
}

// becomeCandidate marks the member as a fresh ballot recipient for the
// given candidacy: our own record records our own vote as granted so
// full-count and majority predicates below can treat self uniformly.
func (m *Member) becomeCandidate(candidateTermID int64, selfID int32) {
	m.CandidateTermID = candidateTermID
	m.IsBallotSent = false
	if m.ID == selfID {
		m.Vote = VoteGranted
	} else {
		m.Vote = VoteUnknown
	}
}

// compareLog returns the sign of the lexicographic comparison of two
// (term, position) log positions, term first. This is the sole
// freshness comparator used to decide vote grants and candidate
// eligibility.
func compareLog(aTerm, aPos, bTerm, bPos int64) int {
	switch {
	case aTerm < bTerm:
		return -1
	case aTerm > bTerm:
		return 1
	case aPos < bPos:
		return -1
	case aPos > bPos:
		return 1
	default:
		return 0
	}
}

// resetAll clears the election-scoped fields of every member. Called on
// every transition into Canvass.
func resetAll(members []*Member) {
	for _, m := range members {
		m.reset()
	}
}

// resetLogPositions marks every member's log position unknown, without
// touching the rest of its election-scoped fields. Called on
// LeaderTransition: the new leader has no fresh reports yet from any
// follower, but ballot/candidacy bookkeeping from the just-finished
// election is irrelevant history, not something to preserve either way.
func resetLogPositions(members []*Member) {
	for _, m := range members {
		m.LogPosition = NullPosition
	}
}

// isUnanimousCandidate is true iff every other member has reported in
// and none of them is ahead of self.
func isUnanimousCandidate(members []*Member, self *Member) bool {
	for _, m := range members {
		if m == self {
			continue
		}
		if m.LogPosition == NullPosition {
			return false
		}
		if compareLog(m.LeadershipTermID, m.LogPosition, self.LeadershipTermID, self.LogPosition) > 0 {
			return false
		}
	}
	return true
}

// isQuorumCandidate is true iff a majority of members (including self)
// have reported in and none of the reporters is ahead of self.
func isQuorumCandidate(members []*Member, self *Member) bool {
	reported := 0
	for _, m := range members {
		if m == self {
			reported++
			continue
		}
		if m.LogPosition == NullPosition {
			continue
		}
		if compareLog(m.LeadershipTermID, m.LogPosition, self.LeadershipTermID, self.LogPosition) > 0 {
			return false
		}
		reported++
	}
	return reported >= quorumSize(len(members))
}

// hasWonVoteOnFullCount is true iff every member has voted, and every
// vote for candidateTermID was granted.
func hasWonVoteOnFullCount(members []*Member, candidateTermID int64) bool {
	for _, m := range members {
		if m.CandidateTermID != candidateTermID || m.Vote != VoteGranted {
			return false
		}
	}
	return true
}

// hasMajorityVote is true iff strictly more than half of all members
// granted a vote for candidateTermID.
func hasMajorityVote(members []*Member, candidateTermID int64) bool {
	granted := 0
	for _, m := range members {
		if m.CandidateTermID == candidateTermID && m.Vote == VoteGranted {
			granted++
		}
	}
	return granted*2 > len(members)
}

// haveVotersReachedPosition is true iff a majority of members report a
// log position at or beyond p, at a leadership term at or beyond t.
func haveVotersReachedPosition(members []*Member, p, t int64) bool {
	reached := 0
	for _, m := range members {
		if m.LeadershipTermID >= t && m.LogPosition >= p {
			reached++
		}
	}
	return reached >= quorumSize(len(members))
}

func quorumSize(n int) int {
	return n/2 + 1
}
