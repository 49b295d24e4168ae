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

import "testing"

func TestCompareLog(t *testing.T) {
	require_True(t, compareLog(5, 1000, 5, 1000) == 0)
	require_True(t, compareLog(5, 1000, 6, 900) < 0)
	require_True(t, compareLog(6, 900, 5, 1000) > 0)
	require_True(t, compareLog(5, 1200, 5, 1000) > 0)
	require_True(t, compareLog(5, 1000, 5, 1200) < 0)
}

func TestMemberResetClearsElectionScopedFields(t *testing.T) {
	m := NewMember(2, nil)
	m.LeadershipTermID = 5
	m.LogPosition = 1000
	m.CandidateTermID = 6
	m.Vote = VoteGranted
	m.IsBallotSent = true

	m.reset()

	require_Equal(t, m.LeadershipTermID, int64(NullValue))
	require_Equal(t, m.LogPosition, NullPosition)
	require_Equal(t, m.CandidateTermID, int64(NullValue))
	require_Equal(t, m.Vote, VoteUnknown)
	require_False(t, m.IsBallotSent)
}

func TestBecomeCandidateGrantsSelfAndClearsOthers(t *testing.T) {
	self := NewMember(1, nil)
	peer := NewMember(2, nil)

	self.becomeCandidate(6, 1)
	peer.becomeCandidate(6, 1)

	require_Equal(t, self.Vote, VoteGranted)
	require_Equal(t, peer.Vote, VoteUnknown)
	require_Equal(t, self.CandidateTermID, int64(6))
	require_Equal(t, peer.CandidateTermID, int64(6))
}

func TestResetLogPositionsLeavesOtherFieldsAlone(t *testing.T) {
	a := NewMember(1, nil)
	a.LogPosition = 1000
	a.CandidateTermID = 6
	a.Vote = VoteGranted

	resetLogPositions([]*Member{a})

	require_Equal(t, a.LogPosition, NullPosition)
	require_Equal(t, a.CandidateTermID, int64(6))
	require_Equal(t, a.Vote, VoteGranted)
}

func TestIsUnanimousCandidate(t *testing.T) {
	self := NewMember(1, nil)
	self.LeadershipTermID, self.LogPosition = 5, 1000
	b := NewMember(2, nil)
	b.LeadershipTermID, b.LogPosition = 5, 1000
	c := NewMember(3, nil)
	c.LeadershipTermID, c.LogPosition = 5, 1000

	require_True(t, isUnanimousCandidate([]*Member{self, b, c}, self))

	c.LogPosition = 1200
	require_False(t, isUnanimousCandidate([]*Member{self, b, c}, self))
}

func TestIsQuorumCandidateRequiresMajorityReportedAndNoneAhead(t *testing.T) {
	self := NewMember(1, nil)
	self.LeadershipTermID, self.LogPosition = 5, 1000
	b := NewMember(2, nil)
	c := NewMember(3, nil)
	members := []*Member{self, b, c}

	require_False(t, isQuorumCandidate(members, self))

	b.LeadershipTermID, b.LogPosition = 5, 1000
	require_True(t, isQuorumCandidate(members, self))

	c.LeadershipTermID, c.LogPosition = 5, 1200
	require_False(t, isQuorumCandidate(members, self))
}

func TestHasWonVoteOnFullCount(t *testing.T) {
	a := NewMember(1, nil)
	b := NewMember(2, nil)
	c := NewMember(3, nil)
	members := []*Member{a, b, c}
	for _, m := range members {
		m.becomeCandidate(6, 1)
	}
	require_False(t, hasWonVoteOnFullCount(members, 6))

	b.Vote, b.CandidateTermID = VoteGranted, 6
	require_False(t, hasWonVoteOnFullCount(members, 6))

	c.Vote, c.CandidateTermID = VoteGranted, 6
	require_True(t, hasWonVoteOnFullCount(members, 6))
}

func TestHasMajorityVote(t *testing.T) {
	a := NewMember(1, nil)
	b := NewMember(2, nil)
	c := NewMember(3, nil)
	members := []*Member{a, b, c}
	for _, m := range members {
		m.becomeCandidate(6, 1)
	}
	require_False(t, hasMajorityVote(members, 6))

	b.Vote = VoteGranted
	require_True(t, hasMajorityVote(members, 6))

	c.Vote = VoteDenied
	require_True(t, hasMajorityVote(members, 6))
}

func TestHaveVotersReachedPosition(t *testing.T) {
	a := NewMember(1, nil)
	a.LeadershipTermID, a.LogPosition = 6, 1500
	b := NewMember(2, nil)
	b.LeadershipTermID, b.LogPosition = 6, 1500
	c := NewMember(3, nil)
	c.LeadershipTermID, c.LogPosition = 5, 900
	members := []*Member{a, b, c}

	require_True(t, haveVotersReachedPosition(members, 1500, 6))
	require_False(t, haveVotersReachedPosition(members, 1600, 6))
}

func TestQuorumSize(t *testing.T) {
	require_Equal(t, quorumSize(1), 1)
	require_Equal(t, quorumSize(3), 2)
	require_Equal(t, quorumSize(5), 3)
}
