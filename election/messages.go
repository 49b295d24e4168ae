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

// This file holds the inbound message handlers. The transport adapter
// is expected to call these from within its Poll(), on the same
// goroutine that calls Tick - the election has no locking of its own.

// OnCanvassPosition updates members[from]'s reported position. A
// LeaderReady node resends NewLeadershipTerm to a follower reporting a
// stale term; any node not already canvassing steps down to Canvass on
// observing a strictly newer term.
func (e *Election) OnCanvassPosition(logLeadershipTermID, logPosition int64, from int32, nowMs int64) {
	m := e.membersByID[from]
	if m == nil {
		return
	}
	m.LeadershipTermID = logLeadershipTermID
	m.LogPosition = logPosition

	switch {
	case e.state == LeaderReady && logLeadershipTermID < e.leadershipTermID:
		e.publishNewLeadershipTerm(m)
	case e.state != Canvass && logLeadershipTermID > e.leadershipTermID:
		e.transitionTo(Canvass, nowMs)
	}
}

// OnRequestVote grants or denies a ballot. Persisting the observed
// candidate term to the mark file happens-before the vote reply and
// before the state transition.
func (e *Election) OnRequestVote(
	logLeadershipTermID, logPosition, candidateTermID int64, candidateID int32, nowMs int64,
) {
	if candidateTermID <= e.leadershipTermID || candidateTermID <= e.candidateTermID {
		e.debug("denying vote to candidate %d for stale term %d", candidateID, candidateTermID)
		e.placeVote(candidateTermID, candidateID, false)
		return
	}

	e.candidateTermID = candidateTermID
	if err := e.markFile.SetCandidateTermID(candidateTermID); err != nil {
		e.warn("failed to persist candidate term %d: %v", candidateTermID, err)
	}

	if compareLog(e.logLeadershipTermID, e.logPosition, logLeadershipTermID, logPosition) > 0 {
		e.debug("denying vote to candidate %d for term %d, our log is ahead", candidateID, candidateTermID)
		e.transitionTo(Canvass, nowMs)
		e.placeVote(candidateTermID, candidateID, false)
		return
	}

	e.notice("granting vote to candidate %d for term %d", candidateID, candidateTermID)
	e.transitionTo(FollowerBallot, nowMs)
	e.placeVote(candidateTermID, candidateID, true)
}

// OnVote records a ballot response. Ignored unless we are the candidate
// for candidateTermID and were ourselves the addressee; dropped votes
// are counted rather than silently discarded.
func (e *Election) OnVote(
	candidateTermID, logLeadershipTermID, logPosition int64,
	candidateID, followerID int32, granted bool,
) {
	if e.state != CandidateBallot || candidateTermID != e.candidateTermID || candidateID != e.self.ID {
		e.votesDropped++
		return
	}
	m := e.membersByID[followerID]
	if m == nil {
		return
	}
	m.CandidateTermID = candidateTermID
	m.LeadershipTermID = logLeadershipTermID
	m.LogPosition = logPosition
	if granted {
		m.Vote = VoteGranted
	} else {
		m.Vote = VoteDenied
	}
}

// OnNewLeadershipTerm adopts a new leader. When our log lags the
// leader's it constructs a LogCatchup and enters
// FollowerCatchupTransition; otherwise it moves straight to
// FollowerTransition.
func (e *Election) OnNewLeadershipTerm(
	logLeadershipTermID, logPosition, leadershipTermID int64,
	leaderID, logSessionID int32, nowMs int64,
) {
	leader := e.membersByID[leaderID]
	if leader == nil {
		return
	}

	if (e.state == FollowerBallot || e.state == CandidateBallot) && leadershipTermID == e.candidateTermID {
		e.notice("adopting leader %d for term %d", leaderID, leadershipTermID)
		e.leadershipTermID = leadershipTermID
		e.candidateTermID = NullValue
		e.leaderMember = leader
		e.logSessionID = logSessionID

		if e.logPosition < logPosition && e.logCatchup == nil {
			e.debug("log lags leader by %d positions, starting catch-up", logPosition-e.logPosition)
			e.logCatchup = NewLogCatchup(e.archive, leaderID, logSessionID,
				e.logPosition, logPosition, e.onReplayNewLeadershipTermEvent)
			e.transitionTo(FollowerCatchupTransition, nowMs)
		} else {
			e.transitionTo(FollowerTransition, nowMs)
		}
		return
	}

	if compareLog(e.logLeadershipTermID, e.logPosition, logLeadershipTermID, logPosition) != 0 {
		if e.logLeadershipTermID < logLeadershipTermID {
			e.notice("adopting leader %d for term %d while behind, starting catch-up", leaderID, leadershipTermID)
			e.leadershipTermID = e.logLeadershipTermID
			e.candidateTermID = NullValue
			e.leaderMember = leader
			e.logSessionID = logSessionID

			e.logCatchup = NewLogCatchup(e.archive, leaderID, logSessionID,
				e.logPosition, logPosition, e.onReplayNewLeadershipTermEvent)
			e.transitionTo(FollowerCatchupTransition, nowMs)
		}
		// else: our log term is newer than the leader's. That divergence
		// requires truncation and recovery this state machine does not
		// yet implement; left as a no-op (see open questions).
	}
}

// OnAppendedPosition updates members[from] with its reported append
// progress. The leader uses this to evaluate haveVotersReachedPosition.
func (e *Election) OnAppendedPosition(leadershipTermID, logPosition int64, from int32) {
	m := e.membersByID[from]
	if m == nil {
		return
	}
	m.LogPosition = logPosition
	m.LeadershipTermID = leadershipTermID
}

// OnCommitPosition observes a leader's commit position. A term ahead of
// ours means we are out of step; the corresponding catch-up path is not
// yet implemented, so this only logs.
func (e *Election) OnCommitPosition(leadershipTermID, logPosition int64, leaderID int32) {
	if leadershipTermID > e.leadershipTermID {
		e.warn("observed commit position at term %d > our term %d from leader %d, no catch-up path yet",
			leadershipTermID, e.leadershipTermID, leaderID)
	}
}
