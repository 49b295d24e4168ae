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

// Package election implements the leader-election state machine used by
// a replicated-log consensus cluster to elect a single leader among a
// fixed membership and bring it, and its followers, into a consistent
// state so normal log replication can resume.
//
// An Election is single-threaded and cooperative: the host process
// drives it with Tick and the On* message callbacks from one goroutine.
// It is not safe for concurrent use; the caller must hold whatever lock
// serializes access to the goroutine driving it.
package election

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

// Election is the eleven-state leader-election FSM. It owns the per-member
// table for the current election, the in-flight LogCatchup (if any), and
// the durable candidateTermID/recording-log writes that keep the
// protocol safe across restarts.
type Election struct {
	cfg *Config

	members     []*Member
	membersByID map[int32]*Member
	self        *Member

	transport    Transport
	archive      CatchupArchive
	markFile     MarkFile
	recordingLog RecordingLog
	agent        Agent
	logChannel   string
	rnd          *rand.Rand

	log    Logger
	dflag  bool
	prefix string

	statusIntervalMs          int64
	leaderHeartbeatIntervalMs int64
	electionTimeoutMs         int64
	startupStatusTimeoutMs    int64
	appointedLeaderID         int32

	isStartup bool
	state     State
	stateCode atomic.Int32

	leadershipTermID    int64
	logLeadershipTermID int64
	logPosition         int64
	candidateTermID     int64
	leaderMember        *Member
	logSessionID        int32

	timeOfLastStateChange int64
	timeOfLastUpdate      int64
	nominationDeadline    int64

	logCatchup      *LogCatchup
	logSubscription Subscription

	closed       bool
	votesDropped int64
}

// New constructs an Election. isStartup should be true only for the
// first election a process runs after start; leadershipTermID and
// logPosition seed the node's view of its own durable log state.
// leadershipTermID must be the value restored from durable storage
// across process restarts.
func New(cfg *Config, isStartup bool, leadershipTermID, logPosition int64) (*Election, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	membersByID := make(map[int32]*Member, len(cfg.Members))
	for _, m := range cfg.Members {
		membersByID[m.ID] = m
	}

	statusIntervalMs := cfg.StatusIntervalNs / nsPerMs
	if statusIntervalMs <= 0 {
		statusIntervalMs = 1
	}

	e := &Election{
		cfg:                       cfg,
		members:                   cfg.Members,
		membersByID:               membersByID,
		self:                      membersByID[cfg.SelfID],
		transport:                 cfg.Transport,
		archive:                   cfg.Archive,
		markFile:                  cfg.MarkFile,
		recordingLog:              cfg.RecordingLog,
		agent:                     cfg.Agent,
		logChannel:                cfg.LogChannel,
		rnd:                       cfg.rand(),
		log:                       cfg.logger(),
		dflag:                     cfg.Debug,
		prefix:                    logPrefix(cfg.SelfID),
		statusIntervalMs:          statusIntervalMs,
		leaderHeartbeatIntervalMs: cfg.LeaderHeartbeatIntervalNs / nsPerMs,
		electionTimeoutMs:         cfg.ElectionTimeoutNs / nsPerMs,
		startupStatusTimeoutMs:    cfg.StartupStatusTimeoutNs / nsPerMs,
		appointedLeaderID:         cfg.appointedLeaderID(),
		isStartup:                 isStartup,
		state:                     Init,
		leadershipTermID:          leadershipTermID,
		logLeadershipTermID:       leadershipTermID,
		logPosition:               logPosition,
		candidateTermID:           NullValue,
		logSessionID:              NullValue,
	}
	e.stateCode.Store(int32(Init))

	return e, nil
}

// State returns the current state.
func (e *Election) State() State { return e.state }

// StateCode returns the published, stable state counter value.
func (e *Election) StateCode() int32 { return e.stateCode.Load() }

// Leader returns the member this node believes is leader, or nil.
func (e *Election) Leader() *Member { return e.leaderMember }

// LeadershipTermID returns the term this node considers current.
func (e *Election) LeadershipTermID() int64 { return e.leadershipTermID }

// CandidateTermID returns the term of the in-flight candidacy, or
// NullValue if there is none.
func (e *Election) CandidateTermID() int64 { return e.candidateTermID }

// LogPosition returns this node's last durable local log position.
func (e *Election) LogPosition() int64 { return e.logPosition }

// IsClosed reports whether Close has been called.
func (e *Election) IsClosed() bool { return e.closed }

// VotesDropped counts votes received while this node was not the
// candidate they were cast for, surfaced as a counter rather than
// silently discarded.
func (e *Election) VotesDropped() int64 { return e.votesDropped }

// Close releases the catch-up engine, if any, and marks the election
// closed; later Ticks return ErrClosed. Idempotent; may be called from
// any state.
func (e *Election) Close() error {
	if e.closed {
		return nil
	}
	e.closeCatchup()
	e.closed = true
	return nil
}

func (e *Election) closeCatchup() {
	if e.logCatchup != nil {
		e.logCatchup.Close()
		e.logCatchup = nil
	}
}

// Tick is the sole driver of forward progress: it runs the one-shot Init
// action if the election is still in Init, polls the transport, then
// runs the action for the current state, possibly transitioning.
// It must never block.
func (e *Election) Tick(nowMs int64) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}

	workCount := 0
	if e.state == Init {
		workCount += e.init(nowMs)
	}
	workCount += e.transport.Poll(nowMs)

	var err error
	switch e.state {
	case Canvass:
		workCount += e.canvass(nowMs)
	case Nominate:
		workCount += e.nominate(nowMs)
	case CandidateBallot:
		workCount += e.candidateBallot(nowMs)
	case FollowerBallot:
		workCount += e.followerBallot(nowMs)
	case LeaderTransition:
		workCount += e.leaderTransition(nowMs)
	case LeaderReady:
		workCount += e.leaderReady(nowMs)
	case FollowerCatchupTransition:
		var n int
		n, err = e.followerCatchupTransition(nowMs)
		workCount += n
	case FollowerCatchup:
		var n int
		n, err = e.followerCatchup(nowMs)
		workCount += n
	case FollowerTransition:
		workCount += e.followerTransition(nowMs)
	case FollowerReady:
		workCount += e.followerReady(nowMs)
	}
	return workCount, err
}

// transitionTo runs the exit action for the current state, moves to
// state, and republishes the state counter. Entering Canvass always
// resets the per-member election-scoped fields, snapshots this node's
// own log view, and demotes the local role to follower.
func (e *Election) transitionTo(state State, nowMs int64) {
	e.debug("transition %s -> %s at term %d", e.state, state, e.leadershipTermID)
	e.timeOfLastStateChange = nowMs
	e.state.exit(e)
	e.state = state
	e.stateCode.Store(int32(state))

	if state == Canvass {
		resetAll(e.members)
		e.self.LeadershipTermID = e.leadershipTermID
		e.self.LogPosition = e.logPosition
		e.agent.Role(RoleFollower)
	}
}

func (e *Election) init(nowMs int64) int {
	if !e.isStartup {
		e.logPosition = e.agent.PrepareForElection(e.logPosition)
	}

	switch {
	case len(e.members) == 1:
		e.candidateTermID = e.leadershipTermID + 1
		e.leaderMember = e.self
		e.transitionTo(LeaderTransition, nowMs)
	case e.appointedLeaderID == e.self.ID:
		e.nominationDeadline = nowMs
		e.transitionTo(Nominate, nowMs)
	default:
		e.candidateTermID = e.markFile.CandidateTermID()
		e.transitionTo(Canvass, nowMs)
	}
	return 1
}

func (e *Election) canvass(nowMs int64) int {
	workCount := 0

	if nowMs >= e.timeOfLastUpdate+e.statusIntervalMs {
		e.timeOfLastUpdate = nowMs
		for _, m := range e.members {
			if m == e.self {
				continue
			}
			e.transport.SendCanvassPosition(m, e.leadershipTermID, e.logPosition, e.self.ID)
		}
		workCount++
	}

	if e.appointedLeaderID != NullValue {
		return workCount
	}

	deadline := e.startupStatusTimeoutMs
	if !e.isStartup {
		deadline = e.electionTimeoutMs
	}
	canvassDeadline := e.timeOfLastStateChange + deadline

	if isUnanimousCandidate(e.members, e.self) ||
		(isQuorumCandidate(e.members, e.self) && nowMs >= canvassDeadline) {
		e.nominationDeadline = nowMs + int64(e.rnd.Intn(int(e.statusIntervalMs)))
		e.transitionTo(Nominate, nowMs)
		workCount++
	}

	return workCount
}

func (e *Election) nominate(nowMs int64) int {
	if nowMs < e.nominationDeadline {
		return 0
	}

	if e.candidateTermID == NullValue {
		e.candidateTermID = e.leadershipTermID + 1
	} else {
		e.candidateTermID++
	}
	for _, m := range e.members {
		m.becomeCandidate(e.candidateTermID, e.self.ID)
	}
	if err := e.markFile.SetCandidateTermID(e.candidateTermID); err != nil {
		e.warn("failed to persist candidate term %d: %v", e.candidateTermID, err)
	}
	e.notice("nominating self for leadership term %d", e.candidateTermID)
	e.agent.Role(RoleCandidate)

	e.transitionTo(CandidateBallot, nowMs)
	return 1
}

func (e *Election) candidateBallot(nowMs int64) int {
	workCount := 0

	switch {
	case hasWonVoteOnFullCount(e.members, e.candidateTermID):
		e.notice("won unanimous vote for leadership term %d", e.candidateTermID)
		e.leaderMember = e.self
		e.transitionTo(LeaderTransition, nowMs)
		workCount++

	case nowMs >= e.timeOfLastStateChange+e.electionTimeoutMs:
		if hasMajorityVote(e.members, e.candidateTermID) {
			e.notice("won majority vote for leadership term %d after election timeout", e.candidateTermID)
			e.leaderMember = e.self
			e.transitionTo(LeaderTransition, nowMs)
		} else {
			e.debug("ballot for term %d timed out without majority, returning to canvass", e.candidateTermID)
			e.transitionTo(Canvass, nowMs)
		}
		workCount++

	default:
		for _, m := range e.members {
			if m == e.self || m.IsBallotSent {
				continue
			}
			workCount++
			m.IsBallotSent = e.transport.SendRequestVote(
				m, e.leadershipTermID, e.logPosition, e.candidateTermID, e.self.ID)
			e.debug("sent request vote to member %d for term %d", m.ID, e.candidateTermID)
		}
	}

	return workCount
}

func (e *Election) followerBallot(nowMs int64) int {
	if nowMs >= e.timeOfLastStateChange+e.electionTimeoutMs {
		e.transitionTo(Canvass, nowMs)
		return 1
	}
	return 0
}

func (e *Election) leaderTransition(nowMs int64) int {
	for term := e.leadershipTermID + 1; term < e.candidateTermID; term++ {
		if err := e.recordingLog.AppendTerm(nil, term, e.logPosition, nowMs); err != nil {
			e.warn("failed to append placeholder term %d: %v", term, err)
		}
	}

	e.leadershipTermID = e.candidateTermID
	e.candidateTermID = NullValue
	e.notice("becoming leader for term %d at log position %d", e.leadershipTermID, e.logPosition)
	e.agent.BecomeLeader()

	recID := e.agent.LogRecordingID()
	if err := e.recordingLog.AppendTerm(&recID, e.leadershipTermID, e.logPosition, nowMs); err != nil {
		e.warn("failed to append leader term %d: %v", e.leadershipTermID, err)
	}
	if err := e.markFile.SetCandidateTermID(NullValue); err != nil {
		e.warn("failed to clear candidate term: %v", err)
	}

	resetLogPositions(e.members)
	e.self.LogPosition = e.logPosition

	e.transitionTo(LeaderReady, nowMs)
	return 1
}

func (e *Election) leaderReady(nowMs int64) int {
	workCount := 0

	if haveVotersReachedPosition(e.members, e.logPosition, e.leadershipTermID) {
		if e.agent.ElectionComplete(nowMs) {
			_ = e.Close()
		}
		workCount++
	} else if nowMs >= e.timeOfLastUpdate+e.leaderHeartbeatIntervalMs {
		e.timeOfLastUpdate = nowMs
		for _, m := range e.members {
			if m == e.self {
				continue
			}
			e.publishNewLeadershipTerm(m)
		}
		workCount++
	}

	return workCount
}

func (e *Election) followerCatchupTransition(nowMs int64) (int, error) {
	e.ensureSubscriptionsCreated()
	if err := e.logCatchup.Connect(); err != nil {
		e.error("failed to connect log catchup to leader %d: %v", e.leaderMember.ID, err)
		return 0, fmt.Errorf("%w: %v", ErrCatchupFailed, err)
	}
	e.transitionTo(FollowerCatchup, nowMs)
	return 1, nil
}

func (e *Election) followerCatchup(nowMs int64) (int, error) {
	workCount := 0

	if !e.logCatchup.IsDone() {
		workCount += e.transport.Poll(nowMs)
		n, err := e.logCatchup.DoWork(nowMs)
		if err != nil {
			e.error("log catchup from leader %d failed: %v", e.leaderMember.ID, err)
			return workCount, fmt.Errorf("%w: %v", ErrCatchupFailed, err)
		}
		workCount += n
		e.agent.CatchupLogPoll(e.logCatchup.TargetPosition())
		return workCount, nil
	}

	e.logPosition = e.logCatchup.TargetPosition()
	e.addLiveLogDestination(false)
	e.appendTerm(nowMs)
	e.transitionTo(FollowerReady, nowMs)
	workCount++

	return workCount, nil
}

func (e *Election) followerTransition(nowMs int64) int {
	e.ensureSubscriptionsCreated()
	e.addLiveLogDestination(true)
	e.appendTerm(nowMs)
	e.transitionTo(FollowerReady, nowMs)
	return 1
}

func (e *Election) followerReady(nowMs int64) int {
	workCount := 1

	if e.transport.SendAppendedPosition(e.leaderMember, e.leadershipTermID, e.logPosition, e.self.ID) {
		if e.agent.ElectionComplete(nowMs) {
			_ = e.Close()
		}
	} else if nowMs >= e.timeOfLastStateChange+e.electionTimeoutMs {
		e.transitionTo(Canvass, nowMs)
		workCount++
	}

	return workCount
}

func (e *Election) placeVote(candidateTermID int64, candidateID int32, granted bool) {
	candidate := e.membersByID[candidateID]
	if candidate == nil {
		return
	}
	e.transport.SendVote(candidate, candidateTermID, e.logLeadershipTermID, e.logPosition,
		candidateID, e.self.ID, granted)
}

func (e *Election) publishNewLeadershipTerm(m *Member) {
	e.transport.SendNewLeadershipTerm(m, e.logLeadershipTermID, e.logPosition,
		e.leadershipTermID, e.self.ID, e.logSessionID)
}

func (e *Election) ensureSubscriptionsCreated() {
	channelURI := FollowerLogChannel(e.logChannel, e.logSessionID)
	e.logSubscription = e.agent.CreateAndRecordLogSubscriptionAsFollower(channelURI, e.logPosition)
	e.agent.AwaitServicesReady(channelURI, e.logSessionID)
}

func (e *Election) addLiveLogDestination(ensureImageAvailable bool) {
	e.agent.UpdateMemberDetails()

	destURI := FollowerLogDestination(e.logChannel, e.self.LogEndpoint)
	if err := e.logSubscription.AddDestination(destURI); err != nil {
		e.warn("failed to add live log destination: %v", err)
	}

	if ensureImageAvailable {
		e.agent.AwaitImageAndCreateFollowerLogAdapter(e.logSubscription, e.logSessionID)
	}
}

func (e *Election) appendTerm(nowMs int64) {
	recID := e.agent.LogRecordingID()
	if err := e.recordingLog.AppendTerm(&recID, e.leadershipTermID, e.logPosition, nowMs); err != nil {
		e.warn("failed to append term %d: %v", e.leadershipTermID, err)
	}
	if err := e.markFile.SetCandidateTermID(NullValue); err != nil {
		e.warn("failed to clear candidate term: %v", err)
	}
}

// onReplayNewLeadershipTermEvent advances (logLeadershipTermID,
// logPosition) as the catch-up engine replays the leader's archive, and
// records the crossed term in the recording log.
func (e *Election) onReplayNewLeadershipTermEvent(leadershipTermID, logPosition, nowMs int64) {
	if e.state != FollowerCatchup {
		return
	}
	e.logLeadershipTermID = leadershipTermID
	e.logPosition = logPosition

	recID := e.agent.LogRecordingID()
	if err := e.recordingLog.AppendTerm(&recID, leadershipTermID, logPosition, nowMs); err != nil {
		e.warn("failed to append replayed term %d: %v", leadershipTermID, err)
	}
}
