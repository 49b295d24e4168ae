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

import (
	"github.com/nats-io/nuid"
	"golang.org/x/time/rate"
)

// ReplayedTerm is one term boundary crossed while replaying the
// leader's archive during catch-up.
type ReplayedTerm struct {
	LeadershipTermID int64
	LogPosition      int64
}

// CatchupArchive is the recording/archive subsystem's catch-up surface.
// It streams a range of a leader's archived log to this member.
type CatchupArchive interface {
	// Connect begins streaming records for catchupID from the leader's
	// archive starting at fromPosition, up to targetPosition.
	Connect(catchupID string, leaderID int32, logSessionID int32, fromPosition, targetPosition int64) error

	// Poll returns any term boundaries replayed since the last call and
	// whether the stream has reached targetPosition.
	Poll(catchupID string, maxRecords int) (terms []ReplayedTerm, done bool, err error)

	// Close releases resources associated with catchupID.
	Close(catchupID string)
}

// LogCatchup advances this member's local log replica from startPosition
// up to targetPosition by replaying the leader's archive. It is
// exclusively owned by the Election that constructs it: created on entry
// to FollowerCatchupTransition, released on exit from FollowerCatchup or
// on Election.Close.
type LogCatchup struct {
	archive       CatchupArchive
	catchupID     string
	leaderID      int32
	logSessionID  int32
	startPosition int64
	targetPos     int64
	current       int64
	done          bool
	connected     bool

	// limiter paces how many replayed batches DoWork consumes per tick,
	// via golang.org/x/time/rate, so a fast leader archive cannot starve
	// the FSM's cooperative tick loop.
	limiter *rate.Limiter

	onReplayTerm func(leadershipTermID, logPosition, nowMs int64)
}

const catchupBatchSize = 64

// NewLogCatchup constructs a catch-up engine bound to a single leader
// and target. onReplayTerm is invoked once per term boundary crossed
// during replay.
func NewLogCatchup(
	archive CatchupArchive,
	leaderID int32,
	logSessionID int32,
	startPosition, targetPosition int64,
	onReplayTerm func(leadershipTermID, logPosition, nowMs int64),
) *LogCatchup {
	return &LogCatchup{
		archive:       archive,
		catchupID:     nuid.Next(),
		leaderID:      leaderID,
		logSessionID:  logSessionID,
		startPosition: startPosition,
		targetPos:     targetPosition,
		current:       startPosition,
		limiter:       rate.NewLimiter(rate.Limit(20), 5),
		onReplayTerm:  onReplayTerm,
	}
}

// Connect opens the archive stream. Called once, from
// FollowerCatchupTransition.
func (c *LogCatchup) Connect() error {
	if c.connected {
		return nil
	}
	if err := c.archive.Connect(c.catchupID, c.leaderID, c.logSessionID, c.startPosition, c.targetPos); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// IsDone reports whether the replica has reached TargetPosition.
func (c *LogCatchup) IsDone() bool { return c.done }

// TargetPosition is the log position the follower will hold once
// catch-up completes.
func (c *LogCatchup) TargetPosition() int64 { return c.targetPos }

// DoWork pulls one rate-limited batch of replayed records and applies
// them. It never blocks: if the limiter has no tokens it returns 0, nil
// and tries again on the next tick.
func (c *LogCatchup) DoWork(nowMs int64) (int, error) {
	if c.done {
		return 0, nil
	}
	if !c.limiter.Allow() {
		return 0, nil
	}
	terms, done, err := c.archive.Poll(c.catchupID, catchupBatchSize)
	if err != nil {
		return 0, err
	}
	for _, t := range terms {
		c.current = t.LogPosition
		if c.onReplayTerm != nil {
			c.onReplayTerm(t.LeadershipTermID, t.LogPosition, nowMs)
		}
	}
	if done {
		c.done = true
		c.current = c.targetPos
	}
	return len(terms), nil
}

// Close releases the archive stream. Idempotent.
func (c *LogCatchup) Close() {
	if !c.connected {
		return
	}
	c.archive.Close(c.catchupID)
	c.connected = false
}
