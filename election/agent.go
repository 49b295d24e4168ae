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

// Role is the role the Agent advertises for this node.
type Role int8

const (
	RoleFollower Role = iota
	RoleCandidate
	RoleLeader
)

func (r Role) String() string {
	switch r {
	case RoleFollower:
		return "follower"
	case RoleCandidate:
		return "candidate"
	case RoleLeader:
		return "leader"
	}
	return "unknown"
}

// Subscription is a follower's log subscription, returned by
// Agent.CreateAndRecordLogSubscriptionAsFollower and passed back into
// Agent.AwaitImageAndCreateFollowerLogAdapter. The election calls
// AddDestination itself once it has a live endpoint to advertise;
// everything else about the subscription is opaque to it.
type Subscription interface {
	AddDestination(uri string) error
}

// Agent is the consensus agent contract: the long-lived collaborator
// that owns the log subscription, service plumbing, and role
// advertisement outside of the election itself.
type Agent interface {
	// PrepareForElection truncates/rolls back to a safe local position
	// and returns it. Called exactly once, on non-startup entry to Init.
	PrepareForElection(logPosition int64) int64

	// Role advertises this node's current role.
	Role(Role)

	// BecomeLeader promotes this node locally and (re)publishes the log.
	BecomeLeader()

	// LogRecordingID returns the identifier of the local log's archive
	// recording.
	LogRecordingID() int64

	// CreateAndRecordLogSubscriptionAsFollower creates (and durably
	// records) a log subscription for the given channel starting at
	// fromPosition.
	CreateAndRecordLogSubscriptionAsFollower(channelURI string, fromPosition int64) Subscription

	// AwaitServicesReady blocks (from the FSM's perspective,
	// synchronously) until downstream services are ready to consume the
	// given log session.
	AwaitServicesReady(channelURI string, sessionID int32)

	// AwaitImageAndCreateFollowerLogAdapter blocks until the
	// subscription has a live image and wires a follower log adapter to
	// it.
	AwaitImageAndCreateFollowerLogAdapter(sub Subscription, sessionID int32)

	// CatchupLogPoll is called on every FollowerCatchup tick with the
	// current catch-up target so the agent can report progress.
	CatchupLogPoll(targetPosition int64)

	// UpdateMemberDetails refreshes this node's own member record
	// before it starts advertising a live log destination.
	UpdateMemberDetails()

	// ElectionComplete returns true once post-election plumbing (log
	// replication resumption, service handoff) is done. The FSM closes
	// once this returns true.
	ElectionComplete(nowMs int64) bool
}
