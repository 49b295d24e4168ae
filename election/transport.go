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

// Transport is the messaging surface the election consumes. Wire
// framing is out of scope of this module: only the semantic fields of
// each message matter here. Every Send* method returns whether the
// transport *accepted* the message, not whether it was delivered - a
// false return means back-pressure, and the FSM will retry on a later
// tick.
type Transport interface {
	// Poll fans any inbound messages into the Election's On* callbacks
	// and returns the number handled. nowMs is the current tick's
	// timestamp, threaded through so a callback that transitions state
	// never has to consult a wall clock of its own.
	Poll(nowMs int64) int

	SendCanvassPosition(to *Member, logLeadershipTermID, logPosition int64, followerID int32) bool
	SendRequestVote(to *Member, logLeadershipTermID, logPosition, candidateTermID int64, candidateID int32) bool
	SendVote(to *Member, candidateTermID, logLeadershipTermID, logPosition int64, candidateID, followerID int32, granted bool) bool
	SendNewLeadershipTerm(to *Member, logLeadershipTermID, logPosition, leadershipTermID int64, leaderID, logSessionID int32) bool
	SendAppendedPosition(to *Member, leadershipTermID, logPosition int64, followerID int32) bool
	SendCommitPosition(to *Member, leadershipTermID, logPosition int64, leaderID int32) bool
}
