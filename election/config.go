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

import "math/rand"

// Config carries everything an Election needs from its host process: the
// caller assembles collaborators and tunables once, and the election
// never reaches out to global state to find them.
type Config struct {
	// Members is the fixed cluster membership, including the entry for
	// SelfID. Must not be mutated after the Election is constructed.
	// Member id 0 is reserved (see AppointedLeaderID) and rejected by
	// validate.
	Members []*Member
	SelfID  int32

	// AppointedLeaderID disables normal canvass/nominate timing for the
	// named member when set; NullValue disables appointment. The Go zero
	// value (0) is also treated as disabled - member id 0 is reserved
	// and never a valid cluster member - so a Config literal that omits
	// this field behaves the same as one that sets it to NullValue,
	// instead of silently appointing "member 0" and wedging every real
	// member in perpetual canvassing.
	AppointedLeaderID int32

	Transport    Transport
	Archive      CatchupArchive
	MarkFile     MarkFile
	RecordingLog RecordingLog
	Agent        Agent
	Logger       Logger

	// LogChannel is the base channel URI used to derive the follower
	// subscription and live destination URIs.
	LogChannel string

	// Rand drives nomination jitter: inject a seeded source so tests can
	// exercise nomination timing deterministically.
	Rand *rand.Rand

	Debug bool

	StatusIntervalNs          int64
	LeaderHeartbeatIntervalNs int64
	ElectionTimeoutNs         int64
	StartupStatusTimeoutNs    int64
}

const nsPerMs = int64(1_000_000)

func (c *Config) validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if len(c.Members) == 0 {
		return ErrNoMembers
	}
	found := false
	for _, m := range c.Members {
		if m.ID == 0 {
			return ErrReservedMemberID
		}
		if m.ID == c.SelfID {
			found = true
		}
	}
	if !found {
		return ErrUnknownMember
	}
	if c.Transport == nil {
		return ErrNilConfig
	}
	if c.Archive == nil {
		return ErrNilConfig
	}
	if c.MarkFile == nil {
		return ErrNilConfig
	}
	if c.RecordingLog == nil {
		return ErrNilConfig
	}
	if c.Agent == nil {
		return ErrNilConfig
	}
	return nil
}

// appointedLeaderID normalizes AppointedLeaderID: the unset zero value
// reads back as NullValue, since validate has already rejected member
// id 0 as reserved.
func (c *Config) appointedLeaderID() int32 {
	if c.AppointedLeaderID == 0 {
		return NullValue
	}
	return c.AppointedLeaderID
}

func (c *Config) logger() Logger {
	if c.Logger == nil {
		return noopLogger{}
	}
	return c.Logger
}

func (c *Config) rand() *rand.Rand {
	if c.Rand == nil {
		return rand.New(rand.NewSource(1))
	}
	return c.Rand
}
