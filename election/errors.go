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

import "errors"

var (
	ErrNilConfig        = errors.New("election: no config given")
	ErrNoMembers        = errors.New("election: cluster membership is empty")
	ErrUnknownMember    = errors.New("election: unknown member id")
	ErrInvalidStateCode = errors.New("election: invalid state counter code")
	ErrCatchupFailed    = errors.New("election: log catchup failed")
	ErrClosed           = errors.New("election: election is closed")
	ErrMarkFileCorrupt  = errors.New("election: mark file checksum mismatch")
	ErrReservedMemberID = errors.New("election: member id 0 is reserved")
)
