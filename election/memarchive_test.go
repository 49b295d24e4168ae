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

// MemCatchupArchive is a CatchupArchive that replays a fixed, scripted
// list of term boundaries a fixed number of records at a time, so tests
// can exercise multi-tick catch-up without a real archive.
type MemCatchupArchive struct {
	terms        []ReplayedTerm
	connectCalls int
	closed       map[string]bool
	cursor       map[string]int
}

func NewMemCatchupArchive(terms []ReplayedTerm) *MemCatchupArchive {
	return &MemCatchupArchive{
		terms:  terms,
		closed: make(map[string]bool),
		cursor: make(map[string]int),
	}
}

func (a *MemCatchupArchive) Connect(catchupID string, leaderID, logSessionID int32, fromPosition, targetPosition int64) error {
	a.connectCalls++
	a.cursor[catchupID] = 0
	return nil
}

func (a *MemCatchupArchive) Poll(catchupID string, maxRecords int) ([]ReplayedTerm, bool, error) {
	pos := a.cursor[catchupID]
	end := pos + maxRecords
	if end > len(a.terms) {
		end = len(a.terms)
	}
	batch := a.terms[pos:end]
	a.cursor[catchupID] = end
	return batch, end >= len(a.terms), nil
}

func (a *MemCatchupArchive) Close(catchupID string) {
	a.closed[catchupID] = true
}
