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
	"encoding/binary"
	"os"

	"github.com/minio/highwayhash"
)

// MarkFile is the durable slot for candidateTermID. Persisting a term
// here happens-before granting a vote at that term or entering
// FollowerBallot/CandidateBallot.
type MarkFile interface {
	CandidateTermID() int64
	SetCandidateTermID(int64) error
}

// MemMarkFile is an in-memory MarkFile for tests.
type MemMarkFile struct {
	term int64
}

// NewMemMarkFile returns a MemMarkFile with no prior candidacy recorded.
func NewMemMarkFile() *MemMarkFile {
	return &MemMarkFile{term: NullValue}
}

func (m *MemMarkFile) CandidateTermID() int64 { return m.term }

func (m *MemMarkFile) SetCandidateTermID(term int64) error {
	m.term = term
	return nil
}

const (
	markFileMagic  = "ELMK"
	markFileTermSz = 8
	markFileSumSz  = highwayhash.Size64
	markFileSz     = len(markFileMagic) + markFileTermSz + markFileSumSz
)

// markFileHashKey is a fixed key rather than one derived per-cluster:
// the mark file protects against torn writes and disk corruption, not
// against a hostile peer, so a shared key is sufficient.
var markFileHashKey = [32]byte{}

// FileMarkFile persists candidateTermID to a small fixed-layout file,
// fsynced on every write. Corruption is detected via a HighwayHash-64
// checksum over the header and term.
type FileMarkFile struct {
	path string
	term int64
}

// OpenFileMarkFile opens or creates the mark file at path, restoring any
// previously persisted candidateTermID. If the file exists but is
// truncated or fails its checksum, it returns a usable FileMarkFile
// seeded at NullValue alongside ErrMarkFileCorrupt: it can never report
// a term that is too high, only fall back to NullValue, but the caller
// decides whether losing the persisted term is fatal or worth a warning
// and a fresh canvass.
func OpenFileMarkFile(path string) (*FileMarkFile, error) {
	f := &FileMarkFile{path: path, term: NullValue}
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	if len(buf) != markFileSz {
		return f, ErrMarkFileCorrupt
	}
	if string(buf[:len(markFileMagic)]) != markFileMagic {
		return f, ErrMarkFileCorrupt
	}
	body := buf[:len(buf)-markFileSumSz]
	sum := buf[len(buf)-markFileSumSz:]
	hh, err := highwayhash.New64(markFileHashKey[:])
	if err != nil {
		return nil, err
	}
	hh.Write(body)
	if !bytesEqual(hh.Sum(nil), sum) {
		return f, ErrMarkFileCorrupt
	}
	f.term = int64(binary.LittleEndian.Uint64(body[len(markFileMagic):]))
	return f, nil
}

func (f *FileMarkFile) CandidateTermID() int64 { return f.term }

func (f *FileMarkFile) SetCandidateTermID(term int64) error {
	if f.term == term {
		return nil
	}
	buf := make([]byte, 0, markFileSz)
	buf = append(buf, markFileMagic...)
	var tb [markFileTermSz]byte
	binary.LittleEndian.PutUint64(tb[:], uint64(term))
	buf = append(buf, tb[:]...)

	hh, err := highwayhash.New64(markFileHashKey[:])
	if err != nil {
		return err
	}
	hh.Write(buf)
	buf = hh.Sum(buf)

	if err := writeFileWithSync(f.path, buf, 0640); err != nil {
		return err
	}
	f.term = term
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func writeFileWithSync(name string, data []byte, perm os.FileMode) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC | os.O_SYNC
	f, err := os.OpenFile(name, flags, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
