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
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// RecordingEntry is one row of the recording log: (recordingID, termID,
// logPosition, timestamp). RecordingID is nil for a skipped intermediate
// term placeholder.
type RecordingEntry struct {
	RecordingID *int64
	TermID      int64
	LogPosition int64
	TimestampMs int64
}

// RecordingLog is the durable ledger of leadership terms.
type RecordingLog interface {
	// AppendTerm appends one entry. recordingID == nil records the
	// NULL placeholder used for skipped intermediate terms.
	// SQLiteRecordingLog keys entries by termID, so appending a term it
	// already holds replaces that entry; MemRecordingLog keeps both.
	AppendTerm(recordingID *int64, termID, logPosition, timestampMs int64) error
	Entries() ([]RecordingEntry, error)
}

// MemRecordingLog is an in-memory RecordingLog for tests.
type MemRecordingLog struct {
	entries []RecordingEntry
}

func NewMemRecordingLog() *MemRecordingLog { return &MemRecordingLog{} }

func (m *MemRecordingLog) AppendTerm(recordingID *int64, termID, logPosition, timestampMs int64) error {
	m.entries = append(m.entries, RecordingEntry{recordingID, termID, logPosition, timestampMs})
	return nil
}

func (m *MemRecordingLog) Entries() ([]RecordingEntry, error) {
	out := make([]RecordingEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

const createRecordingLog = `
create table if not exists recording_log (
	term_id      integer primary key,
	recording_id integer,
	log_position integer not null,
	timestamp_ms integer not null
);`

// SQLiteRecordingLog persists the recording log to an embedded SQLite
// database, the same storage engine the rest of this codebase's lineage
// reaches for when a durable structure is naturally relational (see
// server/stree's SQL-backed subject index).
type SQLiteRecordingLog struct {
	conn *sqlite.Conn
}

// OpenSQLiteRecordingLog opens (creating if necessary) the recording log
// database at path. Pass ":memory:" for an ephemeral, on-disk-schema
// compatible instance useful in tests that still want to exercise the
// real SQL path.
func OpenSQLiteRecordingLog(path string) (*SQLiteRecordingLog, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("election: open recording log: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, createRecordingLog, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("election: init recording log schema: %w", err)
	}
	return &SQLiteRecordingLog{conn: conn}, nil
}

func (r *SQLiteRecordingLog) Close() error {
	return r.conn.Close()
}

func (r *SQLiteRecordingLog) AppendTerm(recordingID *int64, termID, logPosition, timestampMs int64) error {
	var recArg any
	if recordingID != nil {
		recArg = *recordingID
	}
	return sqlitex.ExecuteTransient(r.conn,
		`insert or replace into recording_log (term_id, recording_id, log_position, timestamp_ms) values (?, ?, ?, ?);`,
		&sqlitex.ExecOptions{Args: []any{termID, recArg, logPosition, timestampMs}})
}

func (r *SQLiteRecordingLog) Entries() ([]RecordingEntry, error) {
	var entries []RecordingEntry
	err := sqlitex.ExecuteTransient(r.conn,
		`select term_id, recording_id, log_position, timestamp_ms from recording_log order by term_id asc;`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				e := RecordingEntry{
					TermID:      stmt.ColumnInt64(0),
					LogPosition: stmt.ColumnInt64(2),
					TimestampMs: stmt.ColumnInt64(3),
				}
				if stmt.ColumnType(1) != sqlite.TypeNull {
					id := stmt.ColumnInt64(1)
					e.RecordingID = &id
				}
				entries = append(entries, e)
				return nil
			},
		})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
