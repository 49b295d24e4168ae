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

import "fmt"

// Logger is the minimal structured-logging surface the election state
// machine needs from its host process. It is deliberately narrower than
// a general purpose logging package: the election only ever needs to
// report what it is doing, not configure sinks or levels itself.
type Logger interface {
	Debugf(format string, args ...any)
	Noticef(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// noopLogger discards everything. Used when a Config omits a Logger so
// the election never has to nil-check before logging.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)  {}
func (noopLogger) Noticef(string, ...any) {}
func (noopLogger) Warnf(string, ...any)   {}
func (noopLogger) Errorf(string, ...any)  {}

func (e *Election) debug(format string, args ...any) {
	if !e.dflag {
		return
	}
	e.log.Debugf(e.prefix+format, args...)
}

func (e *Election) notice(format string, args ...any) {
	e.log.Noticef(e.prefix+format, args...)
}

func (e *Election) warn(format string, args ...any) {
	e.log.Warnf(e.prefix+format, args...)
}

func (e *Election) error(format string, args ...any) {
	e.log.Errorf(e.prefix+format, args...)
}

func logPrefix(memberID int32) string {
	return fmt.Sprintf("ELECTION [%d] ", memberID)
}
