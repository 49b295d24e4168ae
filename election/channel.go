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
	"sort"
	"strconv"
	"strings"
)

// Parameter names for the two channel URI derivations used by the
// catch-up handshake. Only the semantic fields matter here - the
// on-wire framing of the transport is out of scope.
const (
	paramControlMode = "control-mode"
	paramSessionID   = "session-id"
	paramTags        = "tags"
	paramEndpoint    = "endpoint"
	paramControl     = "control"

	controlModeManual = "manual"

	// LogSubscriptionTags marks the follower's log subscription so the
	// host process can find it again for the catch-up/live splice.
	LogSubscriptionTags = "election-log"
)

// channelURI is a minimal key=value channel URI format
// (media:host?param=val|param2=val2), just enough to support the two
// derivations FollowerLogChannel and FollowerLogDestination need. It is
// not a general transport codec.
type channelURI struct {
	prefix string
	params map[string]string
}

func parseChannelURI(s string) channelURI {
	prefix, query, found := strings.Cut(s, "?")
	c := channelURI{prefix: prefix, params: make(map[string]string)}
	if !found || query == "" {
		return c
	}
	for _, pair := range strings.Split(query, "|") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		c.params[k] = v
	}
	return c
}

func (c channelURI) put(key, value string) channelURI {
	c.params[key] = value
	return c
}

func (c channelURI) remove(key string) channelURI {
	delete(c.params, key)
	return c
}

func (c channelURI) String() string {
	if len(c.params) == 0 {
		return c.prefix
	}
	keys := make([]string, 0, len(c.params))
	for k := range c.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(c.prefix)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(c.params[k])
	}
	return b.String()
}

// FollowerLogChannel derives the log subscription channel URI a
// follower uses to create its catch-up/live subscription: strip the
// control endpoint, force manual control mode, stamp the session id,
// and tag the subscription.
func FollowerLogChannel(logChannel string, sessionID int32) string {
	c := parseChannelURI(logChannel)
	c = c.remove(paramControl)
	c = c.put(paramControlMode, controlModeManual)
	c = c.put(paramSessionID, strconv.Itoa(int(sessionID)))
	c = c.put(paramTags, LogSubscriptionTags)
	return c.String()
}

// FollowerLogDestination derives the URI a follower adds as the live
// log destination once it has an endpoint of its own to advertise.
func FollowerLogDestination(logChannel, logEndpoint string) string {
	c := parseChannelURI(logChannel)
	c = c.put(paramEndpoint, logEndpoint)
	return c.String()
}
