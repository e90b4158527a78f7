// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tgen contains the backend contract for traffic generators and the
// low level helpers used to read their statistics: counter name resolution,
// a fetch loop that tolerates stats which are not ready yet, and the
// classification of hard failures when transmit counters are missing.
package tgen

import (
	"context"
	"sort"
	"time"
)

// Kind identifies the family of a traffic generator backend.
type Kind string

const (
	// KindSTC is a Spirent TestCenter style backend.
	KindSTC Kind = "stc"
	// KindIxia is an Ixia/Keysight style backend, including OTG servers.
	KindIxia Kind = "ixia"
	// KindScapy is the software traffic generator.
	KindScapy Kind = "scapy"
)

// IsSoft reports whether the backend is the software simulator.
func (k Kind) IsSoft() bool { return k == KindScapy }

// tableKind returns the kind used for counter name lookups; the simulator
// reports its counters with the ixia names.
func (k Kind) tableKind() Kind {
	if k == KindScapy {
		return KindIxia
	}
	return k
}

// Statistics modes understood by Backend.TrafficStats.
const (
	StatsAggregate    = "aggregate"
	StatsStreams      = "streams"
	StatsTrafficItem  = "traffic_item"
	StatsFlow         = "flow"
	StatsCustomFilter = "custom_filter"
)

// Traffic directions.
const (
	Tx = "tx"
	Rx = "rx"
)

// StatsQuery is a single statistics request for one port.
type StatsQuery struct {
	PortHandle string
	Mode       string
	// StreamID is informational for backends that can narrow the reply.
	StreamID string
	// ScaleMode is only set for backends that support it.
	ScaleMode bool
}

// PortState is the link/session state a backend reports for a port.
type PortState struct {
	State string `json:"state"`
}

// SessionStatus lists the ports implicated by a port or stream handle and
// their current state.
type SessionStatus struct {
	Ports  []string             `json:"ports"`
	States map[string]PortState `json:"states"`
}

// DownPorts returns the implicated ports whose state is "down", sorted.
func (s *SessionStatus) DownPorts() []string {
	if s == nil {
		return nil
	}
	var down []string
	for _, p := range s.Ports {
		if s.States[p].State == "down" {
			down = append(down, p)
		}
	}
	sort.Strings(down)
	return down
}

// Backend is a traffic generator that can be queried for statistics.
// Implementations block until the backend answers.
type Backend interface {
	Kind() Kind
	// PortHandle maps a test port name to the backend's port handle.
	PortHandle(port string) (string, error)
	// TrafficStats returns the raw statistics document for one port.
	TrafficStats(ctx context.Context, q StatsQuery) (Stats, error)
	// CustomFilterStats returns the capture derived custom filter counters
	// of a port after waiting up to captureWait for the capture to settle.
	CustomFilterStats(ctx context.Context, portHandle string, captureWait time.Duration) (Stats, error)
	// SessionErrors returns the ports implicated by the handles and their state.
	SessionErrors(ctx context.Context, portHandle, streamHandle string) (*SessionStatus, error)
	// CollectDiagnostics asks the backend to dump its diagnostics, tagged with reason.
	CollectDiagnostics(ctx context.Context, reason string) error
}

// Reporter is the part of testing.TB used by the verification helpers.
// Fatalf is the hard failure signal and must not return.
type Reporter interface {
	Helper()
	Logf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Sleep is the function used for every settle and retry wait. Tests replace it.
var Sleep = time.Sleep

// Wait logs the reason and blocks for d.
func Wait(t Reporter, d time.Duration, reason string) {
	t.Helper()
	t.Logf("Sleeping for %v: %s", d, reason)
	Sleep(d)
}
