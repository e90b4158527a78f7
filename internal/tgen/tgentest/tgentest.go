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

// Package tgentest provides a scripted tgen.Backend for unit tests.
package tgentest

import (
	"context"
	"fmt"
	"time"

	"github.com/openconfig/tgenutils/internal/tgen"
)

// Backend replays scripted statistics documents. Documents are queued per
// statistics mode and port handle; the last queued document is repeated once
// the queue is drained.
type Backend struct {
	TGKind tgen.Kind
	// Handles maps port names to handles. Unmapped ports use their name.
	Handles map[string]string
	// Status is returned by SessionErrors.
	Status *tgen.SessionStatus
	// Err, when set, is returned by TrafficStats.
	Err error

	responses    map[string][]tgen.Stats
	customFilter map[string][]tgen.Stats

	// Queries records every TrafficStats query.
	Queries []tgen.StatsQuery
	// CustomFilterQueries records the handle of every CustomFilterStats call.
	CustomFilterQueries []string
	// Diagnostics records every CollectDiagnostics reason.
	Diagnostics []string
	// SessionQueries counts SessionErrors calls.
	SessionQueries int
}

// New returns an empty Backend of the given kind.
func New(kind tgen.Kind) *Backend {
	return &Backend{
		TGKind:       kind,
		responses:    map[string][]tgen.Stats{},
		customFilter: map[string][]tgen.Stats{},
	}
}

func key(mode, handle string) string { return mode + "|" + handle }

func mustStats(doc any) tgen.Stats {
	if s, ok := doc.(tgen.Stats); ok {
		return s
	}
	s, err := tgen.StatsFromValue(doc)
	if err != nil {
		panic(fmt.Sprintf("tgentest: %v", err))
	}
	return s
}

// Add queues documents for TrafficStats calls of mode on handle.
func (b *Backend) Add(mode, handle string, docs ...any) *Backend {
	for _, d := range docs {
		b.responses[key(mode, handle)] = append(b.responses[key(mode, handle)], mustStats(d))
	}
	return b
}

// AddCustomFilter queues documents for CustomFilterStats calls on handle.
func (b *Backend) AddCustomFilter(handle string, docs ...any) *Backend {
	for _, d := range docs {
		b.customFilter[handle] = append(b.customFilter[handle], mustStats(d))
	}
	return b
}

// Kind implements tgen.Backend.
func (b *Backend) Kind() tgen.Kind { return b.TGKind }

// PortHandle implements tgen.Backend.
func (b *Backend) PortHandle(port string) (string, error) {
	if h, ok := b.Handles[port]; ok {
		return h, nil
	}
	return port, nil
}

func pop(queue map[string][]tgen.Stats, k string) (tgen.Stats, error) {
	q := queue[k]
	if len(q) == 0 {
		return tgen.Stats{}, fmt.Errorf("no stats scripted for %s", k)
	}
	s := q[0]
	if len(q) > 1 {
		queue[k] = q[1:]
	}
	return s, nil
}

// TrafficStats implements tgen.Backend.
func (b *Backend) TrafficStats(_ context.Context, q tgen.StatsQuery) (tgen.Stats, error) {
	b.Queries = append(b.Queries, q)
	if b.Err != nil {
		return tgen.Stats{}, b.Err
	}
	return pop(b.responses, key(q.Mode, q.PortHandle))
}

// CustomFilterStats implements tgen.Backend.
func (b *Backend) CustomFilterStats(_ context.Context, handle string, _ time.Duration) (tgen.Stats, error) {
	b.CustomFilterQueries = append(b.CustomFilterQueries, handle)
	return pop(b.customFilter, handle)
}

// SessionErrors implements tgen.Backend.
func (b *Backend) SessionErrors(context.Context, string, string) (*tgen.SessionStatus, error) {
	b.SessionQueries++
	return b.Status, nil
}

// CollectDiagnostics implements tgen.Backend.
func (b *Backend) CollectDiagnostics(_ context.Context, reason string) error {
	b.Diagnostics = append(b.Diagnostics, reason)
	return nil
}

// Aggregate builds an aggregate statistics document for one port.
func Aggregate(handle string, tx, rx map[string]any, ready bool) map[string]any {
	doc := map[string]any{
		handle: map[string]any{
			tgen.StatsAggregate: map[string]any{tgen.Tx: tx, tgen.Rx: rx},
		},
		"status": "1",
	}
	if ready {
		doc["waiting_for_stats"] = "0"
	} else {
		doc["waiting_for_stats"] = "1"
	}
	return doc
}

// Counts is a shorthand for a single counter map.
func Counts(kv ...any) map[string]any {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

// InstallSleep replaces tgen.Sleep with a recorder for the duration of a test
// and returns the recorded durations.
func InstallSleep(t interface{ Cleanup(func()) }) *[]time.Duration {
	var slept []time.Duration
	orig := tgen.Sleep
	tgen.Sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { tgen.Sleep = orig })
	return &slept
}
