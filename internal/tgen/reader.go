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

package tgen

// Reader knows how a backend kind lays out its statistics documents.
type Reader interface {
	// Counter extracts one counter of a direction from a statistics document.
	Counter(s Stats, q StatsQuery, direction, counter string) (float64, error)
	// Ready reports whether the document holds settled statistics.
	Ready(s Stats) bool
	// SupportsScaleMode reports whether queries may carry ScaleMode.
	SupportsScaleMode() bool
	// StreamMode is the statistics mode used for per-stream counters.
	StreamMode() string
}

// ReaderFor returns the Reader for a backend kind. scapyStreamStats selects
// per-port stream statistics instead of traffic items on the simulator.
func ReaderFor(kind Kind, scapyStreamStats bool) Reader {
	switch kind {
	case KindSTC:
		return stcReader{}
	case KindScapy:
		return ixiaReader{streamStats: scapyStreamStats}
	}
	return ixiaReader{}
}

// CounterPath returns the keys under which a counter lives for a query.
func CounterPath(q StatsQuery, direction, counter string) []string {
	switch q.Mode {
	case StatsTrafficItem:
		return []string{StatsTrafficItem, q.StreamID, direction, counter}
	case StatsStreams:
		return []string{q.PortHandle, "stream", q.StreamID, direction, counter}
	}
	return []string{q.PortHandle, q.Mode, direction, counter}
}

type stcReader struct{}

func (stcReader) Counter(s Stats, q StatsQuery, direction, counter string) (float64, error) {
	return s.Number(CounterPath(q, direction, counter)...)
}

// STC answers synchronously and has no readiness flag.
func (stcReader) Ready(Stats) bool { return true }

func (stcReader) SupportsScaleMode() bool { return true }

func (stcReader) StreamMode() string { return StatsStreams }

type ixiaReader struct {
	streamStats bool
}

func (ixiaReader) Counter(s Stats, q StatsQuery, direction, counter string) (float64, error) {
	v, err := s.Number(CounterPath(q, direction, counter)...)
	if err != nil {
		return 0, err
	}
	// Counters are integral even when reported as "12.0".
	return float64(int64(v)), nil
}

// Ready requires an explicit waiting_for_stats of "0"; an absent flag means
// the statistics are still being collected.
func (ixiaReader) Ready(s Stats) bool {
	v, ok := s.Str("waiting_for_stats")
	return ok && v == "0"
}

func (ixiaReader) SupportsScaleMode() bool { return false }

func (r ixiaReader) StreamMode() string {
	if r.streamStats {
		return StatsStreams
	}
	return StatsTrafficItem
}
