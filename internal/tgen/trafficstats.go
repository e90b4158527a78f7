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

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TrafficStatsQuery selects the counters read by GetTrafficStats.
type TrafficStatsQuery struct {
	PortHandle string
	// Mode is aggregate (default) or streams.
	Mode string
	// Direction is the direction whose counter gates the fetch, rx by default.
	Direction    string
	StreamHandle string
	ScaleMode    bool
	// ScapyStreamStats reads per-port stream statistics from the simulator
	// instead of its traffic items.
	ScapyStreamStats bool
}

// Counters are normalized packet and byte totals of one direction.
type Counters struct {
	TotalPackets  int64
	TotalBytes    int64
	OversizeCount int64
}

// TrafficStats are the normalized counters of a port or stream.
type TrafficStats struct {
	Tx Counters
	Rx Counters
}

// GetTrafficStats reads the counters of a port, or of one stream when Mode
// is streams, and normalizes them. No tolerance is applied. Missing or
// malformed counters read as zero.
func GetTrafficStats(ctx context.Context, t Reporter, b Backend, q TrafficStatsQuery) (*TrafficStats, error) {
	t.Helper()
	if q.PortHandle == "" {
		return nil, errors.New("port handle is required")
	}
	mode := q.Mode
	if mode == "" {
		mode = StatsAggregate
	}
	r := ReaderFor(b.Kind(), q.ScapyStreamStats)
	switch mode {
	case StatsAggregate:
	case StatsStreams:
		mode = r.StreamMode()
	default:
		return nil, fmt.Errorf("unsupported stats mode %q", q.Mode)
	}
	direction := q.Direction
	if direction == "" {
		direction = Rx
	}
	stats := FetchStats(ctx, t, b, FetchQuery{
		PortHandle: q.PortHandle,
		Mode:       mode,
		Comparison: PacketCount,
		Direction:  direction,
		StreamID:   q.StreamHandle,
		ScaleMode:  q.ScaleMode,
	})

	ts := &TrafficStats{}
	switch mode {
	case StatsAggregate:
		entry := []string{q.PortHandle, mode}
		ts.Tx.TotalPackets = stats.IntOr(0, append(entry, Tx, "total_pkts")...)
		ts.Tx.TotalBytes = stats.IntOr(0, append(entry, Tx, "pkt_byte_count")...)
		ts.Rx.TotalPackets = stats.IntOr(0, append(entry, Rx, "total_pkts")...)
		ts.Rx.TotalBytes = stats.IntOr(0, append(entry, Rx, "pkt_byte_count")...)
		ts.Rx.OversizeCount = stats.IntOr(0, append(entry, Rx, "oversize_count")...)
	default:
		sq := StatsQuery{PortHandle: q.PortHandle, Mode: mode, StreamID: q.StreamHandle}
		txPath := CounterPath(sq, Tx, "total_pkts")
		rxPath := CounterPath(sq, Rx, "total_pkts")
		ts.Tx.TotalPackets = stats.IntOr(0, txPath...)
		ts.Rx.TotalPackets = stats.IntOr(0, rxPath...)
	}
	t.Logf("%s TG STATS PORT=%s STREAM=%s", strings.ToUpper(mode), q.PortHandle, q.StreamHandle)
	t.Logf("TX: %+v RX: %+v", ts.Tx, ts.Rx)
	return ts, nil
}
