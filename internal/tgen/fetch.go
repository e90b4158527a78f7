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
	"time"

	"github.com/golang/glog"
)

const (
	fetchAttempts = 4
	fetchInterval = 2 * time.Second
)

// FetchQuery describes the counter FetchStats must see before it returns.
type FetchQuery struct {
	PortHandle string
	// Mode is the statistics mode: aggregate, streams or traffic_item.
	Mode       string
	Comparison string
	Direction  string
	StreamID   string
	ScaleMode  bool
}

// FetchStats queries b for the statistics of one port and returns the raw
// document. Backends need a moment after traffic starts or stops before
// their counters settle, so the query is repeated up to four times while the
// backend reports that it is still collecting, or while the requested
// transmit counter is zero or unreadable. Receive counters are accepted as
// soon as the backend is ready.
//
// A transmit counter that is still zero, or any counter that cannot be read,
// after the last attempt is a hard failure reported through FailTx.
func FetchStats(ctx context.Context, t Reporter, b Backend, q FetchQuery) Stats {
	t.Helper()
	counter, err := CounterName(q.Mode, b.Kind(), q.Comparison, q.Direction)
	if err != nil {
		t.Fatalf("FetchStats(%s): %v", q.PortHandle, err)
		return Stats{}
	}
	r := ReaderFor(b.Kind(), false)
	sq := StatsQuery{PortHandle: q.PortHandle, Mode: q.Mode, StreamID: q.StreamID}
	if r.SupportsScaleMode() {
		sq.ScaleMode = q.ScaleMode
	}

	var (
		stats     Stats
		value     float64
		available bool
	)
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			glog.Warningf("TG stats are not fully ready. Trying to fetch stats again.... iteration %d", attempt)
			Wait(t, fetchInterval, "waiting before fetch stats again")
		}
		s, err := b.TrafficStats(ctx, sq)
		if err != nil {
			statsError(t, "traffic_stats", stats, err)
			available = false
			continue
		}
		stats = s
		value, err = r.Counter(stats, sq, q.Direction, counter)
		available = err == nil
		if err != nil {
			statsError(t, "traffic_stats", stats, err)
		}
		if r.Ready(stats) && (q.Direction == Rx || (available && value != 0)) {
			break
		}
	}

	if !available || (q.Direction == Tx && value == 0) {
		name, item := "port", q.PortHandle
		if q.StreamID != "" {
			name, item = "stream handle", q.StreamID
		}
		status, err := b.SessionErrors(ctx, q.PortHandle, q.StreamID)
		if err != nil {
			glog.Warningf("Cannot get session errors for %s %s: %v", name, item, err)
		}
		FailTx(ctx, t, b, counter, name, item, stats, status)
	}
	return stats
}

func statsError(t Reporter, which string, stats Stats, err error) {
	t.Helper()
	t.Logf("Could not get %s from TGEN, is traffic started? %v", which, err)
	glog.Errorf("Could not get %s from TGEN: %v: %s", which, err, stats)
}
