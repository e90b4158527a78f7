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
	"fmt"

	"github.com/golang/glog"
)

// Comparison kinds.
const (
	PacketCount   = "packet_count"
	PacketRate    = "packet_rate"
	DropCount     = "drop_count"
	DropRate      = "drop_rate"
	OversizeCount = "oversize_count"
)

// Counter table modes.
const (
	CounterAggregate   = "aggregate"
	CounterStreamblock = "streamblock"
	CounterFilter      = "filter"
)

type directionCounters map[string]map[string]string // direction -> comparison -> counter

var trafficCounters = map[string]map[Kind]directionCounters{
	CounterAggregate: {
		KindSTC: {
			Tx: {PacketCount: "pkt_count", PacketRate: "pkt_rate", OversizeCount: "pkt_count"},
			Rx: {PacketCount: "pkt_count", PacketRate: "pkt_rate", OversizeCount: "pkt_count"},
		},
		KindIxia: {
			Tx: {PacketCount: "raw_pkt_count", PacketRate: "total_pkt_rate", OversizeCount: "raw_pkt_count"},
			Rx: {PacketCount: "raw_pkt_count", PacketRate: "raw_pkt_rate", OversizeCount: "oversize_count"},
		},
	},
	CounterStreamblock: {
		KindSTC: {
			Tx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate", DropCount: "total_pkts", DropRate: "total_pkt_rate"},
			Rx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate", DropCount: "dropped_pkts", DropRate: "dropped_pkts_percent"},
		},
		KindIxia: {
			Tx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate", DropCount: "total_pkts", DropRate: "total_pkt_rate"},
			Rx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate", DropCount: "loss_pkts", DropRate: "loss_percent"},
		},
	},
	CounterFilter: {
		KindSTC: {
			Tx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate"},
			Rx: {PacketCount: "count", PacketRate: "rate_pps"},
		},
		KindIxia: {
			Tx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate"},
			Rx: {PacketCount: "total_pkts", PacketRate: "total_pkt_rate"},
		},
	},
}

// CounterError is returned for a combination missing from the counter table.
// It always indicates a programming or configuration error.
type CounterError struct {
	Mode       string
	Kind       Kind
	Comparison string
	Direction  string
}

func (e *CounterError) Error() string {
	return fmt.Sprintf("no counter for mode %q, tg type %q, comparison %q, direction %q", e.Mode, e.Kind, e.Comparison, e.Direction)
}

// counterMode maps statistics query modes onto counter table modes.
func counterMode(mode string) string {
	switch mode {
	case StatsStreams, StatsTrafficItem:
		return CounterStreamblock
	}
	return mode
}

// CounterName returns the backend specific counter key for a statistics mode,
// backend kind, comparison kind and direction.
func CounterName(mode string, kind Kind, comparison, direction string) (string, error) {
	name, ok := trafficCounters[counterMode(mode)][kind.tableKind()][direction][comparison]
	if !ok {
		return "", &CounterError{Mode: mode, Kind: kind, Comparison: comparison, Direction: direction}
	}
	if glog.V(2) {
		glog.Infof("TG type: %s, Comp_type: %s, Direction: %s, Counter_name: %s", kind, comparison, direction, name)
	}
	return name, nil
}

// MustCounterName is like CounterName but panics on an unknown combination.
func MustCounterName(mode string, kind Kind, comparison, direction string) string {
	name, err := CounterName(mode, kind, comparison, direction)
	if err != nil {
		panic(err)
	}
	return name
}
