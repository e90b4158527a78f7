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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Traffic control actions.
const (
	ActionRun                = "run"
	ActionStop               = "stop"
	ActionReset              = "reset"
	ActionClearStats         = "clear_stats"
	ActionResetAndClearStats = "reset_and_clear_stats"
)

// TrafficController starts, stops and resets traffic on a port.
type TrafficController interface {
	TrafficControl(ctx context.Context, action, portHandle string) error
}

// PortTarget is a port handle on a controller.
type PortTarget struct {
	Controller TrafficController
	PortHandle string
}

// PortTrafficControl applies action to every target in order. The
// reset_and_clear_stats action is a reset followed by a clear_stats.
func PortTrafficControl(ctx context.Context, action string, targets ...PortTarget) error {
	actions := []string{action}
	if action == ActionResetAndClearStats {
		actions = []string{ActionReset, ActionClearStats}
	}
	for _, tg := range targets {
		for _, a := range actions {
			if err := tg.Controller.TrafficControl(ctx, a, tg.PortHandle); err != nil {
				return fmt.Errorf("traffic control %q on %s: %w", a, tg.PortHandle, err)
			}
		}
	}
	return nil
}

// PingRequest is one ping issued from an emulated device.
type PingRequest struct {
	PortHandle   string
	DeviceHandle string
	Destination  string
	// Count is only used by backends that ping in bursts (stc).
	Count int
}

// Pinger issues pings from emulated devices.
type Pinger interface {
	Kind() Kind
	// Ping returns {"tx": n, "rx": n} for stc and
	// {<port handle>: {"ping_details": text}} for the other kinds.
	Ping(ctx context.Context, req PingRequest) (Stats, error)
}

var (
	scapyPingRE = regexp.MustCompile(`([0-9]+)\s+packets transmitted,\s+([0-9]+)\s+received`)
	ixiaPingRE  = regexp.MustCompile(`([0-9]+)\s+requests sent,\s+([0-9]+)\s+replies received`)
)

// VerifyPing pings dst from the device and reports whether the expected
// number of replies arrived. On ixia and scapy each of the pingCount pings
// is issued separately and counts as one reply when all its requests were
// answered. A device without started sessions is a hard failure.
func VerifyPing(ctx context.Context, t Reporter, p Pinger, portHandle, deviceHandle, dst string, pingCount, expCount int) bool {
	t.Helper()
	switch p.Kind() {
	case KindSTC:
		res, err := p.Ping(ctx, PingRequest{PortHandle: portHandle, DeviceHandle: deviceHandle, Destination: dst, Count: pingCount})
		if err != nil {
			t.Logf("ping from %s to %s failed: %v", deviceHandle, dst, err)
			return false
		}
		t.Logf("ping output: %s", res)
		tx, txErr := res.Int(Tx)
		rx, rxErr := res.Int(Rx)
		return txErr == nil && rxErr == nil && tx == int64(pingCount) && rx == int64(expCount)
	case KindIxia, KindScapy:
	default:
		t.Logf("Need to add code for this tg type: %s", p.Kind())
		return false
	}

	re := ixiaPingRE
	if p.Kind() == KindScapy {
		re = scapyPingRE
	}
	count := 0
	for i := 0; i < pingCount; i++ {
		res, err := p.Ping(ctx, PingRequest{PortHandle: portHandle, DeviceHandle: deviceHandle, Destination: dst})
		if err != nil {
			t.Logf("ping from %s to %s failed: %v", deviceHandle, dst, err)
			continue
		}
		t.Logf("ping output: %s", res)
		if !res.Has(portHandle) {
			glog.Warningf("port_handle details not found in o/p")
			continue
		}
		details, ok := res.Str(portHandle, "ping_details")
		if !ok {
			glog.Warningf("ping_details details not found in o/p")
			continue
		}
		if strings.Contains(details, "No sessions were started") {
			if b, ok := p.(Backend); ok {
				if status, err := b.SessionErrors(ctx, portHandle, ""); err == nil {
					t.Logf("session status: %+v", status)
				}
			}
			t.Fatalf("tgen_failed_api: %s", details)
			return false
		}
		m := re.FindStringSubmatch(details)
		if m == nil {
			glog.Warningf("ping command o/p not matching regular expression")
			continue
		}
		sent, _ := strconv.Atoi(m[1])
		recv, _ := strconv.Atoi(m[2])
		if sent == recv {
			count++
		}
	}
	return count == expCount
}
