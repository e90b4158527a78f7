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

package trafficvalidation

import (
	"fmt"
	"strings"
	"time"

	"github.com/openconfig/tgenutils/internal/tgen"
)

// Verification modes.
const (
	ModeAggregate    = "aggregate"
	ModeStreamblock  = "streamblock"
	ModeFilter       = "filter"
	ModeCustomFilter = "custom_filter"
)

const (
	baseDelay          = 5 * time.Second
	baseTolerance      = 5.0
	retryBand          = 5.0
	retryInterval      = 2 * time.Second
	defaultCaptureWait = 120 * time.Second
)

// Policy controls how traffic is verified. The zero value is usable: it
// verifies aggregate packet counts within 5% with one retry after a 5
// second settle delay.
type Policy struct {
	// DelayFactor multiplies the 5 second settle delay. Values below 1 mean 1.
	DelayFactor float64
	// ToleranceFactor multiplies the 5% tolerance. Zero means 1.
	ToleranceFactor float64
	// Retry is the number of retries of a mismatching measurement. Zero
	// allows a single retry when the mismatch is within 5% of the tolerance.
	Retry int
	// Comparison is one of tgen.PacketCount (default), tgen.PacketRate,
	// tgen.DropCount, tgen.DropRate or tgen.OversizeCount.
	Comparison string
	// Mode is one of the Mode constants, case insensitive. Defaults to
	// ModeAggregate.
	Mode string
	// ScaleMode is passed to backends that support scaled statistics.
	ScaleMode bool
	// CaptureWait bounds the capture used by ModeCustomFilter. Defaults to 120s.
	CaptureWait time.Duration
}

// normalize returns p with defaults applied. Declared backends are needed
// because rates are meaningless on a software traffic generator.
func (p Policy) normalize(pairs []Pair) (Policy, error) {
	if p.DelayFactor < 1 {
		p.DelayFactor = 1
	}
	if p.ToleranceFactor == 0 {
		p.ToleranceFactor = 1
	}
	if p.Retry < 0 {
		p.Retry = 0
	}
	if p.Comparison == "" {
		p.Comparison = tgen.PacketCount
	}
	if p.CaptureWait <= 0 {
		p.CaptureWait = defaultCaptureWait
	}
	p.Mode = strings.ToLower(p.Mode)
	switch p.Mode {
	case "":
		p.Mode = ModeAggregate
	case "streams":
		p.Mode = ModeStreamblock
	case ModeAggregate, ModeStreamblock, ModeFilter, ModeCustomFilter:
	default:
		return p, fmt.Errorf("unsupported verification mode %q", p.Mode)
	}
	for _, pair := range pairs {
		for _, b := range pair.backends() {
			if b != nil && b.Kind().IsSoft() {
				p.Comparison = tgen.PacketCount
			}
		}
	}
	return p, nil
}

func (p Policy) settleDelay() time.Duration {
	return time.Duration(p.DelayFactor * float64(baseDelay))
}

func (p Policy) tolerance() float64 {
	return baseTolerance * p.ToleranceFactor
}

// extraAttempts is the number of measurements allowed after the first.
func (p Policy) extraAttempts() int {
	if p.Retry > 0 {
		return p.Retry
	}
	return 1
}

// counterMode is the counter table used for the comparison in this mode.
func (p Policy) counterMode() string {
	switch p.Mode {
	case ModeStreamblock:
		return tgen.CounterStreamblock
	case ModeFilter:
		return tgen.CounterFilter
	}
	return tgen.CounterAggregate
}

// checkCounters reports a comparison that a declared backend cannot count.
func (p Policy) checkCounters(pairs []Pair) error {
	for _, pair := range pairs {
		for _, b := range pair.backends() {
			for _, dir := range []string{tgen.Tx, tgen.Rx} {
				if p.Mode == ModeCustomFilter && dir == tgen.Rx {
					continue
				}
				if _, err := tgen.CounterName(p.counterMode(), b.Kind(), p.Comparison, dir); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
