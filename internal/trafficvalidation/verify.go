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

// Package trafficvalidation verifies traffic generator counters of declared
// tx/rx port pairs against expected ratios within a tolerance.
//
// Measurements outside the tolerance are retried according to the Policy.
// A zero or unreadable tx counter is not a mismatch: it means traffic never
// started, and is reported through the Reporter's Fatalf after link state
// and backend diagnostics were collected.
package trafficvalidation

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/openconfig/tgenutils/internal/tgen"
)

// Verify waits for counters to settle and verifies every pair in the mode
// selected by the policy. The returned Result carries one verdict per pair,
// or per stream in the streamblock and filter modes. An invalid declaration
// or policy is returned as an error before any backend is queried.
func Verify(ctx context.Context, t tgen.Reporter, pairs []Pair, policy Policy) (*Result, error) {
	t.Helper()
	tgen.LogCall(t, "Verify", policy)
	p, err := policy.normalize(pairs)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, declErr(0, "pairs", "no traffic pairs declared")
	}
	for i := range pairs {
		if err := pairs[i].validate(i+1, p.Mode); err != nil {
			return nil, err
		}
	}
	if err := p.checkCounters(pairs); err != nil {
		return nil, err
	}
	glog.V(1).Info("param validation successful")

	v := &verifier{
		ctx:    ctx,
		t:      t,
		policy: p,
		cache:  map[cacheKey]tgen.Stats{},
		result: &Result{ID: uuid.NewString()},
	}
	glog.Infof("[%s] verifying %d traffic pairs, mode %s, comparison %s", v.result.ID, len(pairs), p.Mode, p.Comparison)
	tgen.Wait(t, p.settleDelay(), p.Mode+"_stats")

	var verify func([]Pair) error
	switch p.Mode {
	case ModeAggregate:
		verify = v.verifyAggregate
	case ModeStreamblock:
		verify = v.verifyStreams
	case ModeFilter:
		verify = v.verifyFilters
	case ModeCustomFilter:
		verify = v.verifyCustomFilters
	}
	if err := verify(pairs); err != nil {
		return nil, fmt.Errorf("traffic verification %s: %w", v.result.ID, err)
	}

	v.result.Passed = true
	for _, vd := range v.result.Verdicts {
		v.result.Passed = v.result.Passed && vd.Passed
	}
	glog.Infof("[%s] traffic verification passed: %v", v.result.ID, v.result.Passed)
	return v.result, nil
}
