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
	"context"
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/openconfig/tgenutils/internal/tgen"
)

// target identifies the item a measurement belongs to.
type target struct {
	pair        int
	info        string
	stream      string
	filterParam string
	filterValue string
}

// measurement is one expected/actual observation. reference is the tx
// counter used to scale the difference when nothing is expected.
type measurement struct {
	expected  float64
	actual    float64
	reference float64
}

// diffPct returns the difference between expected and actual in percent.
func diffPct(m measurement) float64 {
	switch {
	case m.expected > 0:
		return math.Abs(m.expected-m.actual) * 100 / m.expected
	case m.actual == 0:
		return 0
	case m.reference > 0:
		return math.Abs(m.actual) * 100 / m.reference
	}
	return math.Inf(1)
}

type cacheKey struct {
	backend tgen.Backend
	mode    string
	handle  string
}

// verifier holds the state of one Verify call.
type verifier struct {
	ctx    context.Context
	t      tgen.Reporter
	policy Policy
	cache  map[cacheKey]tgen.Stats
	result *Result
}

// fetch returns the statistics of handle in mode, querying the backend with
// tgen.FetchStats on a cache miss.
func (v *verifier) fetch(b tgen.Backend, handle, mode, direction, streamID string) tgen.Stats {
	v.t.Helper()
	k := cacheKey{backend: b, mode: mode, handle: handle}
	if s, ok := v.cache[k]; ok {
		return s
	}
	s := tgen.FetchStats(v.ctx, v.t, b, tgen.FetchQuery{
		PortHandle: handle,
		Mode:       mode,
		Comparison: v.policy.Comparison,
		Direction:  direction,
		StreamID:   streamID,
		ScaleMode:  v.policy.ScaleMode,
	})
	v.cache[k] = s
	return s
}

// query returns the statistics of handle in mode with a single query. A
// failed query yields an empty document.
func (v *verifier) query(b tgen.Backend, handle, mode string) tgen.Stats {
	v.t.Helper()
	k := cacheKey{backend: b, mode: mode, handle: handle}
	if s, ok := v.cache[k]; ok {
		return s
	}
	s, err := b.TrafficStats(v.ctx, tgen.StatsQuery{PortHandle: handle, Mode: mode})
	if err != nil {
		v.t.Logf("Could not get %s stats of %s: %v", mode, handle, err)
		glog.Errorf("[%s] %s stats of %s: %v", v.result.ID, mode, handle, err)
		return tgen.Stats{}
	}
	v.cache[k] = s
	return s
}

func (v *verifier) evict(b tgen.Backend, mode string, handles ...string) {
	for _, h := range handles {
		delete(v.cache, cacheKey{backend: b, mode: mode, handle: h})
	}
}

// fatalf reports a hard failure. Reporters that return from Fatalf get the
// failure back as an error.
func (v *verifier) fatalf(format string, args ...any) error {
	v.t.Helper()
	msg := fmt.Sprintf(format, args...)
	glog.Errorf("[%s] %s", v.result.ID, msg)
	v.t.Fatalf("%s", msg)
	return fmt.Errorf("traffic verification aborted: %s", msg)
}

// failTx reports the zero transmit counter of a stream read from a cached
// document. FetchStats only checked the stream the document was fetched for.
func (v *verifier) failTx(b tgen.Backend, handle, sid, counter string, s tgen.Stats) error {
	v.t.Helper()
	status, err := b.SessionErrors(v.ctx, handle, sid)
	if err != nil {
		glog.Warningf("[%s] cannot get session errors for stream handle %s: %v", v.result.ID, sid, err)
	}
	tgen.FailTx(v.ctx, v.t, b, counter, "stream handle", sid, s, status)
	return fmt.Errorf("traffic verification aborted: TX Counter %s is zero for stream %s", counter, sid)
}

// portHandles resolves ports on their backends.
func portHandles(ports []string, backends []tgen.Backend) ([]string, error) {
	handles := make([]string, len(ports))
	for i, port := range ports {
		h, err := backends[i].PortHandle(port)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve port %s: %w", port, err)
		}
		handles[i] = h
	}
	return handles, nil
}

// evaluate measures an item until it is within tolerance or its attempts
// are exhausted, and records the verdict. A measurement outside tolerance
// is retried up to extra times, but only while retries were requested or
// the difference is close to the tolerance. evict drops the cached
// statistics of the item before each retry. An error from measure aborts
// the verification.
func (v *verifier) evaluate(it target, extra int, evict func(), measure func() (measurement, error)) error {
	v.t.Helper()
	tolerance := v.policy.tolerance()
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			v.t.Logf("The difference is not in the given tolerance. So, retrying the stats fetch once again....%d", attempt)
			evict()
			tgen.Wait(v.t, retryInterval, "waiting before fetch stats again")
		}
		m, err := measure()
		if err != nil {
			return err
		}
		diff := diffPct(m)
		if diff <= tolerance {
			v.record(it, m, diff, true)
			return nil
		}
		if attempt < extra && (v.policy.Retry > 0 || diff <= tolerance+retryBand) {
			v.log(it, m, diff, false)
			continue
		}
		v.record(it, m, diff, false)
		return nil
	}
}

func (v *verifier) log(it target, m measurement, diff float64, passed bool) string {
	v.t.Helper()
	msg := validationMessage(passed, it, m, diff)
	v.t.Logf("%s", msg)
	glog.V(1).Infof("[%s] %s", v.result.ID, msg)
	v.result.lastMsg = msg
	return msg
}

func (v *verifier) record(it target, m measurement, diff float64, passed bool) {
	v.t.Helper()
	msg := v.log(it, m, diff, passed)
	v.result.Verdicts = append(v.result.Verdicts, Verdict{
		Pair:        it.pair,
		Stream:      it.stream,
		FilterParam: it.filterParam,
		FilterValue: it.filterValue,
		Expected:    m.expected,
		Actual:      m.actual,
		DiffPct:     diff,
		Passed:      passed,
		Message:     msg,
	})
}
