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
	"github.com/tidwall/gjson"

	"github.com/openconfig/tgenutils/internal/tgen"
)

// verifyFilters compares the weighted tx counter of every declared stream
// with the rx traffic matched by the stream's filter on the first rx port.
// Traffic that matches no filter entry counts as zero.
func (v *verifier) verifyFilters(pairs []Pair) error {
	v.t.Helper()
	for i := range pairs {
		p := &pairs[i]
		info := p.info(i + 1)
		v.t.Logf("Validating Traffic, %s, stream_list: %v, filter_param: %v, filter_val: %v", info, p.Streams, p.FilterParams, p.FilterValues)
		txHandles, err := portHandles(p.TxPorts, p.TxBackends)
		if err != nil {
			return err
		}
		rxHandles, err := portHandles(p.RxPorts[:1], p.RxBackends[:1])
		if err != nil {
			return err
		}
		rxBackend, rxHandle := p.RxBackends[0], rxHandles[0]
		rxMode := tgen.StatsFlow
		if rxBackend.Kind() == tgen.KindSTC {
			rxMode = tgen.StatsAggregate
		}

		for j, streams := range p.Streams {
			txBackend, txHandle := p.TxBackends[j], txHandles[j]
			for k, sid := range streams {
				ratio := p.Ratios[j].at(k)
				it := target{
					pair:        i + 1,
					info:        info,
					stream:      sid,
					filterParam: p.FilterParams[j][k],
					filterValue: p.FilterValues[j][k],
				}
				evict := func() {
					v.evict(txBackend, tgen.StatsStreams, txHandle)
					v.evict(rxBackend, rxMode, rxHandle)
				}
				measure := func() (measurement, error) {
					s := v.fetch(txBackend, txHandle, tgen.StatsStreams, tgen.Tx, sid)
					q := tgen.StatsQuery{PortHandle: txHandle, Mode: tgen.StatsStreams, StreamID: sid}
					tx := v.counter(txBackend, s, q, tgen.CounterFilter, tgen.Tx)
					if tx == 0 {
						txName := tgen.MustCounterName(tgen.CounterFilter, txBackend.Kind(), v.policy.Comparison, tgen.Tx)
						return measurement{}, v.failTx(txBackend, txHandle, sid, txName, s)
					}
					rxName := tgen.MustCounterName(tgen.CounterFilter, rxBackend.Kind(), v.policy.Comparison, tgen.Rx)
					rx, ok := filteredCount(rxBackend.Kind(), v.query(rxBackend, rxHandle, rxMode), rxHandle, it.filterParam, it.filterValue, rxName)
					if !ok {
						v.t.Logf("traffic not found for the parameter: %s %s", it.filterParam, it.filterValue)
					}
					v.t.Logf("Receive counter_name: %s, counter_val: %v", rxName, rx)
					return measurement{expected: tx * ratio, actual: rx, reference: tx}, nil
				}
				if err := v.evaluate(it, v.policy.extraAttempts(), evict, measure); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// filteredCount returns the rx counter of the traffic matching a filter.
// stc breaks aggregate rx statistics down by filter parameter and value;
// the other kinds report flows tagged with tracking name/value pairs.
func filteredCount(kind tgen.Kind, s tgen.Stats, handle, param, value, counter string) (float64, bool) {
	if kind == tgen.KindSTC {
		n, err := s.Number(handle, tgen.StatsAggregate, tgen.Rx, param, value, counter)
		return n, err == nil
	}
	var (
		total float64
		found bool
	)
	s.Get(tgen.StatsFlow).ForEach(func(_, flow gjson.Result) bool {
		flow.Get("tracking").ForEach(func(_, tr gjson.Result) bool {
			if tr.Get("tracking_name").String() != param || tr.Get("tracking_value").String() != value {
				return true
			}
			if c := flow.Get(tgen.Path(tgen.Rx, counter)); c.Exists() {
				total += float64(int64(c.Float()))
				found = true
			}
			return false
		})
		return true
	})
	return total, found
}
