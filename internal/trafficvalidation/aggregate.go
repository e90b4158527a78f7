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
	"github.com/golang/glog"
	"github.com/openconfig/tgenutils/internal/tgen"
)

// counter reads a counter of the current comparison from a document. A
// counter missing from a document that tgen.FetchStats already accepted is
// read as zero.
func (v *verifier) counter(b tgen.Backend, s tgen.Stats, q tgen.StatsQuery, tableMode, direction string) float64 {
	v.t.Helper()
	name := tgen.MustCounterName(tableMode, b.Kind(), v.policy.Comparison, direction)
	val, err := tgen.ReaderFor(b.Kind(), false).Counter(s, q, direction, name)
	if err != nil {
		glog.Warningf("[%s] %s counter %s of %s: %v", v.result.ID, direction, name, q.PortHandle, err)
		return 0
	}
	return val
}

// verifyAggregate compares the sum of the weighted tx port counters of each
// pair with the sum of its rx port counters.
func (v *verifier) verifyAggregate(pairs []Pair) error {
	v.t.Helper()
	for i := range pairs {
		p := &pairs[i]
		it := target{pair: i + 1, info: p.info(i + 1)}
		v.t.Logf("Validating Traffic, %s", it.info)
		txHandles, err := portHandles(p.TxPorts, p.TxBackends)
		if err != nil {
			return err
		}
		rxHandles, err := portHandles(p.RxPorts, p.RxBackends)
		if err != nil {
			return err
		}

		evict := func() {
			for j, h := range txHandles {
				v.evict(p.TxBackends[j], tgen.StatsAggregate, h)
			}
			for j, h := range rxHandles {
				v.evict(p.RxBackends[j], tgen.StatsAggregate, h)
			}
		}
		measure := func() (measurement, error) {
			var m measurement
			for j, h := range txHandles {
				b := p.TxBackends[j]
				s := v.fetch(b, h, tgen.StatsAggregate, tgen.Tx, "")
				tx := v.counter(b, s, tgen.StatsQuery{PortHandle: h, Mode: tgen.StatsAggregate}, tgen.CounterAggregate, tgen.Tx)
				v.t.Logf("Transmit counter on %s: %v", p.TxPorts[j], tx)
				if j == 0 {
					m.reference = tx
				}
				m.expected += tx * p.Ratios[j].at(0)
			}
			v.t.Logf("Total Tx from ports %v: %v", p.TxPorts, m.expected)
			for j, h := range rxHandles {
				b := p.RxBackends[j]
				s := v.fetch(b, h, tgen.StatsAggregate, tgen.Rx, "")
				rx := v.counter(b, s, tgen.StatsQuery{PortHandle: h, Mode: tgen.StatsAggregate}, tgen.CounterAggregate, tgen.Rx)
				v.t.Logf("Receive counter on %s: %v", p.RxPorts[j], rx)
				m.actual += rx
			}
			v.t.Logf("Total Rx on ports %v: %v", p.RxPorts, m.actual)
			return m, nil
		}
		if err := v.evaluate(it, v.policy.extraAttempts(), evict, measure); err != nil {
			return err
		}
	}
	return nil
}
