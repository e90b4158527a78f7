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
	"github.com/openconfig/tgenutils/internal/tgen"
)

const filteredFrameCount = "filtered_frame_count"

// verifyCustomFilters compares the weighted aggregate tx counters of each
// pair with the frames matched by the custom capture filter of its rx
// ports. Each pair is measured once.
func (v *verifier) verifyCustomFilters(pairs []Pair) error {
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
				s, err := p.RxBackends[j].CustomFilterStats(v.ctx, h, v.policy.CaptureWait)
				if err != nil {
					return m, v.fatalf("custom filter stats of %s: %v", p.RxPorts[j], err)
				}
				v.t.Logf("custom filter stats of %s: %s", p.RxPorts[j], s)
				rx, err := s.Number(h, tgen.StatsCustomFilter, filteredFrameCount)
				if err != nil {
					v.t.Logf("%s not found on %s: %v", filteredFrameCount, p.RxPorts[j], err)
				}
				m.actual += float64(int64(rx))
			}
			v.t.Logf("Total Rx on ports %v: %v", p.RxPorts, m.actual)
			return m, nil
		}
		if err := v.evaluate(it, 0, func() {}, measure); err != nil {
			return err
		}
	}
	return nil
}
