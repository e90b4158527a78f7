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
	"math"

	"github.com/openconfig/tgenutils/internal/tgen"
)

// verifyStreams compares the tx and rx counters of every declared stream.
// The layout of the first rx backend decides where stream counters live:
// stc reports them per tx port, the other kinds per traffic item on the rx
// port.
func (v *verifier) verifyStreams(pairs []Pair) error {
	v.t.Helper()
	for i := range pairs {
		p := &pairs[i]
		info := p.info(i + 1)
		v.t.Logf("Validating Traffic, %s, stream_list: %v", info, p.Streams)
		txHandles, err := portHandles(p.TxPorts, p.TxBackends)
		if err != nil {
			return err
		}
		rxHandles, err := portHandles(p.RxPorts[:1], p.RxBackends[:1])
		if err != nil {
			return err
		}
		rxBackend, rxHandle := p.RxBackends[0], rxHandles[0]
		r := tgen.ReaderFor(rxBackend.Kind(), false)
		mode := r.StreamMode()

		for j, streams := range p.Streams {
			src, handle := p.TxBackends[j], txHandles[j]
			if mode == tgen.StatsTrafficItem {
				src, handle = rxBackend, rxHandle
			}
			for k, sid := range streams {
				ratio := p.Ratios[j].at(k)
				it := target{pair: i + 1, info: info, stream: sid}
				evict := func() { v.evict(src, mode, handle) }
				measure := func() (measurement, error) {
					s := v.fetch(src, handle, mode, tgen.Tx, sid)
					if mode == tgen.StatsTrafficItem {
						if status, _ := s.Str("status"); status != "1" {
							return measurement{}, v.fatalf("traffic stats of %s report status %q, was traffic started? %s", handle, status, s)
						}
					}
					q := tgen.StatsQuery{PortHandle: handle, Mode: mode, StreamID: sid}
					txName := tgen.MustCounterName(tgen.CounterStreamblock, rxBackend.Kind(), v.policy.Comparison, tgen.Tx)
					rxName := tgen.MustCounterName(tgen.CounterStreamblock, rxBackend.Kind(), v.policy.Comparison, tgen.Rx)
					tx, err := r.Counter(s, q, tgen.Tx, txName)
					if err != nil {
						return measurement{}, v.fatalf("tx counter %s of stream %s: %v: %s", txName, sid, err, s)
					}
					if tx == 0 {
						return measurement{}, v.failTx(src, handle, sid, txName, s)
					}
					rx, err := r.Counter(s, q, tgen.Rx, rxName)
					if err != nil {
						return measurement{}, v.fatalf("rx counter %s of stream %s: %v: %s", rxName, sid, err, s)
					}
					v.t.Logf("TX counter %s = %v on %s, RX counter %s = %v on %s, stream %s", txName, tx, p.TxPorts[j], rxName, rx, p.RxPorts[0], sid)
					return measurement{expected: math.Trunc(tx * ratio), actual: rx, reference: tx}, nil
				}
				if err := v.evaluate(it, v.policy.extraAttempts(), evict, measure); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
