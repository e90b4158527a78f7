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

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
	"github.com/openconfig/tgenutils/internal/tgenbackend/softtgen"
	"github.com/openconfig/tgenutils/internal/trafficvalidation"
)

// Lab describes the ports, streams and devices of a software traffic
// generator. Ports are named; handles are assigned in declaration order.
type Lab struct {
	Ports       []string          `yaml:"ports"`
	SettlePolls int               `yaml:"settle_polls"`
	Streams     []LabStream       `yaml:"streams"`
	Filters     map[string]Filter `yaml:"filters"`
	Devices     []LabDevice       `yaml:"devices"`
	Down        []string          `yaml:"down"`
}

// LabStream is a stream sent between named ports.
type LabStream struct {
	ID       string            `yaml:"id"`
	Tx       string            `yaml:"tx"`
	Rx       []string          `yaml:"rx"`
	Packets  int64             `yaml:"packets"`
	RatePPS  float64           `yaml:"rate_pps"`
	Loss     float64           `yaml:"loss"`
	Tracking map[string]string `yaml:"tracking"`
	Frame    LabFrame          `yaml:"frame"`
}

// LabFrame describes the frames of a stream.
type LabFrame struct {
	SrcMAC  string `yaml:"src_mac"`
	DstMAC  string `yaml:"dst_mac"`
	VLAN    uint16 `yaml:"vlan"`
	SrcIP   string `yaml:"src_ip"`
	DstIP   string `yaml:"dst_ip"`
	TCP     bool   `yaml:"tcp"`
	SrcPort uint16 `yaml:"src_port"`
	DstPort uint16 `yaml:"dst_port"`
	DSCP    uint8  `yaml:"dscp"`
	Size    int    `yaml:"size"`
}

// Filter is a custom filter installed on a port.
type Filter struct {
	Offsets []int    `yaml:"offsets"`
	Values  []string `yaml:"values"`
}

// LabDevice is an emulated device that answers pings.
type LabDevice struct {
	Handle    string   `yaml:"handle"`
	Port      string   `yaml:"port"`
	Started   bool     `yaml:"started"`
	Reachable []string `yaml:"reachable"`
}

// Plan is a traffic verification run: the ports whose traffic is started
// and the pairs verified once it was sent.
type Plan struct {
	Run    []string   `yaml:"run"`
	Policy PlanPolicy `yaml:"policy"`
	Pairs  []PlanPair `yaml:"pairs"`
}

// PlanPolicy mirrors trafficvalidation.Policy.
type PlanPolicy struct {
	Mode            string        `yaml:"mode"`
	Comparison      string        `yaml:"comparison"`
	Retry           int           `yaml:"retry"`
	ToleranceFactor float64       `yaml:"tolerance_factor"`
	DelayFactor     float64       `yaml:"delay_factor"`
	ScaleMode       bool          `yaml:"scale_mode"`
	CaptureWait     time.Duration `yaml:"capture_wait"`
}

// PlanPair is a traffic pair between named ports. All ports are served by
// the same backend.
type PlanPair struct {
	Tx          []string    `yaml:"tx"`
	Ratio       [][]float64 `yaml:"ratio"`
	Rx          []string    `yaml:"rx"`
	Streams     [][]string  `yaml:"streams"`
	FilterParam [][]string  `yaml:"filter_param"`
	FilterValue [][]string  `yaml:"filter_value"`
	DUTTx       []string    `yaml:"dut_tx"`
	DUTRx       []string    `yaml:"dut_rx"`
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decode(f, v)
}

func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("cannot decode %T: %w", v, err)
	}
	return nil
}

// Build returns the simulator described by the lab.
func (l *Lab) Build() (*softtgen.Simulator, error) {
	if len(l.Ports) == 0 {
		return nil, fmt.Errorf("lab has no ports")
	}
	s := softtgen.New(l.Ports...)
	s.SettlePolls = l.SettlePolls
	for _, st := range l.Streams {
		tx, err := s.PortHandle(st.Tx)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", st.ID, err)
		}
		rx, err := handles(s, st.Rx)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", st.ID, err)
		}
		err = s.AddStream(softtgen.Stream{
			ID:       st.ID,
			TxPort:   tx,
			RxPorts:  rx,
			Packets:  st.Packets,
			RatePPS:  st.RatePPS,
			Loss:     st.Loss,
			Tracking: st.Tracking,
			Frame:    softtgen.FrameSpec(st.Frame),
		})
		if err != nil {
			return nil, err
		}
	}
	for name, f := range l.Filters {
		h, err := s.PortHandle(name)
		if err != nil {
			return nil, err
		}
		if err := s.SetCustomFilter(h, capturevalidation.Filter(f)); err != nil {
			return nil, fmt.Errorf("filter on %s: %w", name, err)
		}
	}
	for _, d := range l.Devices {
		h, err := s.PortHandle(d.Port)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", d.Handle, err)
		}
		if err := s.AddDevice(h, d.Handle, d.Started, d.Reachable...); err != nil {
			return nil, err
		}
	}
	for _, name := range l.Down {
		h, err := s.PortHandle(name)
		if err != nil {
			return nil, err
		}
		if err := s.SetLink(h, false); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type portResolver interface {
	PortHandle(name string) (string, error)
}

func handles(r portResolver, names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		h, err := r.PortHandle(n)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// ResolvePairs returns the pairs of the plan served by b. Ports stay named;
// they are only resolved here to reject unknown ports early.
func (p *Plan) ResolvePairs(b tgen.Backend) ([]trafficvalidation.Pair, error) {
	var pairs []trafficvalidation.Pair
	for i, pp := range p.Pairs {
		if _, err := handles(b, pp.Tx); err != nil {
			return nil, fmt.Errorf("pair %d: %w", i+1, err)
		}
		if _, err := handles(b, pp.Rx); err != nil {
			return nil, fmt.Errorf("pair %d: %w", i+1, err)
		}
		pair := trafficvalidation.Pair{
			TxPorts:      pp.Tx,
			TxBackends:   repeat(b, len(pp.Tx)),
			RxPorts:      pp.Rx,
			RxBackends:   repeat(b, len(pp.Rx)),
			Streams:      pp.Streams,
			FilterParams: pp.FilterParam,
			FilterValues: pp.FilterValue,
			DUTTxPorts:   pp.DUTTx,
			DUTRxPorts:   pp.DUTRx,
		}
		for j := range pp.Tx {
			// Ratios default to 1 for every tx port.
			r := trafficvalidation.Scalar(1)
			if j < len(pp.Ratio) && len(pp.Ratio[j]) > 0 {
				r = trafficvalidation.Ratio(pp.Ratio[j])
			}
			pair.Ratios = append(pair.Ratios, r)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func repeat(b tgen.Backend, n int) []tgen.Backend {
	out := make([]tgen.Backend, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// TrafficPolicy returns the verification policy of the plan.
func (p *Plan) TrafficPolicy() trafficvalidation.Policy {
	return trafficvalidation.Policy{
		Mode:            p.Policy.Mode,
		Comparison:      p.Policy.Comparison,
		Retry:           p.Policy.Retry,
		ToleranceFactor: p.Policy.ToleranceFactor,
		DelayFactor:     p.Policy.DelayFactor,
		ScaleMode:       p.Policy.ScaleMode,
		CaptureWait:     p.Policy.CaptureWait,
	}
}

// controller is a backend that can also start traffic.
type controller interface {
	tgen.Backend
	tgen.TrafficController
}

// Execute runs the traffic of the plan, then verifies every pair.
func (p *Plan) Execute(ctx context.Context, t tgen.Reporter, b controller, policy trafficvalidation.Policy) (*trafficvalidation.Result, error) {
	t.Helper()
	run, err := handles(b, p.Run)
	if err != nil {
		return nil, err
	}
	targets := make([]tgen.PortTarget, len(run))
	for i, h := range run {
		targets[i] = tgen.PortTarget{Controller: b, PortHandle: h}
	}
	if err := tgen.PortTrafficControl(ctx, tgen.ActionResetAndClearStats, targets...); err != nil {
		return nil, err
	}
	if err := tgen.PortTrafficControl(ctx, tgen.ActionRun, targets...); err != nil {
		return nil, err
	}
	pairs, err := p.ResolvePairs(b)
	if err != nil {
		return nil, err
	}
	return trafficvalidation.Verify(ctx, t, pairs, policy)
}
