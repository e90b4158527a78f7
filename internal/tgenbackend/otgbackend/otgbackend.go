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

// Package otgbackend is a tgen.Backend for Open Traffic Generator servers.
// OTG port and flow metrics are reported in the statistics layout of ixia
// backends: port names are the port handles and flows are the streams.
package otgbackend

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/open-traffic-generator/snappi/gosnappi"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
)

// trackingName tags flow statistics with the name of their flow.
const trackingName = "Traffic Item"

// Flow is a port based flow of an OTG config.
type Flow struct {
	Name    string
	TxPort  string
	RxPorts []string
}

// FlowsFromConfig returns the port based flows of top. Device based flows
// have no port endpoints and are skipped.
func FlowsFromConfig(top gosnappi.Config) []Flow {
	var flows []Flow
	for _, f := range top.Flows().Items() {
		if f.TxRx().Choice() != gosnappi.FlowTxRxChoice.PORT {
			glog.V(1).Infof("Skipping device based flow %s", f.Name())
			continue
		}
		p := f.TxRx().Port()
		flows = append(flows, Flow{Name: f.Name(), TxPort: p.TxName(), RxPorts: p.RxNames()})
	}
	return flows
}

// Backend reports OTG metrics as traffic generator statistics.
type Backend struct {
	tel     Telemetry
	ports   []string
	flows   []Flow
	filters map[string]capturevalidation.Filter
}

// New returns a Backend for the ports and flows of top.
func New(tel Telemetry, top gosnappi.Config) *Backend {
	b := &Backend{tel: tel, flows: FlowsFromConfig(top), filters: map[string]capturevalidation.Filter{}}
	for _, p := range top.Ports().Items() {
		b.ports = append(b.ports, p.Name())
	}
	return b
}

// SetCustomFilter installs the custom filter applied to the capture of a
// port. The capture runs while traffic runs.
func (b *Backend) SetCustomFilter(port string, f capturevalidation.Filter) error {
	if _, err := b.PortHandle(port); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	b.filters[port] = f
	return nil
}

// Kind implements tgen.Backend.
func (b *Backend) Kind() tgen.Kind { return tgen.KindIxia }

// PortHandle implements tgen.Backend.
func (b *Backend) PortHandle(port string) (string, error) {
	if !slices.Contains(b.ports, port) {
		return "", fmt.Errorf("port %q is not in the OTG config", port)
	}
	return port, nil
}

func flowDoc(f Flow, m FlowMetrics) map[string]any {
	expected := m.OutPkts * uint64(len(f.RxPorts))
	var loss uint64
	if expected > m.InPkts {
		loss = expected - m.InPkts
	}
	lossPct := 0.0
	if expected > 0 {
		lossPct = float64(loss) * 100 / float64(expected)
	}
	return map[string]any{
		tgen.Tx: map[string]any{"total_pkts": m.OutPkts},
		tgen.Rx: map[string]any{"total_pkts": m.InPkts, "loss_pkts": loss, "loss_percent": lossPct},
	}
}

// TrafficStats implements tgen.Backend. Statistics are reported as being
// collected while any flow is still transmitting.
func (b *Backend) TrafficStats(_ context.Context, q tgen.StatsQuery) (tgen.Stats, error) {
	if _, err := b.PortHandle(q.PortHandle); err != nil {
		return tgen.Stats{}, err
	}
	metrics := map[string]FlowMetrics{}
	transmitting, started := false, false
	for _, f := range b.flows {
		m, ok := b.tel.FlowMetrics(f.Name)
		if !ok {
			glog.Warningf("No metrics for flow %s", f.Name)
			continue
		}
		metrics[f.Name] = m
		transmitting = transmitting || m.Transmit
		started = started || m.OutPkts > 0
	}
	doc := map[string]any{"status": "0", "waiting_for_stats": "0"}
	if started {
		doc["status"] = "1"
	}
	if transmitting {
		doc["waiting_for_stats"] = "1"
	}

	switch q.Mode {
	case tgen.StatsAggregate:
		p, ok := b.tel.PortMetrics(q.PortHandle)
		if !ok {
			return tgen.Stats{}, fmt.Errorf("no metrics for port %s", q.PortHandle)
		}
		doc[q.PortHandle] = map[string]any{
			tgen.StatsAggregate: map[string]any{
				tgen.Tx: map[string]any{
					"raw_pkt_count":  p.OutFrames,
					"total_pkts":     p.OutFrames,
					"pkt_byte_count": p.OutOctets,
					"total_pkt_rate": p.OutRate,
				},
				tgen.Rx: map[string]any{
					"raw_pkt_count":  p.InFrames,
					"total_pkts":     p.InFrames,
					"pkt_byte_count": p.InOctets,
					"raw_pkt_rate":   p.InRate,
				},
			},
		}
	case tgen.StatsTrafficItem:
		items := map[string]any{}
		for _, f := range b.flows {
			if m, ok := metrics[f.Name]; ok {
				items[f.Name] = flowDoc(f, m)
			}
		}
		doc[tgen.StatsTrafficItem] = items
	case tgen.StatsStreams:
		streams := map[string]any{}
		for _, f := range b.flows {
			if m, ok := metrics[f.Name]; ok && f.TxPort == q.PortHandle {
				streams[f.Name] = flowDoc(f, m)
			}
		}
		doc[q.PortHandle] = map[string]any{"stream": streams}
	case tgen.StatsFlow:
		flows := map[string]any{}
		for _, f := range b.flows {
			m, ok := metrics[f.Name]
			if !ok || !slices.Contains(f.RxPorts, q.PortHandle) {
				continue
			}
			d := flowDoc(f, m)
			d["tracking"] = []map[string]string{{"tracking_name": trackingName, "tracking_value": f.Name}}
			flows[f.Name] = d
		}
		doc[tgen.StatsFlow] = flows
	default:
		return tgen.Stats{}, fmt.Errorf("unsupported stats mode %q", q.Mode)
	}
	return tgen.StatsFromValue(doc)
}

func (b *Backend) frames(port string) ([]capturevalidation.Frame, error) {
	frames, err := capturevalidation.FramesFromPCAP(b.tel.Capture(port))
	if err != nil {
		return nil, fmt.Errorf("capture of %s: %w", port, err)
	}
	return frames, nil
}

// CustomFilterStats implements tgen.Backend. The capture is stopped after
// captureWait so that it holds every filtered frame.
func (b *Backend) CustomFilterStats(_ context.Context, port string, captureWait time.Duration) (tgen.Stats, error) {
	f, ok := b.filters[port]
	if !ok {
		return tgen.Stats{}, fmt.Errorf("no custom filter configured on %s", port)
	}
	tgen.Sleep(min(captureWait, 5*time.Second))
	b.tel.SetCapture([]string{port}, false)
	frames, err := b.frames(port)
	if err != nil {
		return tgen.Stats{}, err
	}
	return tgen.StatsFromValue(map[string]any{
		"status": "1",
		port: map[string]any{
			tgen.StatsCustomFilter: map[string]any{
				"filtered_frame_count": f.Count(frames),
				"total_frame_count":    len(frames),
			},
		},
	})
}

// Capture returns the frames captured on a port in the layout read by
// capturevalidation.VerifyPacketCapture.
func (b *Backend) Capture(port string) (tgen.Stats, error) {
	frames, err := b.frames(port)
	if err != nil {
		return tgen.Stats{}, err
	}
	return capturevalidation.EncodeBlob(port, frames)
}

// SessionErrors implements tgen.Backend.
func (b *Backend) SessionErrors(_ context.Context, port, flow string) (*tgen.SessionStatus, error) {
	implicated := map[string]bool{}
	for _, f := range b.flows {
		if (flow != "" && f.Name == flow) || (flow == "" && (f.TxPort == port || slices.Contains(f.RxPorts, port))) {
			implicated[f.TxPort] = true
			for _, p := range f.RxPorts {
				implicated[p] = true
			}
		}
	}
	if flow == "" && port != "" {
		implicated[port] = true
	}
	status := &tgen.SessionStatus{Ports: slices.Sorted(maps.Keys(implicated)), States: map[string]tgen.PortState{}}
	for _, p := range status.Ports {
		state := "down"
		if m, ok := b.tel.PortMetrics(p); ok && m.Up {
			state = "up"
		}
		status.States[p] = tgen.PortState{State: state}
	}
	return status, nil
}

// CollectDiagnostics implements tgen.Backend by logging the port and flow
// metrics tables.
func (b *Backend) CollectDiagnostics(_ context.Context, reason string) error {
	var out strings.Builder
	fmt.Fprintf(&out, "\nPort Metrics (%s)\n%s\n", reason, strings.Repeat("-", 120))
	fmt.Fprintf(&out, "%-25s%-15s%-15s%-15s%-15s%-15s%-15s%-15s\n",
		"Name", "Frames Tx", "Frames Rx", "Bytes Tx", "Bytes Rx", "FPS Tx", "FPS Rx", "Link")
	for _, name := range b.ports {
		m, _ := b.tel.PortMetrics(name)
		link := "down"
		if m.Up {
			link = "up"
		}
		fmt.Fprintf(&out, "%-25v%-15v%-15v%-15v%-15v%-15v%-15v%-15v\n",
			name, m.OutFrames, m.InFrames, m.OutOctets, m.InOctets, m.OutRate, m.InRate, link)
	}
	fmt.Fprintf(&out, "\nFlow Metrics\n%s\n", strings.Repeat("-", 80))
	fmt.Fprintf(&out, "%-25v%-15v%-15v%-15v\n", "Name", "Frames Tx", "Frames Rx", "Transmit")
	names := make([]string, 0, len(b.flows))
	for _, f := range b.flows {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		m, _ := b.tel.FlowMetrics(name)
		fmt.Fprintf(&out, "%-25v%-15v%-15v%-15v\n", name, m.OutPkts, m.InPkts, m.Transmit)
	}
	glog.Info(out.String())
	return nil
}

func (b *Backend) capturePorts() []string {
	return slices.Sorted(maps.Keys(b.filters))
}

// TrafficControl implements tgen.TrafficController. OTG starts and stops
// every flow at once, so the port only selects the captures; statistics
// are cleared by the OTG server whenever traffic starts.
func (b *Backend) TrafficControl(_ context.Context, action, port string) error {
	if _, err := b.PortHandle(port); err != nil {
		return err
	}
	switch action {
	case tgen.ActionRun:
		if ports := b.capturePorts(); len(ports) > 0 {
			b.tel.SetCapture(ports, true)
		}
		b.tel.StartTraffic()
	case tgen.ActionStop, tgen.ActionReset:
		b.tel.StopTraffic()
	case tgen.ActionClearStats:
		glog.V(1).Infof("OTG statistics are cleared when traffic starts; nothing to clear on %s", port)
	default:
		return fmt.Errorf("unsupported traffic control action %q", action)
	}
	return nil
}
