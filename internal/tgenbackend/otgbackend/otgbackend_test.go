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

package otgbackend_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/open-traffic-generator/snappi/gosnappi"
	"github.com/openconfig/testt"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
	"github.com/openconfig/tgenutils/internal/tgen/tgentest"
	"github.com/openconfig/tgenutils/internal/tgenbackend/otgbackend"
	"github.com/openconfig/tgenutils/internal/trafficvalidation"
)

type fakeOTG struct {
	ports map[string]otgbackend.PortMetrics
	flows map[string]otgbackend.FlowMetrics
	pcaps map[string][]byte
	// transmitting is the number of flow reads that report a transmitting flow.
	transmitting int
	actions      []string
}

func (f *fakeOTG) PortMetrics(port string) (otgbackend.PortMetrics, bool) {
	m, ok := f.ports[port]
	return m, ok
}

func (f *fakeOTG) FlowMetrics(flow string) (otgbackend.FlowMetrics, bool) {
	m, ok := f.flows[flow]
	if ok && f.transmitting > 0 {
		f.transmitting--
		m.Transmit = true
	}
	return m, ok
}

func (f *fakeOTG) Capture(port string) []byte { return f.pcaps[port] }

func (f *fakeOTG) SetCapture(ports []string, start bool) {
	action := "capture stop"
	if start {
		action = "capture start"
	}
	f.actions = append(f.actions, action+" "+strings.Join(ports, ","))
}

func (f *fakeOTG) StartTraffic() { f.actions = append(f.actions, "start") }

func (f *fakeOTG) StopTraffic() { f.actions = append(f.actions, "stop") }

func config(flows ...string) gosnappi.Config {
	top := gosnappi.NewConfig()
	top.Ports().Add().SetName("port1")
	top.Ports().Add().SetName("port2")
	for _, name := range flows {
		top.Flows().Add().SetName(name).TxRx().Port().SetTxName("port1").SetRxNames([]string{"port2"})
	}
	return top
}

func up(out, in uint64) otgbackend.PortMetrics {
	return otgbackend.PortMetrics{OutFrames: out, InFrames: in, Up: true}
}

func pair(b tgen.Backend) trafficvalidation.Pair {
	return trafficvalidation.Pair{
		TxPorts:    []string{"port1"},
		TxBackends: []tgen.Backend{b},
		Ratios:     []trafficvalidation.Ratio{trafficvalidation.Scalar(1)},
		RxPorts:    []string{"port2"},
		RxBackends: []tgen.Backend{b},
	}
}

func TestFlowsFromConfig(t *testing.T) {
	top := config("flow1")
	top.Flows().Add().SetName("device").TxRx().Device().SetTxNames([]string{"dev1"}).SetRxNames([]string{"dev2"})
	want := []otgbackend.Flow{{Name: "flow1", TxPort: "port1", RxPorts: []string{"port2"}}}
	if diff := cmp.Diff(want, otgbackend.FlowsFromConfig(top)); diff != "" {
		t.Errorf("FlowsFromConfig() (-want +got):\n%s", diff)
	}
}

func TestVerifyAggregate(t *testing.T) {
	tgentest.InstallSleep(t)
	fake := &fakeOTG{ports: map[string]otgbackend.PortMetrics{"port1": up(1000, 0), "port2": up(0, 990)}}
	b := otgbackend.New(fake, config())
	res, err := trafficvalidation.Verify(context.Background(), t, []trafficvalidation.Pair{pair(b)}, trafficvalidation.Policy{})
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if !res.Passed {
		t.Errorf("Verify() failed: %s", res.LastMessage())
	}
}

func TestVerifyFlows(t *testing.T) {
	tgentest.InstallSleep(t)
	fake := &fakeOTG{
		ports: map[string]otgbackend.PortMetrics{"port1": up(2000, 0), "port2": up(0, 1500)},
		flows: map[string]otgbackend.FlowMetrics{
			"flow1": {OutPkts: 1000, InPkts: 1000},
			"flow2": {OutPkts: 1000, InPkts: 500},
		},
	}
	b := otgbackend.New(fake, config("flow1", "flow2"))
	p := pair(b)
	p.Streams = [][]string{{"flow1", "flow2"}}
	res, err := trafficvalidation.Verify(context.Background(), t, []trafficvalidation.Pair{p}, trafficvalidation.Policy{Mode: trafficvalidation.ModeStreamblock})
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false}, res.All()); diff != "" {
		t.Errorf("Verify() verdicts (-want +got):\n%s", diff)
	}

	p.FilterParams = [][]string{{"Traffic Item", "Traffic Item"}}
	p.FilterValues = [][]string{{"flow1", "flow2"}}
	res, err = trafficvalidation.Verify(context.Background(), t, []trafficvalidation.Pair{p}, trafficvalidation.Policy{Mode: trafficvalidation.ModeFilter})
	if err != nil {
		t.Fatalf("Verify(filter) unexpected error: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false}, res.All()); diff != "" {
		t.Errorf("Verify(filter) verdicts (-want +got):\n%s", diff)
	}
}

func TestStatsWaitForStoppedFlows(t *testing.T) {
	slept := tgentest.InstallSleep(t)
	fake := &fakeOTG{
		ports:        map[string]otgbackend.PortMetrics{"port1": up(100, 0)},
		flows:        map[string]otgbackend.FlowMetrics{"flow1": {OutPkts: 100}},
		transmitting: 2,
	}
	b := otgbackend.New(fake, config("flow1"))
	tgen.FetchStats(context.Background(), t, b, tgen.FetchQuery{
		PortHandle: "port1",
		Mode:       tgen.StatsAggregate,
		Comparison: tgen.PacketCount,
		Direction:  tgen.Tx,
	})
	if diff := cmp.Diff([]time.Duration{2 * time.Second, 2 * time.Second}, *slept); diff != "" {
		t.Errorf("FetchStats() sleeps (-want +got):\n%s", diff)
	}
}

func pcapOf(t *testing.T, frames ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("WriteFileHeader() failed: %v", err)
	}
	for _, f := range frames {
		if err := w.WritePacket(gopacket.CaptureInfo{Timestamp: time.Unix(0, 0), CaptureLength: len(f), Length: len(f)}, f); err != nil {
			t.Fatalf("WritePacket() failed: %v", err)
		}
	}
	return buf.Bytes()
}

func TestCustomFilter(t *testing.T) {
	tgentest.InstallSleep(t)
	ctx := context.Background()
	bfd, other := []byte{0x00, 0x01, 0x0e, 0xc8}, []byte{0x00, 0x01, 0x12, 0xb0}
	fake := &fakeOTG{
		ports: map[string]otgbackend.PortMetrics{"port1": up(4, 0), "port2": up(0, 4)},
		pcaps: map[string][]byte{"port2": pcapOf(t, bfd, other, bfd, other)},
	}
	b := otgbackend.New(fake, config())
	if err := b.SetCustomFilter("port2", capturevalidation.Filter{Offsets: []int{2}, Values: []string{"0E:C8"}}); err != nil {
		t.Fatalf("SetCustomFilter() failed: %v", err)
	}
	if err := tgen.PortTrafficControl(ctx, tgen.ActionRun, tgen.PortTarget{Controller: b, PortHandle: "port1"}); err != nil {
		t.Fatalf("PortTrafficControl(run) failed: %v", err)
	}
	p := pair(b)
	p.Ratios = []trafficvalidation.Ratio{trafficvalidation.Scalar(0.5)}
	res, err := trafficvalidation.Verify(ctx, t, []trafficvalidation.Pair{p}, trafficvalidation.Policy{Mode: trafficvalidation.ModeCustomFilter})
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if !res.Passed {
		t.Errorf("Verify() failed: %s", res.LastMessage())
	}
	if diff := cmp.Diff([]string{"capture start port2", "start", "capture stop port2"}, fake.actions); diff != "" {
		t.Errorf("OTG actions (-want +got):\n%s", diff)
	}

	blob, err := b.Capture("port2")
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if idx, ok := capturevalidation.VerifyPacketCapture(t, blob, capturevalidation.CaptureQuery{
		Kind:    tgen.KindIxia,
		Offsets: []int{2},
		Values:  []string{"12B0"},
	}); !ok || idx != 1 {
		t.Errorf("VerifyPacketCapture() got %d, %v, want 1, true", idx, ok)
	}
}

func TestEndpointDown(t *testing.T) {
	tgentest.InstallSleep(t)
	fake := &fakeOTG{
		ports: map[string]otgbackend.PortMetrics{"port1": up(0, 0), "port2": {}},
		flows: map[string]otgbackend.FlowMetrics{"flow1": {}},
	}
	b := otgbackend.New(fake, config("flow1"))
	errMsg := testt.CaptureFatal(t, func(t testing.TB) {
		trafficvalidation.Verify(context.Background(), t, []trafficvalidation.Pair{pair(b)}, trafficvalidation.Policy{})
	})
	if errMsg == nil {
		t.Fatalf("Verify() did not fail without transmitted traffic")
	}
	if want := "One of the traffic item endpoint is down: [port2]"; !strings.Contains(*errMsg, want) {
		t.Errorf("Verify() failure got %q, want it to contain %q", *errMsg, want)
	}
}

func TestTrafficControl(t *testing.T) {
	ctx := context.Background()
	fake := &fakeOTG{}
	b := otgbackend.New(fake, config())
	for _, a := range []string{tgen.ActionRun, tgen.ActionResetAndClearStats, tgen.ActionStop} {
		if err := tgen.PortTrafficControl(ctx, a, tgen.PortTarget{Controller: b, PortHandle: "port1"}); err != nil {
			t.Fatalf("PortTrafficControl(%s) failed: %v", a, err)
		}
	}
	if diff := cmp.Diff([]string{"start", "stop", "stop"}, fake.actions); diff != "" {
		t.Errorf("OTG actions (-want +got):\n%s", diff)
	}
	if err := b.TrafficControl(ctx, tgen.ActionRun, "port9"); err == nil {
		t.Errorf("TrafficControl(port9) succeeded, want error")
	}
	if err := b.TrafficControl(ctx, "pause", "port1"); err == nil {
		t.Errorf("TrafficControl(pause) succeeded, want error")
	}
}
