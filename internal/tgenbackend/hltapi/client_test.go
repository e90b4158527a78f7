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

package hltapi_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/protocfg"
	"github.com/openconfig/tgenutils/internal/tgen"
	"github.com/openconfig/tgenutils/internal/tgen/tgentest"
	"github.com/openconfig/tgenutils/internal/tgenbackend/hltapi"
	"github.com/openconfig/tgenutils/internal/tgenbackend/softtgen"
	"github.com/openconfig/tgenutils/internal/trafficvalidation"
)

func connect(t *testing.T, sim *softtgen.Simulator) *hltapi.Client {
	t.Helper()
	srv := httptest.NewServer(softtgen.NewHandler(sim))
	t.Cleanup(srv.Close)
	c, err := hltapi.Connect(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	return c
}

func TestVerifyOverHTTP(t *testing.T) {
	tgentest.InstallSleep(t)
	ctx := context.Background()
	sim := softtgen.New("port1", "port2")
	for _, st := range []softtgen.Stream{
		{ID: "s1", TxPort: "1/1", RxPorts: []string{"1/2"}, Packets: 1000},
		{ID: "s2", TxPort: "1/1", RxPorts: []string{"1/2"}, Packets: 1000, Loss: 0.3},
	} {
		if err := sim.AddStream(st); err != nil {
			t.Fatalf("AddStream() failed: %v", err)
		}
	}
	c := connect(t, sim)
	if got := c.Kind(); got != tgen.KindScapy {
		t.Errorf("Kind() got %q, want %q", got, tgen.KindScapy)
	}
	h, err := c.PortHandle("port1")
	if err != nil || h != "1/1" {
		t.Fatalf("PortHandle(port1) got %q, %v, want 1/1", h, err)
	}
	if err := tgen.PortTrafficControl(ctx, tgen.ActionRun, tgen.PortTarget{Controller: c, PortHandle: h}); err != nil {
		t.Fatalf("PortTrafficControl(run) failed: %v", err)
	}

	p := trafficvalidation.Pair{
		TxPorts:    []string{"port1"},
		TxBackends: []tgen.Backend{c},
		Ratios:     []trafficvalidation.Ratio{trafficvalidation.Scalar(1)},
		RxPorts:    []string{"port2"},
		RxBackends: []tgen.Backend{c},
		Streams:    [][]string{{"s1", "s2"}},
	}
	res, err := trafficvalidation.Verify(ctx, t, []trafficvalidation.Pair{p}, trafficvalidation.Policy{Mode: trafficvalidation.ModeStreamblock})
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false}, res.All()); diff != "" {
		t.Errorf("Verify() verdicts (-want +got):\n%s", diff)
	}

	blob, err := c.Capture(ctx, "1/2")
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if idx, ok := capturevalidation.VerifyPacketCapture(t, blob, capturevalidation.CaptureQuery{
		Kind:    c.Kind(),
		Offsets: []int{30},
		Values:  []string{"10.2.2.2"},
	}); !ok || idx != 0 {
		t.Errorf("VerifyPacketCapture() got %d, %v, want 0, true", idx, ok)
	}
}

func TestSessionErrors(t *testing.T) {
	sim := softtgen.New("port1", "port2", "port3")
	if err := sim.AddStream(softtgen.Stream{ID: "s1", TxPort: "1/1", RxPorts: []string{"1/3"}}); err != nil {
		t.Fatalf("AddStream() failed: %v", err)
	}
	if err := sim.SetLink("1/3", false); err != nil {
		t.Fatalf("SetLink() failed: %v", err)
	}
	c := connect(t, sim)
	got, err := c.SessionErrors(context.Background(), "1/1", "")
	if err != nil {
		t.Fatalf("SessionErrors() failed: %v", err)
	}
	want := &tgen.SessionStatus{
		Ports:  []string{"1/1", "1/3"},
		States: map[string]tgen.PortState{"1/1": {State: "up"}, "1/3": {State: "down"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SessionErrors() (-want +got):\n%s", diff)
	}
	if err := c.CollectDiagnostics(context.Background(), tgen.DiagnosticReason); err != nil {
		t.Fatalf("CollectDiagnostics() failed: %v", err)
	}
	if diff := cmp.Diff([]string{tgen.DiagnosticReason}, sim.Diagnostics()); diff != "" {
		t.Errorf("Diagnostics() (-want +got):\n%s", diff)
	}
}

func TestEmulationOverHTTP(t *testing.T) {
	sim := softtgen.New("port1")
	c := connect(t, sim)
	res, err := protocfg.IGMP(context.Background(), t, c, protocfg.IGMPConfig{
		Handle:    "host1",
		Session:   protocfg.Params{"count": "1"},
		Group:     protocfg.Params{"ip_addr_start": "225.1.1.1"},
		IGMPGroup: protocfg.Params{},
	})
	if err != nil {
		t.Fatalf("IGMP() failed: %v", err)
	}
	calls := sim.Emulations()
	if len(calls) != 4 {
		t.Fatalf("Emulations() got %d calls, want 4", len(calls))
	}
	binding := calls[3].Params
	want := protocfg.Params{
		"mode":               "create",
		"session_handle":     res.Session["host_handle"],
		"group_pool_handle":  res.Group["mul_group_handle"],
		"source_pool_handle": res.Source["mul_source_handle"],
	}
	if diff := cmp.Diff(want, binding); diff != "" {
		t.Errorf("IGMP group binding (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	c := connect(t, softtgen.New("port1"))
	var herr *hltapi.Error
	if _, err := c.PortHandle("port9"); !errors.As(err, &herr) || herr.Code != http.StatusUnprocessableEntity {
		t.Errorf("PortHandle(port9) got err %v, want an HTTP 422 *hltapi.Error", err)
	}
	if _, err := c.TrafficStats(ctx, tgen.StatsQuery{PortHandle: "1/1", Mode: "bogus"}); !errors.As(err, &herr) {
		t.Errorf("TrafficStats(bogus) got err %v, want *hltapi.Error", err)
	}
	if _, err := c.Emulation(ctx, "emulation_ospf_config", protocfg.Params{}); err == nil {
		t.Errorf("Emulation(ospf) succeeded, want error")
	}
	if _, err := c.CustomFilterStats(ctx, "1/1", 0); err == nil {
		t.Errorf("CustomFilterStats() without a filter succeeded, want error")
	}
}

func TestConnectUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tg_type":"n2x"}`)
	}))
	defer srv.Close()
	if _, err := hltapi.Connect(context.Background(), srv.URL, srv.Client()); err == nil {
		t.Errorf("Connect() to an n2x server succeeded, want error")
	}
}
