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

package tgen_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/openconfig/testt"
	"github.com/openconfig/tgenutils/internal/tgen"
)

type recordingController struct {
	name  string
	calls *[]string
	fail  string
}

func (c recordingController) TrafficControl(_ context.Context, action, portHandle string) error {
	*c.calls = append(*c.calls, c.name+":"+action+":"+portHandle)
	if action == c.fail {
		return errors.New("rejected")
	}
	return nil
}

func TestPortTrafficControl(t *testing.T) {
	var calls []string
	tg1 := recordingController{name: "tg1", calls: &calls}
	tg2 := recordingController{name: "tg2", calls: &calls}
	err := tgen.PortTrafficControl(context.Background(), tgen.ActionResetAndClearStats,
		tgen.PortTarget{Controller: tg1, PortHandle: "1/1"},
		tgen.PortTarget{Controller: tg2, PortHandle: "2/1"})
	if err != nil {
		t.Fatalf("PortTrafficControl() unexpected error: %v", err)
	}
	want := []string{"tg1:reset:1/1", "tg1:clear_stats:1/1", "tg2:reset:2/1", "tg2:clear_stats:2/1"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("PortTrafficControl() calls (-want +got):\n%s", diff)
	}

	calls = nil
	bad := recordingController{name: "tg1", calls: &calls, fail: tgen.ActionRun}
	if err := tgen.PortTrafficControl(context.Background(), tgen.ActionRun,
		tgen.PortTarget{Controller: bad, PortHandle: "1/1"},
		tgen.PortTarget{Controller: tg2, PortHandle: "2/1"}); err == nil {
		t.Errorf("PortTrafficControl() succeeded on a rejected action, want error")
	}
	if len(calls) != 1 {
		t.Errorf("PortTrafficControl() continued after an error: %v", calls)
	}
}

type scriptedPinger struct {
	kind    tgen.Kind
	replies []string
	stc     map[string]any
	reqs    []tgen.PingRequest
}

func (p *scriptedPinger) Kind() tgen.Kind { return p.kind }

func (p *scriptedPinger) Ping(_ context.Context, req tgen.PingRequest) (tgen.Stats, error) {
	p.reqs = append(p.reqs, req)
	if p.kind == tgen.KindSTC {
		return tgen.StatsFromValue(p.stc)
	}
	if len(p.replies) == 0 {
		return tgen.Stats{}, errors.New("no reply")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return tgen.StatsFromValue(map[string]any{req.PortHandle: map[string]any{"ping_details": r}})
}

func TestVerifyPing(t *testing.T) {
	const (
		ixiaOK   = "1 requests sent, 1 replies received"
		ixiaLost = "1 requests sent, 0 replies received"
		scapyOK  = "1 packets transmitted, 1 received, 0% packet loss"
	)
	tests := []struct {
		desc     string
		pinger   *scriptedPinger
		count    int
		expCount int
		want     bool
		wantReqs int
	}{{
		desc:     "stc all answered",
		pinger:   &scriptedPinger{kind: tgen.KindSTC, stc: map[string]any{"tx": 5, "rx": 5}},
		count:    5,
		expCount: 5,
		want:     true,
		wantReqs: 1,
	}, {
		desc:     "stc partial",
		pinger:   &scriptedPinger{kind: tgen.KindSTC, stc: map[string]any{"tx": 5, "rx": 3}},
		count:    5,
		expCount: 5,
		wantReqs: 1,
	}, {
		desc:     "ixia counts answered pings",
		pinger:   &scriptedPinger{kind: tgen.KindIxia, replies: []string{ixiaOK, ixiaLost, ixiaOK}},
		count:    3,
		expCount: 2,
		want:     true,
		wantReqs: 3,
	}, {
		desc:     "scapy expects loss",
		pinger:   &scriptedPinger{kind: tgen.KindScapy, replies: []string{scapyOK, "garbled"}},
		count:    2,
		expCount: 2,
		wantReqs: 2,
	}}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := tgen.VerifyPing(context.Background(), t, tt.pinger, "1/1", "dev1", "10.0.0.1", tt.count, tt.expCount)
			if got != tt.want {
				t.Errorf("VerifyPing() got %v, want %v", got, tt.want)
			}
			if len(tt.pinger.reqs) != tt.wantReqs {
				t.Errorf("VerifyPing() sent %d requests, want %d", len(tt.pinger.reqs), tt.wantReqs)
			}
		})
	}
}

func TestVerifyPingNoSessions(t *testing.T) {
	p := &scriptedPinger{kind: tgen.KindIxia, replies: []string{"No sessions were started on 1/1"}}
	errMsg := testt.CaptureFatal(t, func(t testing.TB) {
		tgen.VerifyPing(context.Background(), t, p, "1/1", "dev1", "10.0.0.1", 1, 1)
	})
	if errMsg == nil || !strings.Contains(*errMsg, "No sessions were started") {
		t.Errorf("VerifyPing() failure got %v, want no sessions failure", errMsg)
	}
}
