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

package tgen

import (
	"testing"
)

func TestPath(t *testing.T) {
	s := NewStats([]byte(`{"1/1/1":{"aggregate":{"tx":{"pkt_count":"12"}}},"port.1":{"x":7},"waiting_for_stats":"0"}`))
	if got, err := s.Int("1/1/1", "aggregate", "tx", "pkt_count"); err != nil || got != 12 {
		t.Errorf("Int(1/1/1) got %v, %v, want 12, nil", got, err)
	}
	if got, err := s.Int("port.1", "x"); err != nil || got != 7 {
		t.Errorf("Int(port.1) got %v, %v, want 7, nil", got, err)
	}
	if got, ok := s.Str("waiting_for_stats"); !ok || got != "0" {
		t.Errorf("Str(waiting_for_stats) got %q, %v", got, ok)
	}
}

func TestNumber(t *testing.T) {
	s := NewStats([]byte(`{"a":"12.7","b":5,"c":"N/A","d":null,"e":{"f":1}}`))
	tests := []struct {
		key     string
		want    float64
		wantErr bool
	}{
		{key: "a", want: 12.7},
		{key: "b", want: 5},
		{key: "c", wantErr: true},
		{key: "d", wantErr: true},
		{key: "e", wantErr: true},
		{key: "missing", wantErr: true},
	}
	for _, tt := range tests {
		got, err := s.Number(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("Number(%q) got err %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Number(%q) got %v, want %v", tt.key, got, tt.want)
		}
	}
	if got := s.IntOr(-1, "c"); got != -1 {
		t.Errorf("IntOr(c) got %d, want -1", got)
	}
	if got := s.IntOr(-1, "a"); got != 12 {
		t.Errorf("IntOr(a) got %d, want 12", got)
	}
}

func TestSessionStatusDownPorts(t *testing.T) {
	s := &SessionStatus{
		Ports: []string{"1/2", "1/1"},
		States: map[string]PortState{
			"1/1": {State: "down"},
			"1/2": {State: "up"},
		},
	}
	got := s.DownPorts()
	if len(got) != 1 || got[0] != "1/1" {
		t.Errorf("DownPorts() got %v, want [1/1]", got)
	}
	var nilStatus *SessionStatus
	if got := nilStatus.DownPorts(); got != nil {
		t.Errorf("nil DownPorts() got %v, want nil", got)
	}
}
