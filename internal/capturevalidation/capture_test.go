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

package capturevalidation_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/openconfig/testt"
	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
)

func captureBlob(t *testing.T, numFrames string, frames ...[]string) tgen.Stats {
	t.Helper()
	fr := map[string]any{}
	for i, f := range frames {
		fr[strconv.Itoa(i)] = map[string]any{"frame_pylist": f}
	}
	s, err := tgen.StatsFromValue(map[string]any{
		"status": "1",
		"1/1": map[string]any{
			"aggregate": map[string]any{"num_frames": numFrames},
			"frame":     fr,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerifyPacketCapture(t *testing.T) {
	blob := captureBlob(t, "3",
		[]string{"00", "01", "02", "03"},
		[]string{"00", "AA", "BB", "03"},
		[]string{"00", "aa", "bb", "04"},
	)
	tests := []struct {
		desc    string
		capture tgen.Stats
		query   capturevalidation.CaptureQuery
		wantIdx int
		wantOK  bool
	}{{
		desc:    "stc colon hex",
		capture: blob,
		query:   capturevalidation.CaptureQuery{Kind: tgen.KindSTC, Offsets: []int{1}, Values: []string{"AA:BB"}},
		wantIdx: 1,
		wantOK:  true,
	}, {
		desc:    "ixia dotted decimal",
		capture: blob,
		query:   capturevalidation.CaptureQuery{Kind: tgen.KindIxia, Offsets: []int{1, 3}, Values: []string{"170.187", "04"}},
		wantIdx: 2,
		wantOK:  true,
	}, {
		desc:    "stc bounded frames",
		capture: blob,
		query:   capturevalidation.CaptureQuery{Kind: tgen.KindSTC, Offsets: []int{3}, Values: []string{"04"}, MaxFrames: 2},
		wantIdx: -1,
	}, {
		desc:    "scapy is unbounded",
		capture: blob,
		query:   capturevalidation.CaptureQuery{Kind: tgen.KindScapy, Offsets: []int{3}, Values: []string{"04"}, MaxFrames: 2},
		wantIdx: 2,
		wantOK:  true,
	}, {
		desc:    "nothing captured",
		capture: captureBlob(t, "N/A"),
		query:   capturevalidation.CaptureQuery{Kind: tgen.KindSTC, Offsets: []int{0}, Values: []string{"00"}},
		wantIdx: -1,
	}, {
		desc:    "more than one port",
		capture: tgen.NewStats([]byte(`{"1/1":{"aggregate":{"num_frames":"1"}},"1/2":{"aggregate":{"num_frames":"1"}}}`)),
		query:   capturevalidation.CaptureQuery{Kind: tgen.KindSTC, Offsets: []int{0}, Values: []string{"00"}},
		wantIdx: -1,
	}}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			idx, ok := capturevalidation.VerifyPacketCapture(t, tt.capture, tt.query)
			if idx != tt.wantIdx || ok != tt.wantOK {
				t.Errorf("VerifyPacketCapture() got (%d, %v), want (%d, %v)", idx, ok, tt.wantIdx, tt.wantOK)
			}
		})
	}
}

const legacyCapture = `{
  "status": "1",
  "1/1": {
    "aggregate": {"num_frames": "2"},
    "frame": {"data": {
      "frame_id_end": "2",
      "1": {
        "Ethernet II": {
          "Ethernet II:Source": {"display_name": "Source", "value": "00:00:01:00:00:01"}
        },
        "802.1Q Virtual LAN": {
          "802.1Q Virtual LAN:ID": {"display_name": "ID", "value": "10"}
        }
      },
      "2": {
        "802.1Q Virtual LAN": {
          "802.1Q Virtual LAN:ID": {"display_name": "ID", "value": "20"}
        },
        "Generic Routing Encapsulation": {
          "Generic Routing Encapsulation:Data": {"display_name": "Data", "value": "00000A0B0C0D"}
        }
      }
    }}
  }
}`

func TestVerifyPacketCaptureLegacy(t *testing.T) {
	capture := tgen.NewStats([]byte(legacyCapture))
	tests := []struct {
		desc    string
		headers []string
		values  []string
		wantIdx int
		wantOK  bool
	}{
		{desc: "vlan id from tci", headers: []string{"VLAN:ID"}, values: []string{"6014"}, wantIdx: 2, wantOK: true},
		{desc: "mac and vlan", headers: []string{"ETH:Source", "VLAN:ID"}, values: []string{"00:00:01:00:00:01", "000A"}, wantIdx: 1, wantOK: true},
		{desc: "gre data at offset", headers: []string{"GRE:Data:4"}, values: []string{"10.11.12"}, wantIdx: 2, wantOK: true},
		{desc: "no match", headers: []string{"VLAN:ID"}, values: []string{"001E"}, wantIdx: -1},
		{desc: "bad selector", headers: []string{"ARP:Target"}, values: []string{"1"}, wantIdx: -1},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			idx, ok := capturevalidation.VerifyPacketCapture(t, capture, capturevalidation.CaptureQuery{
				Kind:    tgen.KindIxia,
				Headers: tt.headers,
				Values:  tt.values,
			})
			if idx != tt.wantIdx || ok != tt.wantOK {
				t.Errorf("VerifyPacketCapture() got (%d, %v), want (%d, %v)", idx, ok, tt.wantIdx, tt.wantOK)
			}
		})
	}
}

func TestVerifyPacketCaptureMissingBufferIndex(t *testing.T) {
	capture := tgen.NewStats([]byte(strings.Replace(legacyCapture, `"frame_id_end": "2"`, `"frame_id_end": "3"`, 1)))
	errMsg := testt.CaptureFatal(t, func(t testing.TB) {
		capturevalidation.VerifyPacketCapture(t, capture, capturevalidation.CaptureQuery{
			Kind:    tgen.KindIxia,
			Headers: []string{"VLAN:ID"},
			Values:  []string{"0FFF"},
		})
	})
	if errMsg == nil || !strings.Contains(*errMsg, "tgen_failed_capture_buffer") {
		t.Errorf("VerifyPacketCapture() failure got %v, want capture buffer failure", errMsg)
	}
}
