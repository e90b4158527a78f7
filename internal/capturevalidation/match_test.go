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

package capturevalidation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{in: "AA:BB", want: []byte{0xaa, 0xbb}},
		{in: "170.187", want: []byte{0xaa, 0xbb}},
		{in: "AABB", want: []byte{0xaa, 0xbb}},
		{in: "aabb", want: []byte{0xaa, 0xbb}},
		{in: "800", want: []byte{0x08, 0x00}},
		{in: "00:11:22:33:44:55", want: []byte{0, 0x11, 0x22, 0x33, 0x44, 0x55}},
		{in: "10.1.1.1", want: []byte{10, 1, 1, 1}},
		{in: "256.1", wantErr: true},
		{in: "GG", wantErr: true},
		{in: "A:ZZ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeValue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeValue(%q) got err %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("NormalizeValue(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestMatch(t *testing.T) {
	frames := []Frame{
		{0x00, 0x01, 0x02, 0x03},
		{0x00, 0xaa, 0xbb, 0x03},
		{0x00, 0xaa, 0xbb, 0x04},
	}
	tests := []struct {
		desc      string
		offsets   []int
		values    []string
		maxFrames int
		wantIdx   int
		wantOK    bool
	}{
		{desc: "colon hex", offsets: []int{1}, values: []string{"AA:BB"}, wantIdx: 1, wantOK: true},
		{desc: "dotted decimal", offsets: []int{1}, values: []string{"170.187"}, wantIdx: 1, wantOK: true},
		{desc: "plain hex", offsets: []int{1}, values: []string{"AABB"}, wantIdx: 1, wantOK: true},
		{desc: "all pairs must match", offsets: []int{1, 3}, values: []string{"AABB", "04"}, wantIdx: 2, wantOK: true},
		{desc: "no match", offsets: []int{1}, values: []string{"CCDD"}, wantIdx: -1},
		{desc: "beyond frame end", offsets: []int{3}, values: []string{"0304"}, wantIdx: -1},
		{desc: "bounded frames", offsets: []int{3}, values: []string{"04"}, maxFrames: 2, wantIdx: -1},
		{desc: "length mismatch", offsets: []int{1, 2}, values: []string{"AA"}, wantIdx: -1},
		{desc: "bad value", offsets: []int{1}, values: []string{"XYZ"}, wantIdx: -1},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			idx, ok := Match(frames, tt.offsets, tt.values, tt.maxFrames)
			if idx != tt.wantIdx || ok != tt.wantOK {
				t.Errorf("Match() got (%d, %v), want (%d, %v)", idx, ok, tt.wantIdx, tt.wantOK)
			}
		})
	}
}

func TestParseFieldMatch(t *testing.T) {
	tests := []struct {
		selector, value string
		wantValue       string
		wantOffset      int
		wantErr         bool
	}{
		{selector: "IP:Protocol", value: "11", wantValue: "17", wantOffset: -1},
		{selector: "IP:Source", value: "10.1.1.1", wantValue: "10.1.1.1", wantOffset: -1},
		{selector: "VLAN:ID", value: "000A", wantValue: "10", wantOffset: -1},
		{selector: "VLAN:ID", value: "E064", wantValue: "100", wantOffset: -1},
		{selector: "GRE:Data:4", value: "0A:0B", wantValue: "0A0B", wantOffset: 4},
		{selector: "GRE:Data:2", value: "abcd", wantValue: "abcd", wantOffset: 2},
		{selector: "GRE:Data", value: "abcd", wantErr: true},
		{selector: "ARP:Target", value: "1", wantErr: true},
		{selector: "TCP:Window", value: "1", wantErr: true},
		{selector: "TCP", value: "1", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseFieldMatch(tt.selector, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFieldMatch(%q, %q) got err %v, wantErr %v", tt.selector, tt.value, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if got.value != tt.wantValue || got.offset != tt.wantOffset {
			t.Errorf("parseFieldMatch(%q, %q) got value %q offset %d, want %q %d", tt.selector, tt.value, got.value, got.offset, tt.wantValue, tt.wantOffset)
		}
	}
}

func TestSearchFieldsAccumulates(t *testing.T) {
	tree := &FieldNode{Key: "1", Children: []*FieldNode{{
		Key: "Ethernet II",
		Children: []*FieldNode{
			{Key: "Ethernet II", DisplayName: "Type", Value: "2048"},
		},
	}, {
		Key: "Internet Protocol Version 4",
		Children: []*FieldNode{
			{Key: "Internet Protocol Version 4", DisplayName: "Protocol", Value: "17"},
		},
	}}}
	m, err := parseFieldMatch("IP:Protocol", "11")
	if err != nil {
		t.Fatal(err)
	}
	res := searchFields(tree, m, nil)
	if !found(res) {
		t.Errorf("searchFields() got %v, want a match", res)
	}
	m, _ = parseFieldMatch("UDP:Source Port", "35")
	if res := searchFields(tree, m, nil); found(res) {
		t.Errorf("searchFields() got %v, want no match", res)
	}
}
