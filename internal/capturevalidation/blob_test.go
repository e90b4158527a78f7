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
	"testing"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
)

func TestEncodeBlob(t *testing.T) {
	frames := []capturevalidation.Frame{
		{0x00, 0x01, 0x02, 0x03},
		{0xaa, 0xbb, 0x0e, 0xc8},
		{0xaa, 0xbb, 0x12, 0xb0},
	}
	blob, err := capturevalidation.EncodeBlob("1/2", frames)
	if err != nil {
		t.Fatalf("EncodeBlob() failed: %v", err)
	}
	idx, ok := capturevalidation.VerifyPacketCapture(t, blob, capturevalidation.CaptureQuery{
		Kind:    tgen.KindScapy,
		Offsets: []int{0, 2},
		Values:  []string{"AA:BB", "12B0"},
	})
	if !ok || idx != 2 {
		t.Errorf("VerifyPacketCapture() got %d, %v, want 2, true", idx, ok)
	}
}

func TestFilter(t *testing.T) {
	frames := []capturevalidation.Frame{
		{0xaa, 0xbb, 0x0e, 0xc8},
		{0xaa, 0xbb, 0x12, 0xb0},
		{0xaa, 0xbb},
		{0xaa, 0xbb, 0x0e, 0xc8},
	}
	f := capturevalidation.Filter{Offsets: []int{2}, Values: []string{"0E:C8"}}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if got := f.Count(frames); got != 2 {
		t.Errorf("Count() got %d, want 2", got)
	}
	for _, bad := range []capturevalidation.Filter{
		{Offsets: []int{1, 2}, Values: []string{"AA"}},
		{Offsets: []int{1}, Values: []string{"ZZ"}},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", bad)
		}
	}
}
