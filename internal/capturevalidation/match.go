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

// Package capturevalidation matches expected header values against frames
// captured by a traffic generator.
//
// Values are matched either at byte offsets of the raw frame, or against
// named header fields of a decoded frame:
//
//	idx, ok := capturevalidation.VerifyPacketCapture(t, capture, capturevalidation.CaptureQuery{
//		Kind:    tgen.KindIxia,
//		Offsets: []int{0, 26},
//		Values:  []string{"00:00:01:00:00:01", "10.1.1.1"},
//	})
package capturevalidation

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Frame is the raw content of one captured frame.
type Frame []byte

// NormalizeValue converts an expected value to bytes. Values are colon
// separated hex ("AA:BB"), dotted decimal ("170.187") or plain hex ("AABB",
// left-padded with a zero when of odd length).
func NormalizeValue(v string) ([]byte, error) {
	switch {
	case strings.Contains(v, ":"):
		var out []byte
		for _, part := range strings.Split(v, ":") {
			b, err := strconv.ParseUint(part, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid hex byte %q in %q", part, v)
			}
			out = append(out, byte(b))
		}
		return out, nil
	case strings.Contains(v, "."):
		var out []byte
		for _, part := range strings.Split(v, ".") {
			b, err := strconv.ParseUint(part, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid decimal byte %q in %q", part, v)
			}
			out = append(out, byte(b))
		}
		return out, nil
	}
	if len(v)%2 != 0 {
		v = "0" + v
	}
	out, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value %q: %w", v, err)
	}
	return out, nil
}

// Match returns the index of the first of at most maxFrames frames (all
// frames when maxFrames is 0) that holds every value at its offset. Values
// that cannot be normalized never match.
func Match(frames []Frame, offsets []int, values []string, maxFrames int) (int, bool) {
	if len(offsets) != len(values) {
		glog.Warningf("%d offsets given for %d values", len(offsets), len(values))
		return -1, false
	}
	want := make([][]byte, len(values))
	for i, v := range values {
		b, err := NormalizeValue(v)
		if err != nil {
			glog.Warningf("Cannot match value: %v", err)
			return -1, false
		}
		want[i] = b
	}
	n := len(frames)
	if maxFrames > 0 && n > maxFrames {
		n = maxFrames
	}
	for i := 0; i < n; i++ {
		if matchFrame(i, frames[i], offsets, want) {
			return i, true
		}
	}
	return -1, false
}

func matchFrame(idx int, f Frame, offsets []int, want [][]byte) bool {
	for j, off := range offsets {
		end := off + len(want[j])
		if off < 0 || end > len(f) {
			glog.V(1).Infof("Match not found in packet: %d at offset: %d, frame has %d bytes", idx, off, len(f))
			return false
		}
		if got := f[off:end]; !bytes.Equal(got, want[j]) {
			glog.V(1).Infof("Match not found in packet: %d at offset: %d, Expected: % X, Found: % X", idx, off, want[j], got)
			return false
		}
		glog.V(1).Infof("Match found in packet: %d for % X at offset: %d", idx, want[j], off)
	}
	return true
}
