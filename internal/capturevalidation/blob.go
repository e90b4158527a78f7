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
	"fmt"
	"strconv"

	"github.com/openconfig/tgenutils/internal/tgen"
)

// Filter selects frames holding every value at its offset.
type Filter struct {
	Offsets []int
	Values  []string
}

// Validate reports whether the filter is well formed.
func (f Filter) Validate() error {
	if len(f.Offsets) != len(f.Values) {
		return fmt.Errorf("filter has %d offsets for %d values", len(f.Offsets), len(f.Values))
	}
	for _, v := range f.Values {
		if _, err := NormalizeValue(v); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of frames the filter selects.
func (f Filter) Count(frames []Frame) int {
	n := 0
	for _, fr := range frames {
		if _, ok := Match([]Frame{fr}, f.Offsets, f.Values, 0); ok {
			n++
		}
	}
	return n
}

// EncodeBlob returns the capture document of a port holding frames, in
// the layout read by VerifyPacketCapture.
func EncodeBlob(port string, frames []Frame) (tgen.Stats, error) {
	list := map[string]any{}
	for i, f := range frames {
		b := make([]string, len(f))
		for j, v := range f {
			b[j] = fmt.Sprintf("%02X", v)
		}
		list[strconv.Itoa(i)] = map[string]any{"frame_pylist": b}
	}
	return tgen.StatsFromValue(map[string]any{
		port: map[string]any{
			tgen.StatsAggregate: map[string]any{"num_frames": strconv.Itoa(len(frames))},
			"frame":             list,
		},
	})
}
