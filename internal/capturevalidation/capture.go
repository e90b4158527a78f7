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
	"strconv"

	"github.com/golang/glog"
	"github.com/tidwall/gjson"

	"github.com/openconfig/tgenutils/internal/tgen"
)

const defaultMaxFrames = 20

// CaptureQuery selects what VerifyPacketCapture looks for.
type CaptureQuery struct {
	Kind tgen.Kind
	// Offsets and Values are matched against raw frame bytes.
	Offsets []int
	Values  []string
	// Headers selects the legacy ixia field format. Each entry is a
	// "HEADER:Field" selector matched against the value at the same index
	// of Values; Offsets are ignored.
	Headers []string
	// MaxFrames bounds the frames inspected on stc and ixia. Defaults to 20.
	MaxFrames int
}

// VerifyPacketCapture looks for the first captured frame that holds all
// queried values and returns its index. The capture must cover a single
// port. Frame indexes of the legacy field format start at 1. A frame
// missing from a legacy capture buffer is a hard failure.
func VerifyPacketCapture(t tgen.Reporter, capture tgen.Stats, q CaptureQuery) (int, bool) {
	t.Helper()
	tgen.LogCall(t, "VerifyPacketCapture", q)
	var ports []string
	gjson.ParseBytes(capture.Raw()).ForEach(func(k, _ gjson.Result) bool {
		if k.String() != "status" {
			ports = append(ports, k.String())
		}
		return true
	})
	switch {
	case len(ports) == 0:
		t.Logf("Capture holds no port")
		return -1, false
	case len(ports) > 1:
		glog.Warningf("Packets have captured on more than one port %v. Pass packet info for only one port", ports)
		return -1, false
	}
	port := ports[0]
	numFrames, ok := capture.Str(port, tgen.StatsAggregate, "num_frames")
	if !ok || numFrames == "0" || numFrames == "N/A" {
		glog.Warningf("No packets were captured on %s", port)
		return -1, false
	}
	t.Logf("Number of packets captured: %s", numFrames)
	n, err := strconv.Atoi(numFrames)
	if err != nil {
		t.Logf("Invalid frame count %q: %v", numFrames, err)
		return -1, false
	}

	maxFrames := q.MaxFrames
	if maxFrames <= 0 {
		maxFrames = defaultMaxFrames
	}
	switch q.Kind {
	case tgen.KindSTC:
	case tgen.KindScapy:
		maxFrames = 0
	case tgen.KindIxia:
		if q.Headers != nil {
			return verifyLegacyCapture(t, capture, port, q)
		}
	default:
		glog.Warningf("Unknown tg_type %s", q.Kind)
		return -1, false
	}
	return Match(framesFromBlob(capture, port, n), q.Offsets, q.Values, maxFrames)
}

// framesFromBlob reads the frame_pylist byte lists of the first n frames.
// Bytes are reported as hex strings or numbers; frames that are missing or
// unreadable are empty.
func framesFromBlob(capture tgen.Stats, port string, n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		list := capture.Get(port, "frame", strconv.Itoa(i), "frame_pylist")
		var f Frame
		list.ForEach(func(_, b gjson.Result) bool {
			var v uint64
			var err error
			if b.Type == gjson.Number {
				v = b.Uint()
			} else {
				v, err = strconv.ParseUint(b.String(), 16, 8)
			}
			if err != nil || v > 0xff {
				glog.Warningf("Invalid byte %s in frame %d", b.Raw, i)
				f = nil
				return false
			}
			f = append(f, byte(v))
			return true
		})
		frames[i] = f
	}
	return frames
}

func verifyLegacyCapture(t tgen.Reporter, capture tgen.Stats, port string, q CaptureQuery) (int, bool) {
	t.Helper()
	last := capture.IntOr(0, port, "frame", "data", "frame_id_end")
	trees := make([]*FieldNode, 0, last)
	for i := int64(1); i <= last; i++ {
		r := capture.Get(port, "frame", "data", strconv.FormatInt(i, 10))
		if !r.IsObject() {
			t.Fatalf("tgen_failed_capture_buffer: packet %d not found in the capture buffer of %s", i, port)
			return -1, false
		}
		trees = append(trees, treeFromJSON(strconv.FormatInt(i, 10), r))
	}
	idx, ok, err := MatchFields(trees, q.Headers, q.Values)
	if err != nil {
		t.Logf("Cannot match capture of %s: %v", port, err)
		return -1, false
	}
	if !ok {
		return -1, false
	}
	return idx + 1, true
}

// treeFromJSON converts a legacy decoded frame into a field tree. Objects
// with a display_name are fields.
func treeFromJSON(key string, r gjson.Result) *FieldNode {
	n := &FieldNode{Key: key}
	if dn := r.Get("display_name"); dn.Exists() {
		n.DisplayName = dn.String()
		n.Value = r.Get("value").String()
	}
	r.ForEach(func(k, v gjson.Result) bool {
		if v.IsObject() {
			n.Children = append(n.Children, treeFromJSON(k.String(), v))
		}
		return true
	})
	return n
}
