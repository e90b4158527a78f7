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

package trafficvalidation

import (
	"fmt"
	"strings"
)

// Verdict is the outcome of one verified item: a pair in the aggregate and
// custom_filter modes, or a stream of a pair otherwise.
type Verdict struct {
	Pair        int
	Stream      string
	FilterParam string
	FilterValue string
	Expected    float64
	Actual      float64
	DiffPct     float64
	Passed      bool
	Message     string
}

// Result is the outcome of one Verify call.
type Result struct {
	// ID correlates the log lines of one call.
	ID       string
	Passed   bool
	Verdicts []Verdict

	lastMsg string
}

// All returns the pass/fail of every verdict in verification order.
func (r *Result) All() []bool {
	out := make([]bool, len(r.Verdicts))
	for i, v := range r.Verdicts {
		out[i] = v.Passed
	}
	return out
}

// LastMessage returns the most recent validation message, including the
// messages of mismatches that were retried.
func (r *Result) LastMessage() string {
	return r.lastMsg
}

// Failed returns the verdicts that did not pass.
func (r *Result) Failed() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if !v.Passed {
			out = append(out, v)
		}
	}
	return out
}

func (r *Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s passed=%v", r.ID, r.Passed)
	for _, v := range r.Verdicts {
		sb.WriteString("\n  ")
		sb.WriteString(v.Message)
	}
	return sb.String()
}

// validationMessage formats the log line of one measurement.
func validationMessage(passed bool, it target, m measurement, diff float64) string {
	msg := fmt.Sprintf("Traffic Validation: %v %s Expected: %v Actual: %v diff%%: %.6g", passed, it.info, m.expected, m.actual, diff)
	if it.stream != "" {
		msg += " streamid: " + it.stream
	}
	if it.filterParam != "" {
		msg += fmt.Sprintf(" filter param: %s value: %s", it.filterParam, it.filterValue)
	}
	return msg
}
