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
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// FieldNode is a decoded protocol header or field. Headers carry children,
// fields carry a display name and a value.
type FieldNode struct {
	Key         string
	DisplayName string
	Value       string
	Children    []*FieldNode
}

type headerFormat struct {
	name   *regexp.Regexp
	fields []string
}

// headerFormats maps the header ids accepted in field selectors to the
// header names used by decoded frames.
var headerFormats = map[string]headerFormat{
	"ETH": {
		name:   regexp.MustCompile(`Ethernet`),
		fields: []string{"Ethernet", "Source", "Destination", "Type"},
	},
	"VLAN": {
		name:   regexp.MustCompile(`1Q Virtual LAN`),
		fields: []string{"1Q Virtual LAN", "CFI", "ID", "Priority", "Type"},
	},
	"IP": {
		name: regexp.MustCompile(`Internet Protocol`),
		fields: []string{"Version", "Total Length", "Source", "Destination", "Protocol",
			"Time to live", "Header Length", "Identification", "Precedence",
			"Differentiated Services Codepoint", "Reliability",
			"Explicit Congestion Notification", "Fragment offset", "More fragments"},
	},
	"IP6": {
		name:   regexp.MustCompile(`Internet Protocol Version 6$`),
		fields: []string{"Source", "Destination", "Protocol"},
	},
	"TCP": {
		name:   regexp.MustCompile(`Transmission Control Protocol`),
		fields: []string{"Source Port", "Destination Port"},
	},
	"UDP": {
		name:   regexp.MustCompile(`User Datagram Protocol`),
		fields: []string{"Source Port", "Destination Port"},
	},
	"GRE": {
		name:   regexp.MustCompile(`Generic Routing Encapsulation`),
		fields: []string{"Data", "Protocol Type"},
	},
}

func (f headerFormat) has(field string) bool {
	for _, name := range f.fields {
		if strings.EqualFold(name, field) {
			return true
		}
	}
	return false
}

var dataField = regexp.MustCompile(`(?i)data`)

// fieldMatch is one parsed field selector.
type fieldMatch struct {
	header string
	format headerFormat
	field  string
	value  string
	// offset is the start of value within a GRE data field, or -1.
	offset int
}

// parseFieldMatch parses a "HEADER:Field[:offset]" selector and converts
// value to the representation of decoded fields: numbers in decimal, GRE
// data in upper case hex, addresses unchanged. VLAN values are the hex TCI
// and match on the VLAN id.
func parseFieldMatch(selector, value string) (fieldMatch, error) {
	parts := strings.Split(selector, ":")
	if len(parts) < 2 {
		return fieldMatch{}, fmt.Errorf("field selector %q is not HEADER:Field", selector)
	}
	f, ok := headerFormats[parts[0]]
	if !ok {
		return fieldMatch{}, fmt.Errorf("unknown header %q in %q", parts[0], selector)
	}
	m := fieldMatch{header: parts[0], format: f, field: parts[1], value: value, offset: -1}
	if !f.has(m.field) {
		return m, fmt.Errorf("header %s has no field %q", m.header, m.field)
	}

	switch {
	case m.header == "GRE" && dataField.MatchString(m.field):
		if len(parts) < 3 {
			return m, fmt.Errorf("GRE data selector %q needs an offset", selector)
		}
		off, err := strconv.Atoi(parts[2])
		if err != nil || off < 0 {
			return m, fmt.Errorf("invalid offset in %q", selector)
		}
		m.offset = off
		if strings.ContainsAny(value, ":.") {
			b, err := NormalizeValue(value)
			if err != nil {
				return m, err
			}
			m.value = fmt.Sprintf("%X", b)
		}
	case !strings.ContainsAny(value, ":."):
		digits := value
		if strings.EqualFold(m.header, "VLAN") {
			if len(value) < 4 {
				return m, fmt.Errorf("VLAN value %q is not a 16 bit TCI", value)
			}
			digits = value[1:4]
		}
		n, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return m, fmt.Errorf("invalid hex value %q for %s", value, selector)
		}
		m.value = strconv.FormatUint(n, 10)
	}
	return m, nil
}

// searchFields walks the tree below n and appends one result per visited
// header level, true when a field of the selected header matched.
func searchFields(n *FieldNode, m fieldMatch, acc []bool) []bool {
	for _, c := range n.Children {
		if c.DisplayName != "" && m.format.name.MatchString(c.Key) && c.DisplayName == m.field {
			if m.offset >= 0 {
				end := m.offset + len(m.value)
				if end <= len(c.Value) && strings.EqualFold(c.Value[m.offset:end], m.value) {
					return append(acc, true)
				}
			} else if strings.EqualFold(c.Value, m.value) {
				return append(acc, true)
			}
		}
		acc = searchFields(c, m, acc)
	}
	return append(acc, false)
}

func found(results []bool) bool {
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

// MatchFields returns the index of the first decoded frame in which every
// selector ("HEADER:Field", or "GRE:Data:offset") holds its value.
func MatchFields(frames []*FieldNode, selectors, values []string) (int, bool, error) {
	if len(selectors) != len(values) {
		return -1, false, fmt.Errorf("%d field selectors given for %d values", len(selectors), len(values))
	}
	matches := make([]fieldMatch, len(selectors))
	for i := range selectors {
		m, err := parseFieldMatch(selectors[i], values[i])
		if err != nil {
			return -1, false, err
		}
		matches[i] = m
	}
	for idx, f := range frames {
		if matchTree(idx, f, matches) {
			return idx, true, nil
		}
	}
	return -1, false, nil
}

func matchTree(idx int, f *FieldNode, matches []fieldMatch) bool {
	for _, m := range matches {
		if !found(searchFields(f, m, nil)) {
			glog.V(1).Infof("Match not found in packet: %d for %s in %s:%s header", idx, m.value, m.header, m.field)
			return false
		}
		glog.V(1).Infof("Match found in packet: %d for %s in %s:%s header", idx, m.value, m.header, m.field)
	}
	return true
}
