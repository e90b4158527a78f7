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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Stats is a raw statistics document as returned by a backend. Its shape
// depends on the backend kind and the statistics mode.
type Stats struct {
	raw []byte
}

// NewStats wraps a JSON document.
func NewStats(raw []byte) Stats {
	return Stats{raw: raw}
}

// StatsFromValue marshals v to JSON and wraps it.
func StatsFromValue(v any) (Stats, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Stats{}, fmt.Errorf("cannot marshal stats: %w", err)
	}
	return Stats{raw: b}, nil
}

// Raw returns the underlying JSON document.
func (s Stats) Raw() []byte { return s.raw }

// IsZero reports whether no document is held.
func (s Stats) IsZero() bool { return len(s.raw) == 0 }

func (s Stats) String() string {
	if s.IsZero() {
		return "{}"
	}
	return string(s.raw)
}

// Get looks up the value found by walking keys.
func (s Stats) Get(keys ...string) gjson.Result {
	return gjson.GetBytes(s.raw, Path(keys...))
}

// Has reports whether a value exists at keys.
func (s Stats) Has(keys ...string) bool {
	return s.Get(keys...).Exists()
}

// Str returns the string form of the value at keys.
func (s Stats) Str(keys ...string) (string, bool) {
	r := s.Get(keys...)
	if !r.Exists() {
		return "", false
	}
	return r.String(), true
}

// Number returns the value at keys as a float. Backends report counters
// either as JSON numbers or as decimal strings; anything else, including
// "N/A", is an error.
func (s Stats) Number(keys ...string) (float64, error) {
	r := s.Get(keys...)
	switch r.Type {
	case gjson.Number:
		return r.Num, nil
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q at %v is not a number", r.Str, keys)
		}
		return v, nil
	case gjson.Null:
		if !r.Exists() {
			return 0, fmt.Errorf("no value at %v", keys)
		}
	}
	return 0, fmt.Errorf("value %s at %v is not a number", r.Raw, keys)
}

// Int returns the value at keys truncated to an integer.
func (s Stats) Int(keys ...string) (int64, error) {
	v, err := s.Number(keys...)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// IntOr returns the integer at keys, or def when it is absent or malformed.
func (s Stats) IntOr(def int64, keys ...string) int64 {
	v, err := s.Int(keys...)
	if err != nil {
		return def
	}
	return v
}

// Path joins keys into a gjson path, escaping characters that gjson would
// otherwise interpret. Port handles such as "1/1/1" or "port1.1" are used
// as keys verbatim.
func Path(keys ...string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('.')
		}
		for _, r := range k {
			if !isPlainPathRune(r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isPlainPathRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '/', r == ' ':
		return true
	}
	return false
}
