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

	"github.com/openconfig/tgenutils/internal/tgen"
)

// Ratio is the expected rx/tx ratio of one tx entry. A single value applies
// to every stream of the entry; otherwise there is one value per stream.
type Ratio []float64

// Scalar returns a single-valued Ratio.
func Scalar(r float64) Ratio { return Ratio{r} }

// at returns the ratio of the i'th stream.
func (r Ratio) at(i int) float64 {
	if len(r) == 1 {
		return r[0]
	}
	return r[i]
}

/*
Pair declares a traffic relationship between a set of transmitting ports and
a set of receiving ports. Tx entries are aligned by index:

	Pair{
		TxPorts:    []string{"1/1", "1/2"},
		TxBackends: []tgen.Backend{tg1, tg1},
		Ratios:     []Ratio{Scalar(1), Scalar(0.5)},
		RxPorts:    []string{"1/3"},
		RxBackends: []tgen.Backend{tg1},
	}

Streams, FilterParams and FilterValues are only needed by the streamblock
and filter modes. Streams[i] lists the stream ids sent from TxPorts[i], and
FilterParams[i][j] and FilterValues[i][j] select the receive side breakdown
for Streams[i][j].
*/
type Pair struct {
	TxPorts    []string
	TxBackends []tgen.Backend
	Ratios     []Ratio
	RxPorts    []string
	RxBackends []tgen.Backend

	Streams      [][]string
	FilterParams [][]string
	FilterValues [][]string

	// DUT ports only appear in log messages.
	DUTTxPorts []string
	DUTRxPorts []string
}

// DeclarationError reports an invalid pair declaration. Pair is the 1-based
// ordinal of the offending pair, or 0 when the declaration set as a whole is
// invalid.
type DeclarationError struct {
	Pair   int
	Field  string
	Reason string
}

func (e *DeclarationError) Error() string {
	if e.Pair == 0 {
		return fmt.Sprintf("invalid traffic declaration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid traffic pair %d: %s: %s", e.Pair, e.Field, e.Reason)
}

func declErr(pair int, field, format string, args ...any) error {
	return &DeclarationError{Pair: pair, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// validate checks the declaration of the n'th pair for the given mode.
func (p *Pair) validate(n int, mode string) error {
	switch {
	case len(p.TxPorts) == 0:
		return declErr(n, "tx_ports", "parameter missing")
	case len(p.RxPorts) == 0:
		return declErr(n, "rx_ports", "parameter missing")
	case len(p.TxBackends) != len(p.TxPorts) || len(p.Ratios) != len(p.TxPorts):
		return declErr(n, "tx_ports", "tx_ports (%d), tx_obj (%d) and exp_ratio (%d) must be of same length",
			len(p.TxPorts), len(p.TxBackends), len(p.Ratios))
	case len(p.RxBackends) != len(p.RxPorts):
		return declErr(n, "rx_ports", "rx_ports (%d) and rx_obj (%d) must be of same length", len(p.RxPorts), len(p.RxBackends))
	}
	for i, b := range p.TxBackends {
		if b == nil {
			return declErr(n, "tx_obj", "backend of tx port %s is nil", p.TxPorts[i])
		}
	}
	for i, b := range p.RxBackends {
		if b == nil {
			return declErr(n, "rx_obj", "backend of rx port %s is nil", p.RxPorts[i])
		}
	}
	if p.Streams != nil && len(p.Streams) != len(p.TxPorts) {
		return declErr(n, "stream_list", "tx_ports (%d) and stream_list (%d) must be of same length", len(p.TxPorts), len(p.Streams))
	}
	if p.FilterParams != nil && p.Streams != nil {
		if err := sameShape(n, "filter_param", p.Streams, p.FilterParams); err != nil {
			return err
		}
	}
	if p.FilterValues != nil && p.FilterParams != nil {
		if err := sameShape(n, "filter_val", p.FilterParams, p.FilterValues); err != nil {
			return err
		}
	}

	switch mode {
	case ModeStreamblock, ModeFilter:
		if len(p.Streams) == 0 {
			return declErr(n, "stream_list", "parameter missing for mode %s", mode)
		}
		if mode == ModeFilter && (p.FilterParams == nil || p.FilterValues == nil) {
			return declErr(n, "filter_param", "filter_param and filter_val are required for mode %s", mode)
		}
		for i, r := range p.Ratios {
			if len(r) != 1 && len(r) != len(p.Streams[i]) {
				return declErr(n, "exp_ratio", "ratio %v of tx port %s does not match %d streams", []float64(r), p.TxPorts[i], len(p.Streams[i]))
			}
		}
	default:
		for i, r := range p.Ratios {
			if len(r) != 1 {
				return declErr(n, "exp_ratio", "ratio of tx port %s must be a single value in mode %s, got %v", p.TxPorts[i], mode, []float64(r))
			}
		}
	}
	return nil
}

func sameShape(n int, field string, want, got [][]string) error {
	if len(want) != len(got) {
		return declErr(n, field, "must have %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if len(want[i]) != len(got[i]) {
			return declErr(n, field, "entry %d must have %d elements, got %d", i+1, len(want[i]), len(got[i]))
		}
	}
	return nil
}

// info describes the n'th pair in log messages.
func (p *Pair) info(n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pair: %d TX: %v", n, p.TxPorts)
	if len(p.DUTTxPorts) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(p.DUTTxPorts, ","))
	}
	fmt.Fprintf(&sb, " RX: %v", p.RxPorts)
	if len(p.DUTRxPorts) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(p.DUTRxPorts, ","))
	}
	return sb.String()
}

func (p *Pair) backends() []tgen.Backend {
	return append(append([]tgen.Backend(nil), p.TxBackends...), p.RxBackends...)
}
