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

// Package softtgen is an in-memory software traffic generator. It reports
// statistics, captures and ping results in the layout of the scapy based
// generator so that verification helpers can run without lab hardware.
package softtgen

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/openconfig/tgenutils/internal/capturevalidation"
	"github.com/openconfig/tgenutils/internal/tgen"
)

const (
	oversizeFrame = 1518
	captureLimit  = 1000
)

// Stream is a configured traffic stream.
type Stream struct {
	ID string
	// TxPort and RxPorts are port handles.
	TxPort  string
	RxPorts []string
	// Packets sent by every run.
	Packets int64
	// RatePPS is reported as the stream rate while it runs.
	RatePPS float64
	// Loss is the fraction of packets dropped on every rx port.
	Loss float64
	// Tracking tags the flow statistics of the stream with name/value pairs.
	Tracking map[string]string
	Frame    FrameSpec
}

type counters struct {
	pkts, bytes, oversize int64
	rate                  float64
}

type port struct {
	name, handle string
	up           bool
	tx, rx       counters
	capture      []capturevalidation.Frame
	filter       *capturevalidation.Filter
}

type streamState struct {
	Stream
	running bool
	tx      int64
	rx      map[string]int64
}

type device struct {
	port      string
	started   bool
	reachable map[string]bool
}

// Simulator is a software traffic generator. It is safe for concurrent use.
type Simulator struct {
	// SettlePolls is the number of statistics queries after every run that
	// report the statistics as still being collected.
	SettlePolls int

	mu          sync.Mutex
	ports       map[string]*port // by handle
	handles     map[string]string
	streams     map[string]*streamState
	order       []string
	devices     map[string]*device
	unsettled   int
	started     bool
	emulations  []EmulationCall
	nextHandle  int
	diagnostics []string
}

// New returns a simulator with the named ports, all up. Port handles are
// assigned in order as "1/1", "1/2" and so on.
func New(ports ...string) *Simulator {
	s := &Simulator{
		ports:   map[string]*port{},
		handles: map[string]string{},
		streams: map[string]*streamState{},
		devices: map[string]*device{},
	}
	for i, name := range ports {
		h := fmt.Sprintf("1/%d", i+1)
		s.ports[h] = &port{name: name, handle: h, up: true}
		s.handles[name] = h
	}
	return s
}

// Kind implements tgen.Backend.
func (s *Simulator) Kind() tgen.Kind { return tgen.KindScapy }

// PortHandle implements tgen.Backend.
func (s *Simulator) PortHandle(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[name]
	if !ok {
		return "", fmt.Errorf("unknown port %q", name)
	}
	return h, nil
}

func (s *Simulator) port(handle string) (*port, error) {
	p, ok := s.ports[handle]
	if !ok {
		return nil, fmt.Errorf("unknown port handle %q", handle)
	}
	return p, nil
}

// AddStream configures a stream. Stream ids must be unique.
func (s *Simulator) AddStream(st Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		return fmt.Errorf("stream id is required")
	}
	if _, ok := s.streams[st.ID]; ok {
		return fmt.Errorf("stream %q already exists", st.ID)
	}
	if _, err := s.port(st.TxPort); err != nil {
		return err
	}
	for _, h := range st.RxPorts {
		if _, err := s.port(h); err != nil {
			return err
		}
	}
	if st.Loss < 0 || st.Loss > 1 {
		return fmt.Errorf("stream %q loss %v is not a fraction", st.ID, st.Loss)
	}
	s.streams[st.ID] = &streamState{Stream: st, rx: map[string]int64{}}
	s.order = append(s.order, st.ID)
	return nil
}

// SetLink brings a port up or down. Streams are not received on down ports.
func (s *Simulator) SetLink(handle string, up bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(handle)
	if err != nil {
		return err
	}
	p.up = up
	return nil
}

// SetCustomFilter installs the custom filter of a port.
func (s *Simulator) SetCustomFilter(handle string, f capturevalidation.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(handle)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	p.filter = &f
	return nil
}

// TrafficControl implements tgen.TrafficController. Running a port sends
// every stream transmitted from it once.
func (s *Simulator) TrafficControl(_ context.Context, action, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(handle)
	if err != nil {
		return err
	}
	glog.V(1).Infof("softtgen: %s on %s", action, handle)
	switch action {
	case tgen.ActionRun:
		s.started = true
		s.unsettled = s.SettlePolls
		for _, id := range s.order {
			if st := s.streams[id]; st.TxPort == handle {
				if err := s.send(st); err != nil {
					return err
				}
			}
		}
	case tgen.ActionStop, tgen.ActionReset:
		for _, st := range s.streams {
			if st.TxPort == handle {
				st.running = false
			}
		}
		p.tx.rate, p.rx.rate = 0, 0
	case tgen.ActionClearStats:
		p.tx, p.rx, p.capture = counters{}, counters{}, nil
		for _, st := range s.streams {
			if st.TxPort == handle {
				st.tx, st.rx = 0, map[string]int64{}
			}
		}
	default:
		return fmt.Errorf("unsupported traffic control action %q", action)
	}
	return nil
}

func (s *Simulator) send(st *streamState) error {
	frame, err := st.Frame.Build()
	if err != nil {
		return fmt.Errorf("stream %s: %w", st.ID, err)
	}
	size := int64(len(frame))
	tx := s.ports[st.TxPort]
	st.running = true
	st.tx += st.Packets
	tx.tx.pkts += st.Packets
	tx.tx.bytes += st.Packets * size
	tx.tx.rate += st.RatePPS
	received := int64(float64(st.Packets) * (1 - st.Loss))
	for _, h := range st.RxPorts {
		rx := s.ports[h]
		if !rx.up || !tx.up {
			continue
		}
		st.rx[h] += received
		rx.rx.pkts += received
		rx.rx.bytes += received * size
		rx.rx.rate += st.RatePPS * (1 - st.Loss)
		if size > oversizeFrame {
			rx.rx.oversize += received
		}
		for i := int64(0); i < received && len(rx.capture) < captureLimit; i++ {
			rx.capture = append(rx.capture, frame)
		}
	}
	return nil
}

func (c counters) doc(direction string) map[string]any {
	d := map[string]any{
		"raw_pkt_count":  strconv.FormatInt(c.pkts, 10),
		"total_pkts":     strconv.FormatInt(c.pkts, 10),
		"pkt_byte_count": strconv.FormatInt(c.bytes, 10),
	}
	if direction == tgen.Tx {
		d["total_pkt_rate"] = c.rate
	} else {
		d["raw_pkt_rate"] = c.rate
		d["oversize_count"] = strconv.FormatInt(c.oversize, 10)
	}
	return d
}

func (st *streamState) rxTotal() int64 {
	var n int64
	for _, v := range st.rx {
		n += v
	}
	return n
}

func (st *streamState) doc() map[string]any {
	rx := st.rxTotal()
	expected := st.tx * int64(len(st.RxPorts))
	loss := max(expected-rx, 0)
	lossPct := 0.0
	if expected > 0 {
		lossPct = float64(loss) * 100 / float64(expected)
	}
	rate := 0.0
	if st.running {
		rate = st.RatePPS
	}
	return map[string]any{
		tgen.Tx: map[string]any{"total_pkts": st.tx, "total_pkt_rate": rate},
		tgen.Rx: map[string]any{
			"total_pkts":     rx,
			"total_pkt_rate": rate * (1 - st.Loss),
			"loss_pkts":      loss,
			"loss_percent":   lossPct,
		},
	}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// TrafficStats implements tgen.Backend.
func (s *Simulator) TrafficStats(_ context.Context, q tgen.StatsQuery) (tgen.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(q.PortHandle)
	if err != nil {
		return tgen.Stats{}, err
	}
	doc := map[string]any{"status": boolFlag(s.started)}
	if s.unsettled > 0 {
		s.unsettled--
		doc["waiting_for_stats"] = "1"
		return tgen.StatsFromValue(doc)
	}
	doc["waiting_for_stats"] = "0"

	switch q.Mode {
	case tgen.StatsAggregate:
		doc[p.handle] = map[string]any{
			tgen.StatsAggregate: map[string]any{tgen.Tx: p.tx.doc(tgen.Tx), tgen.Rx: p.rx.doc(tgen.Rx)},
		}
	case tgen.StatsStreams:
		streams := map[string]any{}
		for _, st := range s.streams {
			if st.TxPort == p.handle || slices.Contains(st.RxPorts, p.handle) {
				streams[st.ID] = st.doc()
			}
		}
		doc[p.handle] = map[string]any{"stream": streams}
	case tgen.StatsTrafficItem:
		items := map[string]any{}
		for id, st := range s.streams {
			items[id] = st.doc()
		}
		doc[tgen.StatsTrafficItem] = items
	case tgen.StatsFlow:
		flows := map[string]any{}
		n := 0
		for _, id := range s.order {
			st := s.streams[id]
			if len(st.Tracking) == 0 || !slices.Contains(st.RxPorts, p.handle) {
				continue
			}
			n++
			var tracking []map[string]string
			for _, name := range slices.Sorted(maps.Keys(st.Tracking)) {
				tracking = append(tracking, map[string]string{"tracking_name": name, "tracking_value": st.Tracking[name]})
			}
			flows[strconv.Itoa(n)] = map[string]any{
				"tracking": tracking,
				tgen.Tx:    map[string]any{"total_pkts": st.tx},
				tgen.Rx:    map[string]any{"total_pkts": st.rx[p.handle], "total_pkt_rate": st.RatePPS * (1 - st.Loss)},
			}
		}
		doc[tgen.StatsFlow] = flows
	default:
		return tgen.Stats{}, fmt.Errorf("unsupported stats mode %q", q.Mode)
	}
	return tgen.StatsFromValue(doc)
}

// CustomFilterStats implements tgen.Backend. The capture is complete as soon
// as traffic has been sent, so captureWait is not used.
func (s *Simulator) CustomFilterStats(_ context.Context, handle string, _ time.Duration) (tgen.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.port(handle)
	if err != nil {
		return tgen.Stats{}, err
	}
	if p.filter == nil {
		return tgen.Stats{}, fmt.Errorf("no custom filter configured on %s", handle)
	}
	return tgen.StatsFromValue(map[string]any{
		"status": "1",
		handle: map[string]any{
			tgen.StatsCustomFilter: map[string]any{
				"filtered_frame_count": p.filter.Count(p.capture),
				"total_frame_count":    len(p.capture),
			},
		},
	})
}

// SessionErrors implements tgen.Backend. The implicated ports are the ports
// of the stream, or of every stream touching the port.
func (s *Simulator) SessionErrors(_ context.Context, handle, streamHandle string) (*tgen.SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	implicated := map[string]bool{}
	add := func(st *streamState) {
		implicated[st.TxPort] = true
		for _, h := range st.RxPorts {
			implicated[h] = true
		}
	}
	if streamHandle != "" {
		st, ok := s.streams[streamHandle]
		if !ok {
			return nil, fmt.Errorf("unknown stream %q", streamHandle)
		}
		add(st)
	} else {
		if _, err := s.port(handle); err != nil {
			return nil, err
		}
		implicated[handle] = true
		for _, st := range s.streams {
			if st.TxPort == handle || slices.Contains(st.RxPorts, handle) {
				add(st)
			}
		}
	}
	status := &tgen.SessionStatus{States: map[string]tgen.PortState{}}
	for h := range implicated {
		status.Ports = append(status.Ports, h)
		state := "down"
		if s.ports[h].up {
			state = "up"
		}
		status.States[h] = tgen.PortState{State: state}
	}
	sort.Strings(status.Ports)
	return status, nil
}

// CollectDiagnostics implements tgen.Backend.
func (s *Simulator) CollectDiagnostics(_ context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	glog.Infof("softtgen: collecting diagnostics: %s", reason)
	s.diagnostics = append(s.diagnostics, reason)
	return nil
}

// Diagnostics returns the reasons of every diagnostics collection.
func (s *Simulator) Diagnostics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.diagnostics)
}
