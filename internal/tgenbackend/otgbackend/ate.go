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

package otgbackend

import (
	"testing"
	"time"

	"github.com/golang/glog"
	"github.com/open-traffic-generator/snappi/gosnappi"
	"github.com/openconfig/ondatra"
	"github.com/openconfig/ondatra/gnmi"
	"github.com/openconfig/ondatra/gnmi/otg"
	"github.com/openconfig/ygnmi/ygnmi"
)

// PortMetrics are the OTG counters of a port.
type PortMetrics struct {
	OutFrames, InFrames uint64
	OutOctets, InOctets uint64
	OutRate, InRate     float64
	Up                  bool
}

// FlowMetrics are the OTG counters of a flow.
type FlowMetrics struct {
	OutPkts, InPkts uint64
	Transmit        bool
}

// Telemetry reads OTG state and drives traffic and captures.
type Telemetry interface {
	PortMetrics(port string) (PortMetrics, bool)
	FlowMetrics(flow string) (FlowMetrics, bool)
	// Capture returns the pcap file captured on a port.
	Capture(port string) []byte
	SetCapture(ports []string, start bool)
	StartTraffic()
	StopTraffic()
}

const stopTimeout = time.Minute

// ATE is the Telemetry of an ondatra ATE running an OTG config.
type ATE struct {
	t   testing.TB
	ate *ondatra.ATEDevice
	top gosnappi.Config
}

// NewATE returns the Telemetry of ate. top is the config pushed to it.
func NewATE(t testing.TB, ate *ondatra.ATEDevice, top gosnappi.Config) *ATE {
	return &ATE{t: t, ate: ate, top: top}
}

// PortMetrics implements Telemetry.
func (a *ATE) PortMetrics(port string) (PortMetrics, bool) {
	p, ok := gnmi.Lookup(a.t, a.ate.OTG(), gnmi.OTG().Port(port).State()).Val()
	if !ok {
		return PortMetrics{}, false
	}
	c := p.GetCounters()
	return PortMetrics{
		OutFrames: c.GetOutFrames(),
		InFrames:  c.GetInFrames(),
		OutOctets: c.GetOutOctets(),
		InOctets:  c.GetInOctets(),
		OutRate:   float64(p.GetOutRate()),
		InRate:    float64(p.GetInRate()),
		Up:        p.GetLink() == otg.Port_Link_UP,
	}, true
}

// FlowMetrics implements Telemetry.
func (a *ATE) FlowMetrics(flow string) (FlowMetrics, bool) {
	f, ok := gnmi.Lookup(a.t, a.ate.OTG(), gnmi.OTG().Flow(flow).State()).Val()
	if !ok {
		return FlowMetrics{}, false
	}
	return FlowMetrics{
		OutPkts:  f.GetCounters().GetOutPkts(),
		InPkts:   f.GetCounters().GetInPkts(),
		Transmit: f.GetTransmit(),
	}, true
}

// Capture implements Telemetry.
func (a *ATE) Capture(port string) []byte {
	return a.ate.OTG().GetCapture(a.t, gosnappi.NewCaptureRequest().SetPortName(port))
}

// SetCapture implements Telemetry.
func (a *ATE) SetCapture(ports []string, start bool) {
	cs := gosnappi.NewControlState()
	state := gosnappi.StatePortCaptureState.STOP
	if start {
		state = gosnappi.StatePortCaptureState.START
	}
	cs.Port().Capture().SetPortNames(ports).SetState(state)
	a.ate.OTG().SetControlState(a.t, cs)
}

// StartTraffic implements Telemetry.
func (a *ATE) StartTraffic() {
	a.ate.OTG().StartTraffic(a.t)
}

// StopTraffic implements Telemetry. It returns once every flow stopped
// transmitting, or after a minute.
func (a *ATE) StopTraffic() {
	a.ate.OTG().StopTraffic(a.t)
	for _, f := range a.top.Flows().Items() {
		_, stopped := gnmi.Watch(a.t, a.ate.OTG(), gnmi.OTG().Flow(f.Name()).Transmit().State(), stopTimeout, func(val *ygnmi.Value[bool]) bool {
			transmitting, ok := val.Val()
			return ok && !transmitting
		}).Await(a.t)
		if !stopped {
			glog.Warningf("Flow %s still not stopped after %v. Stats may be inconsistent", f.Name(), stopTimeout)
		}
	}
}
