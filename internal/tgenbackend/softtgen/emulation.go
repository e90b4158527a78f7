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

package softtgen

import (
	"context"
	"fmt"
	"slices"

	"github.com/openconfig/tgenutils/internal/protocfg"
	"github.com/openconfig/tgenutils/internal/tgen"
)

// EmulationCall is one emulation operation run on the simulator.
type EmulationCall struct {
	Op     string
	Params protocfg.Params
}

// AddDevice adds an emulated device on a port. Pings from the device are
// answered by the reachable destinations once its sessions are started.
func (s *Simulator) AddDevice(portHandle, handle string, started bool, reachable ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.port(portHandle); err != nil {
		return err
	}
	d := &device{port: portHandle, started: started, reachable: map[string]bool{}}
	for _, r := range reachable {
		d.reachable[r] = true
	}
	s.devices[handle] = d
	return nil
}

// Ping implements tgen.Pinger. Every ping sends a single request.
func (s *Simulator) Ping(_ context.Context, req tgen.PingRequest) (tgen.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[req.DeviceHandle]
	if !ok {
		return tgen.Stats{}, fmt.Errorf("unknown device %q", req.DeviceHandle)
	}
	var details string
	switch {
	case !d.started:
		details = "No sessions were started"
	case d.reachable[req.Destination] && s.ports[d.port].up:
		details = fmt.Sprintf("1 packets transmitted, 1 received, 0%% packet loss, ping to %s", req.Destination)
	default:
		details = fmt.Sprintf("1 packets transmitted, 0 received, 100%% packet loss, ping to %s", req.Destination)
	}
	return tgen.StatsFromValue(map[string]any{
		"status":       "1",
		req.PortHandle: map[string]any{"ping_details": details},
	})
}

// emulationHandles names the handle each operation returns.
var emulationHandles = map[string]string{
	protocfg.OpBGPConfig:             "handle",
	protocfg.OpBGPRouteConfig:        "handles",
	protocfg.OpIGMPConfig:            "host_handle",
	protocfg.OpMulticastGroupConfig:  "mul_group_handle",
	protocfg.OpMulticastSourceConfig: "mul_source_handle",
	protocfg.OpIGMPGroupConfig:       "handle",
}

// Emulation implements protocfg.Emulator. Configuration operations return
// a fresh handle; BGP start and stop change the started state of the
// devices they name.
func (s *Simulator) Emulation(_ context.Context, op string, p protocfg.Params) (protocfg.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := protocfg.Params{"status": "1"}
	switch op {
	case protocfg.OpBGPControl:
		if d, ok := s.devices[p["handle"]]; ok {
			d.started = p["mode"] == "start"
		}
	case protocfg.OpBGPConfig, protocfg.OpBGPRouteConfig, protocfg.OpIGMPConfig:
		if p["handle"] == "" {
			return nil, fmt.Errorf("%s: handle is required", op)
		}
		fallthrough
	case protocfg.OpMulticastGroupConfig, protocfg.OpMulticastSourceConfig, protocfg.OpIGMPGroupConfig:
		s.nextHandle++
		h := fmt.Sprintf("%s_%d", op, s.nextHandle)
		res[emulationHandles[op]] = h
		// A BGP session controls the device it was configured on.
		if d, ok := s.devices[p["handle"]]; ok && op == protocfg.OpBGPConfig {
			s.devices[h] = d
		}
	default:
		return nil, fmt.Errorf("unsupported emulation %q", op)
	}
	s.emulations = append(s.emulations, EmulationCall{Op: op, Params: p})
	return res, nil
}

// Emulations returns every emulation operation run so far.
func (s *Simulator) Emulations() []EmulationCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.emulations)
}
