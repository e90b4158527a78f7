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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/openconfig/tgenutils/internal/tgen"
	"github.com/openconfig/tgenutils/internal/tgenbackend/hltapi"
)

// NewHandler serves the simulator over the hltapi protocol.
func NewHandler(s *Simulator) http.Handler {
	h := &handler{sim: s}
	r := mux.NewRouter()
	r.HandleFunc(hltapi.PathPrefix+hltapi.CmdInfo, h.info).Methods(http.MethodGet)
	r.HandleFunc(hltapi.PathPrefix+"{command}", h.command).Methods(http.MethodPost)
	return r
}

type handler struct {
	sim *Simulator
}

var errUnknownCommand = errors.New("unknown command")

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

func writeStats(w http.ResponseWriter, s tgen.Stats, err error) {
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, hltapi.StatusReply{Status: "0", Log: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.Raw())
}

func (h *handler) info(w http.ResponseWriter, _ *http.Request) {
	h.sim.mu.Lock()
	ports := make([]string, 0, len(h.sim.handles))
	for name := range h.sim.handles {
		ports = append(ports, name)
	}
	h.sim.mu.Unlock()
	sort.Strings(ports)
	writeJSON(w, http.StatusOK, hltapi.InfoReply{TGType: string(h.sim.Kind()), Ports: ports})
}

func decode[T any](r *http.Request) (T, error) {
	var req T
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("failed to decode request: %w", err)
	}
	return req, nil
}

func (h *handler) command(w http.ResponseWriter, r *http.Request) {
	cmd := mux.Vars(r)["command"]
	glog.V(1).Infof("softtgen: %s", cmd)
	var (
		reply any
		err   error
	)
	ctx := r.Context()
	switch cmd {
	case hltapi.CmdPortHandle:
		reply, err = h.portHandle(r)
	case hltapi.CmdTrafficStats, hltapi.CmdCustomFilterStats, hltapi.CmdPacketStats, hltapi.CmdPing:
		h.stats(ctx, w, r, cmd)
		return
	case hltapi.CmdSessionErrors:
		var req hltapi.SessionErrorsRequest
		if req, err = decode[hltapi.SessionErrorsRequest](r); err == nil {
			reply, err = h.sim.SessionErrors(ctx, req.PortHandle, req.StreamHandle)
		}
	case hltapi.CmdCollectDiagnostics:
		var req hltapi.DiagnosticsRequest
		if req, err = decode[hltapi.DiagnosticsRequest](r); err == nil {
			err = h.sim.CollectDiagnostics(ctx, req.Reason)
			reply = hltapi.StatusReply{Status: "1"}
		}
	case hltapi.CmdTrafficControl:
		var req hltapi.ControlRequest
		if req, err = decode[hltapi.ControlRequest](r); err == nil {
			err = h.sim.TrafficControl(ctx, req.Action, req.PortHandle)
			reply = hltapi.StatusReply{Status: "1"}
		}
	case hltapi.CmdEmulation:
		var req hltapi.EmulationRequest
		if req, err = decode[hltapi.EmulationRequest](r); err == nil {
			reply, err = h.sim.Emulation(ctx, req.Op, req.Params)
		}
	default:
		err = fmt.Errorf("%w %q", errUnknownCommand, cmd)
	}
	switch {
	case errors.Is(err, errUnknownCommand):
		writeJSON(w, http.StatusNotFound, hltapi.StatusReply{Status: "0", Log: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, hltapi.StatusReply{Status: "0", Log: err.Error()})
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

func (h *handler) portHandle(r *http.Request) (any, error) {
	req, err := decode[hltapi.PortHandleRequest](r)
	if err != nil {
		return nil, err
	}
	ph, err := h.sim.PortHandle(req.Port)
	if err != nil {
		return nil, err
	}
	return hltapi.PortHandleReply{Status: "1", PortHandle: ph}, nil
}

func (h *handler) stats(ctx context.Context, w http.ResponseWriter, r *http.Request, cmd string) {
	var (
		stats tgen.Stats
		err   error
	)
	if cmd == hltapi.CmdPing {
		var req hltapi.PingRequest
		if req, err = decode[hltapi.PingRequest](r); err == nil {
			stats, err = h.sim.Ping(ctx, tgen.PingRequest{
				PortHandle:   req.PortHandle,
				DeviceHandle: req.ProtocolHandle,
				Destination:  req.IPAddress,
				Count:        req.Count,
			})
		}
		writeStats(w, stats, err)
		return
	}
	req, err := decode[hltapi.StatsRequest](r)
	if err != nil {
		writeStats(w, stats, err)
		return
	}
	switch cmd {
	case hltapi.CmdTrafficStats:
		stats, err = h.sim.TrafficStats(ctx, tgen.StatsQuery{
			PortHandle: req.PortHandle,
			Mode:       req.Mode,
			StreamID:   req.Stream,
			ScaleMode:  req.ScaleMode,
		})
	case hltapi.CmdCustomFilterStats:
		wait := time.Duration(req.CaptureWait * float64(time.Second))
		stats, err = h.sim.CustomFilterStats(ctx, req.PortHandle, wait)
	case hltapi.CmdPacketStats:
		stats, err = h.sim.Capture(req.PortHandle)
	}
	writeStats(w, stats, err)
}
