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

package hltapi

// Commands served under /hltapi/v1/.
const (
	CmdInfo               = "info"
	CmdPortHandle         = "port_handle"
	CmdTrafficStats       = "traffic_stats"
	CmdCustomFilterStats  = "custom_filter_stats"
	CmdSessionErrors      = "session_errors"
	CmdCollectDiagnostics = "collect_diagnostics"
	CmdTrafficControl     = "traffic_control"
	CmdPing               = "ping"
	CmdPacketStats        = "packet_stats"
	CmdEmulation          = "emulation"
)

// PathPrefix is the prefix of every command path.
const PathPrefix = "/hltapi/v1/"

// InfoReply describes the traffic generator behind the server.
type InfoReply struct {
	TGType string   `json:"tg_type"`
	Ports  []string `json:"ports,omitempty"`
}

// PortHandleRequest maps a port name to its handle.
type PortHandleRequest struct {
	Port string `json:"port"`
}

// PortHandleReply is the reply to a PortHandleRequest.
type PortHandleReply struct {
	Status     string `json:"status"`
	PortHandle string `json:"port_handle"`
}

// StatsRequest queries statistics or a capture of a port. The reply is the
// raw statistics document.
type StatsRequest struct {
	PortHandle string `json:"port_handle"`
	Mode       string `json:"mode,omitempty"`
	Stream     string `json:"stream,omitempty"`
	ScaleMode  bool   `json:"scale_mode,omitempty"`
	// CaptureWait is in seconds.
	CaptureWait float64 `json:"capture_wait,omitempty"`
}

// SessionErrorsRequest asks for the state of the ports behind handles.
type SessionErrorsRequest struct {
	PortHandle   string `json:"port_handle"`
	StreamHandle string `json:"stream_handle,omitempty"`
}

// DiagnosticsRequest asks the server to collect its diagnostics.
type DiagnosticsRequest struct {
	Reason string `json:"reason"`
}

// ControlRequest applies a traffic control action to a port.
type ControlRequest struct {
	Action     string `json:"action"`
	PortHandle string `json:"port_handle"`
}

// PingRequest pings a destination from an emulated device.
type PingRequest struct {
	PortHandle     string `json:"port_handle"`
	ProtocolHandle string `json:"protocol_handle"`
	IPAddress      string `json:"ip_address"`
	Count          int    `json:"count,omitempty"`
}

// EmulationRequest runs one emulation operation.
type EmulationRequest struct {
	Op     string            `json:"op"`
	Params map[string]string `json:"params"`
}

// StatusReply acknowledges commands without a result.
type StatusReply struct {
	Status string `json:"status"`
	Log    string `json:"log,omitempty"`
}
