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

// Package hltapi is a tgen.Backend that drives a traffic generator through
// a JSON rendition of its high level test API, served over HTTP.
package hltapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/openconfig/tgenutils/internal/protocfg"
	"github.com/openconfig/tgenutils/internal/tgen"
)

const defaultTimeout = 5 * time.Minute

// Error is a command rejected by the server.
type Error struct {
	Command string
	Code    int
	Log     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hltapi %s failed with HTTP %d: %s", e.Command, e.Code, e.Log)
}

// Client talks to one HLTAPI server.
type Client struct {
	base string
	hc   *http.Client
	kind tgen.Kind
}

// Connect returns a client for the server at baseURL and learns the kind
// of traffic generator it drives. A nil hc uses a client with a five
// minute timeout.
func Connect(ctx context.Context, baseURL string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	c := &Client{base: strings.TrimSuffix(baseURL, "/"), hc: hc}
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	switch k := tgen.Kind(info.TGType); k {
	case tgen.KindSTC, tgen.KindIxia, tgen.KindScapy:
		c.kind = k
	default:
		return nil, fmt.Errorf("server at %s drives unsupported tg type %q", baseURL, info.TGType)
	}
	glog.Infof("Connected to %s tgen at %s", c.kind, baseURL)
	return c, nil
}

func (c *Client) do(ctx context.Context, method, cmd string, req any) ([]byte, error) {
	var body io.Reader
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("cannot marshal %s request: %w", cmd, err)
		}
		body = bytes.NewReader(b)
		glog.V(2).Infof("hltapi %s REQ: %s", cmd, b)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, c.base+PathPrefix+cmd, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("hltapi %s: %w", cmd, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hltapi %s: cannot read reply: %w", cmd, err)
	}
	glog.V(2).Infof("hltapi %s RESP %d: %s", cmd, resp.StatusCode, out)
	if resp.StatusCode != http.StatusOK {
		e := &Error{Command: cmd, Code: resp.StatusCode, Log: strings.TrimSpace(string(out))}
		var reply StatusReply
		if json.Unmarshal(out, &reply) == nil && reply.Log != "" {
			e.Log = reply.Log
		}
		return nil, e
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, cmd string, req, reply any) error {
	out, err := c.do(ctx, http.MethodPost, cmd, req)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(out, reply); err != nil {
		return fmt.Errorf("hltapi %s: cannot decode reply: %w", cmd, err)
	}
	return nil
}

func (c *Client) stats(ctx context.Context, cmd string, req any) (tgen.Stats, error) {
	out, err := c.do(ctx, http.MethodPost, cmd, req)
	if err != nil {
		return tgen.Stats{}, err
	}
	if !json.Valid(out) {
		return tgen.Stats{}, fmt.Errorf("hltapi %s: reply is not JSON", cmd)
	}
	return tgen.NewStats(out), nil
}

// Info describes the server.
func (c *Client) Info(ctx context.Context) (*InfoReply, error) {
	out, err := c.do(ctx, http.MethodGet, CmdInfo, nil)
	if err != nil {
		return nil, err
	}
	info := &InfoReply{}
	if err := json.Unmarshal(out, info); err != nil {
		return nil, fmt.Errorf("hltapi %s: cannot decode reply: %w", CmdInfo, err)
	}
	return info, nil
}

// Kind implements tgen.Backend.
func (c *Client) Kind() tgen.Kind { return c.kind }

// PortHandle implements tgen.Backend.
func (c *Client) PortHandle(port string) (string, error) {
	var reply PortHandleReply
	if err := c.call(context.Background(), CmdPortHandle, PortHandleRequest{Port: port}, &reply); err != nil {
		return "", err
	}
	return reply.PortHandle, nil
}

// TrafficStats implements tgen.Backend.
func (c *Client) TrafficStats(ctx context.Context, q tgen.StatsQuery) (tgen.Stats, error) {
	return c.stats(ctx, CmdTrafficStats, StatsRequest{
		PortHandle: q.PortHandle,
		Mode:       q.Mode,
		Stream:     q.StreamID,
		ScaleMode:  q.ScaleMode,
	})
}

// CustomFilterStats implements tgen.Backend.
func (c *Client) CustomFilterStats(ctx context.Context, handle string, captureWait time.Duration) (tgen.Stats, error) {
	return c.stats(ctx, CmdCustomFilterStats, StatsRequest{
		PortHandle:  handle,
		Mode:        tgen.StatsCustomFilter,
		CaptureWait: captureWait.Seconds(),
	})
}

// Capture returns the packets captured on a port.
func (c *Client) Capture(ctx context.Context, handle string) (tgen.Stats, error) {
	return c.stats(ctx, CmdPacketStats, StatsRequest{PortHandle: handle})
}

// SessionErrors implements tgen.Backend.
func (c *Client) SessionErrors(ctx context.Context, handle, streamHandle string) (*tgen.SessionStatus, error) {
	status := &tgen.SessionStatus{}
	if err := c.call(ctx, CmdSessionErrors, SessionErrorsRequest{PortHandle: handle, StreamHandle: streamHandle}, status); err != nil {
		return nil, err
	}
	return status, nil
}

// CollectDiagnostics implements tgen.Backend.
func (c *Client) CollectDiagnostics(ctx context.Context, reason string) error {
	return c.call(ctx, CmdCollectDiagnostics, DiagnosticsRequest{Reason: reason}, nil)
}

// TrafficControl implements tgen.TrafficController.
func (c *Client) TrafficControl(ctx context.Context, action, handle string) error {
	return c.call(ctx, CmdTrafficControl, ControlRequest{Action: action, PortHandle: handle}, nil)
}

// Ping implements tgen.Pinger.
func (c *Client) Ping(ctx context.Context, req tgen.PingRequest) (tgen.Stats, error) {
	return c.stats(ctx, CmdPing, PingRequest{
		PortHandle:     req.PortHandle,
		ProtocolHandle: req.DeviceHandle,
		IPAddress:      req.Destination,
		Count:          req.Count,
	})
}

// Emulation implements protocfg.Emulator.
func (c *Client) Emulation(ctx context.Context, op string, p protocfg.Params) (protocfg.Params, error) {
	var reply protocfg.Params
	if err := c.call(ctx, CmdEmulation, EmulationRequest{Op: op, Params: p}, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}
