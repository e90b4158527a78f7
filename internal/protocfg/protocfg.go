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

// Package protocfg stages BGP and IGMP emulation parameters on a traffic
// generator, filling in the defaults the emulations need.
package protocfg

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/openconfig/tgenutils/internal/tgen"
)

// Emulation operations.
const (
	OpBGPConfig             = "emulation_bgp_config"
	OpBGPRouteConfig        = "emulation_bgp_route_config"
	OpBGPControl            = "emulation_bgp_control"
	OpIGMPConfig            = "emulation_igmp_config"
	OpMulticastGroupConfig  = "emulation_multicast_group_config"
	OpMulticastSourceConfig = "emulation_multicast_source_config"
	OpIGMPGroupConfig       = "emulation_igmp_group_config"
)

// Params are the parameters or results of one emulation operation.
type Params map[string]string

// Emulator runs emulation operations on a traffic generator.
type Emulator interface {
	Emulation(ctx context.Context, op string, p Params) (Params, error)
}

var errNoHandle = errors.New("mandatory parameter handle is missing")

// withDefaults returns a copy of p with the missing defaults added.
func withDefaults(p, defaults Params) Params {
	out := maps.Clone(p)
	if out == nil {
		out = Params{}
	}
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// UnwrapHandle returns the handle held by v: a handle string, the first of a
// list of handles, or the "handle" entry of an operation result.
func UnwrapHandle(v any) (string, error) {
	switch h := v.(type) {
	case string:
		if h == "" {
			return "", errNoHandle
		}
		return h, nil
	case []string:
		if len(h) == 0 {
			return "", errNoHandle
		}
		return UnwrapHandle(h[0])
	case []any:
		if len(h) == 0 {
			return "", errNoHandle
		}
		return UnwrapHandle(h[0])
	case Params:
		return UnwrapHandle(h["handle"])
	case map[string]string:
		return UnwrapHandle(h["handle"])
	case map[string]any:
		if inner, ok := h["handle"]; ok {
			return UnwrapHandle(inner)
		}
		return "", errNoHandle
	case nil:
		return "", errNoHandle
	}
	return "", fmt.Errorf("unsupported handle %v of type %T", v, v)
}

func run(ctx context.Context, t tgen.Reporter, e Emulator, op string, p Params) (Params, error) {
	t.Helper()
	res, err := e.Emulation(ctx, op, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t.Logf("%s: %v", op, res)
	return res, nil
}
