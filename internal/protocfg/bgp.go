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

package protocfg

import (
	"context"

	"github.com/openconfig/tgenutils/internal/tgen"
)

var (
	bgpConfDefaults  = Params{"mode": "enable", "active_connect_enable": "1"}
	bgpRouteDefaults = Params{"mode": "add"}
	bgpCtrlDefaults  = Params{"mode": "start"}
)

/*
BGPConfig selects the BGP operations to run on a device. Nil parameter sets
are skipped.

	res, err := protocfg.BGP(ctx, t, tg, protocfg.BGPConfig{
		Handle: host,
		Conf:   protocfg.Params{"local_as": "100", "remote_as": "100", "remote_ip_addr": "21.1.1.1"},
		Routes: []protocfg.Params{{"num_routes": "10", "prefix": "121.1.1.0"}},
		Ctrl:   protocfg.Params{},
	})
*/
type BGPConfig struct {
	// Handle is the host handle when Conf is set, the BGP handle otherwise.
	Handle any
	Conf   Params
	Routes []Params
	Ctrl   Params
}

// BGPResult holds the result of every operation run.
type BGPResult struct {
	Conf   Params
	Routes []Params
	Ctrl   Params
}

// BGP configures a BGP session, its routes and its control state. Routes and
// control use the BGP handle returned by the session configuration when
// one was run.
func BGP(ctx context.Context, t tgen.Reporter, e Emulator, c BGPConfig) (*BGPResult, error) {
	t.Helper()
	tgen.LogCall(t, "BGP", c)
	handle, err := UnwrapHandle(c.Handle)
	if err != nil {
		return nil, err
	}
	res := &BGPResult{}
	if c.Conf != nil {
		p := withDefaults(c.Conf, bgpConfDefaults)
		p["handle"] = handle
		if res.Conf, err = run(ctx, t, e, OpBGPConfig, p); err != nil {
			return nil, err
		}
		if handle, err = UnwrapHandle(res.Conf); err != nil {
			return nil, err
		}
	}
	for _, r := range c.Routes {
		p := withDefaults(r, bgpRouteDefaults)
		p["handle"] = handle
		out, err := run(ctx, t, e, OpBGPRouteConfig, p)
		if err != nil {
			return nil, err
		}
		res.Routes = append(res.Routes, out)
	}
	if c.Ctrl != nil {
		p := withDefaults(c.Ctrl, bgpCtrlDefaults)
		p["handle"] = handle
		if res.Ctrl, err = run(ctx, t, e, OpBGPControl, p); err != nil {
			return nil, err
		}
	}
	t.Logf("BGP Return Status : %+v", res)
	return res, nil
}
