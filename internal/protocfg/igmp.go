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
	igmpSessionDefaults = Params{"mode": "create", "igmp_version": "v2"}
	igmpGroupDefaults   = Params{"mode": "create", "active": "1"}
	igmpSourceDefaults  = Params{"mode": "create", "active": "0", "ip_addr_start": "21.1.1.100", "num_sources": "5"}
	igmpConfigDefaults  = Params{"mode": "create"}
)

// IGMPConfig selects the IGMP operations to run on a host. Nil parameter
// sets are skipped, except for the multicast source pool which always
// exists and is only active when Source is set.
type IGMPConfig struct {
	Handle    any
	Session   Params
	Group     Params
	Source    Params
	IGMPGroup Params
}

// IGMPResult holds the result of every operation run.
type IGMPResult struct {
	Session Params
	Group   Params
	Source  Params
	Config  Params
}

// IGMP configures an IGMP host, its multicast group and source pools, and
// the IGMP group binding them together.
func IGMP(ctx context.Context, t tgen.Reporter, e Emulator, c IGMPConfig) (*IGMPResult, error) {
	t.Helper()
	tgen.LogCall(t, "IGMP", c)
	handle, err := UnwrapHandle(c.Handle)
	if err != nil {
		return nil, err
	}
	res := &IGMPResult{}
	binding := withDefaults(c.IGMPGroup, igmpConfigDefaults)

	if c.Session != nil {
		p := withDefaults(c.Session, igmpSessionDefaults)
		p["handle"] = handle
		if res.Session, err = run(ctx, t, e, OpIGMPConfig, p); err != nil {
			return nil, err
		}
		binding["session_handle"] = res.Session["host_handle"]
	}
	if c.Group != nil {
		if res.Group, err = run(ctx, t, e, OpMulticastGroupConfig, withDefaults(c.Group, igmpGroupDefaults)); err != nil {
			return nil, err
		}
		binding["group_pool_handle"] = res.Group["mul_group_handle"]
	}
	source := withDefaults(c.Source, igmpSourceDefaults)
	if c.Source != nil {
		source["active"] = "1"
	}
	if res.Source, err = run(ctx, t, e, OpMulticastSourceConfig, source); err != nil {
		return nil, err
	}
	binding["source_pool_handle"] = res.Source["mul_source_handle"]

	if c.IGMPGroup != nil {
		if res.Config, err = run(ctx, t, e, OpIGMPGroupConfig, binding); err != nil {
			return nil, err
		}
	}
	t.Logf("IGMP Return Status : %+v", res)
	return res, nil
}
