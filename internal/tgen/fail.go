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

package tgen

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/golang/glog"
)

// DiagnosticReason tags the diagnostics collected before a hard failure.
const DiagnosticReason = "tg_stats_failed"

// FailTx ends the test because a transmit counter is zero or unreadable.
// Diagnostics are collected from the backend first. When the session status
// shows a down endpoint the failure names it, otherwise the generic zero
// counter message is used.
func FailTx(ctx context.Context, t Reporter, b Backend, counter, name, value string, stats Stats, status *SessionStatus) {
	t.Helper()
	if err := b.CollectDiagnostics(ctx, DiagnosticReason); err != nil {
		glog.Warningf("Collecting TGEN diagnostics failed: %v", err)
	}
	msg := fmt.Sprintf("TX Counter %s is zero for %s: %s", counter, name, value)
	t.Logf("%s %s", msg, stats)
	if b.Kind().IsSoft() {
		glog.Errorf("%s\n%s", msg, debug.Stack())
	}
	if down := status.DownPorts(); len(down) > 0 {
		msg = fmt.Sprintf("One of the traffic item endpoint is down: %v", down)
	}
	t.Fatalf("tgen_failed_api: %s", msg)
}
