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
	"github.com/golang/glog"
	"github.com/kr/pretty"
)

// LogCall records a helper invocation and its arguments in the transcript.
func LogCall(t Reporter, name string, args ...any) {
	t.Helper()
	text := name + "(" + pretty.Sprint(args...) + ")"
	t.Logf("TGenUtil REQ: %s", text)
	glog.V(1).Infof("TGenUtil REQ: %s", text)
}
