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

package cmd

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// logReporter reports verification results through glog. Fatalf exits
// the process.
type logReporter struct {
	mu     sync.Mutex
	failed bool
}

func (*logReporter) Helper() {}

func (*logReporter) Logf(format string, args ...any) {
	glog.InfoDepth(1, fmt.Sprintf(format, args...))
}

func (r *logReporter) Errorf(format string, args ...any) {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
	glog.ErrorDepth(1, fmt.Sprintf(format, args...))
}

func (*logReporter) Fatalf(format string, args ...any) {
	glog.ExitDepth(1, fmt.Sprintf(format, args...))
}

func (r *logReporter) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}
