/*
Copyright © 2022-2025 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mock

import (
	"context"
	"fmt"
	"strings"
)

// Runner is a fake sys.Runner with canned per-command outputs, so the
// environment probe's dependency discovery can run without executing
// anything. Commands without an entry in Outputs fail as "not found".
type Runner struct {
	// Outputs maps a command name (as invoked, e.g. "node" or
	// "/usr/local/bin/uv") to the combined output it should produce.
	Outputs map[string]string
	// Calls records every invocation as "cmd arg1 arg2 ...".
	Calls []string
}

func (r *Runner) Run(cmd string, args ...string) ([]byte, error) {
	r.Calls = append(r.Calls, strings.Join(append([]string{cmd}, args...), " "))
	out, ok := r.Outputs[cmd]
	if !ok {
		return nil, fmt.Errorf("exec: %q: executable file not found in $PATH", cmd)
	}
	return []byte(out), nil
}

func (r *Runner) RunContext(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Run(cmd, args...)
}

func (r *Runner) RunContextParseOutput(ctx context.Context, stdoutH, stderrH func(line string), cmd string, args ...string) error {
	out, err := r.RunContext(ctx, cmd, args...)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if stdoutH != nil {
			stdoutH(line)
		}
	}
	return nil
}
