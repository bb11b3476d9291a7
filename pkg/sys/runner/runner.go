/*
Copyright © 2022 - 2025 SUSE LLC

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

package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/projectbuddy/installer-core/pkg/log"
)

type run struct {
	logger log.Logger
}

type RunOption func(r *run)

func WithLogger(l log.Logger) RunOption {
	return func(r *run) {
		r.logger = l
	}
}

func NewRunner(opts ...RunOption) *run { //nolint:revive
	r := &run{}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r run) InitCmd(command string, args ...string) *exec.Cmd {
	return exec.Command(command, args...)
}

func (r run) RunCmd(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

func (r run) Run(command string, args ...string) ([]byte, error) {
	r.debug(fmt.Sprintf("Running cmd: '%s %s'", command, strings.Join(args, " ")))
	cmd := r.InitCmd(command, args...)
	out, err := r.RunCmd(cmd)
	if err != nil {
		r.debug(fmt.Sprintf("'%s' command reported an error: %s", command, err.Error()))
		r.debug(fmt.Sprintf("'%s' command output: %s", command, out))
	}
	return out, err
}

// RunContext runs command with args, killing it if ctx is cancelled or its
// deadline elapses before the command exits. Used by the environment probe
// to bound dependency version queries to a fixed timeout.
func (r run) RunContext(ctx context.Context, command string, args ...string) ([]byte, error) {
	r.debug(fmt.Sprintf("Running cmd with context: '%s %s'", command, strings.Join(args, " ")))
	cmd := exec.CommandContext(ctx, command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.debug(fmt.Sprintf("'%s' command reported an error: %s", command, err.Error()))
	}
	return out, err
}

// RunContextParseOutput runs command with args and streams stdout/stderr
// lines to the given handlers as they arrive, rather than buffering the
// full output.
func (r run) RunContextParseOutput(ctx context.Context, stdoutH, stderrH func(line string), command string, args ...string) error {
	cmd := exec.CommandContext(ctx, command, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(&wg, stdout, stdoutH)
	go scanLines(&wg, stderr, stderrH)
	wg.Wait()

	return cmd.Wait()
}

func scanLines(wg *sync.WaitGroup, r io.Reader, handler func(line string)) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if handler != nil {
			handler(scanner.Text())
		}
	}
}

func (r run) debug(msg string) {
	if r.logger != nil {
		r.logger.Debug(msg)
	}
}
