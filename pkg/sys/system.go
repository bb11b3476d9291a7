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

package sys

import (
	"context"
	"os/exec"
	"time"

	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/platform"
	"github.com/projectbuddy/installer-core/pkg/sys/runner"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// Runner executes external processes on behalf of the environment probe's
// dependency discovery. RunContext must honour ctx's deadline.
type Runner interface {
	Run(cmd string, args ...string) ([]byte, error)
	RunContext(ctx context.Context, cmd string, args ...string) ([]byte, error)
	RunContextParseOutput(ctx context.Context, stdoutH, stderrH func(line string), cmd string, args ...string) error
}

// Clock is the sole source of "now" across the core, so tests can freeze
// time when asserting on timestamps, mtimes and the 30s stale-lock window.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// System bundles the capabilities every core package depends on instead of
// reaching for the os/exec/time packages directly, so unit tests can inject
// a temp-dir backed test filesystem, a discarding logger and a frozen clock.
type System struct {
	logger   log.Logger
	fs       FS
	runner   Runner
	clock    Clock
	platform *platform.Platform
}

type SystemOpts func(s *System) error

func WithFS(fs FS) SystemOpts {
	return func(s *System) error {
		s.fs = fs
		return nil
	}
}

func WithLogger(logger log.Logger) SystemOpts {
	return func(s *System) error {
		s.logger = logger
		return nil
	}
}

func WithRunner(r Runner) SystemOpts {
	return func(s *System) error {
		s.runner = r
		return nil
	}
}

func WithClock(c Clock) SystemOpts {
	return func(s *System) error {
		s.clock = c
		return nil
	}
}

func WithPlatform(p *platform.Platform) SystemOpts {
	return func(s *System) error {
		s.platform = p
		return nil
	}
}

func NewSystem(opts ...SystemOpts) (*System, error) {
	logger := log.New()
	sysObj := &System{
		fs:     vfs.OSFS(),
		logger: logger,
		clock:  realClock{},
	}

	for _, o := range opts {
		if err := o(sysObj); err != nil {
			return nil, err
		}
	}

	if sysObj.runner == nil {
		sysObj.runner = runner.NewRunner(runner.WithLogger(sysObj.logger))
	}

	if sysObj.platform == nil {
		p, err := platform.Detect()
		if err != nil {
			return nil, err
		}
		sysObj.platform = p
	}

	return sysObj, nil
}

func (s System) Platform() *platform.Platform {
	return s.platform
}

func (s System) FS() FS {
	return s.fs
}

func (s System) Runner() Runner {
	return s.runner
}

func (s System) Logger() log.Logger {
	return s.logger
}

func (s System) Clock() Clock {
	return s.clock
}

// CommandExists reports whether command resolves on PATH.
func CommandExists(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
