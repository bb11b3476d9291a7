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

// Package platform identifies the host operating system family, shell and
// well-known directories the rest of the core relies on when resolving
// manifest overrides and probing dependencies.
package platform

import (
	"fmt"
	"os"
	"runtime"
)

// Family is one of the three operating system families the manifest's
// platform_overrides are keyed by.
type Family string

const (
	Windows Family = "windows"
	Darwin  Family = "darwin"
	Linux   Family = "linux"
)

var errUnsupportedOS = fmt.Errorf("unsupported platform")

// Platform describes the current host: OS family, architecture and the
// directories and shell the environment probe reports on.
type Platform struct {
	OS      Family
	Arch    string
	Shell   string
	HomeDir string
	TempDir string
}

// NewPlatform builds a Platform from the given GOOS/GOARCH pair. Callers
// normally use Detect, which sources these from runtime.GOOS/GOARCH; tests
// call NewPlatform directly to exercise a specific combination.
func NewPlatform(goos, arch string) (*Platform, error) {
	family, err := parseFamily(goos)
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	return &Platform{
		OS:      family,
		Arch:    arch,
		Shell:   detectShell(family),
		HomeDir: home,
		TempDir: os.TempDir(),
	}, nil
}

// Detect builds a Platform describing the host this process is running on.
func Detect() (*Platform, error) {
	return NewPlatform(runtime.GOOS, runtime.GOARCH)
}

func parseFamily(goos string) (Family, error) {
	switch goos {
	case "windows":
		return Windows, nil
	case "darwin":
		return Darwin, nil
	case "linux":
		return Linux, nil
	default:
		return "", fmt.Errorf("%w: %s", errUnsupportedOS, goos)
	}
}

// detectShell applies the shell heuristic from the environment probe design:
// COMSPEC on Windows, SHELL elsewhere, falling back to a per-family default.
func detectShell(family Family) string {
	if family == Windows {
		if v := os.Getenv("COMSPEC"); v != "" {
			return v
		}
		return "cmd.exe"
	}
	if v := os.Getenv("SHELL"); v != "" {
		return v
	}
	return "/bin/sh"
}

func (p *Platform) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// IsWindows reports whether permission bits should be ignored, matching the
// manifest's DirectorySpec.Permissions semantics.
func (p *Platform) IsWindows() bool {
	return p != nil && p.OS == Windows
}
