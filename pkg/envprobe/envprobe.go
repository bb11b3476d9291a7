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

// Package envprobe implements the pure, mutation-free environment
// assessment every operation runs before planning: platform identity,
// dependency discovery, permission checks, disk space and existing
// install detection. No call in this package fails the operation by
// itself; it only produces a report for the caller to act on.
package envprobe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/platform"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/utils/cleanstack"
	"github.com/projectbuddy/installer-core/pkg/version"
)

// ProbeTimeout bounds every dependency version query, per §4.1/§5.
const ProbeTimeout = 5 * time.Second

// MinDiskSpaceBytes is the disk-space floor a target install root must
// clear, per §4.1.
const MinDiskSpaceBytes = 50 * 1024 * 1024

// MinNodeVersion is the minimum node version required by the "node"
// dependency, per §4.1.
const MinNodeVersion = "18.0.0"

type PlatformInfo struct {
	OS      platform.Family
	Arch    string
	Shell   string
	HomeDir string
	TempDir string
}

type DependencyInfo struct {
	Name      string
	Available bool
	Version   string
	Location  string
	Tried     []string
	Required  bool
}

type PermissionInfo struct {
	TargetExists bool
	Readable     bool
	Writable     bool
	Executable   bool
	IsGitRepo    bool
}

type DiskSpaceInfo struct {
	FreeBytes  uint64
	Sufficient bool
}

type ExistingInstallInfo struct {
	Installed         bool
	Metadata          *metadata.InstallationMetadata
	Corrupted         bool
	CorruptionDetails []string
}

// Report is the full output of Probe.
type Report struct {
	Platform        PlatformInfo
	Dependencies    map[string]DependencyInfo
	Permissions     PermissionInfo
	DiskSpace       DiskSpaceInfo
	ExistingInstall ExistingInstallInfo
}

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// dependencyQueries maps each known dependency to the command/args used to
// query its version.
var dependencyQueries = map[string][]string{
	"node":   {"node", "--version"},
	"uv":     {"uv", "--version"},
	"python": {"python3", "--version"},
	"git":    {"git", "--version"},
}

// fallbackLocations lists extra install paths to try per dependency when
// the bare command name isn't on PATH, keyed by platform family.
func fallbackLocations(s *sys.System, dep string) []string {
	home := s.Platform().HomeDir
	switch dep {
	case "uv":
		if s.Platform().IsWindows() {
			return []string{filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "uv", "uv.exe")}
		}
		return []string{
			filepath.Join(home, ".local", "bin", "uv"),
			"/usr/local/bin/uv",
		}
	case "python":
		if s.Platform().IsWindows() {
			return []string{"py"}
		}
		return []string{"python3", "python"}
	default:
		return nil
	}
}

// Probe performs the full, read-only environment assessment for targetDir.
func Probe(ctx context.Context, s *sys.System, targetDir string, manifestComponents []manifest.Component) (*Report, error) {
	report := &Report{
		Platform:     platformInfo(s),
		Dependencies: map[string]DependencyInfo{},
	}

	requiredDeps := requiredDependencyNames(manifestComponents)
	for name := range manifest.KnownDependencies {
		report.Dependencies[name] = discoverDependency(ctx, s, name, requiredDeps[name])
	}

	report.Permissions = checkPermissions(s, targetDir)
	report.DiskSpace = diskSpace(s, targetDir)
	report.ExistingInstall = existingInstall(s, targetDir, manifestComponents)

	return report, nil
}

func requiredDependencyNames(components []manifest.Component) map[string]bool {
	// "node" is always required per §4.1, regardless of manifest content.
	required := map[string]bool{"node": true}
	for _, c := range components {
		if c.Type != manifest.Required {
			continue
		}
		for _, d := range c.Dependencies {
			required[d] = true
		}
	}
	return required
}

func platformInfo(s *sys.System) PlatformInfo {
	p := s.Platform()
	return PlatformInfo{OS: p.OS, Arch: p.Arch, Shell: p.Shell, HomeDir: p.HomeDir, TempDir: p.TempDir}
}

// discoverDependency queries dep's version with a bounded timeout, retrying
// through fallback install locations when the bare command isn't found. A
// timeout or exec error degrades to "unavailable" rather than failing.
func discoverDependency(ctx context.Context, s *sys.System, dep string, required bool) DependencyInfo {
	info := DependencyInfo{Name: dep, Required: required}

	candidates := append([]string{dependencyQueries[dep][0]}, fallbackLocations(s, dep)...)
	args := dependencyQueries[dep][1:]

	for _, candidate := range candidates {
		info.Tried = append(info.Tried, candidate)

		var out []byte
		err := backoff.Retry(func() error {
			cctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
			defer cancel()
			var runErr error
			out, runErr = s.Runner().RunContext(cctx, candidate, args...)
			return runErr
		}, backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 1))
		if err != nil {
			continue
		}

		if v := versionPattern.FindString(string(out)); v != "" {
			info.Available = true
			info.Version = v
			info.Location = candidate
			if dep == "node" {
				ok, vErr := version.SatisfiesMin(v, MinNodeVersion)
				info.Available = vErr == nil && ok
			}
			return info
		}
	}

	return info
}

// checkPermissions confirms the target directory exists or can be created,
// then probes read/write/execute by creating and removing a probe file.
// Every directory or file it creates to perform the probe is queued on a
// cleanup stack and unwound in LIFO order once the probe is done, so a
// probe never leaves the target in a different state than it found it.
func checkPermissions(s *sys.System, targetDir string) PermissionInfo {
	info := PermissionInfo{}
	cleanup := cleanstack.NewCleanStack()
	defer func() {
		if err := cleanup.Cleanup(nil); err != nil {
			s.Logger().Warn("permission probe cleanup: %s", err)
		}
	}()

	exists, _ := vfs.Exists(s.FS(), targetDir, true)
	info.TargetExists = exists

	if !exists {
		if err := vfs.MkdirAll(s.FS(), targetDir, vfs.DirPerm); err != nil {
			return info
		}
		cleanup.Push(func() error { return s.FS().RemoveAll(targetDir) })
	}

	probeFile := filepath.Join(targetDir, ".buddy-install-probe")
	if err := s.FS().WriteFile(probeFile, []byte("probe"), vfs.FilePerm); err == nil {
		info.Writable = true
		cleanup.Push(func() error { return s.FS().Remove(probeFile) })
	}

	if _, err := s.FS().ReadDir(targetDir); err == nil {
		info.Readable = true
		info.Executable = true
	}

	if ok, _ := vfs.Exists(s.FS(), filepath.Join(targetDir, ".git")); ok {
		info.IsGitRepo = true
	}

	return info
}

// diskSpace queries free space on the volume that will back targetDir. The
// target itself may not exist yet on a fresh install, so the query climbs to
// the nearest existing ancestor.
func diskSpace(s *sys.System, targetDir string) DiskSpaceInfo {
	path := targetDir
	if raw, err := s.FS().RawPath(targetDir); err == nil {
		path = raw
	}

	for {
		free, err := freeBytes(path)
		if err == nil {
			return DiskSpaceInfo{FreeBytes: free, Sufficient: free >= MinDiskSpaceBytes}
		}
		parent := filepath.Dir(path)
		if parent == path {
			return DiskSpaceInfo{}
		}
		path = parent
	}
}

func existingInstall(s *sys.System, targetDir string, components []manifest.Component) ExistingInstallInfo {
	m, err := metadata.Load(s, targetDir)
	if err != nil {
		return ExistingInstallInfo{Installed: false}
	}

	info := ExistingInstallInfo{Installed: true, Metadata: m}

	for _, c := range components {
		target := filepath.Join(targetDir, c.Target)
		if ok, _ := vfs.Exists(s.FS(), target, true); !ok {
			info.Corrupted = true
			info.CorruptionDetails = append(info.CorruptionDetails,
				fmt.Sprintf("component %q target directory missing: %s", c.Name, target))
		}
	}

	return info
}
