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

// Package updater implements the customization-preserving update flow:
// timestamp-based customization detection, version migrations, framework
// file refresh and the four configuration merge strategies, per §4.5.
package updater

import (
	"path/filepath"
	"strings"

	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/sys"
)

// trackedConfigFiles are the framework configuration files whose mtime is
// checked against install_date, per §4.5.2(3).
var trackedConfigFiles = []string{
	".claude-buddy/buddy-config.json",
	".claude/hooks.json",
}

// DetectCustomizations builds the union of declared and timestamp-detected
// customizations for installRoot, per §4.5.2. Files are detected by name
// under the personas and hooks directories only; no skills directory is
// scanned. migrationMode skips the mtime check on the tracked framework
// config files; declared customizations and user-named persona/hook files
// stay protected regardless.
func DetectCustomizations(s *sys.System, installRoot string, meta *metadata.InstallationMetadata, migrationMode bool) []metadata.UserCustomization {
	seen := map[string]bool{}
	var result []metadata.UserCustomization

	for _, c := range meta.UserCustomizations {
		if seen[c.File] {
			continue
		}
		seen[c.File] = true
		result = append(result, c)
	}

	for _, dir := range []string{".claude-buddy/personas", ".claude/hooks"} {
		entries, err := s.FS().ReadDir(filepath.Join(installRoot, dir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if !isUserNamed(e.Name()) {
				continue
			}
			rel := filepath.Join(dir, e.Name())
			if seen[rel] {
				continue
			}

			info, err := e.Info()
			if err != nil || !info.ModTime().After(meta.InstallDate) {
				continue
			}

			seen[rel] = true
			result = append(result, metadata.UserCustomization{
				File: rel, CreatedDate: info.ModTime(), LastModified: info.ModTime(),
				Description: "detected user file", PreserveOnUpdate: true,
			})
		}
	}

	if !migrationMode {
		for _, rel := range trackedConfigFiles {
			if seen[rel] {
				continue
			}
			info, err := s.FS().Stat(filepath.Join(installRoot, rel))
			if err != nil || !info.ModTime().After(meta.InstallDate) {
				continue
			}
			seen[rel] = true
			result = append(result, metadata.UserCustomization{
				File: rel, CreatedDate: info.ModTime(), LastModified: info.ModTime(),
				Description: "modified framework configuration", PreserveOnUpdate: true,
			})
		}
	}

	return result
}

func isUserNamed(name string) bool {
	return strings.HasPrefix(name, "custom-") || strings.Contains(name, "user-")
}

// ShouldUpdateFile reports whether path may be overwritten by a framework
// file refresh, per §4.5.4: it may not if some customization names it with
// preserve_on_update set.
func ShouldUpdateFile(path string, customizations []metadata.UserCustomization) bool {
	for _, c := range customizations {
		if c.File == path && c.PreserveOnUpdate {
			return false
		}
	}
	return true
}
