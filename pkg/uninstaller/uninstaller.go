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

// Package uninstaller implements removal with preservation, per §4.6:
// classify tracked paths as preserve/remove, archive preserved files,
// execute removals, then prune empty canonical directories in reverse
// depth order.
package uninstaller

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/operation"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/transaction"
)

// Uninstall removes a tracked install from a target directory.
type Uninstall struct {
	System *sys.System
	// Purge, when true, removes every tracked path regardless of
	// preservation classification, per §4.6.
	Purge bool
	// DryRun, when true, classifies paths but performs no archiving,
	// removal or pruning, per §8.2 scenario 3.
	DryRun bool
}

const preservationInfoFile = "PRESERVATION_INFO.txt"

// Run executes the uninstall flow and returns a Result.
func (un Uninstall) Run(targetDir string) (*operation.Result, error) {
	start := un.System.Clock().Now()
	result := &operation.Result{}

	fail := func(err error) (*operation.Result, error) {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		result.DurationMS = un.System.Clock().Now().Sub(start).Milliseconds()
		return result, err
	}

	meta, err := metadata.Load(un.System, targetDir)
	if err != nil {
		return fail(err)
	}

	if !un.DryRun {
		if err := transaction.AcquireLock(un.System, targetDir); err != nil {
			return fail(err)
		}
		defer func() {
			if err := transaction.ReleaseLock(un.System, targetDir); err != nil {
				un.System.Logger().Warn("failed releasing install lock: %s", err)
			}
		}()
	}

	var preserve, remove []string
	for _, dir := range transaction.CanonicalDirs {
		root := filepath.Join(targetDir, dir)
		_ = vfs.WalkDirFs(un.System.FS(), root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(targetDir, path)
			if relErr != nil {
				return nil
			}
			if rel == transaction.LockRelPath {
				// Held by this operation; released on exit.
				return nil
			}
			if !un.Purge && isUserCustomization(rel, meta) {
				preserve = append(preserve, rel)
			} else {
				remove = append(remove, rel)
			}
			return nil
		})
	}

	if un.DryRun {
		result.Success = true
		result.Preserved = preserve
		result.Removed = remove
		result.DurationMS = un.System.Clock().Now().Sub(start).Milliseconds()
		return result, nil
	}

	var backupPath string
	if len(preserve) > 0 {
		backupPath, err = un.archivePreserved(targetDir, preserve)
		if err != nil {
			result.Warnings = append(result.Warnings, "preservation archive failed: "+err.Error())
		}
	}

	for _, rel := range remove {
		if err := un.System.FS().Remove(filepath.Join(targetDir, rel)); err != nil && !os.IsNotExist(err) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed removing %s: %s", rel, err))
			continue
		}
		result.Removed = append(result.Removed, rel)
	}

	un.pruneEmptyDirs(targetDir, result)

	if err := un.System.FS().Remove(metadata.Path(targetDir)); err != nil && !os.IsNotExist(err) {
		result.Warnings = append(result.Warnings, "failed removing metadata file: "+err.Error())
	}

	result.Success = true
	result.Preserved = preserve
	result.BackupPath = backupPath
	result.DurationMS = un.System.Clock().Now().Sub(start).Milliseconds()
	return result, nil
}

// isUserCustomization holds when rel is declared in metadata with
// preserve_on_update, sits under a personas directory matching the
// custom-*/ *user-* naming convention, or lives under specs/, per §4.6.
func isUserCustomization(rel string, meta *metadata.InstallationMetadata) bool {
	for _, c := range meta.UserCustomizations {
		if c.File == rel && c.PreserveOnUpdate {
			return true
		}
	}

	base := filepath.Base(rel)
	if strings.Contains(rel, "personas"+string(filepath.Separator)) &&
		(strings.HasPrefix(base, "custom-") || strings.Contains(base, "user-")) {
		return true
	}

	if strings.HasPrefix(rel, "specs"+string(filepath.Separator)) {
		return true
	}

	return false
}

func (un Uninstall) archivePreserved(targetDir string, preserve []string) (string, error) {
	timestamp := un.System.Clock().Now().Format("20060102T150405Z")
	preservedDir := filepath.Join(targetDir, ".claude-buddy-preserved-"+timestamp)

	for _, rel := range preserve {
		src := filepath.Join(targetDir, rel)
		dst := filepath.Join(preservedDir, rel)
		if err := vfs.MkdirAll(un.System.FS(), filepath.Dir(dst), vfs.DirPerm); err != nil {
			return "", err
		}
		if err := vfs.CopyFile(un.System.FS(), src, dst); err != nil {
			return "", err
		}
	}

	info := fmt.Sprintf(
		"These files were preserved during uninstall because they were identified as user customizations.\n\n"+
			"To restore them, copy the contents of this directory back into %s.\n\n"+
			"Preserved files:\n  %s\n",
		targetDir, strings.Join(preserve, "\n  "))

	if err := un.System.FS().WriteFile(filepath.Join(preservedDir, preservationInfoFile), []byte(info), vfs.FilePerm); err != nil {
		return "", err
	}

	return preservedDir, nil
}

// pruneEmptyDirs removes canonical directories (and their subdirectories)
// left empty after removal, scanning in reverse depth order so children
// are evaluated before their parents.
func (un Uninstall) pruneEmptyDirs(targetDir string, result *operation.Result) {
	var candidates []string
	for _, dir := range transaction.CanonicalDirs {
		root := filepath.Join(targetDir, dir)
		_ = vfs.WalkDirFs(un.System.FS(), root, func(path string, d os.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			candidates = append(candidates, path)
			return nil
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return strings.Count(candidates[i], string(filepath.Separator)) > strings.Count(candidates[j], string(filepath.Separator))
	})

	for _, dir := range candidates {
		entries, err := un.System.FS().ReadDir(dir)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			if err := un.System.FS().Remove(dir); err == nil {
				continue
			}
		}
		rel, err := filepath.Rel(targetDir, dir)
		if err == nil && len(entries) > 0 {
			result.Warnings = append(result.Warnings, "directory not empty, retained: "+rel)
		}
	}
}
