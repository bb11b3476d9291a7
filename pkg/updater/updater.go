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

package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/archive"
	"github.com/projectbuddy/installer-core/pkg/envprobe"
	"github.com/projectbuddy/installer-core/pkg/installer"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/operation"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/transaction"
	"github.com/projectbuddy/installer-core/pkg/version"
)

const configRelPath = ".claude-buddy/buddy-config.json"

// Update orchestrates an in-place update of an existing install, preserving
// customizations, applying a single migration step and merging
// configuration, per §4.5.
type Update struct {
	System        *sys.System
	Assets        installer.AssetProvider
	Manifest      manifest.Manifest
	ToVersion     string
	Strategy      MergeStrategy
	MigrationMode bool
}

// Run executes the update flow end to end.
func (u Update) Run(ctx context.Context, opts operation.Options) (*operation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, operation.Timeout)
	defer cancel()

	start := u.System.Clock().Now()
	result := &operation.Result{}

	fail := func(err error) (*operation.Result, error) {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		result.DurationMS = u.System.Clock().Now().Sub(start).Milliseconds()
		return result, err
	}

	meta, err := metadata.Load(u.System, opts.TargetDir)
	if err != nil {
		return fail(err)
	}
	fromVersion := meta.Version

	// §4.5.1 pre-flight: downgrade warning.
	isDowngrade, vErr := version.IsDowngrade(fromVersion, u.ToVersion)
	if vErr == nil && isDowngrade {
		result.Warnings = append(result.Warnings, fmt.Sprintf("downgrading from %s to %s", fromVersion, u.ToVersion))
	}

	strategy := u.Strategy
	if strategy == "" {
		strategy = DefaultMergeStrategy
	}

	// §4.5.2 customization detection.
	customizations := DetectCustomizations(u.System, opts.TargetDir, meta, u.MigrationMode)
	for _, c := range customizations {
		result.Preserved = append(result.Preserved, c.File)
	}

	built := manifest.BuildForPlatform(u.Manifest, u.System.Platform().OS)

	report, err := envprobe.Probe(ctx, u.System, opts.TargetDir, built.Components)
	if err != nil {
		return fail(apperrors.Wrap(err, apperrors.KindUpdate, apperrors.CodeDependencyMissing, "probing environment"))
	}
	available := map[string]bool{}
	for name, dep := range report.Dependencies {
		available[name] = dep.Available
	}
	filtered := manifest.FilterByDependencies(built, available)
	for _, c := range filtered.Disabled {
		result.Warnings = append(result.Warnings, fmt.Sprintf("component %q disabled: %s", c.Name, filtered.DisabledReason[c.Name]))
	}

	if opts.DryRun {
		return u.previewPlan(start, filtered.Enabled, customizations, result)
	}

	// §4.5.1 backup policy.
	isGitRepo := checkGitRepo(u.System, opts.TargetDir)
	if isGitRepo {
		result.BackupPath = "skipped-git-repo"
	} else {
		backupPath, err := u.createBackup(ctx, opts.TargetDir)
		if err != nil {
			result.Warnings = append(result.Warnings, "backup failed: "+err.Error())
		} else {
			result.BackupPath = backupPath
		}
	}

	eng, err := transaction.New(u.System, opts.TargetDir, transaction.OpUpdate, fromVersion, u.ToVersion)
	if err != nil {
		return fail(err)
	}

	rollback := func(err error) (*operation.Result, error) {
		if rbErr := eng.Rollback(err); rbErr != nil {
			result.Errors = append(result.Errors, rbErr.Error())
		}
		return fail(err)
	}

	// §4.5.3 version migration (single step).
	var migrationErrs []transaction.MigrationError
	configPath := filepath.Join(opts.TargetDir, configRelPath)
	existingConfig := map[string]interface{}{}
	if data, err := u.System.FS().ReadFile(configPath); err == nil {
		_ = json.Unmarshal(data, &existingConfig)
	}

	migrated, migErr := Apply(fromVersion, u.ToVersion, existingConfig, opts.TargetDir)
	if migErr != nil {
		migrationErrs = append(migrationErrs, *migErr)
		result.Warnings = append(result.Warnings, fmt.Sprintf("migration %s failed: %s", migErr.From+"-to-"+migErr.To, migErr.Message))
	} else {
		existingConfig = migrated
	}

	// §4.5.4 framework-file update.
	for _, c := range filtered.Enabled {
		files, err := u.Assets.ListFiles(c)
		if err != nil {
			return rollback(apperrors.Wrap(err, apperrors.KindUpdate, apperrors.CodeInvalidManifest, "listing assets for component "+c.Name))
		}
		for _, f := range files {
			target := filepath.Join(c.Target, f.RelPath)
			if !ShouldUpdateFile(target, customizations) {
				continue
			}
			eng.PlanAction(transaction.ActionUpdate, target, c.Name, "", f.Content, fmt.Sprintf("%o", f.Mode))
		}
	}

	// §4.5.5 configuration merge.
	newConfig, err := u.Assets.ConfigTemplate()
	if err != nil {
		return rollback(apperrors.Wrap(err, apperrors.KindUpdate, apperrors.CodeInvalidConfig, "loading configuration template"))
	}
	if newConfig == nil {
		newConfig = map[string]interface{}{}
	}

	merged, conflicts := Merge(strategy, existingConfig, newConfig)
	for _, c := range conflicts {
		result.Warnings = append(result.Warnings, fmt.Sprintf("configuration conflict on %q, resolved as %s", c.Key, c.Resolution))
	}

	if !canonicallyEqual(merged, existingConfig) {
		mergedJSON, err := json.MarshalIndent(merged, "", "  ")
		if err != nil {
			return rollback(err)
		}
		eng.PlanAction(transaction.ActionUpdate, configRelPath, "", "merged configuration", append(mergedJSON, '\n'), "")
	}

	for _, action := range eng.Transaction().PlannedActions {
		executed, err := eng.ExecuteAction(action)
		if err != nil {
			return rollback(err)
		}
		if !executed.Result.Skipped {
			result.FilesChanged = append(result.FilesChanged, action.Path)
		}
	}

	// §4.5.6 metadata update.
	now := u.System.Clock().Now()
	meta.Version = u.ToVersion
	meta.LastUpdateDate = &now
	meta.UserCustomizations = customizations
	meta.TransactionHistory = append(meta.TransactionHistory, metadata.TransactionHistoryEntry{
		TransactionID: eng.Transaction().TransactionID, Operation: string(transaction.OpUpdate), Version: u.ToVersion, Timestamp: now, Status: string(transaction.StatusCompleted),
	})
	if err := metadata.Save(u.System, opts.TargetDir, meta); err != nil {
		return rollback(err)
	}

	if err := eng.Commit(); err != nil {
		return fail(err)
	}

	result.Success = true
	result.TransactionID = eng.Transaction().TransactionID
	result.DurationMS = u.System.Clock().Now().Sub(start).Milliseconds()
	return result, nil
}

// previewPlan enumerates the framework files an update would touch, without
// creating a backup archive, acquiring the lock, or writing anything to
// disk, per the dry-run contract of §8.2 scenario 3.
func (u Update) previewPlan(start time.Time, enabled []manifest.Component, customizations []metadata.UserCustomization, result *operation.Result) (*operation.Result, error) {
	for _, c := range enabled {
		files, err := u.Assets.ListFiles(c)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			result.DurationMS = u.System.Clock().Now().Sub(start).Milliseconds()
			return result, err
		}
		for _, f := range files {
			target := filepath.Join(c.Target, f.RelPath)
			if !ShouldUpdateFile(target, customizations) {
				continue
			}
			result.FilesChanged = append(result.FilesChanged, target)
		}
	}

	result.Success = true
	result.DurationMS = u.System.Clock().Now().Sub(start).Milliseconds()
	return result, nil
}

func (u Update) createBackup(ctx context.Context, targetDir string) (string, error) {
	timestamp := u.System.Clock().Now().Format("20060102T150405Z")
	archiveDir := filepath.Join(targetDir, ".claude", "backups")
	tarball := filepath.Join(archiveDir, "backup-"+timestamp+".tar.gz")

	sources := make([]string, len(transaction.CanonicalDirs))
	for i, d := range transaction.CanonicalDirs {
		sources[i] = filepath.Join(targetDir, d)
	}

	if err := archive.CreateTarGz(ctx, u.System, targetDir, sources, tarball); err != nil {
		return "", err
	}

	if err := pruneOldBackups(u.System, archiveDir, 3); err != nil {
		u.System.Logger().Warn("failed pruning old backups: %s", err)
	}

	return tarball, nil
}

func pruneOldBackups(s *sys.System, dir string, keep int) error {
	entries, err := s.FS().ReadDir(dir)
	if err != nil {
		return nil //nolint:nilerr // no backups directory yet
	}
	if len(entries) <= keep {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// ISO8601-derived names sort lexically by age.
	for i := 0; i < len(names)-keep; i++ {
		if err := vfs.RemoveAll(s.FS(), filepath.Join(dir, names[i])); err != nil {
			return err
		}
	}
	return nil
}

func checkGitRepo(s *sys.System, targetDir string) bool {
	ok, _ := vfs.Exists(s.FS(), filepath.Join(targetDir, ".git"), true)
	return ok
}

// RecoveryGuidance produces manual-recovery instructions for a failed
// update, keyed to context per §4.5.7.
func RecoveryGuidance(targetDir, backupPath string, isGitRepo bool) string {
	switch {
	case isGitRepo:
		return fmt.Sprintf("the update failed and was rolled back; %s is a Git working tree, run `git status` and `git checkout -- .` to confirm no partial changes remain", targetDir)
	case backupPath != "" && backupPath != "skipped-git-repo":
		return fmt.Sprintf("the update failed and was rolled back; a pre-update backup is available at %s", backupPath)
	default:
		return "the update failed and was rolled back; no backup archive was created for this target"
	}
}
