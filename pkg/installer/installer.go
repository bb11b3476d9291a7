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

// Package installer orchestrates a fresh install end to end: probe,
// plan, execute, verify, commit, per §4.4. It never reads packaged asset
// content itself; an AssetProvider collaborator supplies component file
// trees so this package stays agnostic of how assets are laid out on disk.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/envprobe"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/operation"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/transaction"
)

// AssetFile is a single file belonging to a component's source tree, as
// supplied by the packaged-asset collaborator.
type AssetFile struct {
	RelPath string
	Content []byte
	Mode    os.FileMode
}

// AssetProvider supplies the file content for a component's Source tree.
// Implemented outside this module by whatever owns the packaged asset
// layout (out of scope here, per §1).
type AssetProvider interface {
	ListFiles(component manifest.Component) ([]AssetFile, error)
	// ConfigTemplate returns the framework-shipped default configuration
	// object for the version being installed/updated to, or nil if none.
	ConfigTemplate() (map[string]interface{}, error)
}

// Install carries the collaborators and target version for one fresh
// install run; Version is stamped into metadata and the transaction's
// ToVersion.
type Install struct {
	System   *sys.System
	Assets   AssetProvider
	Manifest manifest.Manifest
	Version  string
}

// Run executes the full 8-phase install described in §4.4 and returns a
// Result regardless of outcome; on failure Result.Success is false and
// Result.Errors explains why, and any executed actions have been rolled
// back.
func (in Install) Run(ctx context.Context, opts operation.Options) (*operation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, operation.Timeout)
	defer cancel()

	start := in.System.Clock().Now()
	result := &operation.Result{}

	fail := func(err error) (*operation.Result, error) {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		result.DurationMS = in.System.Clock().Now().Sub(start).Milliseconds()
		return result, err
	}

	// Phase 1: probe & validate.
	built := manifest.BuildForPlatform(in.Manifest, in.System.Platform().OS)
	if issues := manifest.Validate(built); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, iss := range issues {
			msgs[i] = fmt.Sprintf("%s: %s", iss.Field, iss.Message)
		}
		return fail(apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidManifest,
			"manifest failed validation: "+joinMsgs(msgs)))
	}

	report, err := envprobe.Probe(ctx, in.System, opts.TargetDir, built.Components)
	if err != nil {
		return fail(apperrors.Wrap(err, apperrors.KindEnvironment, apperrors.CodeDependencyMissing, "probing environment"))
	}
	if !report.DiskSpace.Sufficient {
		return fail(apperrors.New(apperrors.KindEnvironment, apperrors.CodeDiskSpaceLow,
			fmt.Sprintf("only %d bytes free, need at least %d", report.DiskSpace.FreeBytes, envprobe.MinDiskSpaceBytes)))
	}
	if !report.Permissions.Writable {
		return fail(apperrors.New(apperrors.KindEnvironment, apperrors.CodeDirectoryNotWrite, "target directory is not writable: "+opts.TargetDir))
	}

	if node, ok := report.Dependencies["node"]; ok && !node.Available {
		code := apperrors.CodeDependencyMissing
		msg := "node is required but was not found"
		if node.Version != "" {
			code = apperrors.CodeDependencyVersion
			msg = fmt.Sprintf("node %s found at %s, need >= %s", node.Version, node.Location, envprobe.MinNodeVersion)
		}
		return fail(apperrors.New(apperrors.KindEnvironment, code, msg))
	}

	available := map[string]bool{}
	for name, dep := range report.Dependencies {
		available[name] = dep.Available
	}
	filtered := manifest.FilterByDependencies(built, available)

	// Required components with unmet dependencies abort before any file
	// mutation, per the dependency gating invariant.
	for name, missing := range filtered.DependencyIssues {
		return fail(apperrors.New(apperrors.KindEnvironment, apperrors.CodeDependencyMissing,
			fmt.Sprintf("required component %q is missing dependencies: %s", name, strings.Join(missing, ", "))))
	}

	if opts.DryRun {
		return in.previewPlan(start, built, filtered, result)
	}

	for _, c := range filtered.Disabled {
		result.Warnings = append(result.Warnings, fmt.Sprintf("component %q disabled: %s", c.Name, filtered.DisabledReason[c.Name]))
	}

	// Phase 2: lock & create transaction + pre-install snapshot.
	eng, err := transaction.New(in.System, opts.TargetDir, transaction.OpInstall, "", in.Version)
	if err != nil {
		return fail(err)
	}

	commitOrRollback := func(err error) (*operation.Result, error) {
		if err != nil {
			if rbErr := eng.Rollback(err); rbErr != nil {
				result.Errors = append(result.Errors, rbErr.Error())
			}
			return fail(err)
		}
		return nil, nil
	}

	// Phase 3: plan directories.
	for _, d := range built.Directories {
		if !d.CreateIfMissing {
			continue
		}
		eng.PlanAction(transaction.ActionCreateDirectory, d.Path, "", "directory declared by manifest", nil, d.Permissions)
	}

	// Phase 4: plan components.
	for _, c := range filtered.Enabled {
		files, err := in.Assets.ListFiles(c)
		if err != nil {
			if res, rerr := commitOrRollback(apperrors.Wrap(err, apperrors.KindValidation, apperrors.CodeInvalidManifest, "listing assets for component "+c.Name)); res != nil {
				return res, rerr
			}
		}
		for _, f := range files {
			target := filepath.Join(c.Target, f.RelPath)
			eng.PlanAction(transaction.ActionCreate, target, c.Name, "", f.Content, targetPermissions(f.RelPath))
		}
	}

	if err := eng.Checkpoint(transaction.PhaseDependenciesChecked); err != nil {
		if res, rerr := commitOrRollback(err); res != nil {
			return res, rerr
		}
	}

	// Phase 5: execute plan.
	for _, action := range eng.Transaction().PlannedActions {
		executed, err := eng.ExecuteAction(action)
		if !executed.Result.Skipped {
			result.FilesChanged = append(result.FilesChanged, action.Path)
		}
		if err != nil && isComponentRequired(built, action.Component) {
			if res, rerr := commitOrRollback(err); res != nil {
				return res, rerr
			}
		} else if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	if err := eng.Checkpoint(transaction.PhaseFilesCopied); err != nil {
		if res, rerr := commitOrRollback(err); res != nil {
			return res, rerr
		}
	}

	// Phase 6: plan configuration/metadata.
	now := in.System.Clock().Now()
	meta := metadata.New(in.Version, installModeOf(report), now)
	for _, c := range filtered.Enabled {
		meta.InstalledComponents[c.Name] = metadata.InstalledComponent{Version: in.Version, Enabled: true, LastModified: &now}
	}
	for _, c := range filtered.Disabled {
		meta.InstalledComponents[c.Name] = metadata.InstalledComponent{Version: in.Version, Enabled: false, Reason: filtered.DisabledReason[c.Name]}
	}
	for name, dep := range report.Dependencies {
		meta.Dependencies[name] = metadata.DependencyRecord{Version: dep.Version, Required: dep.Required, Available: dep.Available, Location: dep.Location}
	}
	meta.TransactionHistory = append(meta.TransactionHistory, metadata.TransactionHistoryEntry{
		TransactionID: eng.Transaction().TransactionID, Operation: string(transaction.OpInstall), Version: in.Version, Timestamp: now, Status: string(transaction.StatusCompleted),
	})

	if err := metadata.Save(in.System, opts.TargetDir, meta); err != nil {
		if res, rerr := commitOrRollback(err); res != nil {
			return res, rerr
		}
	}

	// Phase 7: verify.
	if issues := in.verify(opts.TargetDir, filtered.Enabled); len(issues) > 0 {
		var fatal []string
		for _, iss := range issues {
			if iss.Severity == "error" {
				fatal = append(fatal, iss.Message)
			} else {
				result.Warnings = append(result.Warnings, iss.Message)
			}
		}
		if len(fatal) > 0 {
			if res, rerr := commitOrRollback(apperrors.New(apperrors.KindTransaction, apperrors.CodeActionFailed, joinMsgs(fatal))); res != nil {
				return res, rerr
			}
		}
	}

	// Phase 8: commit.
	if err := eng.Commit(); err != nil {
		return fail(err)
	}

	result.Success = true
	result.TransactionID = eng.Transaction().TransactionID
	result.DurationMS = in.System.Clock().Now().Sub(start).Milliseconds()
	return result, nil
}

// previewPlan enumerates the directories and component files an install
// would touch without acquiring the lock, creating a transaction, or
// writing anything to disk, per the dry-run contract of §8.2 scenario 3.
func (in Install) previewPlan(start time.Time, built manifest.Manifest, filtered manifest.FilterResult, result *operation.Result) (*operation.Result, error) {
	for _, d := range built.Directories {
		if d.CreateIfMissing {
			result.FilesChanged = append(result.FilesChanged, d.Path)
		}
	}

	for _, c := range filtered.Enabled {
		files, err := in.Assets.ListFiles(c)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			result.DurationMS = in.System.Clock().Now().Sub(start).Milliseconds()
			return result, err
		}
		for _, f := range files {
			result.FilesChanged = append(result.FilesChanged, filepath.Join(c.Target, f.RelPath))
		}
	}
	for _, c := range filtered.Disabled {
		result.Warnings = append(result.Warnings, fmt.Sprintf("component %q disabled: %s", c.Name, filtered.DisabledReason[c.Name]))
	}

	result.FilesChanged = append(result.FilesChanged, metadata.RelPath)
	result.Success = true
	result.DurationMS = in.System.Clock().Now().Sub(start).Milliseconds()
	return result, nil
}

// Verify re-runs phase 7's checks read-only against an already-installed
// target, per the supplemented Verify operation.
func (in Install) Verify(_ context.Context, targetDir string) ([]transaction.VerificationIssue, error) {
	built := manifest.BuildForPlatform(in.Manifest, in.System.Platform().OS)
	m, err := metadata.Load(in.System, targetDir)
	if err != nil {
		return nil, err
	}

	var enabled []manifest.Component
	for _, c := range built.Components {
		if ic, ok := m.InstalledComponents[c.Name]; ok && ic.Enabled {
			enabled = append(enabled, c)
		}
	}

	return in.verify(targetDir, enabled), nil
}

func (in Install) verify(targetDir string, components []manifest.Component) []transaction.VerificationIssue {
	var issues []transaction.VerificationIssue
	for _, c := range components {
		target := filepath.Join(targetDir, c.Target)
		ok, err := vfs.Exists(in.System.FS(), target, true)
		if err != nil || !ok {
			severity := "warning"
			if c.Type == manifest.Required {
				severity = "error"
			}
			issues = append(issues, transaction.VerificationIssue{
				Path: target, Severity: severity,
				Message: fmt.Sprintf("component %q target missing after install: %s", c.Name, target),
			})
		}
	}
	return issues
}

// targetPermissions is the planned file mode per §4.4 step 4: 644 for
// regular files, 755 for Python hook scripts.
func targetPermissions(relPath string) string {
	if strings.HasSuffix(relPath, ".py") {
		return "755"
	}
	return "644"
}

func isComponentRequired(m manifest.Manifest, name string) bool {
	for _, c := range m.Components {
		if c.Name == name {
			return c.Type == manifest.Required
		}
	}
	return false
}

func installModeOf(report *envprobe.Report) string {
	if report.ExistingInstall.Installed {
		return "reinstall"
	}
	return "fresh"
}

func joinMsgs(msgs []string) string {
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "; "
		}
		out += m
	}
	return out
}
