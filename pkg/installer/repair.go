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

package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/projectbuddy/installer-core/pkg/envprobe"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/operation"
	"github.com/projectbuddy/installer-core/pkg/transaction"
)

// Repair re-plans an install against the corruption details the
// environment probe reported, narrowed to only the components the probe
// flagged as missing their target directory. It does not go through Run's
// phases; see runAs for what the repair path does.
func (in Install) Repair(ctx context.Context, opts operation.Options) (*operation.Result, error) {
	built := manifest.BuildForPlatform(in.Manifest, in.System.Platform().OS)

	report, err := envprobe.Probe(ctx, in.System, opts.TargetDir, built.Components)
	if err != nil {
		return nil, err
	}
	if !report.ExistingInstall.Installed {
		return nil, fmt.Errorf("repair requires an existing installation at %s", opts.TargetDir)
	}

	broken := map[string]bool{}
	for _, detail := range report.ExistingInstall.CorruptionDetails {
		for _, c := range built.Components {
			if containsComponentName(detail, c.Name) {
				broken[c.Name] = true
			}
		}
	}

	narrowed := built
	narrowed.Components = nil
	for _, c := range built.Components {
		if broken[c.Name] {
			narrowed.Components = append(narrowed.Components, c)
		}
	}
	if len(narrowed.Components) == 0 {
		return &operation.Result{Success: true}, nil
	}

	repairInstall := Install{System: in.System, Assets: in.Assets, Manifest: narrowed, Version: in.Version}
	return repairInstall.runAs(ctx, opts, transaction.OpRepair)
}

func containsComponentName(detail, name string) bool {
	return strings.Contains(detail, fmt.Sprintf("%q", name))
}

// runAs delegates to Run for any operation other than repair. For repair it
// runs its own transaction: it plans a create action for every asset file of
// the manifest's components (existing files are skipped on execution),
// executes them and commits. It plans no directories and runs no
// verification pass.
func (in Install) runAs(ctx context.Context, opts operation.Options, op transaction.Operation) (*operation.Result, error) {
	if op != transaction.OpRepair {
		return in.Run(ctx, opts)
	}

	result := &operation.Result{}
	start := in.System.Clock().Now()

	eng, err := transaction.New(in.System, opts.TargetDir, op, "", in.Version)
	if err != nil {
		return nil, err
	}

	for _, c := range in.Manifest.Components {
		files, err := in.Assets.ListFiles(c)
		if err != nil {
			_ = eng.Rollback(err)
			return nil, err
		}
		for _, f := range files {
			target := filepath.Join(c.Target, f.RelPath)
			eng.PlanAction(transaction.ActionCreate, target, c.Name, "repairing corrupted component", f.Content, targetPermissions(f.RelPath))
		}
	}

	for _, action := range eng.Transaction().PlannedActions {
		executed, err := eng.ExecuteAction(action)
		if err != nil {
			_ = eng.Rollback(err)
			result.Errors = append(result.Errors, err.Error())
			result.DurationMS = in.System.Clock().Now().Sub(start).Milliseconds()
			return result, err
		}
		if !executed.Result.Skipped {
			result.FilesChanged = append(result.FilesChanged, action.Path)
		}
	}

	if err := eng.Commit(); err != nil {
		return nil, err
	}

	result.Success = true
	result.TransactionID = eng.Transaction().TransactionID
	result.DurationMS = in.System.Clock().Now().Sub(start).Milliseconds()
	return result, nil
}
