/*
Copyright © 2025 SUSE LLC
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

package action

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/projectbuddy/installer-core/pkg/assets"
	"github.com/projectbuddy/installer-core/pkg/config"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/operation"
	"github.com/projectbuddy/installer-core/pkg/updater"

	"github.com/projectbuddy/installer-core/internal/cli/cmd"
)

// Update wires the update command's flags into a single updater.Update run.
func Update(ctx *cli.Context) error {
	s, err := systemFrom(ctx)
	if err != nil {
		return err
	}

	targetDir := cmd.UpdateArgs.Target
	if targetDir == "" {
		targetDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	home, _ := os.UserHomeDir()
	nonInteractive := cmd.UpdateArgs.NonInteractive
	dryRun := cmd.UpdateArgs.DryRun
	mergeStrategy := cmd.UpdateArgs.MergeStrategy
	flags := config.FlagOverrides{
		NonInteractive: &nonInteractive,
		DryRun:         &dryRun,
	}
	if mergeStrategy != "" {
		flags.MergeStrategy = &mergeStrategy
	}
	cfg, err := config.Load(targetDir, home, environMap(), flags)
	if err != nil {
		return err
	}

	assetsRoot := cmd.UpdateArgs.AssetsDir
	if assetsRoot == "" {
		assetsRoot = assets.DefaultRoot()
	}

	toVersion := cmd.UpdateArgs.ToVersion
	if toVersion == "" {
		toVersion = "1.0.0"
	}

	up := updater.Update{
		System:        s,
		Assets:        assets.DirProvider{System: s, Root: assetsRoot},
		Manifest:      manifest.Default(),
		ToVersion:     toVersion,
		Strategy:      updater.MergeStrategy(cfg.Update.MergeStrategy),
		MigrationMode: cmd.UpdateArgs.Migrate,
	}

	result, _ := up.Run(ctx.Context, operation.Options{
		TargetDir:      targetDir,
		NonInteractive: cfg.Execution.NonInteractive,
		DryRun:         cfg.Execution.DryRun,
	})

	logResult(s, "update", result.Success, result.FilesChanged, result.Removed, result.Preserved, result.Warnings)
	return emitResult(result)
}
