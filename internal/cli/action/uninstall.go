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

	"github.com/projectbuddy/installer-core/pkg/config"
	"github.com/projectbuddy/installer-core/pkg/uninstaller"

	"github.com/projectbuddy/installer-core/internal/cli/cmd"
)

// Uninstall wires the uninstall command's flags into a single
// uninstaller.Uninstall run.
func Uninstall(ctx *cli.Context) error {
	s, err := systemFrom(ctx)
	if err != nil {
		return err
	}

	targetDir := cmd.UninstallArgs.Target
	if targetDir == "" {
		targetDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	home, _ := os.UserHomeDir()
	nonInteractive := cmd.UninstallArgs.NonInteractive
	dryRun := cmd.UninstallArgs.DryRun
	purge := cmd.UninstallArgs.Purge
	cfg, err := config.Load(targetDir, home, environMap(), config.FlagOverrides{
		NonInteractive: &nonInteractive,
		DryRun:         &dryRun,
		Purge:          &purge,
	})
	if err != nil {
		return err
	}

	un := uninstaller.Uninstall{
		System: s,
		Purge:  cfg.Uninstall.Purge,
		DryRun: cfg.Execution.DryRun,
	}

	result, _ := un.Run(targetDir)

	logResult(s, "uninstall", result.Success, result.FilesChanged, result.Removed, result.Preserved, result.Warnings)
	return emitResult(result)
}
