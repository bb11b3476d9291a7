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
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/projectbuddy/installer-core/pkg/assets"
	"github.com/projectbuddy/installer-core/pkg/config"
	"github.com/projectbuddy/installer-core/pkg/installer"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/operation"

	"github.com/projectbuddy/installer-core/internal/cli/cmd"
)

// Install wires the install command's flags and the resolved five-layer
// configuration into a single installer.Install run.
func Install(ctx *cli.Context) error {
	s, err := systemFrom(ctx)
	if err != nil {
		return err
	}

	targetDir := cmd.InstallArgs.Target
	if targetDir == "" {
		targetDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	home, _ := os.UserHomeDir()
	nonInteractive := cmd.InstallArgs.NonInteractive
	dryRun := cmd.InstallArgs.DryRun
	cfg, err := config.Load(targetDir, home, environMap(), config.FlagOverrides{
		NonInteractive: &nonInteractive,
		DryRun:         &dryRun,
	})
	if err != nil {
		return err
	}

	assetsRoot := cmd.InstallArgs.AssetsDir
	if assetsRoot == "" {
		assetsRoot = assets.DefaultRoot()
	}

	version := cmd.InstallArgs.Version
	if version == "" {
		version = "1.0.0"
	}

	in := installer.Install{
		System:   s,
		Assets:   assets.DirProvider{System: s, Root: assetsRoot},
		Manifest: manifest.Default(),
		Version:  version,
	}

	result, _ := in.Run(ctx.Context, operation.Options{
		TargetDir:      targetDir,
		NonInteractive: cfg.Execution.NonInteractive,
		DryRun:         cfg.Execution.DryRun,
	})

	logResult(s, "install", result.Success, result.FilesChanged, result.Removed, result.Preserved, result.Warnings)
	return emitResult(result)
}

// environMap snapshots os.Environ into the map shape config.Load expects.
func environMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

// emitResult prints the operation result as JSON to stdout and returns an
// error if the operation itself failed, so the process exit code reflects
// outcome.
func emitResult(result *operation.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	if !result.Success {
		return fmt.Errorf("operation failed: %s", joinErrors(result.Errors))
	}
	return nil
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
