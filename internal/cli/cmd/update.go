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

package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// UpdateFlags carries the update command's own flags.
type UpdateFlags struct {
	Target         string
	AssetsDir      string
	ToVersion      string
	MergeStrategy  string
	Migrate        bool
	NonInteractive bool
	DryRun         bool
}

var UpdateArgs UpdateFlags

func NewUpdateCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update an existing installation in place, preserving customizations",
		UsageText: fmt.Sprintf("%s update [OPTIONS]", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "Project directory to update (defaults to the current directory)",
				Destination: &UpdateArgs.Target,
			},
			&cli.StringFlag{
				Name:        "assets",
				Usage:       "Directory containing the packaged component sources",
				Destination: &UpdateArgs.AssetsDir,
			},
			&cli.StringFlag{
				Name:        "to-version",
				Usage:       "Manifest version to update to",
				Value:       "1.0.0",
				Destination: &UpdateArgs.ToVersion,
			},
			&cli.StringFlag{
				Name:        "merge-strategy",
				Usage:       "Configuration merge strategy: keep_user, use_new, shallow_merge or deep_merge",
				Destination: &UpdateArgs.MergeStrategy,
			},
			&cli.BoolFlag{
				Name:        "migrate",
				Usage:       "Run in migration mode: modified framework config files are not preserved; declared customizations and user-named persona/hook files still are",
				Destination: &UpdateArgs.Migrate,
			},
			&cli.BoolFlag{
				Name:        "non-interactive",
				Usage:       "Never prompt for confirmation",
				Destination: &UpdateArgs.NonInteractive,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview planned actions without touching the filesystem",
				Destination: &UpdateArgs.DryRun,
			},
		},
	}
}
