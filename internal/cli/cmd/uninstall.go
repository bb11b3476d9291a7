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

// UninstallFlags carries the uninstall command's own flags.
type UninstallFlags struct {
	Target         string
	Purge          bool
	NonInteractive bool
	DryRun         bool
}

var UninstallArgs UninstallFlags

func NewUninstallCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "uninstall",
		Usage:     "Remove an installation, preserving user customizations unless purging",
		UsageText: fmt.Sprintf("%s uninstall [OPTIONS]", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "Project directory to remove the installation from (defaults to the current directory)",
				Destination: &UninstallArgs.Target,
			},
			&cli.BoolFlag{
				Name:        "purge",
				Usage:       "Remove every tracked path, including user customizations",
				Destination: &UninstallArgs.Purge,
			},
			&cli.BoolFlag{
				Name:        "non-interactive",
				Usage:       "Never prompt for confirmation",
				Destination: &UninstallArgs.NonInteractive,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview what would be removed or preserved without touching the filesystem",
				Destination: &UninstallArgs.DryRun,
			},
		},
	}
}
