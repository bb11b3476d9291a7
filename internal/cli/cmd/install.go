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

// InstallFlags carries the install command's own flags, on top of the
// global flags every command shares.
type InstallFlags struct {
	Target         string
	AssetsDir      string
	Version        string
	NonInteractive bool
	DryRun         bool
}

var InstallArgs InstallFlags

func NewInstallCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Install the component framework into a project directory",
		UsageText: fmt.Sprintf("%s install [OPTIONS]", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "Project directory to install into (defaults to the current directory)",
				Destination: &InstallArgs.Target,
			},
			&cli.StringFlag{
				Name:        "assets",
				Usage:       "Directory containing the packaged component sources",
				Destination: &InstallArgs.AssetsDir,
			},
			&cli.StringFlag{
				Name:        "version",
				Usage:       "Manifest version being installed",
				Value:       "1.0.0",
				Destination: &InstallArgs.Version,
			},
			&cli.BoolFlag{
				Name:        "non-interactive",
				Usage:       "Never prompt for confirmation",
				Destination: &InstallArgs.NonInteractive,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview planned actions without touching the filesystem",
				Destination: &InstallArgs.DryRun,
			},
		},
	}
}
