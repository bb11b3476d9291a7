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

// RecoverFlags carries the recover command's own flags.
type RecoverFlags struct {
	Target        string
	Rollback      bool
	Dismiss       bool
	RestoreBackup string
}

var RecoverArgs RecoverFlags

func NewRecoverCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "recover",
		Usage:     "Inspect and resolve a transaction interrupted by a crash or kill",
		UsageText: fmt.Sprintf("%s recover [OPTIONS]", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "Project directory to inspect (defaults to the current directory)",
				Destination: &RecoverArgs.Target,
			},
			&cli.BoolFlag{
				Name:        "rollback",
				Usage:       "Reverse the interrupted transaction's executed actions",
				Destination: &RecoverArgs.Rollback,
			},
			&cli.BoolFlag{
				Name:        "dismiss",
				Usage:       "Mark the interrupted transaction as failed, keeping partial state",
				Destination: &RecoverArgs.Dismiss,
			},
			&cli.StringFlag{
				Name:        "restore-backup",
				Usage:       "Re-extract a pre-update backup tarball over the target directory",
				Destination: &RecoverArgs.RestoreBackup,
			},
		},
	}
}
