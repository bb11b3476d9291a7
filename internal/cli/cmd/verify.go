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

// VerifyFlags carries the verify command's own flags.
type VerifyFlags struct {
	Target    string
	AssetsDir string
}

var VerifyArgs VerifyFlags

func NewVerifyCommand(appName string, action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Re-check an existing installation without planning or executing any mutation",
		UsageText: fmt.Sprintf("%s verify [OPTIONS]", appName),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target",
				Aliases:     []string{"t"},
				Usage:       "Project directory to verify (defaults to the current directory)",
				Destination: &VerifyArgs.Target,
			},
			&cli.StringFlag{
				Name:        "assets",
				Usage:       "Directory containing the packaged component sources",
				Destination: &VerifyArgs.AssetsDir,
			},
		},
	}
}
