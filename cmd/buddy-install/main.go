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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/projectbuddy/installer-core/internal/cli/action"
	"github.com/projectbuddy/installer-core/internal/cli/cmd"
)

func main() {
	appName := filepath.Base(os.Args[0])

	app := &cli.App{
		Name:    appName,
		Usage:   cmd.Usage,
		Flags:   cmd.GlobalFlags(),
		Suggest: true,
		Before:  cmd.Setup,
		After:   cmd.Teardown,
		Commands: []*cli.Command{
			cmd.NewInstallCommand(appName, action.Install),
			cmd.NewUpdateCommand(appName, action.Update),
			cmd.NewUninstallCommand(appName, action.Uninstall),
			cmd.NewVerifyCommand(appName, action.Verify),
			cmd.NewRecoverCommand(appName, action.Recover),
			cmd.NewVersionCommand(appName, action.Version),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
