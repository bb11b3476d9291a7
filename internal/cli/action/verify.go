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
	"github.com/projectbuddy/installer-core/pkg/installer"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/metadata"

	"github.com/projectbuddy/installer-core/internal/cli/cmd"
)

// Verify re-checks an existing installation read-only and never plans or
// executes a transaction.
func Verify(ctx *cli.Context) error {
	s, err := systemFrom(ctx)
	if err != nil {
		return err
	}

	targetDir := cmd.VerifyArgs.Target
	if targetDir == "" {
		targetDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	assetsRoot := cmd.VerifyArgs.AssetsDir
	if assetsRoot == "" {
		assetsRoot = assets.DefaultRoot()
	}

	m, err := metadata.Load(s, targetDir)
	if err != nil {
		return err
	}

	in := installer.Install{
		System:   s,
		Assets:   assets.DirProvider{System: s, Root: assetsRoot},
		Manifest: manifest.Default(),
		Version:  m.Version,
	}

	issues, err := in.Verify(ctx.Context, targetDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	for _, iss := range issues {
		if iss.Severity == "error" {
			s.Logger().Error("%s", iss.Message)
			return fmt.Errorf("verification found %d issue(s)", len(issues))
		}
		s.Logger().Warn("%s", iss.Message)
	}

	s.Logger().Info("verify complete: %d issue(s)", len(issues))
	return nil
}
