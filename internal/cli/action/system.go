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
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/projectbuddy/installer-core/pkg/sys"
)

// systemFrom recovers the *sys.System stashed in the app's metadata by
// cmd.Setup, per internal/cli/cmd/root.go.
func systemFrom(ctx *cli.Context) (*sys.System, error) {
	if ctx.App.Metadata == nil || ctx.App.Metadata["system"] == nil {
		return nil, fmt.Errorf("error setting up initial configuration")
	}
	s, ok := ctx.App.Metadata["system"].(*sys.System)
	if !ok {
		return nil, fmt.Errorf("unexpected system metadata type")
	}
	return s, nil
}

// logResult writes a one-line summary of an operation result, regardless
// of which operation produced it, so the install, update and uninstall
// actions share one log shape.
func logResult(s *sys.System, label string, success bool, filesChanged, removed, preserved, warnings []string) {
	if success {
		s.Logger().Info("%s complete: %d file(s) changed, %d preserved, %d removed, %d warning(s)",
			label, len(filesChanged), len(preserved), len(removed), len(warnings))
	} else {
		s.Logger().Error("%s failed", label)
	}
	for _, w := range warnings {
		s.Logger().Warn("%s", w)
	}
}
