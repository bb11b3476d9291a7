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
)

var (
	buildVersion = "v0.0.1"
	// gitCommit is the git sha1, set via -ldflags at build time.
	gitCommit = ""
)

// Version prints the CLI's own build version, not the component manifest
// version compared during an update.
func Version(*cli.Context) error {
	commit := gitCommit
	if len(commit) > 7 {
		commit = gitCommit[:7]
	}
	if commit == "" {
		fmt.Println(buildVersion)
		return nil
	}
	fmt.Printf("%s+g%s\n", buildVersion, commit)
	return nil
}
