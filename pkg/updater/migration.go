/*
Copyright © 2022-2025 SUSE LLC
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

package updater

import "github.com/projectbuddy/installer-core/pkg/transaction"

// Migration transforms a parsed configuration object in place for a single
// version step.
type Migration func(config map[string]interface{}, targetDir string) (map[string]interface{}, error)

// Migrations maps a "<from>-to-<to>" key to the transform applied when
// updating across that exact version boundary, per §4.5.3.
var Migrations = map[string]Migration{}

// Register adds or replaces a migration for the given version boundary.
func Register(from, to string, m Migration) {
	Migrations[from+"-to-"+to] = m
}

// Apply runs the single-step migration path from "from" to "to" against
// config, if one is registered. A missing migration is not an error: most
// version boundaries require no structural change. A migration failure is
// recorded as a MigrationError and does not halt the caller.
func Apply(from, to string, config map[string]interface{}, targetDir string) (map[string]interface{}, *transaction.MigrationError) {
	m, ok := Migrations[from+"-to-"+to]
	if !ok {
		return config, nil
	}

	migrated, err := m(config, targetDir)
	if err != nil {
		return config, &transaction.MigrationError{From: from, To: to, Message: err.Error()}
	}
	return migrated, nil
}
