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

package config

import "fmt"

// Issue is a single schema validation failure, with a dotted field path
// matching the nested key it came from.
type Issue struct {
	Field   string
	Code    string
	Message string
}

var validMergeStrategies = map[string]bool{
	"keep_user": true, "use_new": true, "shallow_merge": true, "deep_merge": true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validInstallModes = map[string]bool{
	"project": true, "global": true, "dev": true,
}

// Validate checks cfg against the fixed schema of §4.7: per-field type,
// enum and numeric range constraints. It accumulates every violation
// rather than stopping at the first.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if !validInstallModes[cfg.Installation.InstallMode] {
		issues = append(issues, enumIssue("installation.install_mode", cfg.Installation.InstallMode, []string{"project", "global", "dev"}))
	}

	if !validMergeStrategies[cfg.Update.MergeStrategy] {
		issues = append(issues, enumIssue("update.merge_strategy", cfg.Update.MergeStrategy, []string{"keep_user", "use_new", "shallow_merge", "deep_merge"}))
	}

	if !validLogLevels[cfg.Logging.Level] {
		issues = append(issues, enumIssue("logging.level", cfg.Logging.Level, []string{"debug", "info", "warn", "error"}))
	}

	if cfg.Environment.ProbeTimeoutSeconds < 1 || cfg.Environment.ProbeTimeoutSeconds > 30 {
		issues = append(issues, Issue{
			Field: "environment.probe_timeout_seconds", Code: "FIELD_VALUE",
			Message: fmt.Sprintf("must be between 1 and 30, got %d", cfg.Environment.ProbeTimeoutSeconds),
		})
	}

	return issues
}

func enumIssue(field, value string, allowed []string) Issue {
	return Issue{
		Field: field, Code: "FIELD_VALUE",
		Message: fmt.Sprintf("%q is not one of %v", value, allowed),
	}
}
