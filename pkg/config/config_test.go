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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/projectbuddy/installer-core/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir(), "", nil, config.FlagOverrides{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Installation.InstallMode != "project" {
		t.Errorf("install_mode = %q, want project", cfg.Installation.InstallMode)
	}
	if cfg.Update.MergeStrategy != "shallow_merge" {
		t.Errorf("merge_strategy = %q, want shallow_merge", cfg.Update.MergeStrategy)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Environment.ProbeTimeoutSeconds != 5 {
		t.Errorf("probe_timeout_seconds = %d, want 5", cfg.Environment.ProbeTimeoutSeconds)
	}
}

func TestLoadProjectFileOverridesUserFile(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	writeFile(t, filepath.Join(home, ".claude-buddy-rc.json"),
		`{"logging": {"level": "debug"}, "update": {"merge_strategy": "deep_merge"}}`)
	writeFile(t, filepath.Join(project, ".claude-buddy-rc.json"),
		`{"logging": {"level": "warn"}}`)

	cfg, err := config.Load(project, home, nil, config.FlagOverrides{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want warn (project file wins)", cfg.Logging.Level)
	}
	if cfg.Update.MergeStrategy != "deep_merge" {
		t.Errorf("merge_strategy = %q, want deep_merge (user file kept)", cfg.Update.MergeStrategy)
	}
}

func TestLoadYAMLLayer(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ".claude-buddy-rc.yaml"),
		"logging:\n  level: error\n")

	cfg, err := config.Load(project, "", nil, config.FlagOverrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("logging.level = %q, want error", cfg.Logging.Level)
	}
}

func TestEnvOverridesFiles(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ".claude-buddy-rc.json"), `{"logging": {"level": "debug"}}`)

	environ := map[string]string{
		"CLAUDE_BUDDY_LOG_LEVEL":       "error",
		"CLAUDE_BUDDY_NON_INTERACTIVE": "1",
	}
	cfg, err := config.Load(project, "", environ, config.FlagOverrides{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("logging.level = %q, want error (env wins over file)", cfg.Logging.Level)
	}
	if !cfg.Execution.NonInteractive {
		t.Error("non_interactive should be set by env")
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	level := "warn"
	environ := map[string]string{"CLAUDE_BUDDY_LOG_LEVEL": "error"}

	cfg, err := config.Load(t.TempDir(), "", environ, config.FlagOverrides{LogLevel: &level})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want warn (flag wins over env)", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidEnumValue(t *testing.T) {
	strategy := "sideways_merge"
	_, err := config.Load(t.TempDir(), "", nil, config.FlagOverrides{MergeStrategy: &strategy})
	if err == nil {
		t.Fatal("expected validation error for unknown merge strategy")
	}
}

func TestValidateRange(t *testing.T) {
	cfg := &config.Config{
		Installation: config.InstallationConfig{InstallMode: "project"},
		Update:       config.UpdateConfig{MergeStrategy: "shallow_merge"},
		Logging:      config.LoggingConfig{Level: "info"},
		Environment:  config.EnvironmentConfig{ProbeTimeoutSeconds: 99},
	}

	issues := config.Validate(cfg)
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Field != "environment.probe_timeout_seconds" {
		t.Errorf("field = %q", issues[0].Field)
	}
}
