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

// Package config loads the five-layer configuration described in §4.7:
// built-in defaults, user-level and project-level config files, a fixed
// set of environment variables, and finally flag-provided overrides, with
// deep-merge precedence and fixed-schema validation.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
)

// Config is the fully-resolved, validated configuration object.
type Config struct {
	Installation InstallationConfig `mapstructure:"installation"`
	Update       UpdateConfig       `mapstructure:"update"`
	Uninstall    UninstallConfig    `mapstructure:"uninstall"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Execution    ExecutionConfig    `mapstructure:"execution"`
	Environment  EnvironmentConfig  `mapstructure:"environment"`
}

type InstallationConfig struct {
	Home        string `mapstructure:"home"`
	InstallMode string `mapstructure:"install_mode"`
}

type UpdateConfig struct {
	MergeStrategy string `mapstructure:"merge_strategy"`
}

type UninstallConfig struct {
	Purge bool `mapstructure:"purge"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	NoColor bool   `mapstructure:"no_color"`
	Verbose bool   `mapstructure:"verbose"`
}

type ExecutionConfig struct {
	NonInteractive bool `mapstructure:"non_interactive"`
	DryRun         bool `mapstructure:"dry_run"`
}

type EnvironmentConfig struct {
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
}

// FlagOverrides carries the flag-provided values, the highest-precedence
// layer. A nil pointer field means "not set on the command line".
type FlagOverrides struct {
	Home           *string
	Verbose        *bool
	NoColor        *bool
	LogLevel       *string
	NonInteractive *bool
	MergeStrategy  *string
	Purge          *bool
	DryRun         *bool
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"installation.home":                 "",
		"installation.install_mode":         "project",
		"update.merge_strategy":             "shallow_merge",
		"uninstall.purge":                   false,
		"logging.level":                     "info",
		"logging.no_color":                  false,
		"logging.verbose":                   false,
		"execution.non_interactive":         false,
		"execution.dry_run":                 false,
		"environment.probe_timeout_seconds": 5,
	}
}

// Load builds the fully-merged, validated Config for projectDir, per the
// five-layer precedence of §4.7. homeDir and environ let tests inject a
// fake home directory and environment instead of touching the real OS
// environment; callers outside tests pass os.UserHomeDir() / os.Environ().
func Load(projectDir, homeDir string, environ map[string]string, flags FlagOverrides) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	if homeDir != "" {
		if err := mergeLayer(v, homeDir); err != nil {
			return nil, err
		}
	}
	if err := mergeLayer(v, projectDir); err != nil {
		return nil, err
	}

	applyEnv(v, environ)
	applyFlags(v, flags)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindValidation, apperrors.CodeSchemaMismatch, "unmarshalling merged configuration")
	}

	if issues := Validate(&cfg); len(issues) > 0 {
		msg := issues[0].Field + ": " + issues[0].Message
		appErr := apperrors.New(apperrors.KindValidation, "VALIDATION_INVALID_"+issues[0].Code, msg)
		for _, iss := range issues[1:] {
			appErr = appErr.WithContext(iss.Field, iss.Message)
		}
		return nil, appErr
	}

	return &cfg, nil
}

// mergeLayer merges one directory's rc file into v, accepting either the
// JSON or the YAML spelling; the JSON file wins when both are present.
func mergeLayer(v *viper.Viper, dir string) error {
	if err := mergeYAMLIfExists(v, filepath.Join(dir, ".claude-buddy-rc.yaml")); err != nil {
		return err
	}
	return mergeFileIfExists(v, filepath.Join(dir, ".claude-buddy-rc.json"))
}

func mergeFileIfExists(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return apperrors.Wrap(err, apperrors.KindValidation, apperrors.CodeInvalidConfig, "reading configuration file "+path)
	}
	return nil
}

func mergeYAMLIfExists(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil //nolint:nilerr // absent layer
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return apperrors.Wrap(err, apperrors.KindValidation, apperrors.CodeInvalidConfig, "reading configuration file "+path)
	}
	return v.MergeConfigMap(raw)
}

// applyEnv binds exactly the five environment variables named in §4.7.
func applyEnv(v *viper.Viper, environ map[string]string) {
	if val, ok := environ["CLAUDE_BUDDY_HOME"]; ok {
		v.Set("installation.home", val)
	}
	if val, ok := environ["CLAUDE_BUDDY_VERBOSE"]; ok {
		v.Set("logging.verbose", val == "1" || val == "true")
	}
	if val, ok := environ["CLAUDE_BUDDY_NO_COLOR"]; ok {
		v.Set("logging.no_color", val == "1" || val == "true")
	}
	if val, ok := environ["CLAUDE_BUDDY_LOG_LEVEL"]; ok {
		v.Set("logging.level", val)
	}
	if val, ok := environ["CLAUDE_BUDDY_NON_INTERACTIVE"]; ok {
		v.Set("execution.non_interactive", val == "1" || val == "true")
	}
}

func applyFlags(v *viper.Viper, flags FlagOverrides) {
	if flags.Home != nil {
		v.Set("installation.home", *flags.Home)
	}
	if flags.Verbose != nil {
		v.Set("logging.verbose", *flags.Verbose)
	}
	if flags.NoColor != nil {
		v.Set("logging.no_color", *flags.NoColor)
	}
	if flags.LogLevel != nil {
		v.Set("logging.level", *flags.LogLevel)
	}
	if flags.NonInteractive != nil {
		v.Set("execution.non_interactive", *flags.NonInteractive)
	}
	if flags.MergeStrategy != nil {
		v.Set("update.merge_strategy", *flags.MergeStrategy)
	}
	if flags.Purge != nil {
		v.Set("uninstall.purge", *flags.Purge)
	}
	if flags.DryRun != nil {
		v.Set("execution.dry_run", *flags.DryRun)
	}
}
