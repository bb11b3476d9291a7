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

// Package manifest holds the declarative component and directory model
// every operation builds its plan from: a compile-time-constant declaration
// of what a project install is made of, resolved per-platform and filtered
// by which dependencies are actually available on the host.
package manifest

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/projectbuddy/installer-core/pkg/platform"
	"github.com/projectbuddy/installer-core/pkg/version"
)

// ComponentType distinguishes components whose absence is fatal from ones
// that degrade gracefully.
type ComponentType string

const (
	Required ComponentType = "required"
	Optional ComponentType = "optional"
)

// KnownDependencies is the fixed set of dependency names a component may
// declare; §3.1 invariant (iii).
var KnownDependencies = map[string]bool{
	"node": true, "uv": true, "python": true, "git": true,
}

// Component is a single installable unit of the manifest.
type Component struct {
	Name             string
	DisplayName      string
	Type             ComponentType
	Source           string
	Target           string
	Dependencies     []string
	FilePatterns     []string
	Description      string
	AffectedFeatures []string
}

// DirectorySpec declares a directory the installer must ensure exists.
type DirectorySpec struct {
	Path            string
	Permissions     string
	CreateIfMissing bool
}

// ComponentOverride and DirectoryOverride are shallow patches applied to a
// Component or DirectorySpec for a specific OS family.
type ComponentOverride struct {
	Target      *string
	Permissions *string
}

type DirectoryOverride struct {
	Permissions     *string
	CreateIfMissing *bool
}

type PlatformOverrides struct {
	ComponentOverrides map[platform.Family]map[string]ComponentOverride
	DirectoryOverrides map[platform.Family]map[string]DirectoryOverride
	EnvironmentVars    map[platform.Family]map[string]string
}

// Manifest is the process-wide, read-only component declaration. Build it
// with BuildForPlatform; never mutate a Manifest in place.
type Manifest struct {
	SchemaVersion     string
	Components        []Component
	Directories       []DirectorySpec
	PlatformOverrides PlatformOverrides
	EnvironmentVars   map[string]string
}

// BuildForPlatform returns a deep copy of base with the given family's
// component and directory overrides shallowly merged in, and the matching
// environment_variables attached for downstream use. base itself is never
// mutated.
func BuildForPlatform(base Manifest, family platform.Family) Manifest {
	result := Manifest{
		SchemaVersion: base.SchemaVersion,
		Components:    make([]Component, len(base.Components)),
		Directories:   make([]DirectorySpec, len(base.Directories)),
	}
	copy(result.Components, base.Components)
	for i := range result.Components {
		c := &result.Components[i]
		c.Dependencies = append([]string(nil), c.Dependencies...)
		c.FilePatterns = append([]string(nil), c.FilePatterns...)
		c.AffectedFeatures = append([]string(nil), c.AffectedFeatures...)
	}
	copy(result.Directories, base.Directories)

	if overrides, ok := base.PlatformOverrides.ComponentOverrides[family]; ok {
		for i, c := range result.Components {
			if o, ok := overrides[c.Name]; ok {
				if o.Target != nil {
					c.Target = *o.Target
				}
				result.Components[i] = c
			}
		}
	}

	if overrides, ok := base.PlatformOverrides.DirectoryOverrides[family]; ok {
		for i, d := range result.Directories {
			if o, ok := overrides[d.Path]; ok {
				if o.Permissions != nil {
					d.Permissions = *o.Permissions
				}
				if o.CreateIfMissing != nil {
					d.CreateIfMissing = *o.CreateIfMissing
				}
				result.Directories[i] = d
			}
		}
	}

	result.EnvironmentVars = map[string]string{}
	if vars, ok := base.PlatformOverrides.EnvironmentVars[family]; ok {
		for k, v := range vars {
			result.EnvironmentVars[k] = v
		}
	}

	return result
}

// FilterResult is the outcome of gating components against the dependency
// names the environment probe reported as available.
type FilterResult struct {
	Enabled  []Component
	Disabled []Component
	// DisabledReason maps a disabled component's Name to its human-readable reason.
	DisabledReason map[string]string
	// DependencyIssues maps an enabled-but-impaired required component's Name
	// to the missing dependency names.
	DependencyIssues map[string][]string
}

// FilterByDependencies partitions m's components into enabled/disabled sets
// per §4.2: a required component with unmet dependencies is still enabled
// (so its failure surfaces explicitly during execution) but flagged in
// DependencyIssues; an optional component with unmet dependencies is moved
// to disabled with a reason.
func FilterByDependencies(m Manifest, available map[string]bool) FilterResult {
	result := FilterResult{
		DisabledReason:   map[string]string{},
		DependencyIssues: map[string][]string{},
	}

	for _, c := range m.Components {
		missing := missingDeps(c.Dependencies, available)
		if len(missing) == 0 {
			result.Enabled = append(result.Enabled, c)
			continue
		}

		switch c.Type {
		case Optional:
			result.Disabled = append(result.Disabled, c)
			result.DisabledReason[c.Name] = "Missing dependencies: " + strings.Join(missing, ", ")
		default:
			result.Enabled = append(result.Enabled, c)
			result.DependencyIssues[c.Name] = missing
		}
	}

	return result
}

func missingDeps(deps []string, available map[string]bool) []string {
	var missing []string
	for _, d := range deps {
		if !available[d] {
			missing = append(missing, d)
		}
	}
	return missing
}

// ValidationError is a single diagnostic produced by Validate. Validation
// never aborts early: it accumulates every problem it finds.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

// Validate checks m against the invariants of §3.1/§4.2 and returns every
// diagnostic found; a nil/empty result means m is well-formed.
func Validate(m Manifest) []ValidationError {
	var errs []ValidationError

	if !version.Valid(m.SchemaVersion) {
		errs = append(errs, ValidationError{
			Field: "schema_version", Code: "INVALID_VERSION",
			Message: "schema_version is not a valid semver: " + m.SchemaVersion,
		})
	}

	seen := map[string]bool{}
	for i, c := range m.Components {
		field := "components[" + c.Name + "]"
		if c.Name == "" {
			field = "components[" + strconv.Itoa(i) + "]"
		}

		if seen[c.Name] {
			errs = append(errs, ValidationError{
				Field: field, Code: "DUPLICATE_NAME",
				Message: "duplicate component name: " + c.Name,
			})
		}
		seen[c.Name] = true

		if c.Type != Required && c.Type != Optional {
			errs = append(errs, ValidationError{
				Field: field + ".type", Code: "INVALID_FIELD_VALUE",
				Message: "component type must be 'required' or 'optional'",
			})
		}

		if isAbsoluteOrEscaping(c.Source) {
			errs = append(errs, ValidationError{
				Field: field + ".source", Code: "INVALID_FIELD_VALUE",
				Message: "source must be a relative, non-escaping path: " + c.Source,
			})
		}
		if isAbsoluteOrEscaping(c.Target) {
			errs = append(errs, ValidationError{
				Field: field + ".target", Code: "INVALID_FIELD_VALUE",
				Message: "target must be a relative, non-escaping path: " + c.Target,
			})
		}

		for _, d := range c.Dependencies {
			if !KnownDependencies[d] {
				errs = append(errs, ValidationError{
					Field: field + ".dependencies", Code: "INVALID_FIELD_VALUE",
					Message: "unknown dependency name: " + d,
				})
			}
		}
	}

	for i, d := range m.Directories {
		field := "directories[" + strconv.Itoa(i) + "]"
		if isAbsoluteOrEscaping(d.Path) {
			errs = append(errs, ValidationError{
				Field: field + ".path", Code: "INVALID_FIELD_VALUE",
				Message: "directory path must be relative and non-escaping: " + d.Path,
			})
		}
	}

	return errs
}

// isAbsoluteOrEscaping rejects absolute paths and any relative path whose
// normalized form climbs above the install root, per the §9 open question
// on manifest path validation.
func isAbsoluteOrEscaping(p string) bool {
	if p == "" {
		return true
	}
	if filepath.IsAbs(p) {
		return true
	}
	cleaned := filepath.Clean(p)
	return cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator))
}

