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

// Package version wraps Masterminds/semver for the two version-compare
// flavours the spec distinguishes: a strict X.Y.Z compare used by the
// updater, and a lenient compare (missing segments treated as zero) used by
// the environment probe when judging dependency versions.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Compare is a total order over semantic versions: negative if a < b, zero
// if equal, positive if a > b.
func Compare(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", a, err)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", b, err)
	}
	return va.Compare(vb), nil
}

// IsDowngrade reports whether to is older than from.
func IsDowngrade(from, to string) (bool, error) {
	c, err := Compare(to, from)
	if err != nil {
		return false, err
	}
	return c < 0, nil
}

// SatisfiesMin reports whether observed is greater than or equal to min,
// tolerating a loosely-formed observed string (e.g. a dependency probe's
// raw version output) by coercing it first.
func SatisfiesMin(observed, min string) (bool, error) {
	ov, err := semver.NewVersion(observed)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", observed, err)
	}
	constraint, err := semver.NewConstraint(">= " + min)
	if err != nil {
		return false, fmt.Errorf("invalid constraint %q: %w", min, err)
	}
	return constraint.Check(ov), nil
}

// Valid reports whether s parses as a semantic version.
func Valid(s string) bool {
	_, err := semver.NewVersion(s)
	return err == nil
}
