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

package version_test

import (
	"testing"

	"github.com/projectbuddy/installer-core/pkg/version"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.1.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0.10", "1.0.9", 1},
		{"1.0", "1.0.0", 0},
	}
	for _, c := range cases {
		got, err := version.Compare(c.a, c.b)
		if err != nil {
			t.Fatalf("Compare(%q, %q): %v", c.a, c.b, err)
		}
		if sign(got) != c.want {
			t.Errorf("Compare(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestCompareInvalid(t *testing.T) {
	if _, err := version.Compare("not-a-version", "1.0.0"); err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestIsDowngrade(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"1.1.0", "1.0.0", true},
		{"1.0.0", "1.1.0", false},
		{"1.0.0", "1.0.0", false},
	}
	for _, c := range cases {
		got, err := version.IsDowngrade(c.from, c.to)
		if err != nil {
			t.Fatalf("IsDowngrade(%q, %q): %v", c.from, c.to, err)
		}
		if got != c.want {
			t.Errorf("IsDowngrade(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestSatisfiesMin(t *testing.T) {
	cases := []struct {
		observed, min string
		want          bool
	}{
		{"18.17.0", "18.0.0", true},
		{"18.0.0", "18.0.0", true},
		{"16.20.0", "18.0.0", false},
	}
	for _, c := range cases {
		got, err := version.SatisfiesMin(c.observed, c.min)
		if err != nil {
			t.Fatalf("SatisfiesMin(%q, %q): %v", c.observed, c.min, err)
		}
		if got != c.want {
			t.Errorf("SatisfiesMin(%q, %q) = %v, want %v", c.observed, c.min, got, c.want)
		}
	}
}

func TestValid(t *testing.T) {
	if !version.Valid("1.0.0") {
		t.Error("1.0.0 should be valid")
	}
	if version.Valid("one.two") {
		t.Error("one.two should be invalid")
	}
}
