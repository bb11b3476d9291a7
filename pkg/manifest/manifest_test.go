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

package manifest_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/platform"
)

func TestManifestSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Manifest test suite")
}

var _ = Describe("Manifest", Label("manifest"), func() {
	Describe("BuildForPlatform", func() {
		It("does not mutate the source declaration", func() {
			base := manifest.Default()
			before := len(base.Components)

			target := "custom-hooks"
			base.PlatformOverrides.ComponentOverrides = map[platform.Family]map[string]manifest.ComponentOverride{
				platform.Windows: {"hooks": {Target: &target}},
			}

			result := manifest.BuildForPlatform(base, platform.Windows)
			Expect(len(base.Components)).To(Equal(before))

			var resolved manifest.Component
			for _, c := range result.Components {
				if c.Name == "hooks" {
					resolved = c
				}
			}
			Expect(resolved.Target).To(Equal("custom-hooks"))
		})
	})

	Describe("FilterByDependencies", func() {
		It("disables an optional component with missing dependencies", func() {
			m := manifest.Default()
			available := map[string]bool{"node": true, "git": true}

			result := manifest.FilterByDependencies(m, available)

			Expect(result.DisabledReason["hooks"]).To(Equal("Missing dependencies: uv, python"))
			for _, c := range result.Disabled {
				Expect(c.Name).NotTo(Equal("foundation"))
			}
		})

		It("keeps a required component enabled but flags dependency issues", func() {
			m := manifest.Manifest{
				Components: []manifest.Component{
					{Name: "core", Type: manifest.Required, Dependencies: []string{"node"}},
				},
			}
			result := manifest.FilterByDependencies(m, map[string]bool{})

			Expect(result.Enabled).To(HaveLen(1))
			Expect(result.DependencyIssues["core"]).To(ConsistOf("node"))
		})
	})

	Describe("Validate", func() {
		It("accumulates every diagnostic instead of stopping at the first", func() {
			m := manifest.Manifest{
				SchemaVersion: "not-a-version",
				Components: []manifest.Component{
					{Name: "a", Type: "bogus", Source: "../escape", Target: "ok"},
					{Name: "a", Type: manifest.Required, Source: "ok", Target: "ok"},
				},
			}

			errs := manifest.Validate(m)
			Expect(len(errs)).To(BeNumerically(">=", 4))
		})

		It("accepts the default manifest", func() {
			Expect(manifest.Validate(manifest.Default())).To(BeEmpty())
		})
	})
})
