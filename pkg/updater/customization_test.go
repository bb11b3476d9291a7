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

package updater_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/mock"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/updater"
)

var _ = Describe("Customization detection", Label("customization"), func() {
	var s *sys.System
	var meta *metadata.InstallationMetadata
	var cleanup func()
	const root = "/install"

	files := func(customizations []metadata.UserCustomization) []string {
		var out []string
		for _, c := range customizations {
			out = append(out, c.File)
		}
		return out
	}

	BeforeEach(func() {
		tfs, c, err := mock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		cleanup = c

		s, err = sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())

		// An install date well in the past, so files written by this suite
		// always have a later mtime.
		meta = metadata.New("1.0.0", "project", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy/personas", vfs.DirPerm)).To(Succeed())
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("keeps explicitly declared customizations", func() {
		meta.UserCustomizations = []metadata.UserCustomization{
			{File: "directive/foundation.md", PreserveOnUpdate: true},
		}

		detected := updater.DetectCustomizations(s, root, meta, false)
		Expect(files(detected)).To(ContainElement("directive/foundation.md"))
	})

	It("detects custom-named persona files newer than the install date", func() {
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/custom-reviewer.md", []byte("mine"), vfs.FilePerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/architect.md", []byte("shipped"), vfs.FilePerm)).To(Succeed())

		detected := updater.DetectCustomizations(s, root, meta, false)
		Expect(files(detected)).To(ContainElement(".claude-buddy/personas/custom-reviewer.md"))
		Expect(files(detected)).NotTo(ContainElement(".claude-buddy/personas/architect.md"))
	})

	It("detects a framework config modified after install", func() {
		Expect(s.FS().WriteFile(root+"/.claude-buddy/buddy-config.json", []byte(`{"timeout":60}`), vfs.FilePerm)).To(Succeed())

		detected := updater.DetectCustomizations(s, root, meta, false)
		Expect(files(detected)).To(ContainElement(".claude-buddy/buddy-config.json"))
	})

	It("ignores framework configs in migration mode but keeps user personas", func() {
		Expect(s.FS().WriteFile(root+"/.claude-buddy/buddy-config.json", []byte(`{"timeout":60}`), vfs.FilePerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/custom-reviewer.md", []byte("mine"), vfs.FilePerm)).To(Succeed())

		detected := updater.DetectCustomizations(s, root, meta, true)
		Expect(files(detected)).NotTo(ContainElement(".claude-buddy/buddy-config.json"))
		Expect(files(detected)).To(ContainElement(".claude-buddy/personas/custom-reviewer.md"))
	})

	It("deduplicates declared and detected entries", func() {
		meta.UserCustomizations = []metadata.UserCustomization{
			{File: ".claude-buddy/personas/custom-reviewer.md", PreserveOnUpdate: true},
		}
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/custom-reviewer.md", []byte("mine"), vfs.FilePerm)).To(Succeed())

		detected := updater.DetectCustomizations(s, root, meta, false)
		count := 0
		for _, f := range files(detected) {
			if f == ".claude-buddy/personas/custom-reviewer.md" {
				count++
			}
		}
		Expect(count).To(Equal(1))
	})
})

var _ = Describe("ShouldUpdateFile", Label("customization"), func() {
	It("refuses to update a preserved path and allows everything else", func() {
		customizations := []metadata.UserCustomization{
			{File: "directive/foundation.md", PreserveOnUpdate: true},
			{File: "directive/notes.md", PreserveOnUpdate: false},
		}

		Expect(updater.ShouldUpdateFile("directive/foundation.md", customizations)).To(BeFalse())
		Expect(updater.ShouldUpdateFile("directive/notes.md", customizations)).To(BeTrue())
		Expect(updater.ShouldUpdateFile("directive/other.md", customizations)).To(BeTrue())
	})
})
