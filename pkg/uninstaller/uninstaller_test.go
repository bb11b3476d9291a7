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

package uninstaller_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/platform"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/mock"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/uninstaller"
)

func TestUninstallerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Uninstaller test suite")
}

var _ = Describe("Uninstall", Label("uninstaller"), func() {
	var s *sys.System
	var cleanup func()
	const root = "/install"

	BeforeEach(func() {
		tfs, c, err := mock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		cleanup = c

		p, err := platform.NewPlatform("linux", "amd64")
		Expect(err).NotTo(HaveOccurred())

		s, err = sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
			sys.WithClock(mock.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))),
			sys.WithPlatform(p),
		)
		Expect(err).NotTo(HaveOccurred())

		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy/personas", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/architect.md", []byte("shipped"), vfs.FilePerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/custom-reviewer.md", []byte("mine"), vfs.FilePerm)).To(Succeed())

		meta := metadata.New("1.0.0", "project", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		Expect(metadata.Save(s, root, meta)).To(Succeed())
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("removes shipped files and preserves custom-named personas", func() {
		un := uninstaller.Uninstall{System: s}
		result, err := un.Run(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.Removed).To(ContainElement(".claude-buddy/personas/architect.md"))
		Expect(result.Preserved).To(ContainElement(".claude-buddy/personas/custom-reviewer.md"))
		Expect(result.BackupPath).NotTo(BeEmpty())

		content, err := s.FS().ReadFile(result.BackupPath + "/.claude-buddy/personas/custom-reviewer.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("mine"))
	})

	It("removes everything in purge mode", func() {
		un := uninstaller.Uninstall{System: s, Purge: true}
		result, err := un.Run(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Preserved).To(BeEmpty())
		Expect(result.Removed).To(ContainElement(".claude-buddy/personas/custom-reviewer.md"))
	})
})
