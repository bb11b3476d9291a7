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

package archive_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/archive"
	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/mock"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

func TestArchiveSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Archive test suite")
}

var _ = Describe("Backup tarballs", Label("archive"), func() {
	var s *sys.System
	var cleanup func()
	const root = "/project"

	BeforeEach(func() {
		tfs, c, err := mock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		cleanup = c

		s, err = sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())

		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy/personas", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/architect.md", []byte("# architect"), vfs.FilePerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/buddy-config.json", []byte(`{"timeout":60}`), vfs.FilePerm)).To(Succeed())
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("round-trips a backup through create and extract", func() {
		tarball := root + "/backups/backup.tar.gz"
		err := archive.CreateTarGz(context.Background(), s, root, []string{root + "/.claude-buddy"}, tarball)
		Expect(err).NotTo(HaveOccurred())

		restore := "/restore"
		Expect(archive.ExtractTarball(context.Background(), s, tarball, restore)).To(Succeed())

		content, err := s.FS().ReadFile(restore + "/.claude-buddy/personas/architect.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("# architect"))

		content, err = s.FS().ReadFile(restore + "/.claude-buddy/buddy-config.json")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal(`{"timeout":60}`))
	})

	It("skips missing source directories instead of failing", func() {
		tarball := root + "/backups/backup.tar.gz"
		err := archive.CreateTarGz(context.Background(), s, root,
			[]string{root + "/.claude-buddy", root + "/no-such-dir"}, tarball)
		Expect(err).NotTo(HaveOccurred())

		exists, err := vfs.Exists(s.FS(), tarball, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("stops extraction when the context is cancelled", func() {
		tarball := root + "/backups/backup.tar.gz"
		Expect(archive.CreateTarGz(context.Background(), s, root, []string{root + "/.claude-buddy"}, tarball)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(archive.ExtractTarball(ctx, s, tarball, "/restore")).NotTo(Succeed())
	})
})
