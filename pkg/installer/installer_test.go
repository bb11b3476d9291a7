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

package installer_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/installer"
	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/operation"
	"github.com/projectbuddy/installer-core/pkg/platform"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/mock"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/transaction"
)

func TestInstallerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Installer test suite")
}

type stubAssets struct{}

func (stubAssets) ListFiles(c manifest.Component) ([]installer.AssetFile, error) {
	return []installer.AssetFile{
		{RelPath: "example.md", Content: []byte("# " + c.DisplayName), Mode: 0644},
	}, nil
}

func (stubAssets) ConfigTemplate() (map[string]interface{}, error) {
	return map[string]interface{}{"theme": "default"}, nil
}

func allDepsRunner() *mock.Runner {
	return &mock.Runner{Outputs: map[string]string{
		"node":    "v18.17.0\n",
		"uv":      "uv 0.1.44\n",
		"python3": "Python 3.11.4\n",
		"git":     "git version 2.40.1\n",
	}}
}

var _ = Describe("Install", Label("installer"), func() {
	var s *sys.System
	var runner *mock.Runner
	var cleanup func()
	const root = "/install"

	newSystem := func(r *mock.Runner) *sys.System {
		tfs, c, err := mock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		cleanup = c

		p, err := platform.NewPlatform("linux", "amd64")
		Expect(err).NotTo(HaveOccurred())

		s, err := sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
			sys.WithRunner(r),
			sys.WithClock(mock.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))),
			sys.WithPlatform(p),
		)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		runner = allDepsRunner()
		s = newSystem(runner)
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("installs all required components and writes metadata", func() {
		in := installer.Install{System: s, Assets: stubAssets{}, Manifest: manifest.Default(), Version: "1.0.0"}
		result, err := in.Run(context.Background(), operation.Options{TargetDir: root})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.FilesChanged).NotTo(BeEmpty())

		content, err := s.FS().ReadFile(root + "/directive/example.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("Foundation"))

		_, err = s.FS().Stat(root + "/.claude-buddy/install-metadata.json")
		Expect(err).NotTo(HaveOccurred())
	})

	It("re-verifies a completed install cleanly", func() {
		in := installer.Install{System: s, Assets: stubAssets{}, Manifest: manifest.Default(), Version: "1.0.0"}
		_, err := in.Run(context.Background(), operation.Options{TargetDir: root})
		Expect(err).NotTo(HaveOccurred())

		issues, err := in.Verify(context.Background(), root)
		Expect(err).NotTo(HaveOccurred())
		Expect(issues).To(BeEmpty())
	})

	It("disables the hooks component with a warning when uv is unavailable", func() {
		cleanup()
		delete(runner.Outputs, "uv")
		s = newSystem(runner)

		in := installer.Install{System: s, Assets: stubAssets{}, Manifest: manifest.Default(), Version: "1.0.0"}
		result, err := in.Run(context.Background(), operation.Options{TargetDir: root})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.Warnings).To(HaveLen(1))
		Expect(result.Warnings[0]).To(ContainSubstring("uv"))

		meta, err := metadata.Load(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.InstalledComponents["hooks"].Enabled).To(BeFalse())
		Expect(meta.InstalledComponents["hooks"].Reason).To(ContainSubstring("Missing dependencies"))
		Expect(meta.Dependencies["uv"].Available).To(BeFalse())

		exists, err := vfs.Exists(s.FS(), root+"/.claude/hooks/example.md", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("fails before any mutation when node is missing", func() {
		cleanup()
		delete(runner.Outputs, "node")
		s = newSystem(runner)

		in := installer.Install{System: s, Assets: stubAssets{}, Manifest: manifest.Default(), Version: "1.0.0"}
		result, err := in.Run(context.Background(), operation.Options{TargetDir: root})
		Expect(err).To(HaveOccurred())
		Expect(result.Success).To(BeFalse())
		Expect(apperrors.Code(err)).To(Equal(apperrors.CodeDependencyMissing))

		exists, err := vfs.Exists(s.FS(), root+"/directive", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("fails when node is older than the required floor", func() {
		cleanup()
		runner.Outputs["node"] = "v16.20.0\n"
		s = newSystem(runner)

		in := installer.Install{System: s, Assets: stubAssets{}, Manifest: manifest.Default(), Version: "1.0.0"}
		_, err := in.Run(context.Background(), operation.Options{TargetDir: root})
		Expect(err).To(HaveOccurred())
		Expect(apperrors.Code(err)).To(Equal(apperrors.CodeDependencyVersion))
	})

	It("plans without writing anything in dry-run mode", func() {
		in := installer.Install{System: s, Assets: stubAssets{}, Manifest: manifest.Default(), Version: "1.0.0"}
		result, err := in.Run(context.Background(), operation.Options{TargetDir: root, DryRun: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.FilesChanged).NotTo(BeEmpty())
		Expect(result.BackupPath).To(BeEmpty())

		for _, rel := range []string{"/.claude-buddy", "/directive", "/" + transaction.LockRelPath} {
			exists, err := vfs.Exists(s.FS(), root+rel, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse(), rel)
		}
	})
})
