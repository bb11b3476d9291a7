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

package transaction_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/mock"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/transaction"
)

func TestTransactionSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Transaction test suite")
}

func newTestSystem() (*sys.System, func()) {
	tfs, cleanup, err := mock.TestFS(nil)
	Expect(err).NotTo(HaveOccurred())

	s, err := sys.NewSystem(
		sys.WithFS(tfs),
		sys.WithLogger(log.New(log.WithDiscardAll())),
		sys.WithClock(mock.NewClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))),
	)
	Expect(err).NotTo(HaveOccurred())
	return s, cleanup
}

var _ = Describe("Lock", Label("lock"), func() {
	var s *sys.System
	var cleanup func()
	const root = "/install"

	BeforeEach(func() {
		s, cleanup = newTestSystem()
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("acquires a lock when none exists and releases it cleanly", func() {
		Expect(transaction.AcquireLock(s, root)).To(Succeed())
		exists, err := vfs.Exists(s.FS(), root+"/"+transaction.LockRelPath, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())

		Expect(transaction.ReleaseLock(s, root)).To(Succeed())
		exists, err = vfs.Exists(s.FS(), root+"/"+transaction.LockRelPath, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("refuses to acquire a fresh lock held by another process", func() {
		Expect(transaction.AcquireLock(s, root)).To(Succeed())

		err := transaction.AcquireLock(s, root)
		Expect(err).To(HaveOccurred())
		Expect(apperrors.Code(err)).To(Equal(apperrors.CodeLockExists))
	})

	It("reclaims a stale lock past the stale-lock age", func() {
		Expect(transaction.AcquireLock(s, root)).To(Succeed())

		clock := s.Clock().(*mock.Clock)
		clock.Advance(transaction.StaleLockAge + time.Second)

		Expect(transaction.AcquireLock(s, root)).To(Succeed())
	})

	It("releasing an unlocked install is a no-op", func() {
		Expect(transaction.ReleaseLock(s, root)).To(Succeed())
	})
})

var _ = Describe("Snapshot", Label("snapshot"), func() {
	var s *sys.System
	var cleanup func()
	const root = "/install"

	BeforeEach(func() {
		s, cleanup = newTestSystem()
		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy/personas", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/personas/architect.md", []byte("# architect"), vfs.FilePerm)).To(Succeed())
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("captures existing canonical-directory files with content", func() {
		snap, err := transaction.CaptureSnapshot(s, root)
		Expect(err).NotTo(HaveOccurred())

		var found bool
		for _, f := range snap.Files {
			if f.Path == root+"/.claude-buddy/personas/architect.md" {
				found = true
				Expect(f.Exists).To(BeTrue())
				Expect(f.IsDirectory).To(BeFalse())
				Expect(string(f.Content)).To(Equal("# architect"))
			}
		}
		Expect(found).To(BeTrue())
	})

	It("tolerates missing canonical directories", func() {
		snap, err := transaction.CaptureSnapshot(s, "/empty-root")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Files).To(BeEmpty())
	})
})

var _ = Describe("Engine", Label("engine"), func() {
	var s *sys.System
	var cleanup func()
	const root = "/install"

	BeforeEach(func() {
		s, cleanup = newTestSystem()
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	It("plans and executes a create action, then commits", func() {
		eng, err := transaction.New(s, root, transaction.OpInstall, "", "1.0.0")
		Expect(err).NotTo(HaveOccurred())

		action := eng.PlanAction(transaction.ActionCreate, ".claude-buddy/personas/architect.md", "personas",
			"new component", []byte("# architect"), "0644")

		executed, err := eng.ExecuteAction(action)
		Expect(err).NotTo(HaveOccurred())
		Expect(executed.Result.Success).To(BeTrue())

		content, err := s.FS().ReadFile(root + "/.claude-buddy/personas/architect.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("# architect"))

		Expect(eng.Commit()).To(Succeed())
		Expect(eng.Transaction().Status).To(Equal(transaction.StatusCompleted))

		exists, err := vfs.Exists(s.FS(), root+"/"+transaction.LockRelPath, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("skips creating a file that already exists", func() {
		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/existing.md", []byte("old"), vfs.FilePerm)).To(Succeed())

		eng, err := transaction.New(s, root, transaction.OpInstall, "", "1.0.0")
		Expect(err).NotTo(HaveOccurred())

		action := eng.PlanAction(transaction.ActionCreate, ".claude-buddy/existing.md", "foundation", "", []byte("new"), "")
		executed, err := eng.ExecuteAction(action)
		Expect(err).NotTo(HaveOccurred())
		Expect(executed.Result.Skipped).To(BeTrue())

		content, err := s.FS().ReadFile(root + "/.claude-buddy/existing.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("old"))
	})

	It("rolls back a create action by removing the created file", func() {
		eng, err := transaction.New(s, root, transaction.OpInstall, "", "1.0.0")
		Expect(err).NotTo(HaveOccurred())

		action := eng.PlanAction(transaction.ActionCreate, ".claude-buddy/personas/architect.md", "personas", "", []byte("# architect"), "")
		_, err = eng.ExecuteAction(action)
		Expect(err).NotTo(HaveOccurred())

		Expect(eng.Rollback(apperrors.New(apperrors.KindTransaction, apperrors.CodeActionFailed, "simulated failure"))).To(Succeed())
		Expect(eng.Transaction().Status).To(Equal(transaction.StatusRolledBack))

		exists, err := vfs.Exists(s.FS(), root+"/.claude-buddy/personas/architect.md", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())

		lockExists, err := vfs.Exists(s.FS(), root+"/"+transaction.LockRelPath, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(lockExists).To(BeFalse())
	})

	It("rolls back an update action by restoring previous content", func() {
		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/config.json", []byte(`{"v":1}`), vfs.FilePerm)).To(Succeed())

		eng, err := transaction.New(s, root, transaction.OpUpdate, "1.0.0", "1.1.0")
		Expect(err).NotTo(HaveOccurred())

		action := eng.PlanAction(transaction.ActionUpdate, ".claude-buddy/config.json", "foundation", "", []byte(`{"v":2}`), "")
		_, err = eng.ExecuteAction(action)
		Expect(err).NotTo(HaveOccurred())

		Expect(eng.Rollback(nil)).To(Succeed())

		content, err := s.FS().ReadFile(root + "/.claude-buddy/config.json")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal(`{"v":1}`))
	})

	It("restores a deleted file on rollback", func() {
		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/obsolete.md", []byte("keep me"), vfs.FilePerm)).To(Succeed())

		eng, err := transaction.New(s, root, transaction.OpUninstall, "1.0.0", "")
		Expect(err).NotTo(HaveOccurred())

		action := eng.PlanAction(transaction.ActionDelete, ".claude-buddy/obsolete.md", "", "tracked file removal", nil, "")
		executed, err := eng.ExecuteAction(action)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(executed.PreviousContent)).To(Equal("keep me"))

		exists, err := vfs.Exists(s.FS(), root+"/.claude-buddy/obsolete.md", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())

		Expect(eng.Rollback(nil)).To(Succeed())

		content, err := s.FS().ReadFile(root + "/.claude-buddy/obsolete.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("keep me"))
	})

	It("copies a file into the transaction's backup tree on a backup action", func() {
		Expect(vfs.MkdirAll(s.FS(), root+"/.claude-buddy", vfs.DirPerm)).To(Succeed())
		Expect(s.FS().WriteFile(root+"/.claude-buddy/config.json", []byte(`{"v":1}`), vfs.FilePerm)).To(Succeed())

		eng, err := transaction.New(s, root, transaction.OpUpdate, "1.0.0", "1.1.0")
		Expect(err).NotTo(HaveOccurred())

		action := eng.PlanAction(transaction.ActionBackup, ".claude-buddy/config.json", "", "pre-update copy", nil, "")
		_, err = eng.ExecuteAction(action)
		Expect(err).NotTo(HaveOccurred())

		backupPath := root + "/.claude-buddy/backups/" + eng.Transaction().TransactionID + "/.claude-buddy/config.json"
		content, err := s.FS().ReadFile(backupPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal(`{"v":1}`))
	})

	It("detects an interrupted transaction left in_progress by a prior process", func() {
		eng, err := transaction.New(s, root, transaction.OpInstall, "", "1.0.0")
		Expect(err).NotTo(HaveOccurred())
		_ = eng

		interrupted, err := transaction.DetectInterrupted(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(interrupted).NotTo(BeNil())
	})

	It("reports no interrupted transaction once committed", func() {
		eng, err := transaction.New(s, root, transaction.OpInstall, "", "1.0.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(eng.Commit()).To(Succeed())

		interrupted, err := transaction.DetectInterrupted(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(interrupted).To(BeNil())
	})
})
