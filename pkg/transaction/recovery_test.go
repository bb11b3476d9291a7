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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
	"github.com/projectbuddy/installer-core/pkg/transaction"
)

var _ = Describe("Crash recovery", Label("recovery"), func() {
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

	// Simulates a process killed mid-install: actions executed, log left
	// in_progress, lock still on disk.
	interrupt := func() *transaction.TransactionLog {
		eng, err := transaction.New(s, root, transaction.OpInstall, "", "1.0.0")
		Expect(err).NotTo(HaveOccurred())

		for _, name := range []string{"one.md", "two.md"} {
			action := eng.PlanAction(transaction.ActionCreate, ".claude-buddy/"+name, "personas", "", []byte(name), "")
			_, err = eng.ExecuteAction(action)
			Expect(err).NotTo(HaveOccurred())
		}

		// The engine keeps the persisted log current after every executed
		// action, so abandoning it here leaves exactly the state a killed
		// process would.
		lt, err := transaction.DetectInterrupted(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(lt).NotTo(BeNil())
		return lt
	}

	It("rolls an interrupted transaction back from its persisted log", func() {
		meta := metadata.New("1.0.0", "project", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		Expect(metadata.Save(s, root, meta)).To(Succeed())

		lt := interrupt()
		Expect(transaction.RollbackInterrupted(s, root, lt)).To(Succeed())

		for _, name := range []string{"one.md", "two.md"} {
			exists, err := vfs.Exists(s.FS(), root+"/.claude-buddy/"+name, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse(), name)
		}

		again, err := transaction.DetectInterrupted(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeNil())

		m, err := metadata.Load(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.TransactionHistory).NotTo(BeEmpty())
		Expect(m.TransactionHistory[len(m.TransactionHistory)-1].Status).To(Equal(string(transaction.StatusRolledBack)))

		lockExists, err := vfs.Exists(s.FS(), root+"/"+transaction.LockRelPath, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(lockExists).To(BeFalse())
	})

	It("dismisses an interrupted transaction without touching its files", func() {
		lt := interrupt()
		Expect(transaction.DismissInterrupted(s, root, lt)).To(Succeed())

		exists, err := vfs.Exists(s.FS(), root+"/.claude-buddy/one.md", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())

		again, err := transaction.DetectInterrupted(s, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeNil())
	})
})
