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

// Package transaction is the heart of the installer: locking, planning,
// snapshotting, executing actions, checkpointing, committing and LIFO
// rollback, plus crash recovery across process restarts. Every mutation
// any operation module makes to a target directory flows through here.
package transaction

import "time"

type Operation string

const (
	OpInstall   Operation = "install"
	OpUpdate    Operation = "update"
	OpUninstall Operation = "uninstall"
	OpRepair    Operation = "repair"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

type ActionType string

const (
	ActionCreate          ActionType = "create"
	ActionCreateDirectory ActionType = "create_directory"
	ActionUpdate          ActionType = "update"
	ActionDelete          ActionType = "delete"
	ActionSkip            ActionType = "skip"
	ActionBackup          ActionType = "backup"
)

type CheckpointPhase string

const (
	PhasePreInstall          CheckpointPhase = "pre-install"
	PhaseDependenciesChecked CheckpointPhase = "dependencies-checked"
	PhaseDirectoriesCreated  CheckpointPhase = "directories-created"
	PhaseFilesCopied         CheckpointPhase = "files-copied"
	PhasePostInstall         CheckpointPhase = "post-install"
)

// FileSnapshot is a best-effort capture of a single path's on-disk state.
type FileSnapshot struct {
	Path         string
	Exists       bool
	IsDirectory  bool
	Content      []byte // only for text files < 100 KB
	Size         int64
	Permissions  string
	LastModified time.Time
}

// Snapshot is a point-in-time capture of a set of paths, used as a
// rollback point or as a checkpoint's attached state.
type Snapshot struct {
	Files     []FileSnapshot
	Metadata  []byte // verbatim metadata file content, if present
	Timestamp time.Time
}

// Checkpoint is a named point in a transaction with an associated snapshot.
type Checkpoint struct {
	Phase     CheckpointPhase
	Snapshot  Snapshot
	Timestamp time.Time
}

// PlannedAction is an idempotent descriptor of an intended filesystem
// mutation. Planning never touches the filesystem.
type PlannedAction struct {
	ActionID          string
	Type              ActionType
	Path              string
	Component         string
	Reason            string
	Status            string
	SourceContent     []byte
	TargetPermissions string
}

// ActionResult records the outcome of executing a single action.
type ActionResult struct {
	Success bool
	Message string
	Warning string
	Skipped bool
}

// ExecutedAction is a PlannedAction plus its execution record.
type ExecutedAction struct {
	PlannedAction
	ExecutionTime   time.Time
	DurationMS      int64
	PreviousContent []byte
	Result          ActionResult
}

// Transaction is the transient unit of atomicity around a whole
// install/update/uninstall/repair. It is owned exclusively by the engine
// during execution and destroyed on commit.
type Transaction struct {
	TransactionID   string
	Operation       Operation
	Status          Status
	StartTime       time.Time
	EndTime         *time.Time
	FromVersion     string
	ToVersion       string
	Checkpoints     []Checkpoint
	PlannedActions  []PlannedAction
	ExecutedActions []ExecutedAction
	Errors          []string
	RollbackPoint   *Snapshot

	installRoot string
}

// MigrationError records a non-fatal failure applying a version migration
// step; migrations never halt the operation (§4.5.3).
type MigrationError struct {
	From    string
	To      string
	Message string
}

// VerificationIssue is a discrepancy found during the Installer's post-plan
// verification pass (§4.4 step 7). Severity "error" triggers rollback;
// "warning" is reported and commit proceeds.
type VerificationIssue struct {
	Path     string
	Severity string
	Message  string
}
