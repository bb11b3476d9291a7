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

package transaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// LogsRelPath is the transaction audit-log directory relative to the
// install root.
const LogsRelPath = ".claude-buddy/logs"

// Engine drives a single transaction's lifecycle: creation, planning,
// execution, checkpointing, commit and rollback. One Engine owns exactly
// one Transaction at a time.
type Engine struct {
	sys *sys.System
	tx  *Transaction
}

// New acquires the install lock, creates a new transaction with a fresh
// UUIDv4 id, captures the pre-install snapshot as both RollbackPoint and
// the pre-install checkpoint, and returns an Engine ready for planning.
func New(s *sys.System, installRoot string, op Operation, fromVersion, toVersion string) (*Engine, error) {
	if err := AcquireLock(s, installRoot); err != nil {
		return nil, err
	}

	snap, err := CaptureSnapshot(s, installRoot)
	if err != nil {
		_ = ReleaseLock(s, installRoot)
		return nil, apperrors.Wrap(err, apperrors.KindTransaction, apperrors.CodeCheckpointInvalid, "capturing pre-install snapshot")
	}

	tx := &Transaction{
		TransactionID: uuid.NewString(),
		Operation:     op,
		Status:        StatusPending,
		StartTime:     s.Clock().Now(),
		FromVersion:   fromVersion,
		ToVersion:     toVersion,
		RollbackPoint: &snap,
		installRoot:   installRoot,
	}
	tx.Checkpoints = append(tx.Checkpoints, Checkpoint{Phase: PhasePreInstall, Snapshot: snap, Timestamp: s.Clock().Now()})
	tx.Status = StatusInProgress

	if err := writeLog(s, installRoot, tx); err != nil {
		s.Logger().Warn("failed writing initial transaction log: %s", err)
	}

	return &Engine{sys: s, tx: tx}, nil
}

// Transaction returns the transaction this engine owns.
func (e *Engine) Transaction() *Transaction {
	return e.tx
}

// PlanAction appends a PlannedAction descriptor. Planning never touches
// the filesystem.
func (e *Engine) PlanAction(actionType ActionType, path, component, reason string, sourceContent []byte, targetPermissions string) PlannedAction {
	action := PlannedAction{
		ActionID:          uuid.NewString(),
		Type:              actionType,
		Path:              path,
		Component:         component,
		Reason:            reason,
		Status:            "planned",
		SourceContent:     sourceContent,
		TargetPermissions: targetPermissions,
	}
	e.tx.PlannedActions = append(e.tx.PlannedActions, action)
	return action
}

// Checkpoint appends a named checkpoint with a fresh snapshot capture.
func (e *Engine) Checkpoint(phase CheckpointPhase) error {
	snap, err := CaptureSnapshot(e.sys, e.tx.installRoot)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindTransaction, apperrors.CodeCheckpointInvalid, "capturing checkpoint snapshot")
	}
	e.tx.Checkpoints = append(e.tx.Checkpoints, Checkpoint{Phase: phase, Snapshot: snap, Timestamp: e.sys.Clock().Now()})
	return nil
}

// ExecuteAction performs a single planned action against the filesystem
// and records the outcome. It never propagates the raw I/O error: on
// failure it returns a structured apperrors.Error the caller turns into a
// rollback trigger for required work.
func (e *Engine) ExecuteAction(action PlannedAction) (ExecutedAction, error) {
	start := e.sys.Clock().Now()
	absPath := filepath.Join(e.tx.installRoot, action.Path)

	executed := ExecutedAction{PlannedAction: action, ExecutionTime: start}

	var result ActionResult
	var prevContent []byte
	var execErr error

	switch action.Type {
	case ActionCreateDirectory:
		result, execErr = e.execCreateDirectory(absPath, action)
	case ActionCreate:
		result, execErr = e.execCreate(absPath, action)
	case ActionUpdate:
		result, prevContent, execErr = e.execUpdate(absPath, action)
	case ActionDelete:
		result, prevContent, execErr = e.execDelete(absPath, action)
	case ActionSkip:
		result = ActionResult{Success: true, Skipped: true, Message: action.Reason}
	case ActionBackup:
		result, execErr = e.execBackup(absPath, action)
	default:
		execErr = fmt.Errorf("unknown action type: %s", action.Type)
	}

	executed.DurationMS = e.sys.Clock().Now().Sub(start).Milliseconds()
	executed.PreviousContent = prevContent

	if execErr != nil {
		result = ActionResult{Success: false, Message: execErr.Error()}
		e.tx.Errors = append(e.tx.Errors, execErr.Error())
	}
	executed.Result = result
	executed.PlannedAction.Status = "executed"

	e.tx.ExecutedActions = append(e.tx.ExecutedActions, executed)

	// Keep the persisted log current so a crash mid-operation leaves an
	// accurate record for DetectInterrupted/RollbackInterrupted.
	if err := writeLog(e.sys, e.tx.installRoot, e.tx); err != nil {
		e.sys.Logger().Warn("failed updating transaction log: %s", err)
	}

	if execErr != nil {
		return executed, apperrors.Wrap(execErr, apperrors.KindTransaction, apperrors.CodeActionFailed,
			fmt.Sprintf("action %s on %s failed", action.Type, action.Path))
	}
	return executed, nil
}

func (e *Engine) execCreateDirectory(absPath string, action PlannedAction) (ActionResult, error) {
	ok, err := vfs.Exists(e.sys.FS(), absPath, true)
	if err != nil {
		return ActionResult{}, err
	}
	if ok {
		return ActionResult{Success: true, Skipped: true}, nil
	}
	perm := permFromString(action.TargetPermissions, vfs.DirPerm)
	if err := vfs.MkdirAll(e.sys.FS(), absPath, perm); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Success: true}, nil
}

func (e *Engine) execCreate(absPath string, action PlannedAction) (ActionResult, error) {
	ok, err := vfs.Exists(e.sys.FS(), absPath, true)
	if err != nil {
		return ActionResult{}, err
	}
	if ok {
		return ActionResult{Success: true, Skipped: true}, nil
	}
	if err := vfs.MkdirAll(e.sys.FS(), filepath.Dir(absPath), vfs.DirPerm); err != nil {
		return ActionResult{}, err
	}
	perm := permFromString(action.TargetPermissions, vfs.FilePerm)
	if err := e.sys.FS().WriteFile(absPath, action.SourceContent, perm); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Success: true}, nil
}

func (e *Engine) execUpdate(absPath string, action PlannedAction) (ActionResult, []byte, error) {
	ok, err := vfs.Exists(e.sys.FS(), absPath, true)
	if err != nil {
		return ActionResult{}, nil, err
	}
	if !ok {
		// Degrade to create, per §4.3.3.
		res, err := e.execCreate(absPath, action)
		return res, nil, err
	}

	prev, err := e.sys.FS().ReadFile(absPath)
	if err != nil {
		return ActionResult{}, nil, err
	}

	perm := permFromString(action.TargetPermissions, vfs.FilePerm)
	if err := e.sys.FS().WriteFile(absPath, action.SourceContent, perm); err != nil {
		return ActionResult{}, prev, err
	}
	return ActionResult{Success: true}, prev, nil
}

func (e *Engine) execDelete(absPath string, action PlannedAction) (ActionResult, []byte, error) {
	ok, err := vfs.Exists(e.sys.FS(), absPath, true)
	if err != nil {
		return ActionResult{}, nil, err
	}
	if !ok {
		return ActionResult{Success: true, Skipped: true}, nil, nil
	}

	isDir, err := vfs.IsDir(e.sys.FS(), absPath, true)
	if err != nil {
		return ActionResult{}, nil, err
	}

	var prev []byte
	if !isDir {
		prev, _ = e.sys.FS().ReadFile(absPath)
		err = e.sys.FS().Remove(absPath)
	} else {
		err = e.sys.FS().RemoveAll(absPath)
	}
	if err != nil {
		return ActionResult{}, prev, err
	}
	return ActionResult{Success: true}, prev, nil
}

func (e *Engine) execBackup(absPath string, action PlannedAction) (ActionResult, error) {
	ok, err := vfs.Exists(e.sys.FS(), absPath, true)
	if err != nil {
		return ActionResult{}, err
	}
	if !ok {
		return ActionResult{Success: true, Skipped: true}, nil
	}

	backupPath := filepath.Join(e.tx.installRoot, ".claude-buddy", "backups", e.tx.TransactionID, action.Path)
	if err := vfs.MkdirAll(e.sys.FS(), filepath.Dir(backupPath), vfs.DirPerm); err != nil {
		return ActionResult{}, err
	}
	if err := vfs.CopyFile(e.sys.FS(), absPath, backupPath); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Success: true}, nil
}

func permFromString(s string, fallback os.FileMode) os.FileMode {
	if s == "" {
		return fallback
	}
	var mode uint32
	if _, err := fmt.Sscanf(s, "%o", &mode); err != nil {
		return fallback
	}
	return os.FileMode(mode)
}

// Commit transitions the transaction to completed, captures the
// post-install checkpoint, writes the final audit log and releases the
// lock.
func (e *Engine) Commit() error {
	if err := e.Checkpoint(PhasePostInstall); err != nil {
		return err
	}

	now := e.sys.Clock().Now()
	e.tx.Status = StatusCompleted
	e.tx.EndTime = &now

	if err := writeLog(e.sys, e.tx.installRoot, e.tx); err != nil {
		return apperrors.Wrap(err, apperrors.KindTransaction, apperrors.CodeCommitFailed, "writing transaction log")
	}

	return ReleaseLock(e.sys, e.tx.installRoot)
}

// Rollback reverses every executed action in LIFO order (best-effort: a
// single action's reversal failure is logged but does not stop the loop),
// restores the metadata file from the pre-install snapshot, writes the
// final log with status rolled_back, and releases the lock.
func (e *Engine) Rollback(cause error) error {
	if e.tx.RollbackPoint == nil {
		return apperrors.New(apperrors.KindTransaction, apperrors.CodeRollbackFailed, "no rollback point captured")
	}

	var reversalErrs []error
	for i := len(e.tx.ExecutedActions) - 1; i >= 0; i-- {
		if err := e.reverse(e.tx.ExecutedActions[i]); err != nil {
			reversalErrs = append(reversalErrs, err)
			e.sys.Logger().Warn("rollback: failed reversing action %s on %s: %s",
				e.tx.ExecutedActions[i].Type, e.tx.ExecutedActions[i].Path, err)
		}
	}

	if e.tx.RollbackPoint.Metadata != nil {
		path := metadata.Path(e.tx.installRoot)
		if err := vfs.MkdirAll(e.sys.FS(), filepath.Dir(path), vfs.DirPerm); err != nil {
			reversalErrs = append(reversalErrs, err)
		} else if err := e.sys.FS().WriteFile(path, e.tx.RollbackPoint.Metadata, vfs.FilePerm); err != nil {
			reversalErrs = append(reversalErrs, err)
		}
	} else {
		_ = vfs.RemoveAll(e.sys.FS(), metadata.Path(e.tx.installRoot))
	}

	now := e.sys.Clock().Now()
	e.tx.Status = StatusRolledBack
	e.tx.EndTime = &now
	if cause != nil {
		e.tx.Errors = append(e.tx.Errors, cause.Error())
	}

	if err := writeLog(e.sys, e.tx.installRoot, e.tx); err != nil {
		reversalErrs = append(reversalErrs, err)
	}

	if err := ReleaseLock(e.sys, e.tx.installRoot); err != nil {
		reversalErrs = append(reversalErrs, err)
	}

	if len(reversalErrs) > 0 {
		return apperrors.New(apperrors.KindTransaction, apperrors.CodeRollbackFailed,
			fmt.Sprintf("rollback completed with %d reversal error(s); see transaction log %s", len(reversalErrs), e.tx.TransactionID))
	}
	return nil
}

func (e *Engine) reverse(executed ExecutedAction) error {
	return reverseAction(e.sys, e.tx.installRoot, executed)
}

// reverseAction undoes a single executed action, per the reversal table of
// §4.3.6. It is shared by the in-flight Rollback path and the crash-recovery
// RollbackInterrupted path, which replays reversals from a persisted log.
func reverseAction(s *sys.System, installRoot string, executed ExecutedAction) error {
	absPath := filepath.Join(installRoot, executed.Path)

	switch executed.Type {
	case ActionCreate:
		return vfs.RemoveAll(s.FS(), absPath)
	case ActionCreateDirectory:
		entries, err := s.FS().ReadDir(absPath)
		if err != nil {
			return nil //nolint:nilerr // tolerate already-removed directories
		}
		if len(entries) == 0 {
			return vfs.RemoveAll(s.FS(), absPath)
		}
		return nil
	case ActionUpdate:
		if executed.PreviousContent == nil {
			return nil
		}
		perm := permFromString(executed.TargetPermissions, vfs.FilePerm)
		return s.FS().WriteFile(absPath, executed.PreviousContent, perm)
	case ActionDelete:
		if executed.PreviousContent == nil {
			return nil
		}
		if err := vfs.MkdirAll(s.FS(), filepath.Dir(absPath), vfs.DirPerm); err != nil {
			return err
		}
		perm := permFromString(executed.TargetPermissions, vfs.FilePerm)
		return s.FS().WriteFile(absPath, executed.PreviousContent, perm)
	case ActionSkip, ActionBackup:
		return nil
	default:
		return nil
	}
}

// TransactionLog is the on-disk representation of a transaction's audit
// log: the full planned and executed action lists, with source content
// kept only on the planned entries so it is never persisted twice (§9).
// Checkpoint snapshots are not written; only the number of checkpoints
// is recorded, not per-snapshot file counts.
type TransactionLog struct {
	TransactionID   string           `json:"transaction_id"`
	Operation       Operation        `json:"operation"`
	Status          Status           `json:"status"`
	StartTime       string           `json:"start_time"`
	EndTime         *string          `json:"end_time,omitempty"`
	FromVersion     string           `json:"from_version,omitempty"`
	ToVersion       string           `json:"to_version"`
	CheckpointCount int              `json:"checkpoint_count"`
	PlannedActions  []PlannedAction  `json:"planned_actions"`
	ExecutedActions []ExecutedAction `json:"executed_actions"`
	Errors          []string         `json:"errors"`
}

func writeLog(s *sys.System, installRoot string, tx *Transaction) error {
	logDir := filepath.Join(installRoot, LogsRelPath)
	if err := vfs.MkdirAll(s.FS(), logDir, vfs.DirPerm); err != nil {
		return err
	}

	executed := make([]ExecutedAction, len(tx.ExecutedActions))
	for i, a := range tx.ExecutedActions {
		a.SourceContent = nil
		executed[i] = a
	}

	logged := TransactionLog{
		TransactionID:   tx.TransactionID,
		Operation:       tx.Operation,
		Status:          tx.Status,
		StartTime:       tx.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		FromVersion:     tx.FromVersion,
		ToVersion:       tx.ToVersion,
		CheckpointCount: len(tx.Checkpoints),
		PlannedActions:  tx.PlannedActions,
		ExecutedActions: executed,
		Errors:          tx.Errors,
	}
	if tx.EndTime != nil {
		end := tx.EndTime.Format("2006-01-02T15:04:05Z07:00")
		logged.EndTime = &end
	}

	data, err := json.MarshalIndent(logged, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := filepath.Join(logDir, tx.TransactionID+".json")
	return s.FS().WriteFile(path, data, vfs.FilePerm)
}

// DetectInterrupted scans the transaction log directory for entries whose
// status is pending or in_progress and returns the most recent one, so the
// CLI layer can prompt the user to rollback, resume or abort.
func DetectInterrupted(s *sys.System, installRoot string) (*TransactionLog, error) {
	logDir := filepath.Join(installRoot, LogsRelPath)
	exists, err := vfs.Exists(s.FS(), logDir, true)
	if err != nil || !exists {
		return nil, nil
	}

	entries, err := s.FS().ReadDir(logDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading transaction log directory")
	}

	var candidates []*TransactionLog
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := s.FS().ReadFile(filepath.Join(logDir, entry.Name()))
		if err != nil {
			continue
		}
		var lt TransactionLog
		if json.Unmarshal(data, &lt) != nil {
			continue
		}
		if lt.Status == StatusPending || lt.Status == StatusInProgress {
			candidates = append(candidates, &lt)
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].StartTime > candidates[j].StartTime })
	return candidates[0], nil
}

// RollbackInterrupted reverses the executed actions recorded in an
// interrupted transaction's persisted log, LIFO, best-effort — the
// crash-recovery counterpart of Rollback for transactions whose owning
// process died. The log is rewritten with status rolled_back and a
// matching entry is appended to the metadata's transaction history when a
// metadata file survives.
func RollbackInterrupted(s *sys.System, installRoot string, lt *TransactionLog) error {
	if lt == nil {
		return apperrors.New(apperrors.KindTransaction, apperrors.CodeRollbackFailed, "no interrupted transaction to roll back")
	}

	var reversalErrs []error
	for i := len(lt.ExecutedActions) - 1; i >= 0; i-- {
		if err := reverseAction(s, installRoot, lt.ExecutedActions[i]); err != nil {
			reversalErrs = append(reversalErrs, err)
			s.Logger().Warn("recovery: failed reversing action %s on %s: %s",
				lt.ExecutedActions[i].Type, lt.ExecutedActions[i].Path, err)
		}
	}

	lt.Status = StatusRolledBack
	end := s.Clock().Now().Format("2006-01-02T15:04:05Z07:00")
	lt.EndTime = &end
	lt.Errors = append(lt.Errors, "rolled back after interruption")

	data, err := json.MarshalIndent(lt, "", "  ")
	if err != nil {
		reversalErrs = append(reversalErrs, err)
	} else {
		path := filepath.Join(installRoot, LogsRelPath, lt.TransactionID+".json")
		if err := s.FS().WriteFile(path, append(data, '\n'), vfs.FilePerm); err != nil {
			reversalErrs = append(reversalErrs, err)
		}
	}

	if m, err := metadata.Load(s, installRoot); err == nil {
		m.TransactionHistory = append(m.TransactionHistory, metadata.TransactionHistoryEntry{
			TransactionID: lt.TransactionID,
			Operation:     string(lt.Operation),
			Version:       lt.ToVersion,
			Timestamp:     s.Clock().Now(),
			Status:        string(StatusRolledBack),
		})
		if err := metadata.Save(s, installRoot, m); err != nil {
			reversalErrs = append(reversalErrs, err)
		}
	}

	if err := ReleaseLock(s, installRoot); err != nil {
		reversalErrs = append(reversalErrs, err)
	}

	if len(reversalErrs) > 0 {
		return apperrors.New(apperrors.KindTransaction, apperrors.CodeRollbackFailed,
			fmt.Sprintf("recovery rollback completed with %d reversal error(s)", len(reversalErrs)))
	}
	return nil
}

// DismissInterrupted marks an interrupted transaction's log as failed
// without touching the filesystem, for the "abort" choice in the recovery
// prompt: the user keeps whatever partial state exists and the log stops
// being reported by DetectInterrupted.
func DismissInterrupted(s *sys.System, installRoot string, lt *TransactionLog) error {
	if lt == nil {
		return nil
	}

	lt.Status = StatusFailed
	end := s.Clock().Now().Format("2006-01-02T15:04:05Z07:00")
	lt.EndTime = &end
	lt.Errors = append(lt.Errors, "dismissed without rollback")

	data, err := json.MarshalIndent(lt, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(installRoot, LogsRelPath, lt.TransactionID+".json")
	if err := s.FS().WriteFile(path, append(data, '\n'), vfs.FilePerm); err != nil {
		return err
	}

	return ReleaseLock(s, installRoot)
}
