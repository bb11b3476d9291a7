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

// Package apperrors defines the typed error model shared by every core
// package: a stable Kind, a stable Code string (the part of the contract
// the CLI collaborator maps to exit codes), structured context and a list
// of user-facing remediation suggestions.
package apperrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind groups codes into the five families the error handling design
// distinguishes between.
type Kind string

const (
	KindTransaction Kind = "TransactionError"
	KindEnvironment Kind = "EnvironmentError"
	KindValidation  Kind = "ValidationError"
	KindUpdate      Kind = "UpdateError"
	KindUninstall   Kind = "UninstallError"
)

// Stable codes. These strings are part of the external surface: tests and
// the CLI's exit-code mapping key off them, so renaming one is a breaking
// change.
const (
	CodeLockExists         = "LOCK_EXISTS"
	CodeLockStale          = "LOCK_STALE"
	CodeInterrupted        = "INTERRUPTED"
	CodeRollbackFailed     = "ROLLBACK_FAILED"
	CodeCheckpointInvalid  = "CHECKPOINT_INVALID"
	CodeActionFailed       = "ACTION_FAILED"
	CodeCommitFailed       = "COMMIT_FAILED"
	CodeUnsupportedPlat    = "UNSUPPORTED_PLATFORM"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeDiskSpaceLow       = "DISK_SPACE_LOW"
	CodeDependencyMissing  = "DEPENDENCY_MISSING"
	CodeDependencyVersion  = "DEPENDENCY_VERSION_MISMATCH"
	CodeDirectoryNotWrite  = "DIRECTORY_NOT_WRITABLE"
	CodeGitRepoInvalid     = "GIT_REPO_INVALID"
	CodeInvalidVersion     = "INVALID_VERSION"
	CodeInvalidManifest    = "INVALID_MANIFEST"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeMissingField       = "MISSING_REQUIRED_FIELD"
	CodeInvalidFieldType   = "INVALID_FIELD_TYPE"
	CodeInvalidFieldValue  = "INVALID_FIELD_VALUE"
	CodeSchemaMismatch     = "SCHEMA_MISMATCH"
	CodeNotInstalled       = "NOT_INSTALLED"
)

// Error is the typed error value returned by every core package.
type Error struct {
	Kind        Kind
	Code        string
	Message     string
	Context     map[string]string
	Suggestions []string
	cause       error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.cause != nil {
		fmt.Fprintf(&b, ": %s", e.cause.Error())
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(&b, "\n  - %s", s)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithContext returns a copy of e with key=value added to its context map.
func (e *Error) WithContext(key, value string) *Error {
	clone := *e
	clone.Context = make(map[string]string, len(e.Context)+1)
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	clone.Context[key] = value
	return &clone
}

// WithSuggestion appends a remediation hint to e.
func (e *Error) WithSuggestion(s string) *Error {
	clone := *e
	clone.Suggestions = append(append([]string{}, e.Suggestions...), s)
	return &clone
}

// New builds a bare Error with no wrapped cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Context: map[string]string{}}
}

// Wrap attaches kind/code/message to cause, preserving it for errors.Is/As
// via pkg/errors semantics.
func Wrap(cause error, kind Kind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Context: map[string]string{},
		cause:   errors.WithStack(cause),
	}
}

// Code extracts the stable code of err, if it (or something it wraps) is an
// *Error, and "" otherwise.
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code string) bool {
	return Code(err) == code
}
