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

package action

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/projectbuddy/installer-core/pkg/archive"
	"github.com/projectbuddy/installer-core/pkg/transaction"

	"github.com/projectbuddy/installer-core/internal/cli/cmd"
)

// Recover resolves the aftermath of a crashed operation: it reports any
// transaction left pending or in progress and, on request, rolls it back,
// dismisses it, or re-extracts a pre-update backup archive.
func Recover(ctx *cli.Context) error {
	s, err := systemFrom(ctx)
	if err != nil {
		return err
	}

	targetDir := cmd.RecoverArgs.Target
	if targetDir == "" {
		targetDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	if cmd.RecoverArgs.RestoreBackup != "" {
		if err := archive.ExtractTarball(ctx.Context, s, cmd.RecoverArgs.RestoreBackup, targetDir); err != nil {
			return fmt.Errorf("restoring backup %s: %w", cmd.RecoverArgs.RestoreBackup, err)
		}
		s.Logger().Info("restored backup %s into %s", cmd.RecoverArgs.RestoreBackup, targetDir)
		return nil
	}

	lt, err := transaction.DetectInterrupted(s, targetDir)
	if err != nil {
		return err
	}
	if lt == nil {
		s.Logger().Info("no interrupted transaction found in %s", targetDir)
		return nil
	}

	switch {
	case cmd.RecoverArgs.Rollback:
		if err := transaction.RollbackInterrupted(s, targetDir, lt); err != nil {
			return err
		}
		s.Logger().Info("rolled back interrupted %s transaction %s", lt.Operation, lt.TransactionID)
		return nil
	case cmd.RecoverArgs.Dismiss:
		if err := transaction.DismissInterrupted(s, targetDir, lt); err != nil {
			return err
		}
		s.Logger().Info("dismissed interrupted %s transaction %s", lt.Operation, lt.TransactionID)
		return nil
	default:
		s.Logger().Warn("found interrupted %s transaction %s (started %s, %d executed action(s))",
			lt.Operation, lt.TransactionID, lt.StartTime, len(lt.ExecutedActions))
		s.Logger().Warn("re-run with --rollback to undo it, or --dismiss to keep partial state")
		return fmt.Errorf("interrupted transaction %s requires resolution", lt.TransactionID)
	}
}
