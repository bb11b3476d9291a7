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
	"time"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// StaleLockAge is the age past which a lock is considered abandoned and
// may be reclaimed by a new operation, per §3.2/§4.3.1.
const StaleLockAge = 30 * time.Second

// LockRelPath is the lock file's location relative to the install root.
const LockRelPath = ".claude-buddy/install.lock"

type lockPayload struct {
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
}

func lockPath(installRoot string) string {
	return filepath.Join(installRoot, LockRelPath)
}

// AcquireLock takes the install lock at installRoot. If no lock file
// exists, it writes one. If one exists and is younger than StaleLockAge,
// it fails with CodeLockExists, surfacing the holder's PID. If the lock is
// stale, it's deleted and taken over.
func AcquireLock(s *sys.System, installRoot string) error {
	path := lockPath(installRoot)

	exists, err := vfs.Exists(s.FS(), path, true)
	if err != nil {
		return err
	}

	if exists {
		data, readErr := s.FS().ReadFile(path)
		if readErr == nil {
			var held lockPayload
			if json.Unmarshal(data, &held) == nil {
				age := s.Clock().Now().Sub(held.Timestamp)
				if age < StaleLockAge {
					return apperrors.New(apperrors.KindTransaction, apperrors.CodeLockExists,
						fmt.Sprintf("install is locked by pid %d (%s old)", held.PID, age.Round(time.Second))).
						WithContext("holder_pid", fmt.Sprintf("%d", held.PID))
				}
				s.Logger().Warn("reclaiming stale install lock held by pid %d, age %s", held.PID, age)
			}
		}
		if err := s.FS().Remove(path); err != nil {
			return err
		}
	}

	if err := vfs.MkdirAll(s.FS(), filepath.Dir(path), vfs.DirPerm); err != nil {
		return err
	}

	payload := lockPayload{PID: os.Getpid(), Timestamp: s.Clock().Now()}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return s.FS().WriteFile(path, data, vfs.FilePerm)
}

// ReleaseLock removes the install lock at installRoot. Missing locks are
// not an error: release is called on every exit path, including ones
// reached before a lock was ever taken.
func ReleaseLock(s *sys.System, installRoot string) error {
	return vfs.RemoveAll(s.FS(), lockPath(installRoot))
}
