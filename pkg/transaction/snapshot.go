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
	"os"
	"path/filepath"

	"github.com/projectbuddy/installer-core/pkg/metadata"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// maxSnapshotContentBytes is the text-file content-capture ceiling; larger
// or binary files are recorded by metadata only (§3.1, §9).
const maxSnapshotContentBytes = 100 * 1024

// CanonicalDirs are the three directory trees snapshotted before any
// mutation. Rollback does not restore these trees from the snapshot; it
// reverses the executed actions and restores only the metadata file.
var CanonicalDirs = []string{".claude-buddy", ".claude", "directive"}

// CaptureSnapshot walks CanonicalDirs under installRoot and captures a
// best-effort Snapshot, plus the metadata file's verbatim content if
// present.
func CaptureSnapshot(s *sys.System, installRoot string) (Snapshot, error) {
	snap := Snapshot{Timestamp: s.Clock().Now()}

	for _, dir := range CanonicalDirs {
		root := filepath.Join(installRoot, dir)
		ok, err := vfs.Exists(s.FS(), root, true)
		if err != nil {
			return snap, err
		}
		if !ok {
			continue
		}

		err = vfs.WalkDirFs(s.FS(), root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			fs, ferr := fileSnapshot(s, path, d)
			if ferr != nil {
				return ferr
			}
			snap.Files = append(snap.Files, fs)
			return nil
		})
		if err != nil {
			return snap, err
		}
	}

	if data, err := s.FS().ReadFile(metadata.Path(installRoot)); err == nil {
		snap.Metadata = data
	}

	return snap, nil
}

func fileSnapshot(s *sys.System, path string, d os.DirEntry) (FileSnapshot, error) {
	info, err := d.Info()
	if err != nil {
		return FileSnapshot{}, err
	}

	fs := FileSnapshot{
		Path:         path,
		Exists:       true,
		IsDirectory:  d.IsDir(),
		Size:         info.Size(),
		Permissions:  info.Mode().Perm().String(),
		LastModified: info.ModTime(),
	}

	if !d.IsDir() && info.Size() < maxSnapshotContentBytes {
		content, err := s.FS().ReadFile(path)
		if err == nil && isProbablyText(content) {
			fs.Content = content
		}
	}

	return fs, nil
}

func isProbablyText(content []byte) bool {
	for _, b := range content {
		if b == 0 {
			return false
		}
	}
	return true
}
