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

package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// CreateTarGz writes a gzip-compressed tarball at tarball containing every
// file and directory under each of sources, with paths stored relative to
// root. Used by the updater's pre-flight backup.
func CreateTarGz(ctx context.Context, s *sys.System, root string, sources []string, tarball string) error {
	if err := vfs.MkdirAll(s.FS(), filepath.Dir(tarball), vfs.DirPerm); err != nil {
		return err
	}

	out, err := s.FS().Create(tarball)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, source := range sources {
		ok, err := vfs.Exists(s.FS(), source, true)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		err = vfs.WalkDirFs(s.FS(), source, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("stop archiving, context cancelled")
			default:
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			header, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			header.Name = filepath.ToSlash(rel)

			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			f, err := s.FS().OpenFile(path, os.O_RDONLY, vfs.FilePerm)
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = io.Copy(tw, f)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
