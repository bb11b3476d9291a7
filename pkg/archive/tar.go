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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

type cancelableReader struct {
	ctx context.Context
	src io.Reader
}

func (r *cancelableReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, fmt.Errorf("stop reading, context cancelled")
	default:
		return r.src.Read(p)
	}
}

// ExtractTarball extracts a backup tarball produced by CreateTarGz into
// target, recreating the relative layout the archive was captured with.
// Compression detection is based on the file name extension only.
func ExtractTarball(ctx context.Context, s *sys.System, tarball string, target string) error {
	sourceFile, err := s.FS().OpenFile(tarball, os.O_RDONLY, vfs.FilePerm)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	if strings.HasSuffix(tarball, ".tar.gz") || strings.HasSuffix(tarball, ".tgz") {
		return ExtractTarGz(ctx, s, sourceFile, target)
	}
	return ExtractTar(ctx, s, sourceFile, target)
}

// ExtractTarGz extracts a .tar.gz archived stream of data to the given target.
func ExtractTarGz(ctx context.Context, s *sys.System, body io.Reader, target string) error {
	reader, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip error: %w", err)
	}

	return ExtractTar(ctx, s, reader, target)
}

// ExtractTar extracts a .tar archived stream of data to the given target.
// Entries escaping the target directory are skipped with a warning; the
// backup archives this package writes never contain them, but a tampered
// archive must not become a path traversal.
func ExtractTar(ctx context.Context, s *sys.System, body io.Reader, target string) error {
	tr := tar.NewReader(body)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("stop reading tar, context cancelled")
		default:
		}

		header, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, tar.ErrInsecurePath) {
				s.Logger().Warn("Ignoring non local path '%s': %v", header.Name, err)
				continue
			}
			return fmt.Errorf("reading tar stream: %w", err)
		}

		path, err := sanitizeArchivePath(target, header.Name)
		if err != nil {
			s.Logger().Warn("Ignoring non local path '%s': %v", header.Name, err)
			continue
		}

		info := header.FileInfo()

		switch header.Typeflag {
		case tar.TypeDir:
			if err = vfs.MkdirAll(s.FS(), path, info.Mode()); err != nil {
				return fmt.Errorf("creating directory from tar: %w", err)
			}
		case tar.TypeReg:
			if err = restoreFile(ctx, s, path, info.Mode(), tr); err != nil {
				return fmt.Errorf("restoring file %s: %w", path, err)
			}
		default:
			s.Logger().Warn("Skipping unsupported tar entry type %d for '%s'", header.Typeflag, header.Name)
		}
	}

	return nil
}

func restoreFile(ctx context.Context, s *sys.System, path string, mode os.FileMode, src io.Reader) (err error) {
	if err = vfs.MkdirAll(s.FS(), filepath.Dir(path), vfs.DirPerm); err != nil {
		return err
	}

	_ = s.FS().Remove(path)

	file, err := s.FS().OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer func() {
		e := file.Close()
		if err == nil && e != nil {
			err = e
		}
	}()
	_, err = io.Copy(file, &cancelableReader{ctx: ctx, src: src})
	return err
}

func sanitizeArchivePath(root, filename string) (string, error) {
	path := filepath.Join(root, filename)
	if strings.HasPrefix(path, filepath.Clean(root)) {
		return path, nil
	}

	return path, fmt.Errorf("content filepath '%s' is tainted", path)
}
