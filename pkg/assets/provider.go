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

// Package assets implements installer.AssetProvider against a plain
// directory of packaged component sources on disk. The packaged asset
// layout itself is out of scope for the core (§1 out-of-scope
// collaborators); this is the minimal concrete collaborator the CLI needs
// to actually run an install against a real directory tree instead of a
// mock in tests.
package assets

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/projectbuddy/installer-core/pkg/installer"
	"github.com/projectbuddy/installer-core/pkg/manifest"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// configTemplateFile is the framework-shipped default configuration
// bundled alongside the component sources.
const configTemplateFile = "buddy-config.default.json"

// DirProvider reads component file trees and the default configuration
// template from a single root directory laid out as
// <root>/<component.Source>/... and <root>/buddy-config.default.json.
type DirProvider struct {
	System *sys.System
	Root   string
}

var _ installer.AssetProvider = DirProvider{}

// ListFiles enumerates the files under component.Source matching any of
// component.FilePatterns, per §4.4 step 4 / §4.5.4.
func (p DirProvider) ListFiles(component manifest.Component) ([]installer.AssetFile, error) {
	sourceRoot := filepath.Join(p.Root, component.Source)

	exists, err := vfs.Exists(p.System.FS(), sourceRoot, true)
	if err != nil {
		return nil, errors.Wrapf(err, "checking component source %q", sourceRoot)
	}
	if !exists {
		return nil, nil
	}

	seen := map[string]bool{}
	var files []installer.AssetFile

	for _, pattern := range component.FilePatterns {
		matches, err := vfs.FindFiles(p.System.FS(), sourceRoot, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "matching pattern %q under %q", pattern, sourceRoot)
		}
		for _, abs := range matches {
			if seen[abs] {
				continue
			}
			seen[abs] = true

			rel, err := filepath.Rel(sourceRoot, abs)
			if err != nil {
				return nil, err
			}

			content, err := p.System.FS().ReadFile(abs)
			if err != nil {
				return nil, errors.Wrapf(err, "reading asset %q", abs)
			}

			info, err := p.System.FS().Stat(abs)
			if err != nil {
				return nil, errors.Wrapf(err, "statting asset %q", abs)
			}

			files = append(files, installer.AssetFile{RelPath: rel, Content: content, Mode: info.Mode()})
		}
	}

	return files, nil
}

// ConfigTemplate loads the default configuration shipped alongside the
// component sources, or nil if the project ships none.
func (p DirProvider) ConfigTemplate() (map[string]interface{}, error) {
	path := filepath.Join(p.Root, configTemplateFile)
	exists, err := vfs.Exists(p.System.FS(), path, true)
	if err != nil || !exists {
		return nil, nil //nolint:nilerr // absent template is a valid state
	}

	data, err := p.System.FS().ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading default configuration template")
	}

	var tmpl map[string]interface{}
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, errors.Wrap(err, "parsing default configuration template")
	}
	return tmpl, nil
}

// DefaultRoot resolves the packaged asset root shipped next to the running
// binary, falling back to the current working directory's "assets"
// subdirectory for local/dev runs.
func DefaultRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return "assets"
	}
	return filepath.Join(filepath.Dir(exe), "assets")
}
