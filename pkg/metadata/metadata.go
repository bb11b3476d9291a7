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

// Package metadata persists InstallationMetadata, the durable record every
// operation reads at start and writes once on successful commit.
package metadata

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/projectbuddy/installer-core/pkg/apperrors"
	"github.com/projectbuddy/installer-core/pkg/sys"
	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// RelPath is the metadata file's location relative to the install root.
const RelPath = ".claude-buddy/install-metadata.json"

type InstalledComponent struct {
	Version      string     `json:"version"`
	Enabled      bool       `json:"enabled"`
	Reason       string     `json:"reason,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

type DependencyRecord struct {
	Version   string `json:"version,omitempty"`
	Required  bool   `json:"required"`
	Available bool   `json:"available"`
	Location  string `json:"location,omitempty"`
}

type UserCustomization struct {
	File             string    `json:"file"`
	CreatedDate      time.Time `json:"created_date"`
	LastModified     time.Time `json:"last_modified"`
	Description      string    `json:"description,omitempty"`
	PreserveOnUpdate bool      `json:"preserve_on_update"`
}

type TransactionHistoryEntry struct {
	TransactionID string    `json:"transaction_id"`
	Operation     string    `json:"operation"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
}

// InstallationMetadata is the durable record described in §3.1/§6.2.
type InstallationMetadata struct {
	Version             string                        `json:"version"`
	InstallDate         time.Time                     `json:"install_date"`
	LastUpdateDate      *time.Time                    `json:"last_update_date,omitempty"`
	InstallMode         string                        `json:"install_mode"`
	InstalledComponents map[string]InstalledComponent `json:"installed_components"`
	UserCustomizations  []UserCustomization           `json:"user_customizations"`
	Dependencies        map[string]DependencyRecord   `json:"dependencies"`
	TransactionHistory  []TransactionHistoryEntry     `json:"transaction_history"`
}

// New builds an empty metadata record for a fresh install at the given
// version and mode.
func New(version, installMode string, now time.Time) *InstallationMetadata {
	return &InstallationMetadata{
		Version:             version,
		InstallDate:         now,
		InstallMode:         installMode,
		InstalledComponents: map[string]InstalledComponent{},
		UserCustomizations:  []UserCustomization{},
		Dependencies:        map[string]DependencyRecord{},
		TransactionHistory:  []TransactionHistoryEntry{},
	}
}

// Path returns the absolute metadata file path under installRoot.
func Path(installRoot string) string {
	return filepath.Join(installRoot, RelPath)
}

// Load reads and parses the metadata file at installRoot. A missing file
// is reported via apperrors.CodeNotInstalled so callers can distinguish
// "no install" from "corrupt install".
func Load(s *sys.System, installRoot string) (*InstallationMetadata, error) {
	path := Path(installRoot)
	exists, err := vfs.Exists(s.FS(), path, true)
	if err != nil {
		return nil, errors.Wrap(err, "checking metadata file existence")
	}
	if !exists {
		return nil, apperrors.New(apperrors.KindUninstall, apperrors.CodeNotInstalled, "no installation metadata found at "+path)
	}

	data, err := s.FS().ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindValidation, apperrors.CodeInvalidManifest, "reading metadata file")
	}

	var m InstallationMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindValidation, apperrors.CodeSchemaMismatch, "metadata file is not valid JSON")
	}

	return &m, nil
}

// Marshal serializes m per the §6.2 formatting rules: UTF-8 no BOM, LF line
// endings, 2-space indent.
func Marshal(m *InstallationMetadata) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save writes m to installRoot's metadata path using the given FS directly
// (not through the transaction engine). The installer, the updater and
// interrupted-transaction recovery write metadata with it; the engine's own
// rollback writes the snapshot's metadata back itself.
func Save(s *sys.System, installRoot string, m *InstallationMetadata) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := vfs.MkdirAll(s.FS(), filepath.Dir(Path(installRoot)), vfs.DirPerm); err != nil {
		return err
	}
	return s.FS().WriteFile(Path(installRoot), data, vfs.FilePerm)
}
