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

package manifest

import "github.com/projectbuddy/installer-core/pkg/platform"

// Default is the compile-time-constant component and directory declaration
// shipped by the project. The packaged asset layout backing Source paths
// and template content are out of scope here (§1 out-of-scope collaborators);
// this only declares names, targets and dependency gates.
func Default() Manifest {
	return Manifest{
		SchemaVersion: "1.0.0",
		Directories: []DirectorySpec{
			{Path: ".claude-buddy", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude-buddy/personas", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude-buddy/templates", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude-buddy/context", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude/hooks", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude/commands", Permissions: "755", CreateIfMissing: true},
			{Path: ".claude/agents", Permissions: "755", CreateIfMissing: true},
			{Path: "directive", Permissions: "755", CreateIfMissing: true},
		},
		Components: []Component{
			{
				Name: "foundation", DisplayName: "Foundation", Type: Required,
				Source: "foundation", Target: "directive",
				FilePatterns: []string{"*.md"},
				Description:  "Core foundation document",
			},
			{
				Name: "personas", DisplayName: "Personas", Type: Required,
				Source: "personas", Target: ".claude-buddy/personas",
				FilePatterns: []string{"*.md"},
				Description:  "Persona definitions",
			},
			{
				Name: "templates", DisplayName: "Templates", Type: Required,
				Source: "templates", Target: ".claude-buddy/templates",
				FilePatterns: []string{"*.md", "*.json"},
				Description:  "Scaffold templates",
			},
			{
				Name: "commands", DisplayName: "Slash Commands", Type: Required,
				Source: "commands", Target: ".claude/commands",
				FilePatterns: []string{"*.md"},
				Description:  "CLI slash command definitions",
			},
			{
				Name: "agents", DisplayName: "Agents", Type: Optional,
				Source: "agents", Target: ".claude/agents",
				Dependencies: []string{"node"},
				FilePatterns: []string{"*.md"},
				Description:  "Agent definitions requiring a JS runtime",
			},
			{
				Name: "hooks", DisplayName: "Git Hooks", Type: Optional,
				Source: "hooks", Target: ".claude/hooks",
				Dependencies: []string{"uv", "python"},
				FilePatterns: []string{"*.py"},
				Description:  "Python-based lifecycle hooks",
			},
			{
				Name: "context", DisplayName: "Context Packs", Type: Optional,
				Source: "context", Target: ".claude-buddy/context",
				Dependencies: []string{"git"},
				FilePatterns: []string{"*.md"},
				Description:  "Git-aware context packs",
			},
		},
		PlatformOverrides: PlatformOverrides{
			ComponentOverrides: map[platform.Family]map[string]ComponentOverride{},
			DirectoryOverrides: map[platform.Family]map[string]DirectoryOverride{},
			EnvironmentVars: map[platform.Family]map[string]string{
				platform.Windows: {"CLAUDE_BUDDY_SHELL": "cmd"},
				platform.Darwin:  {"CLAUDE_BUDDY_SHELL": "sh"},
				platform.Linux:   {"CLAUDE_BUDDY_SHELL": "sh"},
			},
		},
	}
}
