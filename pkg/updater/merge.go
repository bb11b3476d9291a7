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

package updater

import (
	"encoding/json"
	"reflect"
)

// MergeStrategy selects how an existing (user) configuration object is
// combined with the new (framework-shipped) one, per §4.5.5.
type MergeStrategy string

const (
	KeepUser     MergeStrategy = "keep_user"
	UseNew       MergeStrategy = "use_new"
	ShallowMerge MergeStrategy = "shallow_merge"
	DeepMerge    MergeStrategy = "deep_merge"
)

// DefaultMergeStrategy is applied when the configuration layer doesn't
// specify one explicitly.
const DefaultMergeStrategy = ShallowMerge

// Conflict records a top-level key present, and structurally different,
// in both the existing and new configuration.
type Conflict struct {
	Key        string
	Resolution string
}

// Merge combines existing and new JSON objects per strategy and returns the
// merged object plus the list of top-level conflicts detected between them.
// Arrays are always replaced, never merged.
func Merge(strategy MergeStrategy, existing, next map[string]interface{}) (map[string]interface{}, []Conflict) {
	conflicts := detectConflicts(existing, next)

	switch strategy {
	case KeepUser:
		return cloneMap(existing), conflicts
	case UseNew:
		return cloneMap(next), conflicts
	case DeepMerge:
		return deepMerge(existing, next), conflicts
	default:
		return shallowMerge(existing, next), conflicts
	}
}

func detectConflicts(existing, next map[string]interface{}) []Conflict {
	var conflicts []Conflict
	for k, ev := range existing {
		nv, ok := next[k]
		if !ok {
			continue
		}
		if !canonicallyEqual(ev, nv) {
			conflicts = append(conflicts, Conflict{Key: k, Resolution: string(KeepUser)})
		}
	}
	return conflicts
}

func canonicallyEqual(a, b interface{}) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}

	var na, nb interface{}
	if json.Unmarshal(ja, &na) != nil || json.Unmarshal(jb, &nb) != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

// shallowMerge starts from new, then overlays existing at the top level, so
// user keys win.
func shallowMerge(existing, next map[string]interface{}) map[string]interface{} {
	result := cloneMap(next)
	for k, v := range existing {
		result[k] = v
	}
	return result
}

// deepMerge recursively merges next and existing: at every level the user
// (existing) value wins when both sides are objects; otherwise the user
// value replaces the new value outright, and arrays are never merged.
func deepMerge(existing, next map[string]interface{}) map[string]interface{} {
	result := cloneMap(next)
	for k, ev := range existing {
		nv, ok := result[k]
		if !ok {
			result[k] = ev
			continue
		}

		evObj, evIsObj := ev.(map[string]interface{})
		nvObj, nvIsObj := nv.(map[string]interface{})
		if evIsObj && nvIsObj {
			result[k] = deepMerge(evObj, nvObj)
			continue
		}

		result[k] = ev
	}
	return result
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
