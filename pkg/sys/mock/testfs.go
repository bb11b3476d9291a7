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

// Package mock provides test doubles for the sys capability bundle:
// a real-temp-dir backed FS and a fake Clock, so transaction/manifest/
// updater suites can run against a real filesystem without touching the
// developer's machine.
package mock

import (
	"time"

	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/projectbuddy/installer-core/pkg/sys/vfs"
)

// TestFS builds a temporary, OS-backed vfs.FS seeded with root, and returns
// a cleanup func that removes the backing temp directory. A nil root
// yields an empty filesystem.
func TestFS(root interface{}) (vfs.FS, func(), error) {
	tfs, cleanup, err := vfst.NewTestFS(root)
	if err != nil {
		return nil, nil, err
	}
	return tfs, cleanup, nil
}

// Clock is a fake sys.Clock with a settable, monotonically-advanceable time.
type Clock struct {
	now time.Time
}

// NewClock returns a Clock fixed at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the clock's current fixed time.
func (c *Clock) Now() time.Time {
	return c.now
}

// Advance moves the clock's time forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set pins the clock's time to t.
func (c *Clock) Set(t time.Time) {
	c.now = t
}
