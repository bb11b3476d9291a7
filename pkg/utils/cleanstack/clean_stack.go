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

// Package cleanstack provides a LIFO stack of best-effort cleanup callbacks,
// used by the transaction engine and operation modules to unwind partially
// applied side effects (locks, open files, in-progress directories) without
// letting one failing cleanup step stop the rest from running.
package cleanstack

import "errors"

// job is a single queued cleanup callback and the condition under which it
// should run.
type job struct {
	callback   func() error
	onErrOnly  bool
	onSuccOnly bool
}

// Run executes the callback, ignoring the run condition. Used by callers
// that pop a job directly rather than going through Cleanup.
func (j *job) Run() error {
	if j == nil || j.callback == nil {
		return nil
	}
	return j.callback()
}

// CleanStack is a LIFO stack of cleanup callbacks.
type CleanStack struct {
	jobs []*job
}

// NewCleanStack returns an empty CleanStack.
func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// Push queues a callback that always runs during Cleanup, regardless of
// whether the operation ultimately succeeded or failed.
func (c *CleanStack) Push(callback func() error) {
	c.jobs = append(c.jobs, &job{callback: callback})
}

// PushErrorOnly queues a callback that runs during Cleanup only when the
// operation is being cleaned up after a failure.
func (c *CleanStack) PushErrorOnly(callback func() error) {
	c.jobs = append(c.jobs, &job{callback: callback, onErrOnly: true})
}

// PushSuccessOnly queues a callback that runs during Cleanup only when the
// operation is being cleaned up after success.
func (c *CleanStack) PushSuccessOnly(callback func() error) {
	c.jobs = append(c.jobs, &job{callback: callback, onSuccOnly: true})
}

// Pop removes and returns the most recently pushed job, or nil if the stack
// is empty. The caller is responsible for running it.
func (c *CleanStack) Pop() *job { //nolint:revive
	if len(c.jobs) == 0 {
		return nil
	}
	last := c.jobs[len(c.jobs)-1]
	c.jobs = c.jobs[:len(c.jobs)-1]
	return last
}

// Cleanup runs every queued job in LIFO order, honouring each job's run
// condition against whether err is nil; once a callback fails, the jobs
// after it are treated as running after a failure. It always runs every eligible job
// even if some of them fail, and returns err joined with every cleanup
// failure encountered, preserving err as the primary cause.
func (c *CleanStack) Cleanup(err error) error {
	failed := err != nil
	result := err

	for {
		j := c.Pop()
		if j == nil {
			break
		}
		if j.onErrOnly && !failed {
			continue
		}
		if j.onSuccOnly && failed {
			continue
		}
		if cbErr := j.Run(); cbErr != nil {
			result = errors.Join(result, cbErr)
			failed = true
		}
	}

	return result
}
