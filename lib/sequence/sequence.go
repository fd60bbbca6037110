// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sequence

import "fmt"

// Sequence is a serial task runner.
type Sequence interface {
	// Post queues task to run after every previously posted task. Post
	// never blocks and may be called from any goroutine.
	Post(task func())

	// IsCurrent reports whether the caller is running inside a task on
	// this sequence. Manual answers exactly. Loop answers whether any
	// task is running, so in production AssertCurrent only catches
	// off-sequence calls made while the loop is idle; a call from
	// another goroutine that overlaps a running task passes.
	IsCurrent() bool
}

// Executor runs blocking tasks off the owning sequence.
type Executor interface {
	Go(task func())
}

// AssertCurrent panics if the caller is not running on s.
func AssertCurrent(s Sequence, method string) {
	if !s.IsCurrent() {
		panic(fmt.Sprintf("%s called off its owning sequence", method))
	}
}

// Goroutines is an Executor that runs each task on a new goroutine.
type Goroutines struct{}

// Go starts task on its own goroutine.
func (Goroutines) Go(task func()) { go task() }
