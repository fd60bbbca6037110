// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sequence

import "sync"

// Manual is a Sequence and Executor for tests. Posted tasks wait until
// RunUntilIdle or RunOne is called from the test goroutine.
type Manual struct {
	mu      sync.Mutex
	queue   []func()
	current bool
}

// Post queues task.
func (m *Manual) Post(task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, task)
}

// Go queues task; used when Manual stands in for a blocking executor.
func (m *Manual) Go(task func()) { m.Post(task) }

// IsCurrent reports whether a task or a Do call is executing.
func (m *Manual) IsCurrent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunOne runs the oldest queued task and reports whether there was one.
func (m *Manual) RunOne() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	task := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()

	m.Do(task)
	return true
}

// RunUntilIdle runs tasks, including ones posted by running tasks,
// until the queue is empty. Returns the number of tasks run.
func (m *Manual) RunUntilIdle() int {
	count := 0
	for m.RunOne() {
		count++
	}
	return count
}

// Do runs f inline as if it were a task on the sequence. Tests use it
// to call sequence-bound methods directly.
func (m *Manual) Do(f func()) {
	m.mu.Lock()
	previous := m.current
	m.current = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.current = previous
		m.mu.Unlock()
	}()
	f()
}
