// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sequence

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loop is a Sequence backed by a single goroutine. Create it with
// NewLoop and start it with Run.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	inTask atomic.Bool
}

// NewLoop returns an idle Loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues task. Tasks posted after Run returns are dropped.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled. Tasks still queued at
// cancellation are discarded.
func (l *Loop) Run(ctx context.Context) {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, task := range batch {
			if ctx.Err() != nil {
				return
			}
			l.runTask(task)
		}

		if len(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) runTask(task func()) {
	l.inTask.Store(true)
	defer l.inTask.Store(false)
	task()
}

// IsCurrent reports whether a task is executing. Loop cannot tell
// goroutines apart, so a call from another goroutine while a task runs
// also reports true; the check still catches calls made while the loop
// is idle, which is how off-sequence callbacks usually show up.
func (l *Loop) IsCurrent() bool {
	return l.inTask.Load()
}

// Do posts f and waits for it to finish, or for ctx to end. Callers
// outside the sequence (control socket handlers) use it to read and
// mutate sequence-owned state.
func (l *Loop) Do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		f()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
