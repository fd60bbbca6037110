// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sequence

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/arc/lib/testutil"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop()
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	var order []int
	results := make(chan []int, 1)
	for i := range 100 {
		loop.Post(func() { order = append(order, i) })
	}
	loop.Post(func() { results <- order })

	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for queued tasks")
	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, value := range got {
		if value != i {
			t.Fatalf("task %d ran at position %d", value, i)
		}
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "loop exit after cancel")
}

func TestLoopPostFromTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop()
	go loop.Run(ctx)

	finished := make(chan struct{})
	loop.Post(func() {
		loop.Post(func() { close(finished) })
	})
	testutil.RequireClosed(t, finished, 5*time.Second, "nested post")
}

func TestLoopIsCurrent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop()
	go loop.Run(ctx)

	if loop.IsCurrent() {
		t.Error("IsCurrent() = true outside any task")
	}

	inside := make(chan bool, 1)
	loop.Post(func() { inside <- loop.IsCurrent() })
	if !testutil.RequireReceive(t, inside, 5*time.Second, "IsCurrent from task") {
		t.Error("IsCurrent() = false inside a task")
	}
}

func TestLoopAssertCurrentWhileIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop()
	go loop.Run(ctx)

	if err := loop.Do(ctx, func() { AssertCurrent(loop, "Session.Start") }); err != nil {
		t.Fatalf("Do: %v", err)
	}

	// Do returns from inside the task; wait for the loop to go idle.
	deadline := time.Now().Add(5 * time.Second) //nolint:realclock test hang prevention
	for loop.IsCurrent() {
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatal("loop never went idle")
		}
		runtime.Gosched()
	}

	defer func() {
		if recover() == nil {
			t.Error("AssertCurrent did not panic for an off-sequence call on an idle Loop")
		}
	}()
	AssertCurrent(loop, "Session.Start")
}

func TestLoopDo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop()
	go loop.Run(ctx)

	var mu sync.Mutex
	value := 0
	if err := loop.Do(ctx, func() {
		mu.Lock()
		value = 42
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Do() = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if value != 42 {
		t.Errorf("Do did not run before returning")
	}
}

func TestLoopDoCancelled(t *testing.T) {
	// The loop is never started, so Do can only return through ctx.
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Do(ctx, func() {}); err != context.Canceled {
		t.Errorf("Do() = %v, want context.Canceled", err)
	}
}

func TestManualRunUntilIdle(t *testing.T) {
	var manual Manual
	var order []string

	manual.Post(func() {
		order = append(order, "first")
		manual.Post(func() { order = append(order, "nested") })
	})
	manual.Post(func() { order = append(order, "second") })

	if manual.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", manual.Pending())
	}
	if ran := manual.RunUntilIdle(); ran != 3 {
		t.Errorf("RunUntilIdle() = %d, want 3", ran)
	}
	want := []string{"first", "second", "nested"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestManualIsCurrent(t *testing.T) {
	var manual Manual
	if manual.IsCurrent() {
		t.Error("IsCurrent() = true outside a task")
	}

	var insideTask, insideDo bool
	manual.Post(func() { insideTask = manual.IsCurrent() })
	manual.RunUntilIdle()
	manual.Do(func() { insideDo = manual.IsCurrent() })

	if !insideTask || !insideDo {
		t.Errorf("IsCurrent inside task=%v, inside Do=%v, want both true", insideTask, insideDo)
	}
	if manual.IsCurrent() {
		t.Error("IsCurrent() stayed true after Do returned")
	}
}

func TestAssertCurrent(t *testing.T) {
	var manual Manual

	defer func() {
		if recover() == nil {
			t.Error("AssertCurrent off sequence did not panic")
		}
	}()
	manual.Do(func() { AssertCurrent(&manual, "Start") })
	AssertCurrent(&manual, "Start")
}
