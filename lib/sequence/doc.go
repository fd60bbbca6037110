// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sequence provides the owning-sequence execution model used by
// the session state machine.
//
// A [Sequence] runs posted tasks one at a time in FIFO order. State
// owned by a sequence is only touched from tasks running on it, so it
// needs no locks; entry points call [AssertCurrent] to catch callers
// on the wrong goroutine (exactly on Manual, only while idle on Loop;
// see [Sequence.IsCurrent]). Blocking work runs on an [Executor] and posts
// its result back.
//
// [Loop] is the production sequence: one goroutine draining an
// unbounded queue until its context is cancelled. [Manual] is the test
// sequence: nothing runs until the test calls RunUntilIdle, which makes
// interleavings deterministic. A Manual also satisfies Executor, so a
// test can hold a blocking task and release it at a chosen point.
package sequence
