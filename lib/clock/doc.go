// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Code that reads the time or schedules work for later takes a Clock
// instead of calling the time package. Production passes Real(); tests
// pass Fake() and move time explicitly with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	runner := arc.NewRunner(arc.RunnerOptions{Clock: c, ...})
//	runner.Stop()
//	c.Advance(runner.StopTimeout()) // fires the forced shutdown
//
// AfterFunc callbacks on a FakeClock run synchronously inside Advance,
// in deadline order.
package clock
