// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/arc/lib/clock"
	"github.com/bureau-foundation/arc/lib/sequence"
)

// ErrStopping is returned by Runner.Start while the current session
// is still stopping.
var ErrStopping = errors.New("arc: session is stopping")

// RunnerOptions configures a Runner. Sequence, Transport and Connector
// are required and are passed to every session.
type RunnerOptions struct {
	Sequence  sequence.Sequence
	Executor  sequence.Executor
	Transport ContainerTransport
	Connector BridgeConnector
	Clock     clock.Clock
	Logger    *slog.Logger

	// StopTimeout bounds how long Stop waits for a pending start or
	// bridge connection before forcing OnShutdown. Zero waits forever.
	StopTimeout time.Duration

	// Observers are attached to every session the runner creates.
	Observers []Observer
}

// Runner hosts at most one session at a time and turns control
// requests into session calls. A new session is created when Start is
// called and there is none or the last one stopped. All methods run on
// the owning sequence.
type Runner struct {
	options RunnerOptions
	logger  *slog.Logger

	session   *Session
	stopTimer *clock.Timer
}

// NewRunner returns a Runner with no session.
func NewRunner(options RunnerOptions) *Runner {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Runner{options: options, logger: options.Logger}
}

// StopTimeout returns the configured forced-shutdown delay.
func (r *Runner) StopTimeout() time.Duration { return r.options.StopTimeout }

// Session returns the current session, or nil.
func (r *Runner) Session() *Session {
	sequence.AssertCurrent(r.options.Sequence, "Runner.Session")
	return r.session
}

// Start asks the current session to reach mode, creating a session
// first when needed. Requests the session would reject (downgrading
// from full, starting while a stop is in progress) return errors
// instead of panicking.
func (r *Runner) Start(mode Mode) (Status, error) {
	sequence.AssertCurrent(r.options.Sequence, "Runner.Start")

	if r.session != nil && r.session.state != StateStopped {
		if r.session.stopRequested {
			return r.session.Status(), ErrStopping
		}
		if target, ok := r.session.TargetMode(); ok && target == ModeFull && mode == ModeMini {
			return r.session.Status(), fmt.Errorf("arc: session %s already targets full mode", r.session.ID())
		}
	} else {
		r.replaceSession()
	}

	r.session.Start(mode)
	return r.session.Status(), nil
}

func (r *Runner) replaceSession() {
	if r.session != nil {
		r.session.Close()
	}
	r.session = New(Options{
		Sequence:  r.options.Sequence,
		Executor:  r.options.Executor,
		Transport: r.options.Transport,
		Connector: r.options.Connector,
		Clock:     r.options.Clock,
		Logger:    r.logger,
	})
	r.session.AddObserver(r)
	for _, observer := range r.options.Observers {
		r.session.AddObserver(observer)
		// The session itself only reports transitions, so a state
		// observer would keep showing the previous session's STOPPED.
		if stateObserver, ok := observer.(StateObserver); ok {
			stateObserver.OnSessionStateChanged(StateNotStarted)
		}
	}
}

// Stop asks the current session to stop. If it has not stopped after
// StopTimeout, it is forced down with OnShutdown.
func (r *Runner) Stop() Status {
	sequence.AssertCurrent(r.options.Sequence, "Runner.Stop")

	if r.session == nil {
		return Status{State: StateNotStarted.String()}
	}
	session := r.session
	session.Stop()

	if session.state != StateStopped && r.options.StopTimeout > 0 && r.stopTimer == nil {
		r.stopTimer = r.options.Clock.AfterFunc(r.options.StopTimeout, func() {
			r.options.Sequence.Post(func() { r.forceShutdown(session) })
		})
	}
	return session.Status()
}

func (r *Runner) forceShutdown(session *Session) {
	if session != r.session || session.state == StateStopped {
		return
	}
	r.logger.Warn("session did not stop in time, forcing shutdown",
		"session_id", session.ID(),
		"state", session.state,
		"timeout", r.options.StopTimeout,
	)
	session.OnShutdown()
}

// Status reports the current session, or NOT_STARTED when there is
// none.
func (r *Runner) Status() Status {
	sequence.AssertCurrent(r.options.Sequence, "Runner.Status")
	if r.session == nil {
		return Status{State: StateNotStarted.String()}
	}
	return r.session.Status()
}

// Shutdown forces the current session down and releases it. The
// daemon calls it on exit.
func (r *Runner) Shutdown() {
	sequence.AssertCurrent(r.options.Sequence, "Runner.Shutdown")
	if r.session == nil {
		return
	}
	r.session.OnShutdown()
	r.session.Close()
	r.cancelStopTimer()
}

// OnSessionStopped cancels a pending forced shutdown.
func (r *Runner) OnSessionStopped(reason StopReason, wasRunning bool) {
	r.cancelStopTimer()
}

func (r *Runner) cancelStopTimer() {
	if r.stopTimer != nil {
		r.stopTimer.Stop()
		r.stopTimer = nil
	}
}
