// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/arc/arc"
	"github.com/bureau-foundation/arc/lib/codec"
	"github.com/bureau-foundation/arc/lib/service"
)

// sequenceRunner runs a function on the owning sequence and waits for
// it. *sequence.Loop implements it.
type sequenceRunner interface {
	Do(ctx context.Context, f func()) error
}

// Daemon turns control socket actions into Runner calls on the owning
// sequence.
type Daemon struct {
	sequence    sequenceRunner
	runner      *arc.Runner
	defaultMode arc.Mode
	logger      *slog.Logger

	// shutdown ends the daemon's main loop.
	shutdown context.CancelFunc
}

// startRequest is the CBOR body of the "start" action.
type startRequest struct {
	Mode string `cbor:"mode,omitempty"`
}

func (d *Daemon) registerActions(server *service.SocketServer) {
	server.Handle("start", d.handleStart)
	server.Handle("stop", d.handleStop)
	server.Handle("status", d.handleStatus)
	server.Handle("shutdown", d.handleShutdown)
}

func (d *Daemon) handleStart(ctx context.Context, raw []byte) (any, error) {
	var request startRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding start request: %w", err)
	}

	mode := d.defaultMode
	if request.Mode != "" {
		var err error
		if mode, err = arc.ParseMode(request.Mode); err != nil {
			return nil, err
		}
	}

	var (
		status   arc.Status
		startErr error
	)
	if err := d.sequence.Do(ctx, func() { status, startErr = d.runner.Start(mode) }); err != nil {
		return nil, err
	}
	if startErr != nil {
		return nil, startErr
	}
	d.logger.Info("start requested", "mode", mode, "session_id", status.SessionID, "state", status.State)
	return status, nil
}

func (d *Daemon) handleStop(ctx context.Context, _ []byte) (any, error) {
	var status arc.Status
	if err := d.sequence.Do(ctx, func() { status = d.runner.Stop() }); err != nil {
		return nil, err
	}
	d.logger.Info("stop requested", "session_id", status.SessionID, "state", status.State)
	return status, nil
}

func (d *Daemon) handleStatus(ctx context.Context, _ []byte) (any, error) {
	var status arc.Status
	if err := d.sequence.Do(ctx, func() { status = d.runner.Status() }); err != nil {
		return nil, err
	}
	return status, nil
}

func (d *Daemon) handleShutdown(ctx context.Context, _ []byte) (any, error) {
	var status arc.Status
	if err := d.sequence.Do(ctx, func() {
		d.runner.Shutdown()
		status = d.runner.Status()
	}); err != nil {
		return nil, err
	}
	d.logger.Info("shutdown requested over control socket")
	d.shutdown()
	return status, nil
}
