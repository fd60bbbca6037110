// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package arc implements the lifecycle of one ARC container session.
//
// A [Session] starts a lightweight mini instance, optionally upgrades it
// to a full instance, connects the full instance's bridge, and tears
// everything down when asked or when the container stops on its own:
//
//	NOT_STARTED -> STARTING_MINI_INSTANCE -> RUNNING_MINI_INSTANCE
//	  -> STARTING_FULL_INSTANCE -> CONNECTING_MOJO -> RUNNING_FULL_INSTANCE
//	  -> STOPPED
//
// States only move forward, except that any state may jump to STOPPED.
// Observers hear exactly one OnSessionStopped per session, carrying a
// [StopReason] and whether the session ever reached a running state.
// Once Stop or OnShutdown has been called the reason is always
// StopReasonShutdown, whatever else fails concurrently.
//
// # Sequence affinity
//
// Every Session method, every transport completion, and every stopped
// signal runs on one owning [sequence.Sequence]; entry points panic when
// called from anywhere else. The bridge handshake blocks, so it runs on
// a [sequence.Executor] and posts its result back. Stop never blocks:
// during a pending start it records the request and acts when the
// completion arrives, and during the handshake it closes the cancel
// pipe to unblock the accept.
//
// # Collaborators
//
// The container is driven through [ContainerTransport] (the D-Bus
// session_manager client in production) and the bridge through
// [BridgeConnector]. [Runner] hosts one session at a time for the
// daemon, and [Metrics] exports session outcomes to Prometheus.
package arc
