// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Arc-daemon hosts one ARC container session at a time. It talks to
// session_manager over D-Bus, performs the bridge handshake for full
// instances, and serves a CBOR control socket for the arc CLI.
//
// # Startup
//
// Configuration comes from --config or ARC_CONFIG; with neither, the
// built-in defaults are used. The daemon creates the runtime directory,
// connects to the configured bus, and starts the owning sequence that
// every session method runs on.
//
// # Socket API
//
// One CBOR request per connection, {action: ...}:
//
//   - start (mode: "mini" | "full", optional): start or upgrade the
//     session, creating a new one if none exists or the last stopped
//   - stop: request an orderly stop; a session that has not stopped
//     after daemon.stop_timeout is forced down
//   - status: the current session snapshot
//   - shutdown: force the session down and exit
//
// Every action replies with the session status.
//
// # Metrics
//
// When daemon.metrics_address is set, /metrics serves the arc_session_*
// series alongside the Go runtime and process collectors.
package main
