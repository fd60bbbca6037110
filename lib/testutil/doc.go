// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory under /tmp for Unix
// domain sockets. sun_path is limited to 108 bytes and t.TempDir()
// paths can exceed it.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout safety valve so tests that wait on bridge
// handshakes or control-socket goroutines do not call time.After
// directly.
//
// All helpers call t.Fatalf on failure.
package testutil
