// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides socket I/O helpers shared by the bridge,
// the control socket, and the CLI.
//
// IsExpectedCloseError classifies errors from normal connection
// teardown, so a bridge host closed by the session does not log a
// spurious read failure. ReadLimited bounds reads of peer-supplied
// payloads.
package netutil
