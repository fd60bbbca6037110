// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the arc-daemon control socket protocol.
//
// The protocol is CBOR over a Unix socket, one request per connection.
// A request is a CBOR map with an "action" field plus action-specific
// fields. The response is a [Response] envelope: {ok: true, data: ...}
// or {ok: false, error: "..."}.
//
// [SocketServer] dispatches requests to registered [ActionFunc]
// handlers. [Client] opens a connection per Call and returns a
// *[ServiceError] when the daemon reports a failure.
//
// Access control is the socket file mode: the daemon creates the
// socket 0660 in its runtime directory.
package service
