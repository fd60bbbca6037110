// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the handshake that connects a full container
// instance to the host, and the message channel it produces.
//
// The container provides a listening Unix socket. [Connector.Accept]
// blocks until the instance connects or the cancel pipe is closed, then
// accepts and sends the instance a handshake on the accepted
// connection:
//
//	[1 byte: token length][token bytes]  + SCM_RIGHTS: one socket fd
//
// The passed descriptor is one end of a fresh socketpair. The host keeps
// the other end as a [Host]; the accepted connection is closed once the
// handshake is sent. [Join] performs the instance side of the same
// exchange and returns an [Endpoint].
//
// Both ends then carry CBOR-encoded [Message] values. CBOR is
// self-delimiting, so messages need no framing.
//
// Accept is the only blocking step in a session's startup. The session
// runs it off its owning sequence and cancels it by closing the write
// end of the cancel pipe; Accept polls the read end alongside the
// socket and returns [ErrCancelled] as soon as it becomes readable or
// hangs up. Cancellation takes priority over a pending connection.
package bridge
