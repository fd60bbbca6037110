// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration.
//
// CBOR shows up in three places in this repository:
//
//   - the daemon control socket (lib/service), one CBOR request and
//     one CBOR response per connection;
//   - the bridge message channel between the session and a running
//     container instance (bridge);
//   - authenticator responses decoded by the ctap package, which are
//     produced by hardware we do not control.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// ctap package relies on this when it re-serializes attestation
// objects, so the same logical data always produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Decoders that must reject items of the wrong shape (rather than let
// the library coerce them) inspect the raw item first with
// [MajorTypeOf] and [IsBool].
package codec
