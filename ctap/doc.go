// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ctap decodes CTAP2 authenticator responses.
//
// An authenticator response is a one-byte status code followed, on
// success, by a CBOR map with small unsigned integer keys.
// [SplitResponse] separates the two. The Decode functions take the
// status and the body and return a typed value:
//
//	status, body, err := ctap.SplitResponse(frame)
//	info, err := ctap.DecodeGetInfoResponse(status, body)
//
// Each message type declares its keys in a table of (key, name, CBOR
// major type, required). Every present key in the table is checked
// against its major type before any value is decoded, and a missing
// required key fails the whole decode. Keys not in the table are
// ignored. There are no partial results: a failed decode returns the
// zero value and an error wrapping [ErrMalformedResponse], or a
// *[StatusError] when the authenticator reported a failure.
//
// Unsigned fields decode to uint64 without range checks.
//
// The package has no state and is safe for concurrent use.
package ctap
