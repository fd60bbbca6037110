// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Arc is the operator CLI for arc-daemon and for offline inspection of
// CTAP2 authenticator responses.
//
//	arc session start --mode full
//	arc session status --json
//	arc ctap decode --kind get-info --with-status --hex capture.hex
package main
