// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the arc CLI: a tree of
// [Command] values dispatched by name, flags bound from tagged
// parameter structs with [FlagsFromParams], structured help output,
// typo suggestions for unknown commands and flags, and shared helpers
// for JSON output and reading input from a file or stdin.
package cli
