// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the arc daemon
// and CLI.
//
// Configuration is loaded from a single file named by either the
// ARC_CONFIG environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no search path.
//
// The file may contain development, staging and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section gets stricter defaults:
// warn-level logging and a loopback-only metrics listener.
//
// ${VAR} and ${VAR:-default} are expanded in path fields after loading,
// with ${ARC_RUNTIME} bound to paths.runtime_dir.
package config
