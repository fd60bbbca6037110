// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionmanager implements [arc.ContainerTransport] over
// D-Bus, against the session_manager service at
// org.chromium.SessionManager.
//
// Every method call runs off the owning sequence with its own timeout;
// completions and ArcInstanceStopped signals are posted back to the
// sequence, so a [arc.Session] never sees a callback on another
// goroutine. D-Bus errors are classified into [arc.ResultCode] values:
// LowFreeDisk becomes [arc.ResultLowFreeDisk], an absent or silent
// service becomes [arc.ResultUnavailable], and everything else
// [arc.ResultFailure].
package sessionmanager
