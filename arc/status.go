// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arc

import "time"

// Status is a point-in-time snapshot of a session, as reported by the
// daemon's status action.
type Status struct {
	SessionID     string    `cbor:"session_id" json:"session_id,omitempty"`
	State         string    `cbor:"state" json:"state"`
	TargetMode    string    `cbor:"target_mode,omitempty" json:"target_mode,omitempty"`
	InstanceID    string    `cbor:"instance_id,omitempty" json:"instance_id,omitempty"`
	StopRequested bool      `cbor:"stop_requested" json:"stop_requested"`
	WasRunning    bool      `cbor:"was_running" json:"was_running"`
	StopReason    string    `cbor:"stop_reason,omitempty" json:"stop_reason,omitempty"`
	StartedAt     time.Time `cbor:"started_at" json:"started_at,omitzero"`
	RunningAt     time.Time `cbor:"running_at" json:"running_at,omitzero"`
	StoppedAt     time.Time `cbor:"stopped_at" json:"stopped_at,omitzero"`
}

// BootTime is the time from Start to the most recent running state, or
// zero if the session never ran.
func (s Status) BootTime() time.Duration {
	if s.RunningAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.RunningAt.Sub(s.StartedAt)
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	status := Status{
		SessionID:     s.id,
		State:         s.State().String(),
		InstanceID:    s.instanceID,
		StopRequested: s.stopRequested,
		WasRunning:    s.wasRunning,
		StartedAt:     s.startedAt,
		RunningAt:     s.runningAt,
		StoppedAt:     s.stoppedAt,
	}
	if s.hasTarget {
		status.TargetMode = s.targetMode.String()
	}
	if s.state == StateStopped {
		status.StopReason = s.stopReason.String()
	}
	return status
}
