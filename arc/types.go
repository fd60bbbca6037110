// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arc

import (
	"fmt"
	"os"
	"time"
)

// Mode is the kind of instance a session is asked to reach.
type Mode int

const (
	ModeMini Mode = iota
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeMini:
		return "mini"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "mini" or "full".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "mini":
		return ModeMini, nil
	case "full":
		return ModeFull, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want mini or full)", s)
	}
}

// State is a session lifecycle state. The numeric order is the
// transition order.
type State int

const (
	StateNotStarted State = iota
	StateStartingMiniInstance
	StateRunningMiniInstance
	StateStartingFullInstance
	StateConnectingBridge
	StateRunningFullInstance
	StateStopped
)

var stateNames = [...]string{
	StateNotStarted:           "NOT_STARTED",
	StateStartingMiniInstance: "STARTING_MINI_INSTANCE",
	StateRunningMiniInstance:  "RUNNING_MINI_INSTANCE",
	StateStartingFullInstance: "STARTING_FULL_INSTANCE",
	StateConnectingBridge:     "CONNECTING_MOJO",
	StateRunningFullInstance:  "RUNNING_FULL_INSTANCE",
	StateStopped:              "STOPPED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Running reports whether s is one of the RUNNING_* states.
func (s State) Running() bool {
	return s == StateRunningMiniInstance || s == StateRunningFullInstance
}

// StopReason says why a session reached STOPPED.
type StopReason int

const (
	StopReasonShutdown StopReason = iota
	StopReasonGenericBootFailure
	StopReasonLowDiskSpace
	StopReasonCrash
)

func (r StopReason) String() string {
	switch r {
	case StopReasonShutdown:
		return "SHUTDOWN"
	case StopReasonGenericBootFailure:
		return "GENERIC_BOOT_FAILURE"
	case StopReasonLowDiskSpace:
		return "LOW_DISK_SPACE"
	case StopReasonCrash:
		return "CRASH"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// ResultCode classifies a container start completion.
type ResultCode int

const (
	ResultSuccess ResultCode = iota
	ResultFailure
	ResultLowFreeDisk
	// ResultUnavailable means the container service could not be
	// reached at all.
	ResultUnavailable
)

func (c ResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultLowFreeDisk:
		return "low_free_disk"
	case ResultUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("ResultCode(%d)", int(c))
	}
}

// StartRequest asks the transport to start or upgrade an instance.
type StartRequest struct {
	Mode Mode
	// Upgrade is set when a running mini instance is upgraded in place;
	// InstanceID then names it.
	Upgrade    bool
	InstanceID string
}

// StartResult is delivered once per StartInstance call.
type StartResult struct {
	Code ResultCode

	// InstanceID is set on success. For an upgrade it repeats the
	// request's id.
	InstanceID string

	// Socket is the listening bridge socket of a full instance. The
	// receiver owns it.
	Socket *os.File

	// Err carries the transport's detail on failure.
	Err error
}

// ContainerTransport starts and stops container instances. Completions
// and InstanceObserver calls must be delivered on the session's owning
// sequence.
type ContainerTransport interface {
	StartInstance(request StartRequest, done func(StartResult))
	StopInstance(instanceID string)
	AddObserver(observer InstanceObserver)
	RemoveObserver(observer InstanceObserver)
}

// InstanceObserver receives the container's stopped signal.
type InstanceObserver interface {
	OnInstanceStopped(clean bool, instanceID string)
}

// BridgeConnector performs the blocking accept-and-handshake on a full
// instance's socket. It owns socket and cancel and closes both. It
// returns promptly once the write end of cancel is closed.
type BridgeConnector interface {
	Connect(socket, cancel *os.File) (BridgeHost, error)
}

// BridgeHost is a connected bridge.
type BridgeHost interface {
	Close() error
}

// Observer hears that a session stopped. It is called on the owning
// sequence, exactly once per session.
type Observer interface {
	OnSessionStopped(reason StopReason, wasRunning bool)
}

// RunningObserver is an optional Observer extension called on entering
// each RUNNING_* state, with the time since Start.
type RunningObserver interface {
	OnSessionRunning(mode Mode, bootTime time.Duration)
}

// StateObserver is an optional Observer extension called on every
// state change.
type StateObserver interface {
	OnSessionStateChanged(state State)
}
