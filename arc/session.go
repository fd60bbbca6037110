// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arc

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bureau-foundation/arc/lib/clock"
	"github.com/bureau-foundation/arc/lib/sequence"
)

// Options configures a Session. Sequence, Transport and Connector are
// required.
type Options struct {
	// ID names the session in logs and status. Defaults to a new ULID.
	ID string

	Sequence  sequence.Sequence
	Transport ContainerTransport
	Connector BridgeConnector

	// Executor runs the blocking bridge handshake. Defaults to
	// sequence.Goroutines.
	Executor sequence.Executor

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Session drives one container through its lifecycle. All methods
// must be called on the owning sequence.
type Session struct {
	id        string
	sequence  sequence.Sequence
	executor  sequence.Executor
	transport ContainerTransport
	connector BridgeConnector
	clock     clock.Clock
	logger    *slog.Logger

	state         State
	targetMode    Mode
	hasTarget     bool
	stopRequested bool
	wasRunning    bool
	stopReason    StopReason

	// instanceID is set while the container instance is known to
	// exist. lastInstanceID remembers it after STOPPED so a late
	// completion for the same instance is not stopped twice.
	instanceID     string
	lastInstanceID string

	// cancelPipe is the write end of the accept cancel pipe; non-nil
	// only in StateConnectingBridge.
	cancelPipe *os.File
	bridgeHost BridgeHost

	startedAt time.Time
	runningAt time.Time
	stoppedAt time.Time

	observers []Observer
	closed    bool
}

// New creates a session in StateNotStarted and registers it for the
// transport's stopped signal.
func New(options Options) *Session {
	if options.Sequence == nil || options.Transport == nil || options.Connector == nil {
		panic("arc.New: Sequence, Transport and Connector are required")
	}
	if options.ID == "" {
		options.ID = ulid.Make().String()
	}
	if options.Executor == nil {
		options.Executor = sequence.Goroutines{}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	s := &Session{
		id:        options.ID,
		sequence:  options.Sequence,
		executor:  options.Executor,
		transport: options.Transport,
		connector: options.Connector,
		clock:     options.Clock,
		logger:    options.Logger.With("session_id", options.ID),
		state:     StateNotStarted,
	}
	s.transport.AddObserver(s)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	sequence.AssertCurrent(s.sequence, "Session.State")
	return s.state
}

// TargetMode returns the most recent mode passed to Start. ok is false
// before the first Start.
func (s *Session) TargetMode() (mode Mode, ok bool) {
	sequence.AssertCurrent(s.sequence, "Session.TargetMode")
	return s.targetMode, s.hasTarget
}

// InstanceID returns the container instance id, or "" when none is
// known.
func (s *Session) InstanceID() string {
	sequence.AssertCurrent(s.sequence, "Session.InstanceID")
	return s.instanceID
}

// AddObserver registers observer. Adding the same observer twice has
// no effect.
func (s *Session) AddObserver(observer Observer) {
	sequence.AssertCurrent(s.sequence, "Session.AddObserver")
	if !slices.Contains(s.observers, observer) {
		s.observers = append(s.observers, observer)
	}
}

// RemoveObserver unregisters observer.
func (s *Session) RemoveObserver(observer Observer) {
	sequence.AssertCurrent(s.sequence, "Session.RemoveObserver")
	s.observers = slices.DeleteFunc(s.observers, func(o Observer) bool { return o == observer })
}

// Start requests the session reach mode.
//
// From NOT_STARTED either mode starts immediately. From
// RUNNING_MINI_INSTANCE, ModeFull upgrades. ModeFull while the mini
// instance is still starting is remembered and run when the start
// completes. A request that is already satisfied or in progress does
// nothing. Start after Stop, on a stopped session, or asking for mini
// after full was requested panics.
func (s *Session) Start(mode Mode) {
	sequence.AssertCurrent(s.sequence, "Session.Start")

	if s.stopRequested || s.state == StateStopped {
		panic(fmt.Sprintf("arc: Start(%s) on session %s after stop (state %s)", mode, s.id, s.state))
	}
	if mode == ModeMini && s.hasTarget && s.targetMode == ModeFull {
		panic(fmt.Sprintf("arc: Start(mini) on session %s downgrades from full", s.id))
	}

	s.targetMode = mode
	s.hasTarget = true

	switch s.state {
	case StateNotStarted:
		s.startedAt = s.clock.Now()
		if mode == ModeMini {
			s.setState(StateStartingMiniInstance)
			s.logger.Info("starting mini instance")
			s.transport.StartInstance(StartRequest{Mode: ModeMini}, s.onMiniInstanceStarted)
			return
		}
		s.setState(StateStartingFullInstance)
		s.logger.Info("starting full instance")
		s.transport.StartInstance(StartRequest{Mode: ModeFull}, s.onFullInstanceStarted)

	case StateStartingMiniInstance:
		if mode == ModeFull {
			s.logger.Info("full instance requested, upgrading once mini instance starts")
		}

	case StateRunningMiniInstance:
		if mode == ModeFull {
			s.upgrade()
		}
	}
}

func (s *Session) upgrade() {
	s.setState(StateStartingFullInstance)
	s.logger.Info("upgrading to full instance", "instance_id", s.instanceID)
	s.transport.StartInstance(StartRequest{
		Mode:       ModeFull,
		Upgrade:    true,
		InstanceID: s.instanceID,
	}, s.onFullInstanceStarted)
}

// Stop requests an orderly stop. It never blocks and may be called any
// number of times. From NOT_STARTED the session stops immediately
// without notifying observers.
func (s *Session) Stop() {
	sequence.AssertCurrent(s.sequence, "Session.Stop")

	if s.state == StateStopped {
		return
	}
	s.stopRequested = true

	switch s.state {
	case StateNotStarted:
		s.stopReason = StopReasonShutdown
		s.stoppedAt = s.clock.Now()
		s.setState(StateStopped)
		s.logger.Info("session stopped before start")

	case StateStartingMiniInstance, StateStartingFullInstance:
		s.logger.Info("stop requested, waiting for pending start", "state", s.state)

	case StateConnectingBridge:
		s.logger.Info("stop requested, cancelling bridge connection")
		s.closeCancelPipe()

	case StateRunningMiniInstance, StateRunningFullInstance:
		s.stopInstance()
		s.finish(StopReasonShutdown)
	}
}

// OnShutdown forces the session to STOPPED immediately, for when the
// host itself is going away. Completions that arrive afterwards only
// release what they carry.
func (s *Session) OnShutdown() {
	sequence.AssertCurrent(s.sequence, "Session.OnShutdown")

	if s.state == StateStopped {
		return
	}
	s.stopRequested = true
	s.closeCancelPipe()
	s.stopInstance()

	if s.state == StateNotStarted {
		s.stopReason = StopReasonShutdown
		s.stoppedAt = s.clock.Now()
		s.setState(StateStopped)
		return
	}
	s.finish(StopReasonShutdown)
}

// Close releases the session's registration with the transport. It
// panics unless the session is NOT_STARTED or STOPPED.
func (s *Session) Close() {
	sequence.AssertCurrent(s.sequence, "Session.Close")

	if s.state != StateNotStarted && s.state != StateStopped {
		panic(fmt.Sprintf("arc: Close on session %s in state %s", s.id, s.state))
	}
	if s.closed {
		return
	}
	s.closed = true
	s.transport.RemoveObserver(s)
}

// OnInstanceStopped handles the container's stopped signal. Signals
// for any instance other than the current one are ignored.
func (s *Session) OnInstanceStopped(clean bool, instanceID string) {
	sequence.AssertCurrent(s.sequence, "Session.OnInstanceStopped")

	if s.instanceID == "" || instanceID != s.instanceID {
		s.logger.Debug("ignoring stopped signal for another instance",
			"instance_id", instanceID,
			"current_instance_id", s.instanceID,
		)
		return
	}

	// The instance is already gone; nothing to stop.
	s.lastInstanceID = s.instanceID
	s.instanceID = ""

	var reason StopReason
	switch {
	case s.stopRequested:
		reason = StopReasonShutdown
	case !clean:
		reason = StopReasonCrash
	default:
		reason = StopReasonGenericBootFailure
	}
	s.logger.Info("container instance stopped",
		"instance_id", instanceID,
		"clean", clean,
		"state", s.state,
	)
	s.finish(reason)
}

func (s *Session) onMiniInstanceStarted(result StartResult) {
	sequence.AssertCurrent(s.sequence, "Session.onMiniInstanceStarted")

	if s.state != StateStartingMiniInstance {
		s.releaseLateStart(result)
		return
	}

	if result.Code == ResultSuccess {
		s.instanceID = result.InstanceID
	}
	if s.stopRequested {
		s.stopInstance()
		s.finish(StopReasonShutdown)
		return
	}

	switch result.Code {
	case ResultSuccess:
	case ResultLowFreeDisk:
		s.logger.Error("mini instance start failed: low free disk", "error", result.Err)
		s.finish(StopReasonLowDiskSpace)
		return
	default:
		s.logger.Error("mini instance start failed", "result", result.Code, "error", result.Err)
		s.finish(StopReasonGenericBootFailure)
		return
	}

	s.logger.Info("mini instance running", "instance_id", s.instanceID)
	s.enterRunning(StateRunningMiniInstance, ModeMini)

	if s.targetMode == ModeFull {
		s.upgrade()
	}
}

func (s *Session) onFullInstanceStarted(result StartResult) {
	sequence.AssertCurrent(s.sequence, "Session.onFullInstanceStarted")

	if s.state != StateStartingFullInstance {
		s.releaseLateStart(result)
		return
	}

	if result.Code == ResultSuccess {
		if result.InstanceID != "" {
			s.instanceID = result.InstanceID
		}
		if result.Socket == nil {
			result.Code = ResultFailure
			result.Err = fmt.Errorf("full instance start returned no bridge socket")
		}
	}

	if s.stopRequested {
		closeFile(result.Socket)
		s.stopInstance()
		s.finish(StopReasonShutdown)
		return
	}

	switch result.Code {
	case ResultSuccess:
	case ResultLowFreeDisk:
		s.logger.Error("full instance start failed: low free disk", "error", result.Err)
		closeFile(result.Socket)
		s.stopInstance()
		s.finish(StopReasonLowDiskSpace)
		return
	default:
		s.logger.Error("full instance start failed", "result", result.Code, "error", result.Err)
		closeFile(result.Socket)
		s.stopInstance()
		s.finish(StopReasonGenericBootFailure)
		return
	}

	cancelRead, cancelWrite, err := os.Pipe()
	if err != nil {
		s.logger.Error("creating bridge cancel pipe", "error", err)
		closeFile(result.Socket)
		s.stopInstance()
		s.finish(StopReasonGenericBootFailure)
		return
	}
	s.cancelPipe = cancelWrite
	s.setState(StateConnectingBridge)
	s.logger.Info("full instance started, connecting bridge", "instance_id", s.instanceID)

	socket := result.Socket
	s.executor.Go(func() {
		host, err := s.connector.Connect(socket, cancelRead)
		s.sequence.Post(func() { s.onBridgeConnected(host, err) })
	})
}

func (s *Session) onBridgeConnected(host BridgeHost, err error) {
	sequence.AssertCurrent(s.sequence, "Session.onBridgeConnected")

	s.closeCancelPipe()

	if s.state != StateConnectingBridge {
		if host != nil {
			host.Close()
		}
		return
	}

	if s.stopRequested {
		if host != nil {
			host.Close()
		}
		s.stopInstance()
		s.finish(StopReasonShutdown)
		return
	}

	if err != nil || host == nil {
		s.logger.Error("bridge connection failed", "error", err)
		if host != nil {
			host.Close()
		}
		s.stopInstance()
		s.finish(StopReasonGenericBootFailure)
		return
	}

	s.bridgeHost = host
	s.logger.Info("bridge connected, full instance running", "instance_id", s.instanceID)
	s.enterRunning(StateRunningFullInstance, ModeFull)
}

// releaseLateStart handles a completion that arrives after the
// session already stopped. A newly created instance is stopped.
func (s *Session) releaseLateStart(result StartResult) {
	closeFile(result.Socket)
	if result.Code != ResultSuccess || result.InstanceID == "" {
		return
	}
	if result.InstanceID == s.lastInstanceID {
		return
	}
	s.logger.Info("stopping instance that started after shutdown", "instance_id", result.InstanceID)
	s.transport.StopInstance(result.InstanceID)
}

func (s *Session) enterRunning(state State, mode Mode) {
	s.wasRunning = true
	s.runningAt = s.clock.Now()
	s.setState(state)

	bootTime := s.runningAt.Sub(s.startedAt)
	for _, observer := range slices.Clone(s.observers) {
		if running, ok := observer.(RunningObserver); ok {
			running.OnSessionRunning(mode, bootTime)
		}
	}
}

func (s *Session) stopInstance() {
	if s.instanceID == "" {
		return
	}
	s.logger.Info("stopping container instance", "instance_id", s.instanceID)
	s.transport.StopInstance(s.instanceID)
}

// finish moves to STOPPED, releases every live resource, and notifies
// observers.
func (s *Session) finish(reason StopReason) {
	s.closeCancelPipe()
	if s.bridgeHost != nil {
		if err := s.bridgeHost.Close(); err != nil {
			s.logger.Warn("closing bridge host", "error", err)
		}
		s.bridgeHost = nil
	}
	if s.instanceID != "" {
		s.lastInstanceID = s.instanceID
		s.instanceID = ""
	}

	s.stopReason = reason
	s.stoppedAt = s.clock.Now()
	s.setState(StateStopped)
	s.logger.Info("session stopped", "reason", reason, "was_running", s.wasRunning)

	for _, observer := range slices.Clone(s.observers) {
		observer.OnSessionStopped(reason, s.wasRunning)
	}
}

func (s *Session) setState(state State) {
	if state < s.state {
		panic(fmt.Sprintf("arc: session %s moving backwards from %s to %s", s.id, s.state, state))
	}
	s.state = state
	for _, observer := range slices.Clone(s.observers) {
		if stateObserver, ok := observer.(StateObserver); ok {
			stateObserver.OnSessionStateChanged(state)
		}
	}
}

func (s *Session) closeCancelPipe() {
	if s.cancelPipe == nil {
		return
	}
	s.cancelPipe.Close()
	s.cancelPipe = nil
}

func closeFile(file *os.File) {
	if file != nil {
		file.Close()
	}
}
