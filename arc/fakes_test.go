// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package arc

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/arc/lib/clock"
	"github.com/bureau-foundation/arc/lib/sequence"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pendingStart is a StartInstance call the test has not answered yet.
type pendingStart struct {
	request StartRequest
	done    func(StartResult)
}

// fakeTransport records calls and lets the test answer them. Answers
// are posted to the owning sequence, as the D-Bus transport does.
type fakeTransport struct {
	sequence  sequence.Sequence
	pending   []pendingStart
	requests  []StartRequest
	stops     []string
	observers []InstanceObserver
}

func (f *fakeTransport) StartInstance(request StartRequest, done func(StartResult)) {
	f.requests = append(f.requests, request)
	f.pending = append(f.pending, pendingStart{request, done})
}

func (f *fakeTransport) StopInstance(instanceID string) {
	f.stops = append(f.stops, instanceID)
}

func (f *fakeTransport) AddObserver(observer InstanceObserver) {
	f.observers = append(f.observers, observer)
}

func (f *fakeTransport) RemoveObserver(observer InstanceObserver) {
	f.observers = slices.DeleteFunc(f.observers, func(o InstanceObserver) bool { return o == observer })
}

// complete answers the oldest pending start.
func (f *fakeTransport) complete(t *testing.T, result StartResult) StartRequest {
	t.Helper()
	if len(f.pending) == 0 {
		t.Fatal("no pending StartInstance call")
	}
	call := f.pending[0]
	f.pending = f.pending[1:]
	f.sequence.Post(func() { call.done(result) })
	return call.request
}

// signalStopped delivers the container's stopped signal.
func (f *fakeTransport) signalStopped(clean bool, instanceID string) {
	for _, observer := range slices.Clone(f.observers) {
		f.sequence.Post(func() { observer.OnInstanceStopped(clean, instanceID) })
	}
}

// fakeHost is a BridgeHost that records Close.
type fakeHost struct {
	closed int
}

func (h *fakeHost) Close() error {
	h.closed++
	return nil
}

// fakeConnector stands in for the bridge handshake. Connect runs on
// the blocking Manual, so it stays pending until the test drains that
// queue; it then fails if the cancel pipe was closed meanwhile.
type fakeConnector struct {
	host   *fakeHost
	err    error
	calls  int
	socket *os.File
	cancel *os.File
}

var errConnectCancelled = errors.New("cancelled")

func (c *fakeConnector) Connect(socket, cancel *os.File) (BridgeHost, error) {
	c.calls++
	c.socket, c.cancel = socket, cancel
	defer socket.Close()
	defer cancel.Close()

	if cancelled(cancel) {
		return nil, errConnectCancelled
	}
	if c.err != nil {
		return nil, c.err
	}
	c.host = &fakeHost{}
	return c.host, nil
}

// cancelled reports whether the write end of the pipe has been closed,
// in which case a read returns EOF at once. An open pipe times out.
func cancelled(readEnd *os.File) bool {
	readEnd.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err := readEnd.Read(make([]byte, 1))
	return errors.Is(err, io.EOF)
}

// recordingObserver records every callback in order.
type recordingObserver struct {
	stops   []stopRecord
	running []Mode
	states  []State
}

type stopRecord struct {
	reason     StopReason
	wasRunning bool
}

func (o *recordingObserver) OnSessionStopped(reason StopReason, wasRunning bool) {
	o.stops = append(o.stops, stopRecord{reason, wasRunning})
}

func (o *recordingObserver) OnSessionRunning(mode Mode, bootTime time.Duration) {
	o.running = append(o.running, mode)
}

func (o *recordingObserver) OnSessionStateChanged(state State) {
	o.states = append(o.states, state)
}

// harness wires a Session to fakes on two Manual sequences: main is
// the owning sequence, blocking stands in for the worker pool.
type harness struct {
	t         *testing.T
	main      *sequence.Manual
	blocking  *sequence.Manual
	clock     *clock.FakeClock
	transport *fakeTransport
	connector *fakeConnector
	observer  *recordingObserver
	session   *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		main:      &sequence.Manual{},
		blocking:  &sequence.Manual{},
		clock:     clock.Fake(testEpoch),
		connector: &fakeConnector{},
		observer:  &recordingObserver{},
	}
	h.transport = &fakeTransport{sequence: h.main}
	h.main.Do(func() {
		h.session = New(Options{
			ID:        "session-under-test",
			Sequence:  h.main,
			Executor:  h.blocking,
			Transport: h.transport,
			Connector: h.connector,
			Clock:     h.clock,
			Logger:    testLogger(),
		})
		h.session.AddObserver(h.observer)
	})
	return h
}

// do runs f on the owning sequence.
func (h *harness) do(f func()) { h.main.Do(f) }

// run drains both sequences until neither has work.
func (h *harness) run() {
	for h.main.RunUntilIdle()+h.blocking.RunUntilIdle() > 0 {
	}
}

func (h *harness) state() State {
	var state State
	h.do(func() { state = h.session.State() })
	return state
}

func (h *harness) requireState(want State) {
	h.t.Helper()
	if got := h.state(); got != want {
		h.t.Fatalf("state = %s, want %s", got, want)
	}
}

func (h *harness) requireStops(want ...stopRecord) {
	h.t.Helper()
	if !slices.Equal(h.observer.stops, want) {
		h.t.Fatalf("OnSessionStopped calls = %+v, want %+v", h.observer.stops, want)
	}
}

func (h *harness) requireStopInstance(want ...string) {
	h.t.Helper()
	if !slices.Equal(h.transport.stops, want) {
		h.t.Fatalf("StopInstance calls = %v, want %v", h.transport.stops, want)
	}
}

// bridgeSocket returns a listening-socket stand-in for a full start.
func (h *harness) bridgeSocket() *os.File {
	h.t.Helper()
	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("pipe: %v", err)
	}
	writeEnd.Close()
	return readEnd
}

func (h *harness) startMini() {
	h.t.Helper()
	h.do(func() { h.session.Start(ModeMini) })
	h.transport.complete(h.t, StartResult{Code: ResultSuccess, InstanceID: "instance-1"})
	h.run()
	h.requireState(StateRunningMiniInstance)
}

func (h *harness) startFull() {
	h.t.Helper()
	h.startMini()
	h.do(func() { h.session.Start(ModeFull) })
	h.transport.complete(h.t, StartResult{Code: ResultSuccess, InstanceID: "instance-1", Socket: h.bridgeSocket()})
	h.run()
	h.requireState(StateRunningFullInstance)
}

func requirePanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	f()
}
