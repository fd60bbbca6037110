// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bureau-foundation/arc/arc"
	"github.com/bureau-foundation/arc/lib/sequence"
)

const (
	ServiceName = "org.chromium.SessionManager"
	ObjectPath  = dbus.ObjectPath("/org/chromium/SessionManager")
	Interface   = "org.chromium.SessionManagerInterface"

	methodStartMini = "StartArcMiniContainer"
	methodUpgrade   = "UpgradeArcContainer"
	methodStartFull = "StartArcInstance"
	methodStop      = "StopArcInstance"

	signalInstanceStopped = "ArcInstanceStopped"

	// DefaultCallTimeout matches the D-Bus default reply timeout.
	DefaultCallTimeout = 25 * time.Second
)

// caller is the part of dbus.BusObject the client needs.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// StartOptions are passed in the a{sv} options dictionary of every
// start call.
type StartOptions struct {
	// LoginScreen starts the mini instance for the login screen.
	LoginScreen bool

	SkipBootCompletedBroadcast bool
	ScanVendorPrivApp          bool
}

// Options configures a Client. Sequence is required.
type Options struct {
	Sequence sequence.Sequence

	// Executor runs the blocking D-Bus calls. Defaults to
	// sequence.Goroutines.
	Executor sequence.Executor

	// CallTimeout bounds each method call. Defaults to
	// DefaultCallTimeout.
	CallTimeout time.Duration

	StartOptions StartOptions

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to session_manager. Create it with Dial or New and
// release it with Close. StartInstance, StopInstance, AddObserver and
// RemoveObserver must be called on the owning sequence.
type Client struct {
	conn         *dbus.Conn
	ownsConn     bool
	object       caller
	sequence     sequence.Sequence
	executor     sequence.Executor
	timeout      time.Duration
	startOptions StartOptions
	logger       *slog.Logger

	signals   chan *dbus.Signal
	done      chan struct{}
	closeOnce sync.Once

	// inflight counts method calls handed to the executor.
	inflight sync.WaitGroup

	// observers is owned by the sequence.
	observers []arc.InstanceObserver
}

var _ arc.ContainerTransport = (*Client)(nil)

// Dial opens a private connection to the named bus ("system" or
// "session") and returns a Client that closes it on Close.
func Dial(bus string, options Options) (*Client, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch bus {
	case "system":
		conn, err = dbus.ConnectSystemBus()
	case "session":
		conn, err = dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("unknown bus %q (want system or session)", bus)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s bus: %w", bus, err)
	}

	client, err := New(conn, options)
	if err != nil {
		conn.Close()
		return nil, err
	}
	client.ownsConn = true
	return client, nil
}

// New returns a Client on an existing connection and subscribes to
// the ArcInstanceStopped signal.
func New(conn *dbus.Conn, options Options) (*Client, error) {
	client := newClient(conn.Object(ServiceName, ObjectPath), options)
	client.conn = conn

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(signalInstanceStopped),
	); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", signalInstanceStopped, err)
	}
	conn.Signal(client.signals)
	go client.watchSignals()
	return client, nil
}

func newClient(object caller, options Options) *Client {
	if options.Sequence == nil {
		panic("sessionmanager: Sequence is required")
	}
	if options.Executor == nil {
		options.Executor = sequence.Goroutines{}
	}
	if options.CallTimeout <= 0 {
		options.CallTimeout = DefaultCallTimeout
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Client{
		object:       object,
		sequence:     options.Sequence,
		executor:     options.Executor,
		timeout:      options.CallTimeout,
		startOptions: options.StartOptions,
		logger:       options.Logger,
		signals:      make(chan *dbus.Signal, 16),
		done:         make(chan struct{}),
	}
}

// Close stops signal delivery and, for a Client from Dial, closes the
// connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn == nil {
			return
		}
		c.conn.RemoveSignal(c.signals)
		if removeErr := c.conn.RemoveMatchSignal(
			dbus.WithMatchObjectPath(ObjectPath),
			dbus.WithMatchInterface(Interface),
			dbus.WithMatchMember(signalInstanceStopped),
		); removeErr != nil && !errors.Is(removeErr, dbus.ErrClosed) {
			c.logger.Debug("removing signal match", "error", removeErr)
		}
		if c.ownsConn {
			err = c.conn.Close()
		}
	})
	return err
}

// StartInstance issues the D-Bus call for request and posts the
// result to the owning sequence.
func (c *Client) StartInstance(request arc.StartRequest, done func(arc.StartResult)) {
	sequence.AssertCurrent(c.sequence, "Client.StartInstance")
	c.goCall(func() {
		result := c.start(request)
		c.sequence.Post(func() { done(result) })
	})
}

// StopInstance asks session_manager to stop the running instance.
// Failures are logged; the stopped signal reports the outcome.
func (c *Client) StopInstance(instanceID string) {
	sequence.AssertCurrent(c.sequence, "Client.StopInstance")
	c.goCall(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.call(ctx, methodStop).Err; err != nil {
			c.logger.Error("StopArcInstance failed",
				"instance_id", instanceID,
				"result", Classify(err),
				"error", err,
			)
		}
	})
}

func (c *Client) goCall(call func()) {
	c.inflight.Add(1)
	c.executor.Go(func() {
		defer c.inflight.Done()
		call()
	})
}

// Flush waits until every StartInstance and StopInstance call issued
// so far has returned from session_manager, or until ctx ends. The
// daemon calls it after the final shutdown and before Close, so a
// StopArcInstance issued on the way out reaches the bus.
func (c *Client) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session_manager calls: %w", ctx.Err())
	}
}

// AddObserver registers observer for ArcInstanceStopped.
func (c *Client) AddObserver(observer arc.InstanceObserver) {
	sequence.AssertCurrent(c.sequence, "Client.AddObserver")
	if !slices.Contains(c.observers, observer) {
		c.observers = append(c.observers, observer)
	}
}

// RemoveObserver unregisters observer.
func (c *Client) RemoveObserver(observer arc.InstanceObserver) {
	sequence.AssertCurrent(c.sequence, "Client.RemoveObserver")
	c.observers = slices.DeleteFunc(c.observers, func(o arc.InstanceObserver) bool { return o == observer })
}

func (c *Client) start(request arc.StartRequest) arc.StartResult {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	options := c.buildOptions(request)
	switch {
	case request.Mode == arc.ModeMini:
		var instanceID string
		err := c.call(ctx, methodStartMini, options).Store(&instanceID)
		return c.result(methodStartMini, instanceID, -1, err)

	case request.Upgrade:
		fd := dbus.UnixFD(-1)
		err := c.call(ctx, methodUpgrade, options).Store(&fd)
		return c.result(methodUpgrade, request.InstanceID, fd, err)

	default:
		var instanceID string
		fd := dbus.UnixFD(-1)
		err := c.call(ctx, methodStartFull, options).Store(&instanceID, &fd)
		return c.result(methodStartFull, instanceID, fd, err)
	}
}

func (c *Client) result(method, instanceID string, fd dbus.UnixFD, err error) arc.StartResult {
	if err != nil {
		code := Classify(err)
		c.logger.Warn("session_manager call failed", "method", method, "result", code, "error", err)
		return arc.StartResult{Code: code, Err: fmt.Errorf("%s: %w", method, err)}
	}
	result := arc.StartResult{Code: arc.ResultSuccess, InstanceID: instanceID}
	if fd >= 0 {
		result.Socket = os.NewFile(uintptr(fd), "arc-bridge-socket")
	}
	return result
}

func (c *Client) buildOptions(request arc.StartRequest) map[string]dbus.Variant {
	options := map[string]dbus.Variant{
		"skip_boot_completed_broadcast": dbus.MakeVariant(c.startOptions.SkipBootCompletedBroadcast),
		"scan_vendor_priv_app":          dbus.MakeVariant(c.startOptions.ScanVendorPrivApp),
	}
	if request.Mode == arc.ModeMini {
		options["for_login_screen"] = dbus.MakeVariant(c.startOptions.LoginScreen)
	}
	if request.Upgrade {
		options["container_instance_id"] = dbus.MakeVariant(request.InstanceID)
	}
	return options
}

// call is a thin wrapper of CallWithContext.
func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return c.object.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

func (c *Client) watchSignals() {
	for {
		select {
		case <-c.done:
			return
		case signal, ok := <-c.signals:
			if !ok {
				return
			}
			c.handleSignal(signal)
		}
	}
}

func (c *Client) handleSignal(signal *dbus.Signal) {
	clean, instanceID, err := ParseInstanceStopped(signal)
	if errors.Is(err, errOtherSignal) {
		return
	}
	if err != nil {
		c.logger.Warn("malformed ArcInstanceStopped signal", "error", err)
		return
	}
	c.logger.Info("ArcInstanceStopped", "instance_id", instanceID, "clean", clean)
	c.sequence.Post(func() {
		for _, observer := range slices.Clone(c.observers) {
			observer.OnInstanceStopped(clean, instanceID)
		}
	})
}
