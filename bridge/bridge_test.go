// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/arc/arc"
	"github.com/bureau-foundation/arc/lib/testutil"
)

var _ arc.BridgeConnector = (*Connector)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// listenSocket creates a listening Unix socket as the container would
// and returns its path and a descriptor for the connector.
func listenSocket(t *testing.T) (string, *os.File) {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "bridge.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	file, err := listener.(*net.UnixListener).File()
	if err != nil {
		t.Fatalf("listener file: %v", err)
	}
	return socketPath, file
}

func cancelPipe(t *testing.T) (readEnd, writeEnd *os.File) {
	t.Helper()
	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { writeEnd.Close() })
	return readEnd, writeEnd
}

type acceptResult struct {
	host *Host
	err  error
}

func startAccept(connector *Connector, socket, cancel *os.File) <-chan acceptResult {
	results := make(chan acceptResult, 1)
	go func() {
		host, err := connector.Accept(socket, cancel)
		results <- acceptResult{host, err}
	}()
	return results
}

func TestHandshakeAndMessages(t *testing.T) {
	socketPath, socket := listenSocket(t)
	cancelRead, _ := cancelPipe(t)
	results := startAccept(&Connector{Logger: testLogger()}, socket, cancelRead)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	endpoint, err := Join(ctx, socketPath)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer endpoint.Close()

	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for Accept")
	if result.err != nil {
		t.Fatalf("Accept: %v", result.err)
	}
	host := result.host
	defer host.Close()

	if len(host.Token()) != 2*tokenBytes {
		t.Errorf("token length = %d, want %d", len(host.Token()), 2*tokenBytes)
	}
	if endpoint.Token() != host.Token() {
		t.Errorf("endpoint token %q != host token %q", endpoint.Token(), host.Token())
	}

	// Instance to host.
	ready, err := NewMessage("instance_ready", map[string]string{"version": "9"})
	if err != nil {
		t.Fatal(err)
	}
	if err := endpoint.Send(ready); err != nil {
		t.Fatalf("endpoint Send: %v", err)
	}
	received := testutil.RequireReceive(t, host.Messages(), 5*time.Second, "host receiving")
	var payload map[string]string
	if received.Kind != "instance_ready" || received.Decode(&payload) != nil || payload["version"] != "9" {
		t.Errorf("host received %+v (payload %v)", received, payload)
	}

	// Host to instance.
	if err := host.Send(Message{Kind: "ping"}); err != nil {
		t.Fatalf("host Send: %v", err)
	}
	ping, err := endpoint.Receive()
	if err != nil || ping.Kind != "ping" {
		t.Fatalf("endpoint Receive = (%+v, %v)", ping, err)
	}

	// Closing the host ends the instance's stream.
	if err := host.Close(); err != nil {
		t.Fatalf("host Close: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := endpoint.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive after host close = %v, want EOF", err)
	}
	testutil.RequireClosed(t, host.Done(), 5*time.Second, "host read loop exit")
}

func TestInstanceDisconnectClosesMessages(t *testing.T) {
	socketPath, socket := listenSocket(t)
	cancelRead, _ := cancelPipe(t)
	results := startAccept(&Connector{Logger: testLogger()}, socket, cancelRead)

	endpoint, err := Join(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for Accept")
	if result.err != nil {
		t.Fatalf("Accept: %v", result.err)
	}
	defer result.host.Close()

	endpoint.Close()
	testutil.RequireClosed(t, result.host.Done(), 5*time.Second, "read loop exit after disconnect")
	if _, ok := <-result.host.Messages(); ok {
		t.Error("Messages() delivered a value after disconnect")
	}
}

func TestAcceptCancelled(t *testing.T) {
	_, socket := listenSocket(t)
	cancelRead, cancelWrite := cancelPipe(t)
	results := startAccept(&Connector{Logger: testLogger()}, socket, cancelRead)

	cancelWrite.Close()

	result := testutil.RequireReceive(t, results, 5*time.Second, "Accept should return after cancel")
	if !errors.Is(result.err, ErrCancelled) {
		t.Fatalf("Accept error = %v, want ErrCancelled", result.err)
	}
	if result.host != nil {
		t.Error("cancelled Accept returned a host")
	}
}

func TestCancelWinsOverPendingConnection(t *testing.T) {
	socketPath, socket := listenSocket(t)
	cancelRead, cancelWrite := cancelPipe(t)

	// Queue a connection in the backlog and fire the cancel before
	// Accept starts, so both descriptors are ready at the first poll.
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	cancelWrite.Close()

	_, err = (&Connector{Logger: testLogger()}).Accept(socket, cancelRead)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Accept error = %v, want ErrCancelled", err)
	}
}

func TestConnectorConnectReturnsBridgeHost(t *testing.T) {
	socketPath, socket := listenSocket(t)
	cancelRead, _ := cancelPipe(t)

	type connectResult struct {
		host arc.BridgeHost
		err  error
	}
	results := make(chan connectResult, 1)
	go func() {
		host, err := (&Connector{Logger: testLogger()}).Connect(socket, cancelRead)
		results <- connectResult{host, err}
	}()

	endpoint, err := Join(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer endpoint.Close()

	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for Connect")
	if result.err != nil {
		t.Fatalf("Connect: %v", result.err)
	}
	if _, ok := result.host.(*Host); !ok {
		t.Fatalf("Connect returned %T, want *Host", result.host)
	}
	result.host.Close()
}

func TestConnectCancelledReturnsNilInterface(t *testing.T) {
	_, socket := listenSocket(t)
	cancelRead, cancelWrite := cancelPipe(t)
	cancelWrite.Close()

	host, err := (&Connector{}).Connect(socket, cancelRead)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Connect error = %v, want ErrCancelled", err)
	}
	if host != nil {
		t.Errorf("Connect returned non-nil host %v on error", host)
	}
}

func TestMessageDecodeWithoutPayload(t *testing.T) {
	var v map[string]any
	if err := (Message{Kind: "ping"}).Decode(&v); err == nil {
		t.Error("Decode of empty payload should fail")
	}
}
