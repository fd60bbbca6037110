// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Endpoint is the instance end of a connected bridge.
type Endpoint struct {
	channel *channel
	token   string
}

// Join connects to the bridge socket at socketPath as the instance
// would, receives the handshake, and returns the endpoint bound to the
// passed descriptor.
func Join(ctx context.Context, socketPath string) (*Endpoint, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("bridge: connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("bridge: %s is not a unix socket", socketPath)
	}
	if deadline, ok := ctx.Deadline(); ok {
		unixConn.SetReadDeadline(deadline)
	}

	buffer := make([]byte, 1+255)
	oob := make([]byte, unix.CmsgSpace(4))
	n, oobn, _, _, err := unixConn.ReadMsgUnix(buffer, oob)
	if err != nil {
		return nil, fmt.Errorf("bridge: reading handshake: %w", err)
	}

	fd, err := parseRights(oob[:oobn])
	if err != nil {
		return nil, err
	}
	file := os.NewFile(uintptr(fd), "bridge-instance")
	defer file.Close()

	if n == 0 || int(buffer[0]) != n-1 {
		return nil, fmt.Errorf("bridge: handshake length mismatch: prefix %d, got %d bytes", buffer[0], max(n-1, 0))
	}

	channelConn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("bridge: wrapping instance socket: %w", err)
	}
	return &Endpoint{
		channel: newChannel(channelConn),
		token:   string(buffer[1:n]),
	}, nil
}

func parseRights(oob []byte) (int, error) {
	messages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return -1, fmt.Errorf("bridge: parsing control message: %w", err)
	}
	for _, message := range messages {
		fds, err := unix.ParseUnixRights(&message)
		if err != nil || len(fds) == 0 {
			continue
		}
		for _, extra := range fds[1:] {
			unix.Close(extra)
		}
		return fds[0], nil
	}
	return -1, fmt.Errorf("bridge: handshake carried no descriptor")
}

// Token returns the token received in the handshake.
func (e *Endpoint) Token() string { return e.token }

// Send writes a message to the host.
func (e *Endpoint) Send(message Message) error { return e.channel.send(message) }

// Receive blocks for the next message from the host.
func (e *Endpoint) Receive() (Message, error) { return e.channel.receive() }

// Close closes the endpoint.
func (e *Endpoint) Close() error { return e.channel.conn.Close() }
