// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/arc/arc"
)

// ErrCancelled is returned by Accept when the cancel pipe fires.
var ErrCancelled = errors.New("bridge: connection cancelled")

// tokenBytes is the amount of randomness in a handshake token. The hex
// token must fit the one-byte length prefix.
const tokenBytes = 16

// Connector accepts instance connections and performs the handshake.
// The zero value is ready to use.
type Connector struct {
	// Logger receives handshake diagnostics. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

func (c *Connector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Connect implements arc.BridgeConnector on top of Accept.
func (c *Connector) Connect(socket, cancel *os.File) (arc.BridgeHost, error) {
	host, err := c.Accept(socket, cancel)
	if err != nil {
		return nil, err
	}
	return host, nil
}

// Accept waits for the instance to connect to socket, sends the
// handshake, and returns the bound Host. It takes ownership of socket
// and cancel and closes both before returning.
func (c *Connector) Accept(socket, cancel *os.File) (*Host, error) {
	defer socket.Close()
	defer cancel.Close()

	if err := waitReadable(int(socket.Fd()), int(cancel.Fd())); err != nil {
		return nil, err
	}

	connectionFD, err := acceptConnection(int(socket.Fd()))
	if err != nil {
		return nil, err
	}
	defer unix.Close(connectionFD)

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("bridge: creating socketpair: %w", err)
	}
	serverFile := os.NewFile(uintptr(pair[0]), "bridge-host")
	defer serverFile.Close()

	// The instance gets its own copy of pair[1] in the ancillary data,
	// so ours is closed as soon as the message is sent.
	header := append([]byte{byte(len(token))}, token...)
	err = unix.Sendmsg(connectionFD, header, unix.UnixRights(pair[1]), nil, 0)
	unix.Close(pair[1])
	if err != nil {
		return nil, fmt.Errorf("bridge: sending handshake: %w", err)
	}

	// FileConn dups the descriptor; serverFile is closed by the defer.
	conn, err := net.FileConn(serverFile)
	if err != nil {
		return nil, fmt.Errorf("bridge: wrapping host socket: %w", err)
	}

	c.logger().Debug("bridge handshake sent", "token_length", len(token))
	return newHost(conn, token, c.logger()), nil
}

// waitReadable blocks until socketFD has a pending connection or the
// cancel pipe becomes readable or hangs up.
func waitReadable(socketFD, cancelFD int) error {
	descriptors := []unix.PollFd{
		{Fd: int32(socketFD), Events: unix.POLLIN},
		{Fd: int32(cancelFD), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(descriptors, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("bridge: poll: %w", err)
		}
		break
	}

	if descriptors[1].Revents != 0 {
		return ErrCancelled
	}
	if descriptors[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		return fmt.Errorf("bridge: listening socket failed (revents %#x)", descriptors[0].Revents)
	}
	return nil
}

func acceptConnection(socketFD int) (int, error) {
	for {
		fd, _, err := unix.Accept4(socketFD, unix.SOCK_CLOEXEC)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return -1, fmt.Errorf("bridge: accept: %w", err)
		}
		return fd, nil
	}
}

func newToken() ([]byte, error) {
	random := make([]byte, tokenBytes)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("bridge: generating token: %w", err)
	}
	token := make([]byte, hex.EncodedLen(tokenBytes))
	hex.Encode(token, random)
	return token, nil
}
