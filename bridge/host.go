// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/arc/lib/netutil"
)

// Host is the host end of a connected bridge. A goroutine reads
// messages from the instance into Messages until the channel closes.
type Host struct {
	channel  *channel
	token    string
	logger   *slog.Logger
	messages chan Message

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
	done      chan struct{}
}

func newHost(conn net.Conn, token []byte, logger *slog.Logger) *Host {
	host := &Host{
		channel:  newChannel(conn),
		token:    string(token),
		logger:   logger,
		messages: make(chan Message, 16),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go host.readLoop()
	return host
}

// Token returns the handshake token sent to the instance.
func (h *Host) Token() string { return h.token }

// Messages delivers messages from the instance. It is closed when the
// instance disconnects or the host is closed.
func (h *Host) Messages() <-chan Message { return h.messages }

// Done is closed when the read loop has exited.
func (h *Host) Done() <-chan struct{} { return h.done }

// Send writes a message to the instance.
func (h *Host) Send(message Message) error {
	return h.channel.send(message)
}

// Close shuts the channel down. It is safe to call more than once.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
		h.closeErr = h.channel.conn.Close()
	})
	return h.closeErr
}

func (h *Host) readLoop() {
	defer close(h.done)
	defer close(h.messages)
	for {
		message, err := h.channel.receive()
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				h.logger.Warn("bridge read failed", "error", err)
			}
			return
		}
		select {
		case h.messages <- message:
		case <-h.closed:
			return
		}
	}
}
