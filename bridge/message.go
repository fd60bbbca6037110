// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"net"
	"sync"

	"github.com/bureau-foundation/arc/lib/codec"
)

// Message is one unit on the bridge channel.
type Message struct {
	Kind    string           `cbor:"kind"`
	Payload codec.RawMessage `cbor:"payload,omitempty"`
}

// NewMessage builds a Message with payload CBOR-encoded. A nil payload
// leaves Payload empty.
func NewMessage(kind string, payload any) (Message, error) {
	message := Message{Kind: kind}
	if payload == nil {
		return message, nil
	}
	data, err := codec.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	message.Payload = data
	return message, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Kind)
	}
	return codec.Unmarshal(m.Payload, v)
}

// channel is the CBOR message stream shared by Host and Endpoint.
// Sends are serialized; receives are expected from one goroutine.
type channel struct {
	conn    net.Conn
	sendMu  sync.Mutex
	encoder *codec.Encoder
	decoder *codec.Decoder
}

func newChannel(conn net.Conn) *channel {
	return &channel{
		conn:    conn,
		encoder: codec.NewEncoder(conn),
		decoder: codec.NewDecoder(conn),
	}
}

func (c *channel) send(message Message) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.encoder.Encode(message); err != nil {
		return fmt.Errorf("sending %s message: %w", message.Kind, err)
	}
	return nil
}

func (c *channel) receive() (Message, error) {
	var message Message
	if err := c.decoder.Decode(&message); err != nil {
		return Message{}, err
	}
	return message, nil
}
