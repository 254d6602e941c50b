// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/tmuxlink/lib/clock"
	"github.com/bureau-foundation/tmuxlink/lib/codec"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// ClientChannel is the connecting side of a session channel.
type ClientChannel struct {
	channel       string
	handlers      Handlers
	logger        *slog.Logger
	clock         clock.Clock
	retryInterval time.Duration
	endpoint      transport.Endpoint

	mu        sync.Mutex
	state     State
	requestID string
	sessionID uint64
	retry     *clock.Timer
	connected chan struct{}
	closed    bool
}

// NewClientChannel opens channel on bus. Call Connect to start the
// handshake.
func NewClientChannel(bus transport.Bus, channel string, handlers Handlers, options ...Option) (*ClientChannel, error) {
	o := buildOptions(options)
	client := &ClientChannel{
		channel:       channel,
		handlers:      handlers,
		logger:        o.logger.With("channel", channel, "side", "client"),
		clock:         o.clock,
		retryInterval: o.retryInterval,
		connected:     make(chan struct{}),
	}
	endpoint, err := bus.Open(channel, client.receive)
	if err != nil {
		return nil, fmt.Errorf("open session channel %s: %w", channel, err)
	}
	client.endpoint = endpoint
	return client, nil
}

// Channel returns the bus channel name.
func (c *ClientChannel) Channel() string { return c.channel }

// State reports the handshake state.
func (c *ClientChannel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the adopted session id, zero until connected.
func (c *ClientChannel) SessionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// RequestID returns the id of the current connect attempt.
func (c *ClientChannel) RequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestID
}

// Connect starts a handshake under a fresh request id and re-publishes
// CONNECT every retry interval until a matching CONNECTED arrives.
// Calling Connect while connected starts a new session.
func (c *ClientChannel) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.state = Connecting
	c.requestID = uuid.NewString()
	requestID := c.requestID
	c.mu.Unlock()

	return c.sendConnect(requestID)
}

func (c *ClientChannel) sendConnect(requestID string) error {
	if !c.connecting(requestID) {
		return nil
	}
	data, err := codec.Marshal(connectFrame{Kind: kindConnect, Body: connectBody{RequestID: requestID}})
	if err != nil {
		return fmt.Errorf("encode CONNECT: %w", err)
	}
	publishErr := c.endpoint.Publish(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != Connecting || c.requestID != requestID {
		return nil
	}
	c.retry = c.clock.AfterFunc(c.retryInterval, func() {
		c.logger.Debug("retrying CONNECT", "request", requestID)
		c.sendConnect(requestID)
	})
	if publishErr != nil {
		return fmt.Errorf("publish CONNECT: %w", publishErr)
	}
	return nil
}

// connecting reports whether requestID is still the attempt in
// progress.
func (c *ClientChannel) connecting(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.state == Connecting && c.requestID == requestID
}

// WaitConnected blocks until the first session is established.
func (c *ClientChannel) WaitConnected(ctx context.Context) error {
	select {
	case <-c.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers payload to the server under the current session.
func (c *ClientChannel) Send(payload any) error {
	c.mu.Lock()
	sessionID, state, closed := c.sessionID, c.state, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if state != Connected {
		return ErrNotConnected
	}
	data, err := encodeEnvelope(sessionID, payload)
	if err != nil {
		return err
	}
	return c.endpoint.Publish(data)
}

// Close stops retrying and leaves the channel.
func (c *ClientChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = Disconnected
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.mu.Unlock()
	return c.endpoint.Close()
}

func (c *ClientChannel) receive(data []byte) {
	decoded, err := decodeFrame(data)
	if err != nil {
		c.logger.Debug("dropping frame", "error", err)
		return
	}
	switch decoded.kind {
	case kindConnected:
		c.adopt(decoded.body)
	case "":
		c.mu.Lock()
		current, state := c.sessionID, c.state
		c.mu.Unlock()
		if state != Connected || decoded.sessionID != current {
			c.logger.Debug("dropping message for stale session", "session", decoded.sessionID, "current", current)
			return
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(decoded.body)
		}
	default:
		// CONNECT frames from other clients.
	}
}

// adopt takes the session id from a CONNECTED answering this client's
// current request. A retried CONNECT can be answered more than once;
// the newest id wins since the server serves the newest session.
func (c *ClientChannel) adopt(body codec.RawMessage) {
	var reply connectedBody
	if err := codec.Unmarshal(body, &reply); err != nil {
		c.logger.Debug("dropping malformed CONNECTED", "frame", codec.Diagnose(body))
		return
	}

	c.mu.Lock()
	if c.closed || reply.RequestID != c.requestID || c.state == Disconnected {
		c.mu.Unlock()
		c.logger.Debug("ignoring CONNECTED for another request", "request", reply.RequestID)
		return
	}
	if c.state == Connected && reply.SessionID <= c.sessionID {
		c.mu.Unlock()
		return
	}
	c.state = Connected
	c.sessionID = reply.SessionID
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	select {
	case <-c.connected:
	default:
		close(c.connected)
	}
	c.mu.Unlock()

	c.logger.Debug("session adopted", "session", reply.SessionID)
	if c.handlers.OnConnected != nil {
		c.handlers.OnConnected(reply.SessionID)
	}
}
