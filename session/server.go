// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/tmuxlink/lib/codec"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// ServerChannel is the accepting side of a session channel. It serves
// at most one client at a time: the one whose CONNECT arrived last.
type ServerChannel struct {
	channel  string
	handlers Handlers
	logger   *slog.Logger
	endpoint transport.Endpoint

	mu        sync.Mutex
	counter   uint64
	sessionID uint64
	closed    bool
}

// NewServerChannel opens channel on bus and starts accepting CONNECTs.
func NewServerChannel(bus transport.Bus, channel string, handlers Handlers, options ...Option) (*ServerChannel, error) {
	o := buildOptions(options)
	server := &ServerChannel{
		channel:  channel,
		handlers: handlers,
		logger:   o.logger.With("channel", channel, "side", "server"),
	}
	endpoint, err := bus.Open(channel, server.receive)
	if err != nil {
		return nil, fmt.Errorf("open session channel %s: %w", channel, err)
	}
	server.endpoint = endpoint
	return server, nil
}

// Channel returns the bus channel name.
func (s *ServerChannel) Channel() string { return s.channel }

// State reports Connected once any client has connected.
func (s *ServerChannel) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == 0 {
		return Disconnected
	}
	return Connected
}

// SessionID returns the current session id, zero before the first
// CONNECT.
func (s *ServerChannel) SessionID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Send delivers payload to the current client.
func (s *ServerChannel) Send(payload any) error {
	s.mu.Lock()
	sessionID, closed := s.sessionID, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if sessionID == 0 {
		return ErrNotConnected
	}
	return s.publish(sessionID, payload)
}

// SendTo delivers payload only while sessionID is the current session.
// It returns ErrNotConnected once a newer CONNECT has superseded it.
func (s *ServerChannel) SendTo(sessionID uint64, payload any) error {
	s.mu.Lock()
	current, closed := s.sessionID, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if sessionID == 0 || sessionID != current {
		return ErrNotConnected
	}
	return s.publish(sessionID, payload)
}

func (s *ServerChannel) publish(sessionID uint64, payload any) error {
	data, err := encodeEnvelope(sessionID, payload)
	if err != nil {
		return err
	}
	return s.endpoint.Publish(data)
}

// Close leaves the channel.
func (s *ServerChannel) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.endpoint.Close()
}

func (s *ServerChannel) receive(data []byte) {
	decoded, err := decodeFrame(data)
	if err != nil {
		s.logger.Debug("dropping frame", "error", err)
		return
	}
	switch decoded.kind {
	case kindConnect:
		s.accept(decoded.body)
	case "":
		s.mu.Lock()
		current := s.sessionID
		s.mu.Unlock()
		if current == 0 || decoded.sessionID != current {
			s.logger.Debug("dropping message for stale session", "session", decoded.sessionID, "current", current)
			return
		}
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(decoded.body)
		}
	default:
		// CONNECTED frames belong to clients.
	}
}

// accept mints a session for a CONNECT, superseding any current one.
func (s *ServerChannel) accept(body codec.RawMessage) {
	var request connectBody
	if err := codec.Unmarshal(body, &request); err != nil || request.RequestID == "" {
		s.logger.Debug("dropping malformed CONNECT", "frame", codec.Diagnose(body))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.counter++
	sessionID := s.counter
	s.sessionID = sessionID
	s.mu.Unlock()

	reply, err := codec.Marshal(connectedFrame{
		Kind: kindConnected,
		Body: connectedBody{SessionID: sessionID, RequestID: request.RequestID},
	})
	if err != nil {
		s.logger.Error("encoding CONNECTED failed", "error", err)
		return
	}
	if err := s.endpoint.Publish(reply); err != nil {
		s.logger.Warn("publishing CONNECTED failed", "error", err)
		return
	}
	s.logger.Debug("session established", "session", sessionID, "request", request.RequestID)
	if s.handlers.OnConnected != nil {
		s.handlers.OnConnected(sessionID)
	}
}
