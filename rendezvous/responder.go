// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/tmuxlink/lib/clock"
	"github.com/bureau-foundation/tmuxlink/lib/codec"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// DefaultStaleAfter is the age past which a queued request is rejected
// rather than resolved. It matches DefaultTimeout: older requesters
// have given up.
const DefaultStaleAfter = DefaultTimeout

// errStale and errUnknownWindow are reported to requesters as text.
var (
	errStale         = errors.New("request expired before a window was available")
	errUnknownWindow = errors.New("unknown window")
)

// WindowProvider is the driver side of the Responder. Both methods are
// called on the bus delivery goroutine and must not block.
type WindowProvider interface {
	// OpenWindow starts creating a window. Its arrival is reported
	// with Responder.Resolve, a failure with Responder.FailOldest.
	OpenWindow()

	// WindowChannel returns the channel serving an existing window.
	WindowChannel(windowID string) (channel string, ok bool)
}

// PendingRequest is a queued request for a new window.
type PendingRequest struct {
	RequestID string
	IssuedAt  time.Time
}

// Responder answers window requests on the driver channel.
type Responder struct {
	provider   WindowProvider
	logger     *slog.Logger
	clock      clock.Clock
	staleAfter time.Duration
	endpoint   transport.Endpoint

	mu      sync.Mutex
	pending []PendingRequest
	closed  bool
}

// NewResponder opens the driver channel on bus and serves requests
// through provider.
func NewResponder(bus transport.Bus, channel string, provider WindowProvider, options ...Option) (*Responder, error) {
	s := buildSettings(options)
	responder := &Responder{
		provider:   provider,
		logger:     s.logger,
		clock:      s.clock,
		staleAfter: s.staleAfter,
	}
	endpoint, err := bus.Open(channel, responder.receive)
	if err != nil {
		return nil, fmt.Errorf("open driver channel %s: %w", channel, err)
	}
	responder.endpoint = endpoint
	return responder, nil
}

// Pending returns a snapshot of queued requests, oldest first.
func (r *Responder) Pending() []PendingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PendingRequest(nil), r.pending...)
}

func (r *Responder) receive(data []byte) {
	decoded, err := decodeMessage(data)
	if err != nil {
		r.logger.Debug("dropping driver channel message", "error", err)
		return
	}
	if !decoded.isRequest() {
		return
	}

	if decoded.WindowID != "" {
		channel, ok := r.provider.WindowChannel(decoded.WindowID)
		if !ok {
			r.reply(message{ID: decoded.ID, Error: fmt.Sprintf("%s %s", errUnknownWindow, decoded.WindowID)})
			return
		}
		r.reply(message{ID: decoded.ID, WindowChannelName: channel})
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.reply(message{ID: decoded.ID, Error: ErrDriverUnavailable.Error()})
		return
	}
	r.pending = append(r.pending, PendingRequest{RequestID: decoded.ID, IssuedAt: r.clock.Now()})
	r.mu.Unlock()

	r.logger.Info("window requested", "id", decoded.ID)
	r.provider.OpenWindow()
}

// Resolve hands channel to the oldest live request. It returns false
// when no request was waiting.
func (r *Responder) Resolve(channel string) bool {
	request, ok := r.takeOldest()
	if !ok {
		return false
	}
	r.logger.Info("window request resolved", "id", request.RequestID, "window_channel", channel)
	r.reply(message{ID: request.RequestID, WindowChannelName: channel})
	return true
}

// FailOldest rejects the oldest live request with reason.
func (r *Responder) FailOldest(reason string) bool {
	request, ok := r.takeOldest()
	if !ok {
		return false
	}
	r.logger.Warn("window request failed", "id", request.RequestID, "reason", reason)
	r.reply(message{ID: request.RequestID, Error: reason})
	return true
}

// takeOldest dequeues the oldest request younger than staleAfter,
// rejecting the stale ones it passes.
func (r *Responder) takeOldest() (PendingRequest, bool) {
	now := r.clock.Now()
	var stale []PendingRequest

	r.mu.Lock()
	var found PendingRequest
	ok := false
	for len(r.pending) > 0 {
		request := r.pending[0]
		r.pending = r.pending[1:]
		if r.staleAfter > 0 && now.Sub(request.IssuedAt) > r.staleAfter {
			stale = append(stale, request)
			continue
		}
		found, ok = request, true
		break
	}
	r.mu.Unlock()

	for _, request := range stale {
		r.logger.Debug("rejecting stale window request", "id", request.RequestID)
		r.reply(message{ID: request.RequestID, Error: errStale.Error()})
	}
	return found, ok
}

// Close rejects every queued request with ErrDriverUnavailable and
// leaves the channel.
func (r *Responder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, request := range pending {
		r.reply(message{ID: request.RequestID, Error: ErrDriverUnavailable.Error()})
	}
	return r.endpoint.Close()
}

func (r *Responder) reply(response message) {
	data, err := codec.Marshal(response)
	if err != nil {
		r.logger.Error("encoding rendezvous response failed", "error", err)
		return
	}
	if err := r.endpoint.Publish(data); err != nil {
		r.logger.Warn("publishing rendezvous response failed", "id", response.ID, "error", err)
	}
}
