// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/tmuxlink/lib/clock"
	"github.com/bureau-foundation/tmuxlink/lib/codec"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// DefaultTimeout bounds how long a Requester waits for a response.
const DefaultTimeout = 5 * time.Second

// Option configures a Requester or Responder.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	clock      clock.Clock
	timeout    time.Duration
	staleAfter time.Duration
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithClock sets the clock for timeouts and request ages.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithTimeout sets the Requester's response timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

// WithStaleAfter sets the age after which the Responder rejects a
// queued request instead of resolving it.
func WithStaleAfter(age time.Duration) Option {
	return func(s *settings) { s.staleAfter = age }
}

func buildSettings(options []Option) settings {
	s := settings{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:      clock.Real(),
		timeout:    DefaultTimeout,
		staleAfter: DefaultStaleAfter,
	}
	for _, option := range options {
		option(&s)
	}
	return s
}

type result struct {
	channel string
	err     error
}

// Requester asks the driver for windows.
type Requester struct {
	endpoint transport.Endpoint
	logger   *slog.Logger
	clock    clock.Clock
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]chan result
}

// NewRequester opens the driver channel on bus.
func NewRequester(bus transport.Bus, channel string, options ...Option) (*Requester, error) {
	s := buildSettings(options)
	requester := &Requester{
		logger:  s.logger,
		clock:   s.clock,
		timeout: s.timeout,
		pending: make(map[string]chan result),
	}
	endpoint, err := bus.Open(channel, requester.receive)
	if err != nil {
		return nil, fmt.Errorf("open driver channel %s: %w", channel, err)
	}
	requester.endpoint = endpoint
	return requester, nil
}

// OpenWindow asks the driver to create a window and returns the name
// of the channel serving it.
func (r *Requester) OpenWindow(ctx context.Context) (string, error) {
	return r.request(ctx, "")
}

// AttachWindow asks for the channel serving an existing window.
func (r *Requester) AttachWindow(ctx context.Context, windowID string) (string, error) {
	if windowID == "" {
		return "", fmt.Errorf("attach: empty window id")
	}
	return r.request(ctx, windowID)
}

func (r *Requester) request(ctx context.Context, windowID string) (string, error) {
	id := uuid.NewString()
	results := make(chan result, 1)

	r.mu.Lock()
	r.pending[id] = results
	r.mu.Unlock()

	timer := r.clock.AfterFunc(r.timeout, func() {
		r.resolve(id, result{err: ErrTimeout})
	})
	defer timer.Stop()

	data, err := codec.Marshal(message{ID: id, WindowID: windowID})
	if err != nil {
		r.resolve(id, result{err: fmt.Errorf("encode request: %w", err)})
	} else if err := r.endpoint.Publish(data); err != nil {
		r.resolve(id, result{err: fmt.Errorf("publish request: %w", err)})
	}

	select {
	case outcome := <-results:
		return outcome.channel, outcome.err
	case <-ctx.Done():
		r.resolve(id, result{err: ctx.Err()})
		outcome := <-results
		return outcome.channel, outcome.err
	}
}

// resolve completes request id unless something already did.
func (r *Requester) resolve(id string, outcome result) bool {
	r.mu.Lock()
	results, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	results <- outcome
	return true
}

// Pending returns the number of unresolved requests.
func (r *Requester) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Requester) receive(data []byte) {
	decoded, err := decodeMessage(data)
	if err != nil {
		r.logger.Debug("dropping driver channel message", "error", err)
		return
	}
	if decoded.isRequest() {
		return
	}
	outcome := result{channel: decoded.WindowChannelName}
	if decoded.Error != "" {
		outcome = result{err: responseError(decoded.Error)}
	}
	if !r.resolve(decoded.ID, outcome) {
		r.logger.Debug("ignoring response for unknown or finished request", "id", decoded.ID)
	}
}

// Close leaves the driver channel. Requests in flight end with their
// timeout or context.
func (r *Requester) Close() error {
	return r.endpoint.Close()
}
