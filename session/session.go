// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/tmuxlink/lib/clock"
	"github.com/bureau-foundation/tmuxlink/lib/codec"
)

var (
	// ErrNotConnected is returned by Send before a session exists.
	ErrNotConnected = errors.New("session not connected")

	// ErrClosed is returned by operations on a closed channel.
	ErrClosed = errors.New("session channel closed")
)

// State is the handshake state of one side of a channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// DefaultRetryInterval is how often a connecting client re-publishes
// CONNECT.
const DefaultRetryInterval = time.Second

// Handlers receives channel events. Both run on the transport's
// delivery goroutine, one at a time, and may be nil.
type Handlers struct {
	// OnConnected runs each time a session is established. On the
	// server this includes a client superseding the previous one.
	OnConnected func(sessionID uint64)

	// OnMessage receives each payload of the current session.
	OnMessage func(payload codec.RawMessage)
}

type options struct {
	logger        *slog.Logger
	clock         clock.Clock
	retryInterval time.Duration
}

// Option configures a ServerChannel or ClientChannel.
type Option func(*options)

// WithLogger sets the logger for dropped frames and handshakes.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock driving the client's CONNECT retry.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRetryInterval overrides DefaultRetryInterval.
func WithRetryInterval(interval time.Duration) Option {
	return func(o *options) { o.retryInterval = interval }
}

func buildOptions(list []Option) options {
	o := options{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:         clock.Real(),
		retryInterval: DefaultRetryInterval,
	}
	for _, option := range list {
		option(&o)
	}
	if o.retryInterval <= 0 {
		o.retryInterval = DefaultRetryInterval
	}
	return o
}
