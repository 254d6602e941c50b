// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// DefaultSubjectPrefix is prepended to channel names to form NATS
	// subjects.
	DefaultSubjectPrefix = "tmuxlink."

	// DefaultCompressThreshold is the payload size above which
	// NATSBus compresses with zstd. Pane snapshots cross it; keystrokes
	// never do.
	DefaultCompressThreshold = 8 << 10

	originHeader   = "Tmuxlink-Origin"
	encodingHeader = "Tmuxlink-Encoding"
	encodingZstd   = "zstd"
)

// Compile-time interface checks.
var (
	_ Bus      = (*NATSBus)(nil)
	_ Endpoint = (*natsEndpoint)(nil)
)

// NATSOption configures a NATSBus.
type NATSOption func(*NATSBus)

// WithSubjectPrefix overrides DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) NATSOption {
	return func(b *NATSBus) { b.prefix = prefix }
}

// WithCompressThreshold sets the size above which payloads are
// compressed. Zero or negative disables compression.
func WithCompressThreshold(bytes int) NATSOption {
	return func(b *NATSBus) { b.compressThreshold = bytes }
}

// WithBusLogger sets the logger for delivery problems.
func WithBusLogger(logger *slog.Logger) NATSOption {
	return func(b *NATSBus) { b.logger = logger }
}

// NATSBus is a Bus over core NATS subjects. Messages are not persisted:
// an endpoint sees only what is published while it is subscribed, the
// same as MemoryBus.
type NATSBus struct {
	conn              *nats.Conn
	ownsConn          bool
	prefix            string
	compressThreshold int
	logger            *slog.Logger

	mu        sync.Mutex
	endpoints map[*natsEndpoint]struct{}
	closed    bool
}

// DialNATS connects to the NATS server at url. clientName shows up in
// the server's connection list.
func DialNATS(url, clientName string, options ...NATSOption) (*NATSBus, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	bus := newNATSBus(nil, options)
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				bus.logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			bus.logger.Info("nats reconnected", "url", conn.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	bus.conn = conn
	bus.ownsConn = true
	return bus, nil
}

// NewNATSBus wraps an existing connection. Close does not close conn.
func NewNATSBus(conn *nats.Conn, options ...NATSOption) *NATSBus {
	return newNATSBus(conn, options)
}

func newNATSBus(conn *nats.Conn, options []NATSOption) *NATSBus {
	bus := &NATSBus{
		conn:              conn,
		prefix:            DefaultSubjectPrefix,
		compressThreshold: DefaultCompressThreshold,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		endpoints:         make(map[*natsEndpoint]struct{}),
	}
	for _, option := range options {
		option(bus)
	}
	return bus
}

func (b *NATSBus) subject(channel string) string {
	return b.prefix + channel
}

func (b *NATSBus) Open(channel string, handler Handler) (Endpoint, error) {
	if err := ValidateChannel(channel); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	endpoint := &natsEndpoint{
		bus:     b,
		channel: channel,
		subject: b.subject(channel),
		origin:  uuid.NewString(),
	}
	subscription, err := b.conn.Subscribe(endpoint.subject, func(msg *nats.Msg) {
		if msg.Header.Get(originHeader) == endpoint.origin {
			return
		}
		payload, err := decodePayload(msg)
		if err != nil {
			b.logger.Warn("dropping undecodable bus message", "channel", channel, "error", err)
			return
		}
		handler(payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", endpoint.subject, err)
	}
	endpoint.subscription = subscription
	b.endpoints[endpoint] = struct{}{}
	return endpoint, nil
}

// Close unsubscribes every endpoint and, for buses created by
// DialNATS, drains and closes the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	endpoints := b.endpoints
	b.endpoints = nil
	b.mu.Unlock()

	for endpoint := range endpoints {
		endpoint.unsubscribe()
	}
	if b.ownsConn {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
			return fmt.Errorf("drain nats connection: %w", err)
		}
	}
	return nil
}

type natsEndpoint struct {
	bus          *NATSBus
	channel      string
	subject      string
	origin       string
	subscription *nats.Subscription

	mu     sync.Mutex
	closed bool
}

func (e *natsEndpoint) Channel() string { return e.channel }

func (e *natsEndpoint) Publish(payload []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	msg := encodePayload(e.subject, e.origin, payload, e.bus.compressThreshold)
	if err := e.bus.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", e.subject, err)
	}
	return nil
}

func (e *natsEndpoint) Close() error {
	e.bus.mu.Lock()
	delete(e.bus.endpoints, e)
	e.bus.mu.Unlock()
	e.unsubscribe()
	return nil
}

func (e *natsEndpoint) unsubscribe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if err := e.subscription.Unsubscribe(); err != nil {
		e.bus.logger.Debug("nats unsubscribe failed", "channel", e.channel, "error", err)
	}
}

// encodePayload builds the NATS message for one publication.
func encodePayload(subject, origin string, payload []byte, compressThreshold int) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(originHeader, origin)
	if compressThreshold > 0 && len(payload) > compressThreshold {
		msg.Header.Set(encodingHeader, encodingZstd)
		msg.Data = compress(payload)
		return msg
	}
	msg.Data = append([]byte(nil), payload...)
	return msg
}

// decodePayload returns the publication carried by msg.
func decodePayload(msg *nats.Msg) ([]byte, error) {
	switch encoding := msg.Header.Get(encodingHeader); encoding {
	case "":
		return msg.Data, nil
	case encodingZstd:
		return decompress(msg.Data)
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}
