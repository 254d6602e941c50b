// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by operations on a closed Bus or Endpoint.
var ErrClosed = errors.New("transport closed")

// ErrInvalidChannel is returned for channel names the bus cannot carry.
var ErrInvalidChannel = errors.New("invalid channel name")

// Handler receives one payload. The slice is owned by the handler.
type Handler func(payload []byte)

// Bus opens endpoints on named channels.
type Bus interface {
	// Open joins channel and delivers other endpoints' publications on
	// it to handler.
	Open(channel string, handler Handler) (Endpoint, error)

	// Close closes the bus and every endpoint it opened.
	Close() error
}

// Endpoint is one participant on a channel.
type Endpoint interface {
	// Channel returns the channel name the endpoint was opened on.
	Channel() string

	// Publish sends payload to every other endpoint on the channel.
	// The caller may reuse payload after Publish returns.
	Publish(payload []byte) error

	// Close leaves the channel. Payloads not yet handed to the handler
	// are dropped. Safe to call from inside the handler and repeatedly.
	Close() error
}

// ValidateChannel rejects names that are empty or contain whitespace
// or NATS wildcard tokens.
func ValidateChannel(channel string) error {
	if channel == "" {
		return fmt.Errorf("%w: empty", ErrInvalidChannel)
	}
	if strings.ContainsAny(channel, " \t\r\n*>") {
		return fmt.Errorf("%w: %q contains whitespace or a wildcard", ErrInvalidChannel, channel)
	}
	if strings.HasPrefix(channel, ".") || strings.HasSuffix(channel, ".") || strings.Contains(channel, "..") {
		return fmt.Errorf("%w: %q has an empty subject token", ErrInvalidChannel, channel)
	}
	return nil
}
