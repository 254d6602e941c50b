// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/tmuxlink/lib/codec"
)

var (
	// ErrTimeout is returned when no response arrived in time.
	ErrTimeout = errors.New("window request timed out")

	// ErrDriverUnavailable is returned for requests pending when the
	// driver shut down.
	ErrDriverUnavailable = errors.New("tmux driver unavailable")

	// ErrRejected wraps any other failure the responder reported.
	ErrRejected = errors.New("window request rejected")
)

// message is every frame on the driver channel. A request carries
// neither WindowChannelName nor Error.
type message struct {
	ID                string `cbor:"id"`
	WindowID          string `cbor:"window_id,omitempty"`
	WindowChannelName string `cbor:"window_channel_name,omitempty"`
	Error             string `cbor:"error,omitempty"`
}

func (m message) isRequest() bool {
	return m.WindowChannelName == "" && m.Error == ""
}

func decodeMessage(data []byte) (message, error) {
	var decoded message
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return message{}, fmt.Errorf("decode rendezvous message: %w", err)
	}
	if decoded.ID == "" {
		return message{}, errors.New("rendezvous message without id")
	}
	return decoded, nil
}

// responseError maps a wire error string back to a sentinel.
func responseError(text string) error {
	if text == ErrDriverUnavailable.Error() {
		return ErrDriverUnavailable
	}
	return fmt.Errorf("%w: %s", ErrRejected, text)
}
