// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/tmuxlink/lib/codec"
)

const (
	kindConnect   = "CONNECT"
	kindConnected = "CONNECTED"
)

type connectBody struct {
	RequestID string `cbor:"request_id"`
}

type connectedBody struct {
	SessionID uint64 `cbor:"session_id"`
	RequestID string `cbor:"request_id"`
}

type connectFrame struct {
	_    struct{} `cbor:",toarray"`
	Kind string
	Body connectBody
}

type connectedFrame struct {
	_    struct{} `cbor:",toarray"`
	Kind string
	Body connectedBody
}

type envelope struct {
	_         struct{} `cbor:",toarray"`
	SessionID uint64
	Payload   codec.RawMessage
}

var errMalformedFrame = errors.New("malformed session frame")

// frame is a decoded wire frame: either a handshake (kind set) or an
// envelope (kind empty).
type frame struct {
	kind      string
	body      codec.RawMessage
	sessionID uint64
}

// decodeFrame classifies a two-element CBOR array by its first element:
// a text string is a handshake kind, an unsigned integer a session id.
func decodeFrame(data []byte) (frame, error) {
	var parts []codec.RawMessage
	if err := codec.Unmarshal(data, &parts); err != nil {
		return frame{}, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	if len(parts) != 2 {
		return frame{}, fmt.Errorf("%w: %d elements", errMalformedFrame, len(parts))
	}
	var kind string
	if err := codec.Unmarshal(parts[0], &kind); err == nil {
		return frame{kind: kind, body: parts[1]}, nil
	}
	var sessionID uint64
	if err := codec.Unmarshal(parts[0], &sessionID); err == nil {
		return frame{sessionID: sessionID, body: parts[1]}, nil
	}
	return frame{}, fmt.Errorf("%w: leading element %s", errMalformedFrame, codec.Diagnose(parts[0]))
}

func encodeEnvelope(sessionID uint64, payload any) ([]byte, error) {
	encoded, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode session payload: %w", err)
	}
	return codec.Marshal(envelope{SessionID: sessionID, Payload: encoded})
}
