// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides tmuxlink's standard CBOR encoding
// configuration.
//
// Every frame that crosses a transport.Bus is CBOR: rendezvous
// requests and responses, session handshake frames, session envelopes
// and the remote window events and requests they carry. Encoding
// through one package keeps every component byte-identical for the
// same logical value.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// Types that only ever travel as CBOR use `cbor` tags. Positional
// frames such as the session handshake (["CONNECT", {...}]) use a
// struct with `cbor:",toarray"` so that the wire shape is an array
// rather than a map. Types that are also printed as JSON (layouts in
// CLI output) use `json` tags, which fxamacker/cbor reads as a
// fallback. Never put both tags on the same field.
package codec
