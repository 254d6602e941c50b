// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session layers a connection handshake over a transport
// channel so one server and its current client exchange messages
// without hearing stale peers.
//
// The client publishes ["CONNECT", {request_id}]. The server mints the
// next session id for every CONNECT, including while already connected,
// and answers ["CONNECTED", {session_id, request_id}]. The client
// adopts the id only when the request id is its own. From then on both
// sides wrap payloads as [session_id, payload] and drop envelopes for
// any other session, so a reconnect supersedes the previous client
// without coordination.
//
// Frames are CBOR (lib/codec). Payloads are arbitrary CBOR values,
// delivered to the receiving side as codec.RawMessage.
package session
