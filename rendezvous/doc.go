// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rendezvous implements the discovery exchange on the driver's
// well-known channel: a client asks for a window and learns the name of
// the session channel serving it.
//
// A [Requester] publishes {id, window_id?} and waits for the response
// carrying the same id: {id, window_channel_name} on success or
// {id, error} on failure. The first resolution wins; a response after
// the timeout, or for an id nobody waits on, is ignored.
//
// A [Responder] runs next to the tmux driver. Requests naming a
// window_id are answered at once. Other requests queue FIFO and ask the
// [WindowProvider] for a new window; each window the driver surfaces
// resolves the oldest live request. A failed window creation rejects
// the oldest request, requests older than the stale limit are rejected
// instead of being handed a window, and Close rejects everything still
// queued with [ErrDriverUnavailable].
package rendezvous
