// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote exposes one tmux window across a session channel.
//
// On the driver, a [ServerWindow] is the window's control.WindowSink:
// every layout, output, cursor, sync and close event becomes a
// [ClientEvent] on the window's ServerChannel. Requests arriving from
// the client ([ServerRequest]) are executed against the Controller on
// its own goroutine through a control.Executor.
//
// In the remote process, a [ClientWindow] connects to that channel,
// feeds events to a [Renderer], and turns local input into requests.
// Before sending pane input, and on the first layout, it reconciles the
// window size with the local terminal: when they differ it requests a
// resize followed by a window selection.
//
// Both enums are closed; unknown kinds are logged and dropped.
package remote
