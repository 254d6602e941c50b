// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import "github.com/bureau-foundation/tmuxlink/control"

// EventKind enumerates server-to-client events.
type EventKind string

const (
	// EventInit is the first event of every session; WindowID is set.
	EventInit EventKind = "init"
	// EventLayoutUpdate carries the full layout tree.
	EventLayoutUpdate EventKind = "layout-update"
	// EventPaneOutput carries raw terminal bytes for Pane.
	EventPaneOutput EventKind = "pane-output"
	// EventPaneCursorUpdate carries the zero-based cursor of Pane.
	EventPaneCursorUpdate EventKind = "pane-cursor-update"
	// EventPaneSyncStart precedes a full snapshot of Pane.
	EventPaneSyncStart EventKind = "pane-sync-start"
	// EventClose is the last event; the window is gone.
	EventClose EventKind = "close"
)

func (k EventKind) valid() bool {
	switch k {
	case EventInit, EventLayoutUpdate, EventPaneOutput, EventPaneCursorUpdate, EventPaneSyncStart, EventClose:
		return true
	}
	return false
}

// ClientEvent is one event sent from a ServerWindow to its client.
type ClientEvent struct {
	Kind     EventKind        `cbor:"kind"`
	WindowID control.WindowID `cbor:"window_id,omitempty"`
	Layout   *control.Layout  `cbor:"layout,omitempty"`
	Pane     control.PaneID   `cbor:"pane,omitempty"`
	Data     []byte           `cbor:"data,omitempty"`
	X        int              `cbor:"x,omitempty"`
	Y        int              `cbor:"y,omitempty"`
}

// RequestKind enumerates client-to-server requests.
type RequestKind string

const (
	RequestLayoutUpdate RequestKind = "request-layout-update"
	RequestKillWindow   RequestKind = "kill-window"
	RequestPaneInput    RequestKind = "send-pane-input"
	RequestResizeWindow RequestKind = "resize-window"
	RequestSelectWindow RequestKind = "select-window"
	RequestQueueCommand RequestKind = "queue-command"
	RequestSyncPane     RequestKind = "sync-pane"
)

func (k RequestKind) valid() bool {
	switch k {
	case RequestLayoutUpdate, RequestKillWindow, RequestPaneInput, RequestResizeWindow,
		RequestSelectWindow, RequestQueueCommand, RequestSyncPane:
		return true
	}
	return false
}

// ServerRequest is one request sent from a ClientWindow to its
// ServerWindow.
type ServerRequest struct {
	Kind    RequestKind    `cbor:"kind"`
	Pane    control.PaneID `cbor:"pane,omitempty"`
	Data    []byte         `cbor:"data,omitempty"`
	Columns int            `cbor:"columns,omitempty"`
	Rows    int            `cbor:"rows,omitempty"`
	Command string         `cbor:"command,omitempty"`
}
