// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

// WindowSink receives the events of one tmux window. Methods are called
// on the goroutine that owns the Controller and must not block on it.
type WindowSink interface {
	// OnLayoutUpdate delivers the window's current layout tree.
	OnLayoutUpdate(layout Layout)

	// OnPaneOutput delivers raw terminal bytes written by a pane.
	OnPaneOutput(pane PaneID, data []byte)

	// OnPaneCursorUpdate reports a pane's cursor position, zero-based.
	OnPaneCursorUpdate(pane PaneID, x, y int)

	// OnPaneSyncStart announces that a full snapshot of pane follows as
	// OnPaneOutput then OnPaneCursorUpdate. Receivers reset the pane.
	OnPaneSyncStart(pane PaneID)

	// OnClose is the last call the sink receives.
	OnClose()
}

// WindowOpener supplies the sink for a newly discovered window. A nil
// return leaves the window registered with events discarded.
type WindowOpener func(window WindowID, layout Layout) WindowSink

type discardSink struct{}

func (discardSink) OnLayoutUpdate(Layout) {}
func (discardSink) OnPaneOutput(PaneID, []byte) {}
func (discardSink) OnPaneCursorUpdate(PaneID, int, int) {}
func (discardSink) OnPaneSyncStart(PaneID) {}
func (discardSink) OnClose() {}
