// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tmuxlink/control"
)

// Compile-time interface check.
var _ Renderer = (*TerminalRenderer)(nil)

// TerminalRenderer shows one pane of a remote window on a local
// terminal by passing its output through unchanged. Output of other
// panes is discarded.
type TerminalRenderer struct {
	out  io.Writer
	size func() (columns, rows int)

	mu     sync.Mutex
	pane   control.PaneID
	panes  []control.PaneID
	closed bool
}

// NewTerminalRenderer writes to out. size reports the terminal size.
// An empty pane follows the first pane of each layout.
func NewTerminalRenderer(out io.Writer, size func() (columns, rows int), pane control.PaneID) *TerminalRenderer {
	return &TerminalRenderer{out: out, size: size, pane: pane}
}

// Pane returns the pane being shown, empty before the first layout.
func (r *TerminalRenderer) Pane() control.PaneID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pane
}

func (r *TerminalRenderer) Size() (int, int) {
	return r.size()
}

// Layout keeps the shown pane when it survives the new layout and
// otherwise falls back to the first pane.
func (r *TerminalRenderer) Layout(layout control.Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panes = layout.Panes()
	if len(r.panes) > 0 && !slices.Contains(r.panes, r.pane) {
		r.pane = r.panes[0]
	}
}

func (r *TerminalRenderer) Output(pane control.PaneID, data []byte) {
	r.writeFor(pane, string(data))
}

func (r *TerminalRenderer) Cursor(pane control.PaneID, x, y int) {
	r.writeFor(pane, ansi.CursorPosition(x+1, y+1))
}

func (r *TerminalRenderer) ResetPane(pane control.PaneID) {
	r.writeFor(pane, ansi.ResetStyle+ansi.EraseEntireScreen+ansi.CursorHomePosition)
}

func (r *TerminalRenderer) Closed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	io.WriteString(r.out, ansi.ResetStyle+"\r\n[window closed]\r\n")
}

func (r *TerminalRenderer) writeFor(pane control.PaneID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || pane != r.pane {
		return
	}
	io.WriteString(r.out, text)
}
