// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"fmt"
	"strconv"
	"strings"
)

// windowFormat is the per-window line requested from tmux for
// discovery: window id, a space, then the checksummed layout.
const windowFormat = `"#{window_id} #{window_layout}"`

// WindowListing is one line of a window query.
type WindowListing struct {
	ID     WindowID
	Layout Layout
}

// ListWindows queries the attached session's windows. Lines whose
// layout does not parse are logged and skipped. onError may be nil.
func (c *Controller) ListWindows(callback func([]WindowListing), onError func(lines []string)) {
	c.QueueCommand("list-windows -F "+windowFormat, func(lines []string) {
		callback(c.parseListings(lines))
	}, c.orLogFailure("list-windows", onError))
}

func (c *Controller) parseListings(lines []string) []WindowListing {
	var listings []WindowListing
	for _, line := range lines {
		id, layoutText, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok || !strings.HasPrefix(id, "@") {
			c.logger.Warn("malformed window listing", "line", line)
			continue
		}
		layout, err := ParseWindowLayout(layoutText)
		if err != nil {
			c.logger.Warn("skipping window with malformed layout", "window", id, "error", err)
			continue
		}
		listings = append(listings, WindowListing{ID: WindowID(id), Layout: layout})
	}
	return listings
}

// queryWindow registers (or refreshes) one window from tmux's answer.
func (c *Controller) queryWindow(id WindowID) {
	c.QueueCommand(fmt.Sprintf("display-message -p -t %s %s", id, windowFormat), func(lines []string) {
		for _, listing := range c.parseListings(lines) {
			c.registerWindow(listing.ID, listing.Layout)
		}
	}, func(lines []string) {
		// The window can close before the query runs.
		c.logger.Debug("window query failed", "window", id, "output", lines)
	})
}

// NewWindow creates a window in the attached session and registers it,
// running the window opener. onError runs if tmux refuses; it may be nil.
func (c *Controller) NewWindow(onError func(lines []string)) {
	c.QueueCommand("new-window -P -F "+windowFormat, func(lines []string) {
		for _, listing := range c.parseListings(lines) {
			c.registerWindow(listing.ID, listing.Layout)
		}
	}, c.orLogFailure("new-window", onError))
}

// RequestLayoutUpdate re-queries a known window's layout and delivers
// it to the window's sink.
func (c *Controller) RequestLayoutUpdate(id WindowID) {
	if _, ok := c.windows[id]; !ok {
		c.logger.Warn("layout requested for unknown window", "window", id)
		return
	}
	c.queryWindow(id)
}

// SendPaneInput types data into pane, byte for byte.
func (c *Controller) SendPaneInput(pane PaneID, data []byte) {
	for _, command := range sendKeysCommands(pane, data) {
		c.QueueCommand(command, nil, c.orLogFailure("send-keys", nil))
	}
}

// ResizeWindow sets a window's size in cells.
func (c *Controller) ResizeWindow(id WindowID, columns, rows int) {
	if columns <= 0 || rows <= 0 {
		c.logger.Warn("ignoring resize to non-positive size", "window", id, "columns", columns, "rows", rows)
		return
	}
	c.QueueCommand(fmt.Sprintf("resize-window -t %s -x %d -y %d", id, columns, rows),
		nil, c.orLogFailure("resize-window", nil))
}

// SelectWindow makes id the session's current window.
func (c *Controller) SelectWindow(id WindowID) {
	c.QueueCommand("select-window -t "+string(id), nil, c.orLogFailure("select-window", nil))
}

// KillWindow closes a window. Its sink sees OnClose when tmux reports
// the close.
func (c *Controller) KillWindow(id WindowID) {
	c.QueueCommand("kill-window -t "+string(id), nil, c.orLogFailure("kill-window", nil))
}

// Detach asks tmux to detach this control client. tmux answers with
// %exit.
func (c *Controller) Detach() {
	c.QueueCommand("detach", nil, c.orLogFailure("detach", nil))
}

// CapturePane fetches the visible contents of pane with escape
// sequences, one element per row.
func (c *Controller) CapturePane(pane PaneID, callback func(lines []string)) {
	c.QueueCommand("capture-pane -peNJt "+string(pane), callback, c.orLogFailure("capture-pane", nil))
}

// GetPaneCursor fetches the zero-based cursor position of pane.
func (c *Controller) GetPaneCursor(pane PaneID, callback func(x, y int)) {
	// list-panes on a pane target lists every pane of its window, so
	// the pane id is included to pick the right line.
	text := fmt.Sprintf(`list-panes -t %s -F "#{pane_id} #{cursor_x} #{cursor_y}"`, pane)
	c.QueueCommand(text, func(lines []string) {
		for _, line := range lines {
			fields := strings.Fields(line)
			if len(fields) != 3 || PaneID(fields[0]) != pane {
				continue
			}
			x, errX := strconv.Atoi(fields[1])
			y, errY := strconv.Atoi(fields[2])
			if errX != nil || errY != nil {
				c.logger.Warn("malformed cursor position", "pane", pane, "line", line)
				return
			}
			callback(x, y)
			return
		}
		c.logger.Warn("cursor position missing from list-panes", "pane", pane, "output", lines)
	}, c.orLogFailure("list-panes", nil))
}

// SyncPane sends a full snapshot of pane to its window's sink:
// OnPaneSyncStart, then the captured contents as one OnPaneOutput, then
// OnPaneCursorUpdate.
func (c *Controller) SyncPane(pane PaneID) {
	w := c.windowForPane(pane)
	if w == nil {
		c.logger.Warn("sync requested for unknown pane", "pane", pane)
		return
	}
	w.sink.OnPaneSyncStart(pane)
	c.CapturePane(pane, func(lines []string) {
		current := c.windowForPane(pane)
		if current == nil {
			return
		}
		current.sink.OnPaneOutput(pane, []byte(strings.Join(lines, "\r\n")))
		c.GetPaneCursor(pane, func(x, y int) {
			if current := c.windowForPane(pane); current != nil {
				current.sink.OnPaneCursorUpdate(pane, x, y)
			}
		})
	})
}

// orLogFailure returns onError, or a callback logging the failure when
// onError is nil.
func (c *Controller) orLogFailure(operation string, onError func(lines []string)) func(lines []string) {
	if onError != nil {
		return onError
	}
	return func(lines []string) {
		if lines == nil {
			c.logger.Debug("tmux command aborted", "operation", operation)
			return
		}
		c.logger.Warn("tmux command failed", "operation", operation, "output", strings.Join(lines, "\n"))
	}
}
