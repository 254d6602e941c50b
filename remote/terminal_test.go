// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tmuxlink/control"
)

func TestTerminalRendererFollowsFirstPane(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderer := NewTerminalRenderer(&out, func() (int, int) { return 80, 24 }, "")

	renderer.Output("%1", []byte("before layout"))
	renderer.Layout(control.Layout{
		Width: 80, Height: 24, Orientation: control.TopBottom,
		Children: []control.Layout{{Width: 80, Height: 12, Pane: "%1"}, {Width: 80, Height: 11, Y: 13, Pane: "%2"}},
	})
	if renderer.Pane() != "%1" {
		t.Fatalf("pane = %q, want %%1", renderer.Pane())
	}
	renderer.Output("%2", []byte("other pane"))
	renderer.Output("%1", []byte("\x1b[31mred\x1b[0m"))

	if got := ansi.Strip(out.String()); got != "red" {
		t.Errorf("visible output = %q, want red", got)
	}
}

func TestTerminalRendererSnapshotSequence(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderer := NewTerminalRenderer(&out, func() (int, int) { return 80, 24 }, "%3")
	renderer.Layout(control.Layout{Width: 80, Height: 24, Pane: "%3"})

	renderer.ResetPane("%3")
	renderer.Output("%3", []byte("$ "))
	renderer.Cursor("%3", 2, 0)

	want := ansi.ResetStyle + ansi.EraseEntireScreen + ansi.CursorHomePosition + "$ " + ansi.CursorPosition(3, 1)
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestTerminalRendererFallsBackWhenPaneDisappears(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderer := NewTerminalRenderer(&out, func() (int, int) { return 80, 24 }, "%7")
	renderer.Layout(control.Layout{Width: 80, Height: 24, Pane: "%8"})
	if renderer.Pane() != "%8" {
		t.Errorf("pane = %q, want %%8", renderer.Pane())
	}
}

func TestTerminalRendererStopsAfterClose(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	renderer := NewTerminalRenderer(&out, func() (int, int) { return 80, 24 }, "%1")
	renderer.Layout(control.Layout{Width: 80, Height: 24, Pane: "%1"})
	renderer.Closed()
	renderer.Closed()
	renderer.Output("%1", []byte("late"))

	if strings.Count(out.String(), "[window closed]") != 1 {
		t.Errorf("output = %q, want one close notice", out.String())
	}
	if strings.Contains(out.String(), "late") {
		t.Error("output written after close")
	}
}
