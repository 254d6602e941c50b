// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"slices"
	"testing"
)

func TestCommandSuccessDeliversBody(t *testing.T) {
	var got []string
	command := &Command{Text: "list-windows", OnSuccess: func(lines []string) { got = lines }}
	command.start("1 2 0")
	command.appendLine("first")
	command.appendLine("second")
	command.finish(true)

	if command.State() != CommandFinished {
		t.Errorf("state = %v, want finished", command.State())
	}
	if !slices.Equal(got, []string{"first", "second"}) {
		t.Errorf("body = %v, want [first second]", got)
	}
}

func TestCommandErrorRunsOnlyOnError(t *testing.T) {
	successCalled := false
	var errorLines []string
	command := &Command{
		Text:      "bogus",
		OnSuccess: func([]string) { successCalled = true },
		OnError:   func(lines []string) { errorLines = lines },
	}
	command.start("1 2 0")
	command.appendLine("unknown command: bogus")
	command.finish(false)

	if successCalled {
		t.Error("OnSuccess ran for a failed command")
	}
	if !slices.Equal(errorLines, []string{"unknown command: bogus"}) {
		t.Errorf("error lines = %v", errorLines)
	}
}

func TestCommandFinishBeforeStartPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("finish on a pending command did not panic")
		}
	}()
	(&Command{Text: "x"}).finish(true)
}

func TestCommandDoubleStartPanics(t *testing.T) {
	command := &Command{Text: "x"}
	command.start("1 1 0")
	defer func() {
		if recover() == nil {
			t.Error("second start did not panic")
		}
	}()
	command.start("1 1 0")
}

func TestCommandAbortIsIdempotent(t *testing.T) {
	calls := 0
	command := &Command{Text: "x", OnError: func(lines []string) {
		calls++
		if lines != nil {
			t.Errorf("abort delivered lines %v, want nil", lines)
		}
	}}
	command.abort()
	command.abort()
	if calls != 1 {
		t.Errorf("OnError ran %d times, want 1", calls)
	}
}
