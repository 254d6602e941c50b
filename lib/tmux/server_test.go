// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tmux_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bureau-foundation/tmuxlink/lib/tmux"
)

func TestNewSession(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.NewSession("test-session", "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if !server.HasSession("test-session") {
		t.Fatal("HasSession returned false for a session that was just created")
	}
}

func TestHasSessionReturnsFalseForMissing(t *testing.T) {
	server := tmux.NewTestServer(t)

	if server.HasSession("nonexistent") {
		t.Fatal("HasSession returned true for a session that does not exist")
	}
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	server := tmux.NewTestServer(t)

	for range 2 {
		if err := server.EnsureSession("work"); err != nil {
			t.Fatalf("EnsureSession: %v", err)
		}
	}
	output, err := server.Run("list-sessions", "-F", "#{session_name}")
	if err != nil {
		t.Fatalf("list-sessions: %v", err)
	}
	if count := strings.Count(output, "work\n"); count != 1 {
		t.Fatalf("found %d sessions named work, want 1:\n%s", count, output)
	}
}

func TestKillServerBenignWhenStopped(t *testing.T) {
	server := tmux.NewTestServer(t)

	if err := server.KillServer(); err != nil {
		t.Fatalf("first KillServer: %v", err)
	}
	if err := server.KillServer(); err != nil {
		t.Fatalf("KillServer on a stopped server: %v", err)
	}
}

func TestControlCommandTargetsSocket(t *testing.T) {
	server := tmux.NewServer("/tmp/tmuxlink-example.sock", "")

	cmd := server.ControlCommand(context.Background(), "work")
	got := strings.Join(cmd.Args[1:], " ")
	want := "-S /tmp/tmuxlink-example.sock -C attach-session -t work"
	if got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
}
