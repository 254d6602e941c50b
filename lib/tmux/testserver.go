// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/tmuxlink/lib/testutil"
)

// NewTestServer creates an isolated tmux server for testing. The
// server:
//   - uses a short /tmp socket path to stay within the Unix socket limit
//   - passes -f /dev/null so ~/.tmux.conf is never loaded
//   - creates a _guard session running "sleep infinity" to keep the
//     server alive (tmux exits when its last session ends)
//   - is killed by t.Cleanup when the test completes
//
// The test is skipped when no tmux binary is installed.
//
// All test tmux commands MUST use the returned Server. A bare "tmux"
// without -S targets the user's default server.
func NewTestServer(t *testing.T) *Server {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}

	socketPath := filepath.Join(testutil.SocketDir(t), "tmux.sock")
	server := NewServer(socketPath, "/dev/null")

	if err := server.NewSession("_guard", "sleep", "infinity"); err != nil {
		t.Fatalf("start tmux test server: %v", err)
	}
	t.Cleanup(func() {
		server.KillServer()
	})
	return server
}
