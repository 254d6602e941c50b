// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux provides a socket-scoped handle on a tmux server. The
// tmuxlink driver uses it to make sure the session it drives exists
// and to spawn the control-mode client (tmux -C) whose line stream the
// control package interprets.
//
// Every command goes through Server, which injects the -S flag, so a
// driver configured for one server can never touch another.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Server represents a tmux server identified by its Unix socket path.
// An empty socket path targets tmux's default server.
type Server struct {
	socketPath string
	configFile string // passed as "-f <path>" on new-session; empty = tmux default
}

// NewServer returns a Server that targets the given socket path.
//
// configFile controls which configuration file tmux loads when the
// server starts (on the first new-session). Pass "/dev/null" for a
// server that ignores ~/.tmux.conf, as tests do.
func NewServer(socketPath, configFile string) *Server {
	return &Server{
		socketPath: socketPath,
		configFile: configFile,
	}
}

// SocketPath returns the Unix socket path that identifies this server.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// globalArgs returns the arguments that select this server.
func (s *Server) globalArgs() []string {
	if s.socketPath == "" {
		return nil
	}
	return []string{"-S", s.socketPath}
}

// NewSession creates a detached tmux session on this server. If
// command is non-empty, the session runs that command instead of the
// default shell.
func (s *Server) NewSession(sessionName string, command ...string) error {
	var args []string
	if s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	args = append(args, s.globalArgs()...)
	args = append(args, "new-session", "-d", "-s", sessionName)
	args = append(args, command...)
	cmd := exec.Command("tmux", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			sessionName, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// EnsureSession creates the session when it does not exist yet.
func (s *Server) EnsureSession(sessionName string) error {
	if s.HasSession(sessionName) {
		return nil
	}
	return s.NewSession(sessionName)
}

// HasSession reports whether a session with the given name exists on
// this server. Returns false if the server is not running.
func (s *Server) HasSession(sessionName string) bool {
	args := append(s.globalArgs(), "has-session", "-t", sessionName)
	return exec.Command("tmux", args...).Run() == nil
}

// KillServer terminates the entire tmux server. Returns nil if the
// server was already stopped.
func (s *Server) KillServer() error {
	args := append(s.globalArgs(), "kill-server")
	output, err := exec.Command("tmux", args...).CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		// The socket file can linger briefly after the server exits,
		// which produces "server exited unexpectedly".
		if strings.Contains(outputString, "no server running") ||
			strings.Contains(outputString, "server exited unexpectedly") ||
			strings.Contains(outputString, "error connecting") {
			return nil
		}
		return fmt.Errorf("tmux kill-server: %w (%s)", err, outputString)
	}
	return nil
}

// Run executes a tmux subcommand on this server and returns the
// combined output.
//
//	output, err := server.Run("list-windows", "-t", session, "-F", "#{window_id}")
func (s *Server) Run(args ...string) (string, error) {
	fullArgs := append(s.globalArgs(), args...)
	output, err := exec.Command("tmux", fullArgs...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// ControlCommand returns an unstarted *exec.Cmd that attaches a
// control-mode client (tmux -C) to sessionName. The caller pipes stdin
// and stdout before starting it. Cancelling ctx kills the process.
//
// Control-mode clients do not take part in window size negotiation
// unless a size is set with refresh-client, so attaching one does not
// shrink windows shown on real terminals.
func (s *Server) ControlCommand(ctx context.Context, sessionName string) *exec.Cmd {
	args := append(s.globalArgs(), "-C", "attach-session", "-t", sessionName)
	return exec.CommandContext(ctx, "tmux", args...)
}
