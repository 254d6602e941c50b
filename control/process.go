// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/bureau-foundation/tmuxlink/lib/tmux"
)

// maxLineBytes bounds one line from tmux. %output lines for a large
// burst and capture-pane rows with escapes run long.
const maxLineBytes = 16 << 20

// Process is a running "tmux -C attach-session" client. It is the
// Transport for the Controller reading its output.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stdin  io.WriteCloser
	writer *LineWriter
	logger *slog.Logger
}

// StartProcess spawns a control-mode client attached to sessionName.
// Cancelling ctx kills it.
func StartProcess(ctx context.Context, server *tmux.Server, sessionName string, logger *slog.Logger) (*Process, error) {
	cmd := server.ControlCommand(ctx, sessionName)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start tmux control mode: %w", err)
	}
	logger.Info("tmux control client started", "session", sessionName, "pid", cmd.Process.Pid)

	return &Process{
		cmd:    cmd,
		stdout: stdout,
		stdin:  stdin,
		writer: &LineWriter{Writer: stdin},
		logger: logger,
	}, nil
}

// SendLine writes one command line to tmux.
func (p *Process) SendLine(text string) error {
	return p.writer.SendLine(text)
}

// Pump feeds every stdout line into loop until tmux closes its output
// or the loop stops. A clean EOF returns nil.
func (p *Process) Pump(loop *Loop) error {
	scanner := bufio.NewScanner(p.stdout)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)
	for scanner.Scan() {
		if !loop.Feed(scanner.Text()) {
			return ErrLoopStopped
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading tmux control output: %w", err)
	}
	return nil
}

// Close closes stdin, which makes tmux detach, and waits for the
// process to exit.
func (p *Process) Close() error {
	// Wait blocks until the pipes close, so stdin goes first.
	p.stdin.Close()
	err := p.cmd.Wait()
	p.logger.Info("tmux control client exited", "error", err)
	return err
}
