// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import "fmt"

// CommandState tracks a command through its single pass over the wire.
type CommandState int

const (
	// CommandPending: queued or written, no %begin seen yet.
	CommandPending CommandState = iota
	// CommandStarted: %begin seen, body lines accumulating.
	CommandStarted
	// CommandFinished: %end or %error seen, or aborted. Terminal.
	CommandFinished
)

func (s CommandState) String() string {
	switch s {
	case CommandPending:
		return "pending"
	case CommandStarted:
		return "started"
	case CommandFinished:
		return "finished"
	default:
		return fmt.Sprintf("CommandState(%d)", int(s))
	}
}

// Command is one tmux command and the callbacks for its outcome.
// Exactly one of OnSuccess or OnError runs, once. Either may be nil.
type Command struct {
	// Text is the command line written to tmux, without terminator.
	Text string

	OnSuccess func(lines []string)
	OnError   func(lines []string)

	state  CommandState
	marker string
	body   []string
}

// State returns where the command is in its lifecycle.
func (c *Command) State() CommandState { return c.state }

// start records the %begin payload. Starting twice is a programming
// error in the controller.
func (c *Command) start(marker string) {
	if c.state != CommandPending {
		panic(fmt.Sprintf("control: start of %s command %q", c.state, c.Text))
	}
	c.state = CommandStarted
	c.marker = marker
	c.body = nil
}

func (c *Command) appendLine(line string) {
	c.body = append(c.body, line)
}

// ends reports whether an %end or %error payload closes this command.
func (c *Command) ends(marker string) bool {
	return c.state == CommandStarted && c.marker == marker
}

// finish delivers the accumulated body to the matching callback.
func (c *Command) finish(success bool) {
	if c.state != CommandStarted {
		panic(fmt.Sprintf("control: finish of %s command %q", c.state, c.Text))
	}
	c.state = CommandFinished
	lines := c.body
	c.body = nil
	if success {
		if c.OnSuccess != nil {
			c.OnSuccess(lines)
		}
		return
	}
	if c.OnError != nil {
		c.OnError(lines)
	}
}

// abort fails a command that will never receive a reply. OnError sees
// nil lines, which distinguishes an abort from a tmux %error.
func (c *Command) abort() {
	if c.state == CommandFinished {
		return
	}
	c.state = CommandFinished
	c.body = nil
	if c.OnError != nil {
		c.OnError(nil)
	}
}
