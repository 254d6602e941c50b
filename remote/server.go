// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/tmuxlink/control"
	"github.com/bureau-foundation/tmuxlink/lib/codec"
	"github.com/bureau-foundation/tmuxlink/session"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// Compile-time interface check.
var _ control.WindowSink = (*ServerWindow)(nil)

// ServerOption configures a ServerWindow.
type ServerOption func(*ServerWindow)

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(w *ServerWindow) { w.logger = logger }
}

// WithCloseHandler runs fn once after the window closed and its
// channel was released.
func WithCloseHandler(fn func()) ServerOption {
	return func(w *ServerWindow) { w.onClose = fn }
}

// WithSessionOptions passes options to the underlying ServerChannel.
func WithSessionOptions(options ...session.Option) ServerOption {
	return func(w *ServerWindow) { w.sessionOptions = append(w.sessionOptions, options...) }
}

// ServerWindow serves one tmux window on a session channel. Its
// WindowSink methods are called on the Controller's goroutine.
type ServerWindow struct {
	id             control.WindowID
	executor       control.Executor
	logger         *slog.Logger
	onClose        func()
	sessionOptions []session.Option
	channel        *session.ServerChannel

	mu     sync.Mutex
	closed bool
	// active is the session whose Init has been sent. Events go only to
	// it, so a newer session sees nothing until its own Init.
	active uint64
}

// NewServerWindow opens channelName on bus for window id. Requests are
// executed through executor.
func NewServerWindow(bus transport.Bus, channelName string, id control.WindowID, executor control.Executor, options ...ServerOption) (*ServerWindow, error) {
	w := &ServerWindow{
		id:       id,
		executor: executor,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(w)
	}
	w.logger = w.logger.With("window", id, "channel", channelName)

	sessionOptions := append([]session.Option{session.WithLogger(w.logger)}, w.sessionOptions...)
	channel, err := session.NewServerChannel(bus, channelName, session.Handlers{
		OnConnected: w.connected,
		OnMessage:   w.receive,
	}, sessionOptions...)
	if err != nil {
		return nil, fmt.Errorf("serve window %s: %w", id, err)
	}
	w.channel = channel
	return w, nil
}

// WindowID returns the served window.
func (w *ServerWindow) WindowID() control.WindowID { return w.id }

// Channel returns the session channel name.
func (w *ServerWindow) Channel() string { return w.channel.Channel() }

// connected announces the window to a new client. The Init runs on the
// controller goroutine and activates the session there; until then
// send keeps addressing the previous session, whose envelopes the new
// client discards, so Init is the first event the new session accepts.
func (w *ServerWindow) connected(sessionID uint64) {
	w.logger.Info("remote client connected", "session", sessionID)
	w.executor.Post(func(*control.Controller) {
		w.mu.Lock()
		if w.closed || sessionID < w.active {
			w.mu.Unlock()
			return
		}
		w.active = sessionID
		w.mu.Unlock()
		w.publish(sessionID, ClientEvent{Kind: EventInit, WindowID: w.id})
	})
}

func (w *ServerWindow) send(event ClientEvent) {
	w.mu.Lock()
	closed, active := w.closed, w.active
	w.mu.Unlock()
	if closed || active == 0 {
		return
	}
	w.publish(active, event)
}

func (w *ServerWindow) publish(sessionID uint64, event ClientEvent) {
	if err := w.channel.SendTo(sessionID, event); err != nil {
		if errors.Is(err, session.ErrNotConnected) || errors.Is(err, session.ErrClosed) {
			return
		}
		w.logger.Warn("sending window event failed", "kind", event.Kind, "error", err)
	}
}

func (w *ServerWindow) OnLayoutUpdate(layout control.Layout) {
	w.send(ClientEvent{Kind: EventLayoutUpdate, Layout: &layout})
}

func (w *ServerWindow) OnPaneOutput(pane control.PaneID, data []byte) {
	w.send(ClientEvent{Kind: EventPaneOutput, Pane: pane, Data: data})
}

func (w *ServerWindow) OnPaneCursorUpdate(pane control.PaneID, x, y int) {
	w.send(ClientEvent{Kind: EventPaneCursorUpdate, Pane: pane, X: x, Y: y})
}

func (w *ServerWindow) OnPaneSyncStart(pane control.PaneID) {
	w.send(ClientEvent{Kind: EventPaneSyncStart, Pane: pane})
}

// OnClose tells the client the window is gone and releases the channel.
func (w *ServerWindow) OnClose() {
	w.send(ClientEvent{Kind: EventClose})
	w.Close()
}

// Close releases the channel without notifying the client. Safe to
// call more than once.
func (w *ServerWindow) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.channel.Close()
	if w.onClose != nil {
		w.onClose()
	}
	return err
}

// receive decodes a client request and runs it on the controller
// goroutine.
func (w *ServerWindow) receive(payload codec.RawMessage) {
	var request ServerRequest
	if err := codec.Unmarshal(payload, &request); err != nil {
		w.logger.Warn("dropping undecodable request", "error", err)
		return
	}
	if !request.Kind.valid() {
		w.logger.Warn("dropping request of unknown kind", "kind", request.Kind)
		return
	}
	if !w.executor.Post(func(c *control.Controller) { w.execute(c, request) }) {
		w.logger.Debug("controller stopped, dropping request", "kind", request.Kind)
	}
}

func (w *ServerWindow) execute(c *control.Controller, request ServerRequest) {
	switch request.Kind {
	case RequestLayoutUpdate:
		c.RequestLayoutUpdate(w.id)
	case RequestKillWindow:
		c.KillWindow(w.id)
	case RequestResizeWindow:
		c.ResizeWindow(w.id, request.Columns, request.Rows)
	case RequestSelectWindow:
		c.SelectWindow(w.id)
	case RequestQueueCommand:
		if request.Command == "" {
			return
		}
		c.QueueCommand(request.Command, nil, func(lines []string) {
			w.logger.Warn("remote command failed", "command", request.Command, "output", lines)
		})
	case RequestPaneInput:
		if w.ownsPane(c, request.Pane) {
			c.SendPaneInput(request.Pane, request.Data)
		}
	case RequestSyncPane:
		if w.ownsPane(c, request.Pane) {
			c.SyncPane(request.Pane)
		}
	}
}

// ownsPane rejects requests naming a pane of another window.
func (w *ServerWindow) ownsPane(c *control.Controller, pane control.PaneID) bool {
	info, ok := c.Pane(pane)
	if !ok || info.Window != w.id {
		w.logger.Warn("request for pane outside this window", "pane", pane)
		return false
	}
	return true
}
