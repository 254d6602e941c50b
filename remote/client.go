// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/tmuxlink/control"
	"github.com/bureau-foundation/tmuxlink/lib/codec"
	"github.com/bureau-foundation/tmuxlink/session"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// Renderer displays a remote window. Methods are called one at a time
// from the channel's delivery goroutine.
type Renderer interface {
	// Size returns the local display size in cells.
	Size() (columns, rows int)

	Layout(layout control.Layout)
	Output(pane control.PaneID, data []byte)
	Cursor(pane control.PaneID, x, y int)

	// ResetPane clears pane ahead of a full snapshot.
	ResetPane(pane control.PaneID)

	// Closed reports that the remote window closed.
	Closed()
}

// ClientOption configures a ClientWindow.
type ClientOption func(*ClientWindow)

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(w *ClientWindow) { w.logger = logger }
}

// WithClientSessionOptions passes options to the ClientChannel.
func WithClientSessionOptions(options ...session.Option) ClientOption {
	return func(w *ClientWindow) { w.sessionOptions = append(w.sessionOptions, options...) }
}

// ClientWindow is the remote end of a ServerWindow.
type ClientWindow struct {
	renderer       Renderer
	logger         *slog.Logger
	sessionOptions []session.Option
	channel        *session.ClientChannel

	mu       sync.Mutex
	windowID control.WindowID
	layout   *control.Layout
	// requested is the size asked for since the last layout, so a
	// burst of keystrokes sends one resize.
	requestedColumns, requestedRows int

	initialized chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once
}

// NewClientWindow opens channelName on bus without connecting.
func NewClientWindow(bus transport.Bus, channelName string, renderer Renderer, options ...ClientOption) (*ClientWindow, error) {
	w := &ClientWindow{
		renderer:    renderer,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		initialized: make(chan struct{}),
		closed:      make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}
	w.logger = w.logger.With("channel", channelName)

	sessionOptions := append([]session.Option{session.WithLogger(w.logger)}, w.sessionOptions...)
	channel, err := session.NewClientChannel(bus, channelName, session.Handlers{OnMessage: w.receive}, sessionOptions...)
	if err != nil {
		return nil, fmt.Errorf("open window channel: %w", err)
	}
	w.channel = channel
	return w, nil
}

// DialWindow opens channelName and waits until the ServerWindow has
// identified its window.
func DialWindow(ctx context.Context, bus transport.Bus, channelName string, renderer Renderer, options ...ClientOption) (*ClientWindow, error) {
	w, err := NewClientWindow(bus, channelName, renderer, options...)
	if err != nil {
		return nil, err
	}
	if err := w.Connect(ctx); err != nil {
		w.channel.Close()
		return nil, err
	}
	return w, nil
}

// Connect performs the handshake and waits for the Init event.
func (w *ClientWindow) Connect(ctx context.Context) error {
	if err := w.channel.Connect(); err != nil {
		return fmt.Errorf("connect to %s: %w", w.channel.Channel(), err)
	}
	select {
	case <-w.initialized:
		return nil
	case <-w.closed:
		return fmt.Errorf("window on %s closed during connect", w.channel.Channel())
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", w.channel.Channel(), ctx.Err())
	}
}

// WindowID returns the remote window id, empty before Init.
func (w *ClientWindow) WindowID() control.WindowID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.windowID
}

// Layout returns the latest layout, if any arrived.
func (w *ClientWindow) Layout() (control.Layout, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.layout == nil {
		return control.Layout{}, false
	}
	return *w.layout, true
}

// Done is closed when the remote window closes or Close is called.
func (w *ClientWindow) Done() <-chan struct{} { return w.closed }

// Close leaves the channel. The remote window stays open.
func (w *ClientWindow) Close() error {
	w.closeOnce.Do(func() { close(w.closed) })
	return w.channel.Close()
}

// SendPaneInput types data into pane, reconciling the window size
// first.
func (w *ClientWindow) SendPaneInput(pane control.PaneID, data []byte) error {
	if err := w.ReconcileSize(); err != nil {
		return err
	}
	return w.request(ServerRequest{Kind: RequestPaneInput, Pane: pane, Data: data})
}

// RequestLayoutUpdate asks for a fresh layout event.
func (w *ClientWindow) RequestLayoutUpdate() error {
	return w.request(ServerRequest{Kind: RequestLayoutUpdate})
}

// KillWindow closes the remote window.
func (w *ClientWindow) KillWindow() error {
	return w.request(ServerRequest{Kind: RequestKillWindow})
}

// SyncPane asks for a full snapshot of pane.
func (w *ClientWindow) SyncPane(pane control.PaneID) error {
	return w.request(ServerRequest{Kind: RequestSyncPane, Pane: pane})
}

// QueueCommand runs a raw tmux command on the driver.
func (w *ClientWindow) QueueCommand(command string) error {
	return w.request(ServerRequest{Kind: RequestQueueCommand, Command: command})
}

// ReconcileSize compares the renderer size with the window's layout and,
// only when they differ, requests a resize then a window selection.
// Nothing is sent before the first layout.
func (w *ClientWindow) ReconcileSize() error {
	columns, rows := w.renderer.Size()
	if columns <= 0 || rows <= 0 {
		return nil
	}

	w.mu.Lock()
	layout := w.layout
	if layout == nil ||
		(layout.Width == columns && layout.Height == rows) ||
		(w.requestedColumns == columns && w.requestedRows == rows) {
		w.mu.Unlock()
		return nil
	}
	w.requestedColumns, w.requestedRows = columns, rows
	w.mu.Unlock()

	w.logger.Debug("resizing remote window", "columns", columns, "rows", rows)
	if err := w.request(ServerRequest{Kind: RequestResizeWindow, Columns: columns, Rows: rows}); err != nil {
		return err
	}
	return w.request(ServerRequest{Kind: RequestSelectWindow})
}

func (w *ClientWindow) request(request ServerRequest) error {
	if err := w.channel.Send(request); err != nil {
		return fmt.Errorf("%s: %w", request.Kind, err)
	}
	return nil
}

func (w *ClientWindow) receive(payload codec.RawMessage) {
	var event ClientEvent
	if err := codec.Unmarshal(payload, &event); err != nil {
		w.logger.Warn("dropping undecodable event", "error", err)
		return
	}
	if !event.Kind.valid() {
		w.logger.Warn("dropping event of unknown kind", "kind", event.Kind)
		return
	}

	switch event.Kind {
	case EventInit:
		w.mu.Lock()
		w.windowID = event.WindowID
		w.mu.Unlock()
		select {
		case <-w.initialized:
		default:
			close(w.initialized)
		}
		if err := w.RequestLayoutUpdate(); err != nil {
			w.logger.Warn("requesting initial layout failed", "error", err)
		}

	case EventLayoutUpdate:
		if event.Layout == nil {
			w.logger.Warn("layout event without a layout")
			return
		}
		w.mu.Lock()
		first := w.layout == nil
		w.layout = event.Layout
		w.requestedColumns, w.requestedRows = 0, 0
		w.mu.Unlock()

		w.renderer.Layout(*event.Layout)
		if first {
			if err := w.ReconcileSize(); err != nil {
				w.logger.Warn("initial resize failed", "error", err)
			}
			for _, pane := range event.Layout.Panes() {
				if err := w.SyncPane(pane); err != nil {
					w.logger.Warn("requesting pane snapshot failed", "pane", pane, "error", err)
				}
			}
		}

	case EventPaneOutput:
		w.renderer.Output(event.Pane, event.Data)
	case EventPaneCursorUpdate:
		w.renderer.Cursor(event.Pane, event.X, event.Y)
	case EventPaneSyncStart:
		w.renderer.ResetPane(event.Pane)
	case EventClose:
		w.renderer.Closed()
		w.closeOnce.Do(func() { close(w.closed) })
	}
}
