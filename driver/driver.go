// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package driver wires a tmux control-mode Controller to the bus: every
// tmux window is served by a remote.ServerWindow on its own channel, and
// a rendezvous.Responder on the driver channel hands those channels to
// clients asking for windows.
package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/tmuxlink/control"
	"github.com/bureau-foundation/tmuxlink/lib/clock"
	"github.com/bureau-foundation/tmuxlink/remote"
	"github.com/bureau-foundation/tmuxlink/rendezvous"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// DefaultChannel is the well-known driver channel.
const DefaultChannel = "tmuxlink-driver"

// DefaultWindowChannelPrefix starts every window channel name.
const DefaultWindowChannelPrefix = "tmuxlink-window-"

// Config configures a Driver. Zero fields take defaults.
type Config struct {
	// Channel is the rendezvous channel name.
	Channel string

	// WindowChannelPrefix is prepended to a random id to name each
	// window's session channel.
	WindowChannelPrefix string

	// StaleRequestAfter is the age past which a queued window request
	// is rejected instead of resolved.
	StaleRequestAfter time.Duration

	Logger *slog.Logger
	Clock  clock.Clock
}

// Driver owns one tmux control connection and serves its windows.
type Driver struct {
	bus        transport.Bus
	config     Config
	logger     *slog.Logger
	controller *control.Controller
	loop       *control.Loop
	responder  *rendezvous.Responder

	mu      sync.Mutex
	windows map[control.WindowID]*remote.ServerWindow
}

// Compile-time interface check.
var _ rendezvous.WindowProvider = (*Driver)(nil)

// New builds a driver writing tmux commands to tmux. Lines read from
// tmux go to Loop().Feed; Run drives everything.
func New(bus transport.Bus, tmux control.Transport, config Config) (*Driver, error) {
	if config.Channel == "" {
		config.Channel = DefaultChannel
	}
	if config.WindowChannelPrefix == "" {
		config.WindowChannelPrefix = DefaultWindowChannelPrefix
	}
	if config.StaleRequestAfter <= 0 {
		config.StaleRequestAfter = rendezvous.DefaultStaleAfter
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}

	d := &Driver{
		bus:     bus,
		config:  config,
		logger:  config.Logger,
		windows: make(map[control.WindowID]*remote.ServerWindow),
	}
	d.controller = control.NewController(tmux,
		control.WithLogger(config.Logger),
		control.WithWindowOpener(d.openWindow),
		control.WithExitHandler(d.tmuxExited),
	)
	d.loop = control.NewLoop(d.controller, 0)
	d.loop.Post(func(c *control.Controller) { c.Start() })

	responder, err := rendezvous.NewResponder(bus, config.Channel, d,
		rendezvous.WithLogger(config.Logger),
		rendezvous.WithClock(config.Clock),
		rendezvous.WithStaleAfter(config.StaleRequestAfter),
	)
	if err != nil {
		return nil, fmt.Errorf("start window responder: %w", err)
	}
	d.responder = responder
	return d, nil
}

// Loop returns the loop owning the Controller; the tmux reader feeds it.
func (d *Driver) Loop() *control.Loop { return d.loop }

// Run processes tmux lines and requests, starting with window
// discovery, until ctx ends or tmux exits. On return every window channel is closed and
// pending requests are rejected with rendezvous.ErrDriverUnavailable.
func (d *Driver) Run(ctx context.Context) error {
	err := d.loop.Run(ctx)
	d.shutdown()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Windows returns the served windows and their channel names.
func (d *Driver) Windows() map[control.WindowID]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	served := make(map[control.WindowID]string, len(d.windows))
	for id, window := range d.windows {
		served[id] = window.Channel()
	}
	return served
}

// OpenWindow asks tmux for a new window. Called by the responder.
func (d *Driver) OpenWindow() {
	posted := d.loop.Post(func(c *control.Controller) {
		c.NewWindow(func(lines []string) {
			reason := rendezvous.ErrDriverUnavailable.Error()
			if lines != nil {
				reason = "create window: " + strings.Join(lines, "; ")
			}
			d.responder.FailOldest(reason)
		})
	})
	if !posted {
		d.responder.FailOldest(rendezvous.ErrDriverUnavailable.Error())
	}
}

// WindowChannel returns the channel serving an existing window.
func (d *Driver) WindowChannel(windowID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	window, ok := d.windows[control.WindowID(windowID)]
	if !ok {
		return "", false
	}
	return window.Channel(), true
}

// openWindow is the controller's window opener.
func (d *Driver) openWindow(id control.WindowID, layout control.Layout) control.WindowSink {
	name := d.config.WindowChannelPrefix + uuid.NewString()
	window, err := remote.NewServerWindow(d.bus, name, id, d.loop,
		remote.WithServerLogger(d.logger),
		remote.WithCloseHandler(func() { d.forget(id) }),
	)
	if err != nil {
		d.logger.Error("serving window failed", "window", id, "error", err)
		return nil
	}

	d.mu.Lock()
	d.windows[id] = window
	d.mu.Unlock()

	d.logger.Info("serving tmux window", "window", id, "channel", name,
		"size", fmt.Sprintf("%dx%d", layout.Width, layout.Height))
	if !d.responder.Resolve(name) {
		// Startup windows, windows a user made, and windows whose
		// request went stale end up here. They stay attachable by id.
		d.logger.Info("no open request waiting for window, serving it for attach only",
			"window", id, "channel", name)
	}
	return window
}

func (d *Driver) forget(id control.WindowID) {
	d.mu.Lock()
	delete(d.windows, id)
	d.mu.Unlock()
	d.logger.Info("tmux window closed", "window", id)
}

// tmuxExited runs on the loop after the controller closed every window.
func (d *Driver) tmuxExited(reason string) {
	d.logger.Info("tmux control connection ended", "reason", reason)
	d.loop.Stop()
}

func (d *Driver) shutdown() {
	d.mu.Lock()
	remaining := maps.Clone(d.windows)
	d.mu.Unlock()
	for _, window := range remaining {
		window.OnClose()
	}
	if err := d.responder.Close(); err != nil {
		d.logger.Warn("closing responder failed", "error", err)
	}
}
