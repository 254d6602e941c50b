// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Transport carries command lines to the tmux control client. SendLine
// is called on the Controller's goroutine with the command text only;
// framing the line is the transport's job.
type Transport interface {
	SendLine(text string) error
}

// LineWriter is a Transport writing each command followed by
// Terminator. A zero Terminator means "\n", which is what tmux -C
// expects on a pipe; pty-backed transports use "\r".
type LineWriter struct {
	Writer     io.Writer
	Terminator string

	mu sync.Mutex
}

// SendLine writes text and the terminator in one Write call.
func (w *LineWriter) SendLine(text string) error {
	terminator := w.Terminator
	if terminator == "" {
		terminator = "\n"
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := io.WriteString(w.Writer, text+terminator)
	return err
}

// ProtocolState is the controller's position in the line protocol.
type ProtocolState int

const (
	// StateIdle: no command in flight. Only seen before Start and after
	// %exit.
	StateIdle ProtocolState = iota
	// StateAwaitingBegin: a command is in flight, its %begin has not
	// arrived.
	StateAwaitingBegin
	// StateInsideBody: between a command's %begin and its %end/%error.
	StateInsideBody
)

func (s ProtocolState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingBegin:
		return "awaiting-begin"
	case StateInsideBody:
		return "inside-body"
	default:
		return "ProtocolState(" + strconv.Itoa(int(s)) + ")"
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithWindowOpener sets the callback that supplies a sink for each
// newly discovered window.
func WithWindowOpener(opener WindowOpener) Option {
	return func(c *Controller) { c.opener = opener }
}

// WithExitHandler sets the callback run once per %exit, after every
// window was closed and the command queue aborted. reason is the text
// tmux put after %exit, often empty.
func WithExitHandler(handler func(reason string)) Option {
	return func(c *Controller) { c.onExit = handler }
}

// Controller interprets the tmux control-mode line stream. See the
// package documentation for the threading contract.
type Controller struct {
	transport Transport
	logger    *slog.Logger
	opener    WindowOpener
	onExit    func(reason string)

	// current is the command in flight: written to tmux and waiting
	// for (or inside) its %begin block. At most one at a time.
	current *Command
	queue   []*Command

	// interpreting is set while InterpretLine runs. Commands queued
	// from callbacks during that time are written after the line is
	// fully processed.
	interpreting bool

	windows map[WindowID]*window
	panes   map[PaneID]WindowID

	notifications map[string]func(args string)
}

type window struct {
	id     WindowID
	layout Layout
	sink   WindowSink
}

// WindowInfo is a snapshot of one registered window.
type WindowInfo struct {
	ID     WindowID
	Layout Layout
	Sink   WindowSink
}

// PaneInfo ties a pane to the window whose layout contains it.
type PaneInfo struct {
	ID     PaneID
	Window WindowID
}

// NewController creates a Controller writing to transport. Call Start
// before feeding lines.
func NewController(transport Transport, options ...Option) *Controller {
	c := &Controller{
		transport: transport,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		windows:   make(map[WindowID]*window),
		panes:     make(map[PaneID]WindowID),
	}
	for _, option := range options {
		option(c)
	}
	c.notifications = map[string]func(string){
		"output":                c.handleOutput,
		"extended-output":       c.handleExtendedOutput,
		"layout-change":         c.handleLayoutChange,
		"window-add":            c.handleWindowAdd,
		"window-close":          c.handleWindowClose,
		"unlinked-window-close": c.handleWindowClose,
		"exit":                  c.handleExit,
	}
	return c
}

// Start arms the controller for a fresh tmux attach. tmux answers the
// attach itself with a %begin/%end block nobody asked for, so a
// synthetic command absorbs it; then list-windows discovers the
// windows already present.
func (c *Controller) Start() {
	c.current = &Command{Text: "attach-session"}
	c.ListWindows(func(listings []WindowListing) {
		for _, listing := range listings {
			c.registerWindow(listing.ID, listing.Layout)
		}
	}, nil)
}

// State reports the protocol state.
func (c *Controller) State() ProtocolState {
	switch {
	case c.current == nil:
		return StateIdle
	case c.current.State() == CommandStarted:
		return StateInsideBody
	default:
		return StateAwaitingBegin
	}
}

// PendingCommands returns the number of queued commands, excluding the
// one in flight.
func (c *Controller) PendingCommands() int {
	return len(c.queue)
}

// QueueCommand appends a command to the FIFO queue and writes it once
// every earlier command finished. The returned Command can be inspected
// but must not be modified.
func (c *Controller) QueueCommand(text string, onSuccess, onError func(lines []string)) *Command {
	command := &Command{Text: text, OnSuccess: onSuccess, OnError: onError}
	c.queue = append(c.queue, command)
	if !c.interpreting {
		c.dispatch()
	}
	return command
}

// InterpretLine processes one line from tmux, without its terminator.
// Malformed lines are logged and dropped.
func (c *Controller) InterpretLine(line string) {
	c.interpreting = true
	defer func() {
		c.interpreting = false
		c.dispatch()
	}()

	kind, marker := framing(line)

	if current := c.current; current != nil && current.State() == CommandStarted {
		if (kind == frameEnd || kind == frameError) && current.ends(marker) {
			c.current = nil
			current.finish(kind == frameEnd)
			return
		}
		current.appendLine(line)
		return
	}

	switch kind {
	case frameBegin:
		if c.current == nil {
			c.logger.Warn("tmux %begin with no command in flight", "line", line)
			return
		}
		c.current.start(marker)
		return
	case frameEnd, frameError:
		c.logger.Warn("tmux block end outside a command block", "line", line)
		return
	}

	if !strings.HasPrefix(line, "%") {
		if line != "" {
			c.logger.Debug("ignoring tmux line outside a command block", "line", line)
		}
		return
	}
	name, args, _ := strings.Cut(line[1:], " ")
	if handler, ok := c.notifications[name]; ok {
		handler(args)
	}
}

// dispatch writes the next queued command if none is in flight.
// Commands whose write fails are aborted and the next one is tried.
func (c *Controller) dispatch() {
	for c.current == nil && len(c.queue) > 0 {
		command := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.current = command
		if err := c.transport.SendLine(command.Text); err != nil {
			c.logger.Error("writing tmux command failed", "command", command.Text, "error", err)
			c.current = nil
			command.abort()
		}
	}
}

type frameKind int

const (
	frameNone frameKind = iota
	frameBegin
	frameEnd
	frameError
)

// framing classifies %begin/%end/%error lines and returns their payload
// ("<timestamp> <command number> <flags>").
func framing(line string) (frameKind, string) {
	for _, candidate := range []struct {
		prefix string
		kind   frameKind
	}{
		{"%begin", frameBegin},
		{"%end", frameEnd},
		{"%error", frameError},
	} {
		rest, ok := strings.CutPrefix(line, candidate.prefix)
		if !ok {
			continue
		}
		if rest == "" {
			return candidate.kind, ""
		}
		if rest[0] == ' ' {
			return candidate.kind, rest[1:]
		}
	}
	return frameNone, ""
}

func (c *Controller) handleOutput(args string) {
	pane, data, ok := strings.Cut(args, " ")
	if !ok {
		c.logger.Warn("malformed tmux %output", "args", args)
		return
	}
	c.deliverOutput(PaneID(pane), data)
}

// %extended-output %<pane> <age> ... : <data>
func (c *Controller) handleExtendedOutput(args string) {
	pane, rest, ok := strings.Cut(args, " ")
	if !ok {
		c.logger.Warn("malformed tmux %extended-output", "args", args)
		return
	}
	_, data, ok := strings.Cut(rest, " : ")
	if !ok {
		c.logger.Warn("malformed tmux %extended-output", "args", args)
		return
	}
	c.deliverOutput(PaneID(pane), data)
}

func (c *Controller) deliverOutput(pane PaneID, escaped string) {
	w := c.windowForPane(pane)
	if w == nil {
		c.logger.Debug("dropping output for unknown pane", "pane", pane)
		return
	}
	w.sink.OnPaneOutput(pane, decodeOutput(escaped))
}

// %layout-change @<window> <layout> <visible-layout> <flags>
func (c *Controller) handleLayoutChange(args string) {
	id, rest, ok := strings.Cut(args, " ")
	if !ok {
		c.logger.Warn("malformed tmux %layout-change", "args", args)
		return
	}
	w, known := c.windows[WindowID(id)]
	if !known {
		c.logger.Debug("layout change for unknown window", "window", id)
		return
	}
	layout, err := ParseWindowLayout(layoutField(rest))
	if err != nil {
		c.logger.Warn("keeping previous layout", "window", id, "error", err)
		return
	}
	c.setLayout(w, layout)
	w.sink.OnLayoutUpdate(layout)
}

func (c *Controller) handleWindowAdd(args string) {
	id := WindowID(layoutField(args))
	if id == "" {
		c.logger.Warn("malformed tmux %window-add", "args", args)
		return
	}
	c.queryWindow(id)
}

func (c *Controller) handleWindowClose(args string) {
	c.closeWindow(WindowID(layoutField(args)))
}

func (c *Controller) handleExit(reason string) {
	c.logger.Info("tmux control client exited", "reason", reason)
	for _, id := range c.windowIDs() {
		c.closeWindow(id)
	}

	current, queued := c.current, c.queue
	c.current, c.queue = nil, nil
	if current != nil {
		current.abort()
	}
	for _, command := range queued {
		command.abort()
	}

	if c.onExit != nil {
		c.onExit(reason)
	}
}

// registerWindow adds a window or, when already known, updates its
// layout. The opener runs only for windows seen for the first time.
func (c *Controller) registerWindow(id WindowID, layout Layout) {
	if w, ok := c.windows[id]; ok {
		c.setLayout(w, layout)
		w.sink.OnLayoutUpdate(layout)
		return
	}
	w := &window{id: id, sink: discardSink{}}
	c.windows[id] = w
	c.setLayout(w, layout)
	c.logger.Debug("tmux window registered", "window", id, "panes", len(layout.Panes()))
	if c.opener != nil {
		if sink := c.opener(id, layout); sink != nil {
			w.sink = sink
		}
	}
	w.sink.OnLayoutUpdate(layout)
}

// setLayout stores layout on w and rebuilds w's pane ownership from
// scratch.
func (c *Controller) setLayout(w *window, layout Layout) {
	for pane, owner := range c.panes {
		if owner == w.id {
			delete(c.panes, pane)
		}
	}
	w.layout = layout
	for _, pane := range layout.Panes() {
		c.panes[pane] = w.id
	}
}

func (c *Controller) closeWindow(id WindowID) {
	w, ok := c.windows[id]
	if !ok {
		c.logger.Debug("close for unknown window", "window", id)
		return
	}
	for pane, owner := range c.panes {
		if owner == id {
			delete(c.panes, pane)
		}
	}
	delete(c.windows, id)
	c.logger.Debug("tmux window closed", "window", id)
	w.sink.OnClose()
}

func (c *Controller) windowForPane(pane PaneID) *window {
	id, ok := c.panes[pane]
	if !ok {
		return nil
	}
	return c.windows[id]
}

// windowIDs returns registered windows in tmux creation order.
func (c *Controller) windowIDs() []WindowID {
	ids := make([]WindowID, 0, len(c.windows))
	for id := range c.windows {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareWindowIDs)
	return ids
}

func compareWindowIDs(a, b WindowID) int {
	na, errA := strconv.Atoi(strings.TrimPrefix(string(a), "@"))
	nb, errB := strconv.Atoi(strings.TrimPrefix(string(b), "@"))
	if errA == nil && errB == nil {
		return na - nb
	}
	return strings.Compare(string(a), string(b))
}

// Windows returns a snapshot of every registered window.
func (c *Controller) Windows() []WindowInfo {
	var infos []WindowInfo
	for _, id := range c.windowIDs() {
		w := c.windows[id]
		infos = append(infos, WindowInfo{ID: id, Layout: w.layout, Sink: w.sink})
	}
	return infos
}

// Window returns the registered window id.
func (c *Controller) Window(id WindowID) (WindowInfo, bool) {
	w, ok := c.windows[id]
	if !ok {
		return WindowInfo{}, false
	}
	return WindowInfo{ID: id, Layout: w.layout, Sink: w.sink}, true
}

// Pane returns the registered pane id.
func (c *Controller) Pane(id PaneID) (PaneInfo, bool) {
	window, ok := c.panes[id]
	if !ok {
		return PaneInfo{}, false
	}
	return PaneInfo{ID: id, Window: window}, true
}
