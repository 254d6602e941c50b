// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tmuxlink-attach shows one pane of a shared tmux window on the local
// terminal.
//
// It asks the driver for a new window (or, with --window, an existing
// one), connects to the window's channel, and mirrors a single pane:
// its output is written to stdout, keystrokes are forwarded as pane
// input, and terminal resizes resize the remote window. Press Ctrl-]
// to detach.
//
// Usage:
//
//	tmuxlink-attach [--config path] [--window @N] [--pane %N]
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/bureau-foundation/tmuxlink/control"
	"github.com/bureau-foundation/tmuxlink/lib/config"
	"github.com/bureau-foundation/tmuxlink/lib/logging"
	"github.com/bureau-foundation/tmuxlink/lib/version"
	"github.com/bureau-foundation/tmuxlink/remote"
	"github.com/bureau-foundation/tmuxlink/rendezvous"
	"github.com/bureau-foundation/tmuxlink/transport"
)

// detachKey is Ctrl-], the telnet escape.
const detachKey = 0x1d

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var windowID string
	var paneID string

	flagSet := pflag.NewFlagSet("tmuxlink-attach", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to tmuxlink.yaml (default: $TMUXLINK_CONFIG)")
	flagSet.StringVar(&windowID, "window", "", "attach to an existing window (e.g. @3) instead of opening a new one")
	flagSet.StringVar(&paneID, "pane", "", "pane to show (default: the window's first pane)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("tmuxlink-attach")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	// The terminal belongs to the pane once attached; only warnings
	// and errors go to stderr.
	level, _ := cfg.LogLevel()
	logger := logging.New(max(level, slog.LevelWarn)).With("component", "tmuxlink-attach")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := transport.DialNATS(cfg.Bus.URL, cfg.Bus.Name, transport.WithBusLogger(logger))
	if err != nil {
		return err
	}
	defer bus.Close()

	channelName, err := requestWindow(ctx, bus, cfg, windowID, logger)
	if err != nil {
		return err
	}

	renderer := remote.NewTerminalRenderer(os.Stdout, terminalSize, control.PaneID(paneID))
	window, err := remote.DialWindow(ctx, bus, channelName, renderer, remote.WithClientLogger(logger))
	if err != nil {
		return err
	}
	defer window.Close()

	restore, err := makeStdinRaw()
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer restore()

	resizes := make(chan os.Signal, 4)
	signal.Notify(resizes, unix.SIGWINCH)
	defer signal.Stop(resizes)
	go func() {
		for range resizes {
			if err := window.ReconcileSize(); err != nil {
				logger.Warn("resize failed", "error", err)
			}
		}
	}()

	detached := make(chan struct{})
	inputErrors := make(chan error, 1)
	go func() {
		inputErrors <- forwardInput(os.Stdin, window, renderer, detached)
	}()

	select {
	case <-window.Done():
		return nil
	case <-detached:
		return nil
	case err := <-inputErrors:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

func requestWindow(ctx context.Context, bus transport.Bus, cfg *config.Config, windowID string, logger *slog.Logger) (string, error) {
	requester, err := rendezvous.NewRequester(bus, cfg.Driver.Channel,
		rendezvous.WithLogger(logger),
		rendezvous.WithTimeout(cfg.Driver.OpenTimeout),
	)
	if err != nil {
		return "", err
	}
	defer requester.Close()

	if windowID != "" {
		channelName, err := requester.AttachWindow(ctx, windowID)
		if err != nil {
			return "", fmt.Errorf("attach to window %s: %w", windowID, err)
		}
		return channelName, nil
	}
	channelName, err := requester.OpenWindow(ctx)
	if err != nil {
		return "", fmt.Errorf("open window: %w", err)
	}
	return channelName, nil
}

// forwardInput sends stdin to the shown pane until the detach key,
// which closes detached, or a read error.
func forwardInput(input io.Reader, window *remote.ClientWindow, renderer *remote.TerminalRenderer, detached chan<- struct{}) error {
	buffer := make([]byte, 4096)
	for {
		n, err := input.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			index := bytes.IndexByte(chunk, detachKey)
			if index >= 0 {
				chunk = chunk[:index]
			}
			if pane := renderer.Pane(); pane != "" && len(chunk) > 0 {
				if sendErr := window.SendPaneInput(pane, chunk); sendErr != nil {
					return sendErr
				}
			}
			if index >= 0 {
				close(detached)
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

func makeStdinRaw() (func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { _ = term.Restore(fd, oldState) }, nil
}

func terminalSize() (columns, rows int) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 80, 24
	}
	columns, rows, err := term.GetSize(fd)
	if err != nil || columns <= 0 || rows <= 0 {
		return 80, 24
	}
	return columns, rows
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, `tmuxlink-attach shows a shared tmux window on this terminal.

Without --window the driver opens a new window. Keystrokes go to the
shown pane; resizing the terminal resizes the window. Press Ctrl-] to
detach.

Usage:
  tmuxlink-attach [flags]

Examples:
  # Open a fresh window
  tmuxlink-attach

  # Attach to an existing window and show its second pane
  tmuxlink-attach --window @3 --pane %7

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
