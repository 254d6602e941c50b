// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tmuxlink-driver owns a tmux control-mode connection and shares the
// session's windows over NATS.
//
// It makes sure the configured session exists, attaches "tmux -C" to
// it, and serves every window on its own bus channel. Clients ask for
// windows on the driver channel (see tmuxlink-attach). The driver exits
// when tmux exits or on SIGINT/SIGTERM.
//
// Usage:
//
//	tmuxlink-driver [--config path]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tmuxlink/control"
	"github.com/bureau-foundation/tmuxlink/driver"
	"github.com/bureau-foundation/tmuxlink/lib/config"
	"github.com/bureau-foundation/tmuxlink/lib/logging"
	"github.com/bureau-foundation/tmuxlink/lib/tmux"
	"github.com/bureau-foundation/tmuxlink/lib/version"
	"github.com/bureau-foundation/tmuxlink/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	flagSet := pflag.NewFlagSet("tmuxlink-driver", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to tmuxlink.yaml (default: $TMUXLINK_CONFIG)")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("tmuxlink-driver")
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
	level, _ := cfg.LogLevel()
	logger := logging.New(level).With("component", "tmuxlink-driver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureSocketDir(); err != nil {
		return err
	}
	server := tmux.NewServer(cfg.Tmux.Socket, cfg.Tmux.ConfigFile)
	if err := server.EnsureSession(cfg.Tmux.Session); err != nil {
		return err
	}

	busOptions := []transport.NATSOption{transport.WithBusLogger(logger)}
	if cfg.Bus.CompressThreshold > 0 {
		busOptions = append(busOptions, transport.WithCompressThreshold(cfg.Bus.CompressThreshold))
	}
	bus, err := transport.DialNATS(cfg.Bus.URL, cfg.Bus.Name, busOptions...)
	if err != nil {
		return err
	}
	defer bus.Close()

	process, err := control.StartProcess(ctx, server, cfg.Tmux.Session, logger)
	if err != nil {
		return err
	}
	defer process.Close()

	d, err := driver.New(bus, process, driver.Config{
		Channel:             cfg.Driver.Channel,
		WindowChannelPrefix: cfg.Driver.WindowChannelPrefix,
		StaleRequestAfter:   cfg.Driver.StaleRequestAfter,
		Logger:              logger,
	})
	if err != nil {
		return err
	}

	// tmux closing its output without %exit (killed, socket removed)
	// still has to stop the driver.
	go func() {
		if err := process.Pump(d.Loop()); err != nil && !errors.Is(err, control.ErrLoopStopped) {
			logger.Error("reading tmux control output", "error", err)
		}
		d.Loop().Stop()
	}()

	logger.Info("driver running",
		"socket", server.SocketPath(),
		"session", cfg.Tmux.Session,
		"bus", cfg.Bus.URL,
		"channel", cfg.Driver.Channel,
		"version", version.Info(),
	)
	if err := d.Run(ctx); err != nil {
		return err
	}
	logger.Info("driver stopped", "reason", stopReason(ctx))
	return nil
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

func stopReason(ctx context.Context) slog.Value {
	if ctx.Err() != nil {
		return slog.StringValue("signal")
	}
	return slog.StringValue("tmux exited")
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tmuxlink-driver shares the windows of a tmux session over NATS.

The driver attaches a control-mode client to the configured session
(creating the session if needed) and serves each window on its own bus
channel. Clients request windows on the driver channel.

Usage:
  tmuxlink-driver [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
