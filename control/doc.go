// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements a tmux control-mode client engine.
//
// A control-mode client (tmux -C) exchanges plain text lines with the
// tmux server. Commands are written one per line; their results come
// back bracketed by %begin and %end (or %error) markers, and
// asynchronous notifications such as %output, %layout-change and
// %window-close arrive between those blocks.
//
// [Controller] consumes that line stream through [Controller.InterpretLine].
// It keeps exactly one command in flight ([Command]), queues the rest
// FIFO, and writes the next command to its [Transport] only after the
// previous one finished. It owns the window and pane registries built
// from [Layout] trees ([ParseLayout]) and delivers per-window events to
// a [WindowSink]. Higher-level operations (SendPaneInput, ResizeWindow,
// CapturePane, SyncPane, ...) are expressed as queued commands.
//
// The Controller is not safe for concurrent use. [Loop] owns a
// Controller on a single goroutine: the tmux reader feeds lines through
// it and every other goroutine posts work to it, so line interpretation
// and command completion callbacks never interleave. [Process] spawns
// the tmux -C client and pumps its stdout into a Loop.
package control
