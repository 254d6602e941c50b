// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/tmuxlink/lib/testutil"
)

func TestLoopRunsWorkInOrder(t *testing.T) {
	transport := &recordingTransport{}
	loop := NewLoop(NewController(transport), 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Posted before Run starts.
	loop.Post(func(c *Controller) { c.Start() })
	loop.Feed("%begin 1 1 0")
	loop.Feed("%end 1 1 0")

	go loop.Run(ctx)

	var written []string
	if err := loop.Do(ctx, func(c *Controller) { written = slices.Clone(transport.lines) }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(written) != 1 || written[0] != `list-windows -F "#{window_id} #{window_layout}"` {
		t.Errorf("written = %v, want discovery after the attach block", written)
	}
}

func TestLoopRefusesWorkAfterStop(t *testing.T) {
	loop := NewLoop(NewController(&recordingTransport{}), 1)
	ctx := context.Background()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		loop.Run(ctx)
	}()

	loop.Stop()
	testutil.RequireClosed(t, runDone, 5*time.Second, "Run did not return after Stop")
	testutil.RequireClosed(t, loop.Done(), time.Second, "Done not closed")

	if loop.Post(func(*Controller) { t.Error("work ran after Stop") }) {
		t.Error("Post accepted work after Stop")
	}
	if err := loop.Do(ctx, func(*Controller) {}); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Do after Stop = %v, want ErrLoopStopped", err)
	}
}

func TestLoopRunReturnsContextError(t *testing.T) {
	loop := NewLoop(NewController(&recordingTransport{}), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if loop.Feed("%exit") {
		t.Error("Feed accepted a line after Run returned")
	}
}

func TestDirectExecutorRunsInline(t *testing.T) {
	controller := NewController(&recordingTransport{})
	ran := false
	var executor Executor = Direct{Controller: controller}
	executor.Post(func(c *Controller) { ran = c == controller })
	if !ran {
		t.Error("Direct.Post did not run with its controller")
	}
}
