// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"sync"
)

// Executor runs work on the goroutine that owns a Controller. Post
// returns false when the work was not accepted and will never run.
type Executor interface {
	Post(fn func(*Controller)) bool
}

// Direct is an Executor that runs work immediately on the caller's
// goroutine. Only correct when the caller already owns the Controller,
// as in single-goroutine tests.
type Direct struct {
	Controller *Controller
}

// Post runs fn synchronously.
func (d Direct) Post(fn func(*Controller)) bool {
	fn(d.Controller)
	return true
}

// DefaultLoopCapacity is the work queue depth of a Loop created with a
// non-positive capacity.
const DefaultLoopCapacity = 1024

// Loop serializes everything touching one Controller onto the goroutine
// calling Run. Lines from the tmux reader (Feed) and work from other
// goroutines (Post) execute in the order they were submitted.
type Loop struct {
	controller *Controller
	work       chan func(*Controller)

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a Loop owning controller. Work can be posted before
// Run starts; it runs once Run does.
func NewLoop(controller *Controller, capacity int) *Loop {
	if capacity <= 0 {
		capacity = DefaultLoopCapacity
	}
	return &Loop{
		controller: controller,
		work:       make(chan func(*Controller), capacity),
		stopped:    make(chan struct{}),
	}
}

// Post queues fn. It blocks while the queue is full and returns false
// once the loop has stopped.
func (l *Loop) Post(fn func(*Controller)) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.work <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Feed queues one tmux line for interpretation.
func (l *Loop) Feed(line string) bool {
	return l.Post(func(c *Controller) { c.InterpretLine(line) })
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Controller)) error {
	finished := make(chan struct{})
	if !l.Post(func(c *Controller) {
		defer close(finished)
		fn(c)
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted work until ctx is cancelled or Stop is called.
// Work still queued at that point is dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopped:
			return nil
		case fn := <-l.work:
			fn(l.controller)
		}
	}
}

// Stop ends Run and refuses further work. Safe to call repeatedly.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopped) })
}

// Done is closed once the loop stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}
