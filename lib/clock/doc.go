// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Components with timeouts (the rendezvous requester, the responder's
// stale-request check, the session handshake retry) hold a Clock field
// set through a WithClock option:
//
//	requester := rendezvous.NewRequester(bus, name, rendezvous.WithClock(clock.Real()))
//
// In tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	requester := rendezvous.NewRequester(bus, name, rendezvous.WithClock(fake))
//	go requester.OpenWindow(ctx, "")
//	fake.WaitForTimers(1)          // the request registered its timeout
//	fake.Advance(5 * time.Second)  // fire it deterministically
//
// WaitForTimers removes the race between a goroutine registering a
// timer and the test advancing the clock.
package clock
