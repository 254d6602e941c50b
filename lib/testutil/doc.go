// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for tmuxlink packages.
//
// [RequireReceive], [RequireClosed] and [RequireNoReceive] wrap the
// select-with-timeout pattern so individual tests do not call
// time.After directly. Bus deliveries, handshakes and rendezvous
// responses are all asynchronous, so most protocol tests wait through
// these helpers.
//
// [SocketDir] creates a short temporary directory for Unix sockets
// (tmux test servers), since t.TempDir() paths can exceed the 108-byte
// sun_path limit.
//
// [UniqueID] generates monotonically increasing identifiers for channel
// names that must not collide between parallel tests sharing a bus.
//
// All helpers call t.Fatalf on failure.
package testutil
