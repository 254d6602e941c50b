// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides named publish/subscribe channels between
// the tmuxlink driver and remote window clients.
//
// A [Bus] opens [Endpoint]s on named channels. A payload published by
// one endpoint reaches every other endpoint open on the same channel,
// in publication order, and never the publisher itself. Delivery is
// asynchronous: each endpoint's handler runs on a goroutine owned by
// the endpoint, one payload at a time.
//
// [MemoryBus] connects endpoints within one process and backs tests.
// [NATSBus] maps channels to NATS subjects for cross-process use; it
// stamps each message with the publishing endpoint's origin id to drop
// its own messages and compresses large payloads with zstd.
package transport
