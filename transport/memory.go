// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"slices"
	"sync"
)

// Compile-time interface checks.
var (
	_ Bus      = (*MemoryBus)(nil)
	_ Endpoint = (*memoryEndpoint)(nil)
)

// MemoryBus is an in-process Bus. Endpoints sharing a MemoryBus see
// each other's publications with the same ordering and self-exclusion
// guarantees as NATSBus, without any network.
type MemoryBus struct {
	mu       sync.Mutex
	channels map[string][]*memoryEndpoint
	closed   bool
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{channels: make(map[string][]*memoryEndpoint)}
}

func (b *MemoryBus) Open(channel string, handler Handler) (Endpoint, error) {
	if err := ValidateChannel(channel); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	endpoint := &memoryEndpoint{bus: b, channel: channel, handler: handler}
	endpoint.ready = sync.NewCond(&endpoint.mu)
	b.channels[channel] = append(b.channels[channel], endpoint)
	go endpoint.deliver()
	return endpoint, nil
}

// Close closes every endpoint. Further Opens fail with ErrClosed.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var endpoints []*memoryEndpoint
	for _, members := range b.channels {
		endpoints = append(endpoints, members...)
	}
	b.channels = make(map[string][]*memoryEndpoint)
	b.mu.Unlock()

	for _, endpoint := range endpoints {
		endpoint.stop()
	}
	return nil
}

// Subscribers returns how many endpoints are open on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels[channel])
}

func (b *MemoryBus) remove(endpoint *memoryEndpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members := b.channels[endpoint.channel]
	if index := slices.Index(members, endpoint); index >= 0 {
		members = slices.Delete(members, index, index+1)
	}
	if len(members) == 0 {
		delete(b.channels, endpoint.channel)
	} else {
		b.channels[endpoint.channel] = members
	}
}

type memoryEndpoint struct {
	bus     *MemoryBus
	channel string
	handler Handler

	mu     sync.Mutex
	ready  *sync.Cond
	queue  [][]byte
	closed bool
}

func (e *memoryEndpoint) Channel() string { return e.channel }

func (e *memoryEndpoint) Publish(payload []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	e.bus.mu.Lock()
	if e.bus.closed {
		e.bus.mu.Unlock()
		return ErrClosed
	}
	peers := slices.Clone(e.bus.channels[e.channel])
	e.bus.mu.Unlock()

	for _, peer := range peers {
		if peer != e {
			peer.enqueue(slices.Clone(payload))
		}
	}
	return nil
}

func (e *memoryEndpoint) Close() error {
	e.bus.remove(e)
	e.stop()
	return nil
}

func (e *memoryEndpoint) enqueue(payload []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.queue = append(e.queue, payload)
	e.ready.Signal()
}

func (e *memoryEndpoint) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.queue = nil
	e.ready.Broadcast()
}

// deliver hands queued payloads to the handler one at a time until the
// endpoint closes.
func (e *memoryEndpoint) deliver() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.ready.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}
		payload := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.handler(payload)
	}
}
