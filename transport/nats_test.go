// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tmuxlink/lib/testutil"
)

func TestEncodePayloadSmallIsUncompressed(t *testing.T) {
	t.Parallel()
	msg := encodePayload("tmuxlink.x", "origin-1", []byte("keys"), DefaultCompressThreshold)
	if msg.Header.Get(encodingHeader) != "" {
		t.Errorf("small payload marked %q", msg.Header.Get(encodingHeader))
	}
	if msg.Header.Get(originHeader) != "origin-1" {
		t.Errorf("origin header = %q", msg.Header.Get(originHeader))
	}
	payload, err := decodePayload(msg)
	if err != nil || string(payload) != "keys" {
		t.Errorf("decodePayload = %q, %v", payload, err)
	}
}

func TestEncodePayloadLargeIsCompressed(t *testing.T) {
	t.Parallel()
	original := []byte(strings.Repeat("\x1b[32mgreen text\x1b[0m\r\n", 2000))
	msg := encodePayload("tmuxlink.x", "origin-1", original, 1024)
	if msg.Header.Get(encodingHeader) != encodingZstd {
		t.Fatalf("large payload not marked zstd")
	}
	if len(msg.Data) >= len(original) {
		t.Errorf("compressed size %d not smaller than %d", len(msg.Data), len(original))
	}
	payload, err := decodePayload(msg)
	if err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if !bytes.Equal(payload, original) {
		t.Error("decompressed payload differs from original")
	}
}

func TestDecodePayloadRejectsUnknownEncoding(t *testing.T) {
	t.Parallel()
	msg := encodePayload("tmuxlink.x", "o", []byte("x"), 0)
	msg.Header.Set(encodingHeader, "brotli")
	if _, err := decodePayload(msg); err == nil {
		t.Error("unknown encoding accepted")
	}
}

// TestNATSBusAgainstServer runs only when TMUXLINK_TEST_NATS_URL names
// a reachable server.
func TestNATSBusAgainstServer(t *testing.T) {
	url := os.Getenv("TMUXLINK_TEST_NATS_URL")
	if url == "" {
		t.Skip("TMUXLINK_TEST_NATS_URL not set")
	}
	bus, err := DialNATS(url, "tmuxlink-test", WithCompressThreshold(16))
	if err != nil {
		t.Fatalf("DialNATS: %v", err)
	}
	defer bus.Close()

	channel := testutil.UniqueID("test")
	first, firstReceived := openCollector(t, bus, channel)
	_, secondReceived := openCollector(t, bus, channel)

	large := strings.Repeat("z", 4096)
	first.Publish([]byte("small"))
	first.Publish([]byte(large))
	if got := testutil.RequireReceive(t, secondReceived, 5*time.Second, "small"); got != "small" {
		t.Errorf("first message = %q", got)
	}
	if got := testutil.RequireReceive(t, secondReceived, 5*time.Second, "large"); got != large {
		t.Errorf("large message length %d, want %d", len(got), len(large))
	}
	testutil.RequireNoReceive(t, firstReceived, 100*time.Millisecond, "self delivery over nats")
}
