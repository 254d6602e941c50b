// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"strings"
	"testing"
)

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"crlf", `line\015\012`, "line\r\n"},
		{"escape sequence", `\033[1mbold`, "\x1b[1mbold"},
		{"backslash", `a\134b`, `a\b`},
		{"trailing backslash", `abc\`, `abc\`},
		{"short escape", `ab\01`, `ab\01`},
		{"non octal", `\089`, `\089`},
		{"leading space kept", "  indented", "  indented"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := string(decodeOutput(test.input)); got != test.want {
				t.Errorf("decodeOutput(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSendKeysCommandsHexEncodesEveryByte(t *testing.T) {
	commands := sendKeysCommands("%3", []byte("a\r\x00\xff"))
	if len(commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(commands))
	}
	if want := "send-keys -H -t %3 61 0d 00 ff"; commands[0] != want {
		t.Errorf("command = %q, want %q", commands[0], want)
	}
}

func TestSendKeysCommandsChunksLargeInput(t *testing.T) {
	data := []byte(strings.Repeat("x", sendKeysChunk*2+1))
	commands := sendKeysCommands("%1", data)
	if len(commands) != 3 {
		t.Fatalf("got %d commands, want 3", len(commands))
	}
	total := 0
	for _, command := range commands {
		total += len(strings.Fields(command)) - 4
	}
	if total != len(data) {
		t.Errorf("encoded %d bytes, want %d", total, len(data))
	}
}

func TestSendKeysCommandsEmptyInput(t *testing.T) {
	if commands := sendKeysCommands("%1", nil); len(commands) != 0 {
		t.Errorf("got %v for empty input, want none", commands)
	}
}
