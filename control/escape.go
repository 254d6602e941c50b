// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"fmt"
	"strings"
)

// sendKeysChunk is the most input bytes carried by one send-keys
// command. Larger inputs are split across several commands so a paste
// never produces an unbounded command line.
const sendKeysChunk = 256

// decodeOutput undoes tmux's %output escaping: every byte below 0x20
// and the backslash itself arrive as a backslash followed by three
// octal digits. A backslash not followed by a valid octal triple is kept
// literally so malformed input never loses bytes.
func decodeOutput(escaped string) []byte {
	if strings.IndexByte(escaped, '\\') < 0 {
		return []byte(escaped)
	}
	out := make([]byte, 0, len(escaped))
	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c != '\\' || i+3 >= len(escaped) {
			out = append(out, c)
			continue
		}
		value, ok := octalTriple(escaped[i+1 : i+4])
		if !ok {
			out = append(out, c)
			continue
		}
		out = append(out, value)
		i += 3
	}
	return out
}

func octalTriple(digits string) (byte, bool) {
	var value int
	for i := 0; i < 3; i++ {
		d := digits[i]
		if d < '0' || d > '7' {
			return 0, false
		}
		value = value*8 + int(d-'0')
	}
	if value > 0xff {
		return 0, false
	}
	return byte(value), true
}

// sendKeysCommands renders data as send-keys -H commands for pane, each
// byte as a two digit hex key, at most sendKeysChunk bytes per command.
func sendKeysCommands(pane PaneID, data []byte) []string {
	var commands []string
	for start := 0; start < len(data); start += sendKeysChunk {
		end := min(start+sendKeysChunk, len(data))
		var builder strings.Builder
		fmt.Fprintf(&builder, "send-keys -H -t %s", pane)
		for _, b := range data[start:end] {
			fmt.Fprintf(&builder, " %02x", b)
		}
		commands = append(commands, builder.String())
	}
	return commands
}
