// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PaneID identifies a tmux pane ("%<n>"). Unique within one tmux
// server and never reused while the pane lives.
type PaneID string

// WindowID identifies a tmux window ("@<n>").
type WindowID string

// Orientation is the split direction of a non-leaf layout node. The
// zero value marks a leaf.
type Orientation uint8

const (
	// LeftRight is a horizontal split, written "{...}" by tmux.
	LeftRight Orientation = iota + 1
	// TopBottom is a vertical split, written "[...]" by tmux.
	TopBottom
)

func (o Orientation) String() string {
	switch o {
	case LeftRight:
		return "left-right"
	case TopBottom:
		return "top-bottom"
	default:
		return "leaf"
	}
}

// Layout is one node of a tmux window layout tree. A leaf carries a
// Pane and no Children; a split carries an Orientation and at least
// two Children. Geometry is stored exactly as tmux reported it.
type Layout struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	X      int `json:"x"`
	Y      int `json:"y"`

	Pane PaneID `json:"pane,omitempty"`

	Orientation Orientation `json:"orientation,omitempty"`
	Children    []Layout    `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a single pane.
func (l Layout) IsLeaf() bool {
	return len(l.Children) == 0
}

// Panes returns the pane ids of every leaf, left to right and top to
// bottom.
func (l Layout) Panes() []PaneID {
	if l.IsLeaf() {
		return []PaneID{l.Pane}
	}
	var panes []PaneID
	for _, child := range l.Children {
		panes = append(panes, child.Panes()...)
	}
	return panes
}

// ErrLayoutSyntax is the error every *ParseError unwraps to.
var ErrLayoutSyntax = errors.New("malformed tmux layout")

// ParseError describes where a layout string stopped making sense.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tmux layout %q: offset %d: %s", e.Input, e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrLayoutSyntax }

// ParseLayout parses a tmux layout string without its checksum prefix:
//
//	layout    := size "," offset "," offset node_tail
//	size      := uint "x" uint
//	node_tail := "," pane | "{" layout ("," layout)+ "}" | "[" layout ("," layout)+ "]"
//
// For example "190x79,0,0{95x79,0,0,2,94x79,96,0,3}" is two panes side
// by side. Sizes and offsets are not checked against each other.
func ParseLayout(input string) (Layout, error) {
	parser := layoutParser{input: input}
	layout, err := parser.node()
	if err != nil {
		return Layout{}, err
	}
	if parser.position != len(input) {
		return Layout{}, parser.fail("unexpected trailing %q", input[parser.position:])
	}
	return layout, nil
}

// ParseWindowLayout parses a layout as tmux prints it in
// #{window_layout} and %layout-change, with the four hex digit
// checksum in front.
func ParseWindowLayout(input string) (Layout, error) {
	return ParseLayout(StripLayoutChecksum(input))
}

// StripLayoutChecksum removes a leading "abcd," checksum if present.
func StripLayoutChecksum(input string) string {
	if len(input) < 5 || input[4] != ',' {
		return input
	}
	for i := 0; i < 4; i++ {
		if !isHexDigit(input[i]) {
			return input
		}
	}
	return input[5:]
}

func isHexDigit(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

type layoutParser struct {
	input    string
	position int
}

func (p *layoutParser) fail(format string, args ...any) *ParseError {
	return &ParseError{Input: p.input, Offset: p.position, Reason: fmt.Sprintf(format, args...)}
}

func (p *layoutParser) peek() byte {
	if p.position >= len(p.input) {
		return 0
	}
	return p.input[p.position]
}

func (p *layoutParser) expect(b byte) error {
	if p.peek() != b {
		if p.position >= len(p.input) {
			return p.fail("expected %q, got end of input", b)
		}
		return p.fail("expected %q, got %q", b, p.input[p.position])
	}
	p.position++
	return nil
}

func (p *layoutParser) number() (int, error) {
	start := p.position
	for p.position < len(p.input) && '0' <= p.input[p.position] && p.input[p.position] <= '9' {
		p.position++
	}
	if start == p.position {
		return 0, p.fail("expected a number")
	}
	digits := p.input[start:p.position]
	value, err := strconv.Atoi(digits)
	if err != nil {
		p.position = start
		return 0, p.fail("number %s out of range", digits)
	}
	return value, nil
}

// node consumes exactly one layout node starting at the cursor.
func (p *layoutParser) node() (Layout, error) {
	var layout Layout
	var err error

	if layout.Width, err = p.number(); err != nil {
		return Layout{}, err
	}
	if err := p.expect('x'); err != nil {
		return Layout{}, err
	}
	if layout.Height, err = p.number(); err != nil {
		return Layout{}, err
	}
	if err := p.expect(','); err != nil {
		return Layout{}, err
	}
	if layout.X, err = p.number(); err != nil {
		return Layout{}, err
	}
	if err := p.expect(','); err != nil {
		return Layout{}, err
	}
	if layout.Y, err = p.number(); err != nil {
		return Layout{}, err
	}

	switch p.peek() {
	case ',':
		p.position++
		pane, err := p.number()
		if err != nil {
			return Layout{}, err
		}
		layout.Pane = PaneID("%" + strconv.Itoa(pane))
	case '{':
		layout.Orientation = LeftRight
		if layout.Children, err = p.children('}'); err != nil {
			return Layout{}, err
		}
	case '[':
		layout.Orientation = TopBottom
		if layout.Children, err = p.children(']'); err != nil {
			return Layout{}, err
		}
	default:
		return Layout{}, p.fail("expected pane id or split")
	}
	return layout, nil
}

func (p *layoutParser) children(closing byte) ([]Layout, error) {
	opening := p.position
	p.position++
	var children []Layout
	for {
		child, err := p.node()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		if p.peek() == ',' {
			p.position++
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		break
	}
	if len(children) < 2 {
		return nil, &ParseError{Input: p.input, Offset: opening, Reason: "split with fewer than two children"}
	}
	return children, nil
}

// layoutField returns the first whitespace-delimited token of s.
func layoutField(s string) string {
	if index := strings.IndexAny(s, " \t"); index >= 0 {
		return s[:index]
	}
	return s
}
