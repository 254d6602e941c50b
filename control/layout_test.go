// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

func TestParseLayoutSinglePane(t *testing.T) {
	layout, err := ParseLayout("80x24,0,0,5")
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	want := Layout{Width: 80, Height: 24, Pane: "%5"}
	if !reflect.DeepEqual(layout, want) {
		t.Errorf("layout = %+v, want %+v", layout, want)
	}
	if !layout.IsLeaf() {
		t.Error("single pane layout is not a leaf")
	}
}

func TestParseLayoutSplits(t *testing.T) {
	layout, err := ParseLayout("159x48,0,0{79x48,0,0,1,79x48,80,0[79x24,80,0,2,79x23,80,25,3]}")
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	want := Layout{
		Width: 159, Height: 48,
		Orientation: LeftRight,
		Children: []Layout{
			{Width: 79, Height: 48, Pane: "%1"},
			{
				Width: 79, Height: 48, X: 80,
				Orientation: TopBottom,
				Children: []Layout{
					{Width: 79, Height: 24, X: 80, Pane: "%2"},
					{Width: 79, Height: 23, X: 80, Y: 25, Pane: "%3"},
				},
			},
		},
	}
	if !reflect.DeepEqual(layout, want) {
		t.Errorf("layout = %+v\nwant %+v", layout, want)
	}
	if panes := layout.Panes(); !slices.Equal(panes, []PaneID{"%1", "%2", "%3"}) {
		t.Errorf("Panes() = %v, want [%%1 %%2 %%3]", panes)
	}
}

func TestParseWindowLayoutStripsChecksum(t *testing.T) {
	layout, err := ParseWindowLayout("b25f,190x79,0,0{95x79,0,0,2,94x79,96,0,3}")
	if err != nil {
		t.Fatalf("ParseWindowLayout: %v", err)
	}
	if layout.Width != 190 || layout.Height != 79 {
		t.Errorf("size = %dx%d, want 190x79", layout.Width, layout.Height)
	}
	if panes := layout.Panes(); !slices.Equal(panes, []PaneID{"%2", "%3"}) {
		t.Errorf("Panes() = %v, want [%%2 %%3]", panes)
	}
}

func TestStripLayoutChecksum(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"b25f,80x24,0,0,1", "80x24,0,0,1"},
		{"80x24,0,0,1", "80x24,0,0,1"},
		{"zz5f,80x24,0,0,1", "zz5f,80x24,0,0,1"},
		{"", ""},
	}
	for _, test := range tests {
		if got := StripLayoutChecksum(test.input); got != test.want {
			t.Errorf("StripLayoutChecksum(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestParseLayoutRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing height", "80x,0,0,1"},
		{"missing tail", "80x24,0,0"},
		{"unterminated split", "80x24,0,0{40x24,0,0,1,39x24,41,0,2"},
		{"mismatched bracket", "80x24,0,0{40x24,0,0,1,39x24,41,0,2]"},
		{"single child split", "80x24,0,0{80x24,0,0,1}"},
		{"trailing garbage", "80x24,0,0,1xyz"},
		{"letters", "axb,0,0,1"},
		{"overflow", "99999999999999999999999x24,0,0,1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseLayout(test.input)
			if err == nil {
				t.Fatalf("ParseLayout(%q) succeeded", test.input)
			}
			if !errors.Is(err, ErrLayoutSyntax) {
				t.Errorf("error %v does not wrap ErrLayoutSyntax", err)
			}
			var parseError *ParseError
			if !errors.As(err, &parseError) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if parseError.Offset < 0 || parseError.Offset > len(test.input) {
				t.Errorf("offset %d outside input of length %d", parseError.Offset, len(test.input))
			}
		})
	}
}

func TestParseLayoutTrailingGarbageOffset(t *testing.T) {
	_, err := ParseLayout("80x24,0,0,1 junk")
	var parseError *ParseError
	if !errors.As(err, &parseError) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if parseError.Offset != len("80x24,0,0,1") {
		t.Errorf("offset = %d, want %d", parseError.Offset, len("80x24,0,0,1"))
	}
}
