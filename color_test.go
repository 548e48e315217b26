// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"math"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Color
	}{
		{"short", "#f00", Color{1, 0, 0, 1}},
		{"short alpha", "0f08", Color{0, 1, 0, float32(0x88) / 255}},
		{"long", "0000ff", Color{0, 0, 1, 1}},
		{"long alpha", "#ffffff00", Color{1, 1, 1, 0}},
		{"bad length", "#12345", Black},
		{"bad digit", "zz0000", Black},
		{"empty", "", Black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hex(tt.in); got != tt.want {
				t.Errorf("Hex(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestColorClamped(t *testing.T) {
	c := Color{R: -1, G: 2, B: 0.5, A: float32(math.NaN())}.gpu()
	if c.R != 0 || c.G != 1 || c.B != 0.5 || c.A != 0 {
		t.Errorf("gpu() = %+v, want {0 1 0.5 0}", c)
	}
}

func TestFullViewport(t *testing.T) {
	v := FullViewport(640, 480)
	if v.Width != 640 || v.Height != 480 || v.MinDepth != 0 || v.MaxDepth != 1 {
		t.Errorf("FullViewport(640, 480) = %+v", v)
	}
}
