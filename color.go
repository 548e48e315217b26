// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"strconv"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
)

// Color is a linear RGBA clear color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Black is opaque black, the default clear color.
var Black = Color{A: 1}

// RGB creates an opaque color.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Hex parses "RGB", "RGBA", "RRGGBB" or "RRGGBBAA", with or without a
// leading '#'. Malformed input yields Black.
func Hex(hex string) Color {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}
	var digits int
	switch len(hex) {
	case 3, 4:
		digits = 1
	case 6, 8:
		digits = 2
	default:
		return Black
	}
	c := [4]float32{0, 0, 0, 1}
	for i := 0; i*digits < len(hex); i++ {
		v, err := strconv.ParseUint(hex[i*digits:(i+1)*digits], 16, 8)
		if err != nil {
			return Black
		}
		if digits == 1 {
			v *= 17
		}
		c[i] = float32(v) / 255
	}
	return Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// clamped returns c with every component limited to [0, 1].
func (c Color) clamped() Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: clamp01(c.A)}
}

func (c Color) gpu() gputypes.Color {
	c = c.clamped()
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

func clamp01(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Min(math32.Max(v, 0), 1)
}

// Viewport is the rasterization rectangle of a render pass, in pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// FullViewport covers a w by h target with the full depth range.
func FullViewport(w, h int) Viewport {
	return Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1}
}
