// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Drawable is the per-frame output image. Render passes without an explicit
// color attachment 0 draw into it.
type Drawable interface {
	Texture() hal.Texture
	View() hal.TextureView
	Size() (int, int)

	// Present hands the image to the display after the frame is submitted.
	Present(queue hal.Queue) error
}

// discarder is implemented by drawables that must be released when a frame
// is dropped.
type discarder interface {
	Discard()
}

// SurfaceDrawable is a texture acquired from a configured hal.Surface.
type SurfaceDrawable struct {
	device  hal.Device
	surface hal.Surface
	tex     hal.SurfaceTexture
	view    hal.TextureView
	width   int
	height  int
	done    bool
}

// AcquireSurfaceDrawable acquires the next surface texture. The surface must
// be configured for width by height pixels in format.
func AcquireSurfaceDrawable(device hal.Device, surface hal.Surface, width, height int, format gputypes.TextureFormat) (*SurfaceDrawable, error) {
	acquired, err := surface.AcquireTexture(nil)
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           "drawable",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("create drawable view: %w", err)
	}
	if acquired.Suboptimal {
		Logger().Debug("framegraph: surface texture is suboptimal")
	}
	return &SurfaceDrawable{
		device:  device,
		surface: surface,
		tex:     acquired.Texture,
		view:    view,
		width:   width,
		height:  height,
	}, nil
}

func (d *SurfaceDrawable) Texture() hal.Texture  { return d.tex }
func (d *SurfaceDrawable) View() hal.TextureView { return d.view }
func (d *SurfaceDrawable) Size() (int, int)      { return d.width, d.height }

// Present queues the texture for display.
func (d *SurfaceDrawable) Present(queue hal.Queue) error {
	if d.done {
		return nil
	}
	d.done = true
	d.device.DestroyTextureView(d.view)
	if err := queue.Present(d.surface, d.tex, nil); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Discard returns the texture to the surface without presenting it.
func (d *SurfaceDrawable) Discard() {
	if d.done {
		return
	}
	d.done = true
	d.device.DestroyTextureView(d.view)
	d.surface.DiscardTexture(d.tex)
}

// TextureDrawable renders into a texture container, for offscreen graphs.
// The texture must be materialized before drawing.
type TextureDrawable struct {
	texture *Texture
}

// NewTextureDrawable wraps t as a drawable.
func NewTextureDrawable(t *Texture) *TextureDrawable {
	return &TextureDrawable{texture: t}
}

func (d *TextureDrawable) Texture() hal.Texture  { return d.texture.Raw() }
func (d *TextureDrawable) View() hal.TextureView { return d.texture.View() }
func (d *TextureDrawable) Size() (int, int)      { return d.texture.Size() }

// Container returns the wrapped texture.
func (d *TextureDrawable) Container() *Texture { return d.texture }

// Present does nothing; the image stays in the texture.
func (d *TextureDrawable) Present(hal.Queue) error { return nil }
