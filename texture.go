// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SizePolicy decides the pixel dimensions of a texture.
type SizePolicy struct {
	viewport bool
	width    int
	height   int
	scale    float32
}

// FixedSize is a size that never changes.
func FixedSize(width, height int) SizePolicy {
	return SizePolicy{width: width, height: height}
}

// ViewportSize follows the graph viewport, scaled by scale. The texture is
// re-created whenever the viewport changes.
func ViewportSize(scale float32) SizePolicy {
	return SizePolicy{viewport: true, scale: scale}
}

// FromViewport reports whether the size is derived from the viewport.
func (p SizePolicy) FromViewport() bool { return p.viewport }

// Resolve returns the pixel size for a viewport of vw by vh pixels.
func (p SizePolicy) Resolve(vw, vh int) (int, int) {
	if !p.viewport {
		return p.width, p.height
	}
	w := int(math32.Floor(float32(vw) * p.scale))
	h := int(math32.Floor(float32(vh) * p.scale))
	return w, h
}

// String returns the string representation of SizePolicy.
func (p SizePolicy) String() string {
	if p.viewport {
		return fmt.Sprintf("viewport*%g", p.scale)
	}
	return fmt.Sprintf("%dx%d", p.width, p.height)
}

// FormatPolicy decides the pixel format of a texture.
type FormatPolicy struct {
	surface bool
	format  gputypes.TextureFormat
}

// FixedFormat is a concrete pixel format.
func FixedFormat(f gputypes.TextureFormat) FormatPolicy { return FormatPolicy{format: f} }

// SurfaceFormat follows the presentation surface format.
func SurfaceFormat() FormatPolicy { return FormatPolicy{surface: true} }

// Resolve returns the concrete format given the surface format.
func (p FormatPolicy) Resolve(surface gputypes.TextureFormat) gputypes.TextureFormat {
	if p.surface {
		return surface
	}
	return p.format
}

// SizeContext carries what texture materialization depends on.
type SizeContext struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// TextureOption configures a Texture.
type TextureOption func(*Texture)

// TextureLabel sets the debug label.
func TextureLabel(label string) TextureOption {
	return func(t *Texture) { t.label = label }
}

// WithSize sets the size policy. The default is ViewportSize(1).
func WithSize(p SizePolicy) TextureOption {
	return func(t *Texture) { t.size = p }
}

// WithFormat sets the format policy. The default is SurfaceFormat().
func WithFormat(p FormatPolicy) TextureOption {
	return func(t *Texture) { t.format = p }
}

// WithTextureUsage replaces the usage flags derived from the format.
func WithTextureUsage(u gputypes.TextureUsage) TextureOption {
	return func(t *Texture) { t.usage = u }
}

// Texture is a container for a 2D GPU texture and its default view.
type Texture struct {
	id     ResourceID
	label  string
	size   SizePolicy
	format FormatPolicy
	usage  gputypes.TextureUsage

	device   hal.Device
	tex      hal.Texture
	view     hal.TextureView
	width    int
	height   int
	resolved gputypes.TextureFormat
}

// NewTexture declares a texture. It is allocated when the graph is built.
func NewTexture(opts ...TextureOption) *Texture {
	t := &Texture{
		id:     newResourceID(),
		size:   ViewportSize(1),
		format: SurfaceFormat(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Texture) ID() ResourceID { return t.id }
func (t *Texture) Label() string  { return t.label }
func (t *Texture) Created() bool  { return t.tex != nil }

// SizePolicy returns the declared size policy.
func (t *Texture) SizePolicy() SizePolicy { return t.size }

// Size returns the pixel size of the live allocation.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Format returns the resolved pixel format of the live allocation.
func (t *Texture) Format() gputypes.TextureFormat { return t.resolved }

// Raw returns the live hal texture, or nil.
func (t *Texture) Raw() hal.Texture { return t.tex }

// View returns the default view of the live allocation, or nil.
func (t *Texture) View() hal.TextureView { return t.view }

// Resolve computes the size and format the texture would have in ctx.
func (t *Texture) Resolve(ctx SizeContext) (int, int, gputypes.TextureFormat, error) {
	w, h := t.size.Resolve(ctx.Width, ctx.Height)
	if w <= 0 || h <= 0 {
		return 0, 0, 0, &ResourceError{Kind: ZeroSize, Resource: t.id, Label: t.label}
	}
	f := t.format.Resolve(ctx.Format)
	if f == gputypes.TextureFormatUndefined {
		return 0, 0, 0, &ResourceError{Kind: UnresolvedFormat, Resource: t.id, Label: t.label}
	}
	return w, h, f, nil
}

// Materialize allocates the texture for ctx. On failure the previous
// allocation is kept.
func (t *Texture) Materialize(device hal.Device, ctx SizeContext) error {
	w, h, f, err := t.Resolve(ctx)
	if err != nil {
		return err
	}
	usage := t.usage
	if usage == 0 {
		usage = defaultTextureUsage(f)
	}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         t.label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // resolved size is positive
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        f,
		Usage:         usage,
	})
	if err != nil {
		return &ResourceError{Kind: AllocationFailed, Resource: t.id, Label: t.label, Err: err}
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           t.label,
		Format:          f,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return &ResourceError{Kind: AllocationFailed, Resource: t.id, Label: t.label, Err: err}
	}

	t.release()
	t.device = device
	t.tex, t.view = tex, view
	t.width, t.height = w, h
	t.resolved = f
	Logger().Debug("framegraph: texture created",
		"id", t.id, "label", t.label, "width", w, "height", h, "format", f.String())
	return nil
}

func (t *Texture) release() {
	if t.tex == nil {
		return
	}
	destroyView(t.device, t.tex, t.view)
	t.tex, t.view = nil, nil
	t.width, t.height = 0, 0
}

// defaultTextureUsage allows every use the format supports.
func defaultTextureUsage(f gputypes.TextureFormat) gputypes.TextureUsage {
	if f.IsDepthStencil() {
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc
	}
	u := gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageCopySrc |
		gputypes.TextureUsageCopyDst
	if _, ok := storageTexelFormats[f]; ok {
		u |= gputypes.TextureUsageStorageBinding
	}
	return u
}

// storageTexelFormats maps storage-capable formats to WGSL texel formats.
var storageTexelFormats = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatRGBA8Unorm:  "rgba8unorm",
	gputypes.TextureFormatRGBA8Snorm:  "rgba8snorm",
	gputypes.TextureFormatRGBA8Uint:   "rgba8uint",
	gputypes.TextureFormatRGBA8Sint:   "rgba8sint",
	gputypes.TextureFormatRGBA16Uint:  "rgba16uint",
	gputypes.TextureFormatRGBA16Sint:  "rgba16sint",
	gputypes.TextureFormatRGBA16Float: "rgba16float",
	gputypes.TextureFormatR32Uint:     "r32uint",
	gputypes.TextureFormatR32Sint:     "r32sint",
	gputypes.TextureFormatR32Float:    "r32float",
	gputypes.TextureFormatRG32Uint:    "rg32uint",
	gputypes.TextureFormatRG32Sint:    "rg32sint",
	gputypes.TextureFormatRG32Float:   "rg32float",
	gputypes.TextureFormatRGBA32Uint:  "rgba32uint",
	gputypes.TextureFormatRGBA32Sint:  "rgba32sint",
	gputypes.TextureFormatRGBA32Float: "rgba32float",
}
