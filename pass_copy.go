// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/shader"
)

// Copy passes never fail a frame. A missing endpoint, a container without
// an allocation, or a mismatched pair is logged and skipped.

type copyBufferPass struct {
	c CopyBuffer
}

func (p *copyBufferPass) resources() []Resource {
	return present(p.c.src, p.c.dst)
}

func (p *copyBufferPass) declare(gputypes.TextureFormat) (shader.Block, string, error) {
	return shader.Block{}, "", nil
}

func (p *copyBufferPass) Setup(*Library) error       { return nil }
func (p *copyBufferPass) Prerun(*FrameContext) error { return nil }
func (p *copyBufferPass) destroy()                   {}

// Encode records the copy of count elements.
func (p *copyBufferPass) Encode(fc *FrameContext) error {
	src, dst := p.c.src, p.c.dst
	label := labelOr(p.c.label, "copy buffer")
	if missing(src) || missing(dst) {
		Logger().Warn("framegraph: buffer copy skipped, no buffer",
			"label", label, "src", !missing(src), "dst", !missing(dst))
		return nil
	}
	if !src.Created() || !dst.Created() {
		Logger().Warn("framegraph: buffer copy skipped, buffer not created",
			"label", label, "src", src.ID(), "dst", dst.ID())
		return nil
	}
	stride := src.Stride()
	if stride != dst.Stride() {
		Logger().Warn("framegraph: buffer copy skipped, strides differ",
			"label", label, "src_stride", stride, "dst_stride", dst.Stride())
		return nil
	}

	srcOff, dstOff, count := p.span()
	if count <= 0 {
		return nil
	}
	fc.Encoder().CopyBufferToBuffer(src.Raw(), dst.Raw(), []hal.BufferCopy{{
		SrcOffset: uint64(srcOff) * stride, //nolint:gosec // offsets are non-negative
		DstOffset: uint64(dstOff) * stride, //nolint:gosec // offsets are non-negative
		Size:      uint64(count) * stride,  //nolint:gosec // count is positive
	}})
	return nil
}

// span returns the element offsets and the element count to copy, clamped
// to both buffers.
func (p *copyBufferPass) span() (srcOff, dstOff, count int) {
	srcOff = max(optional(p.c.srcOffset, 0), 0)
	dstOff = max(optional(p.c.dstOffset, 0), 0)
	count = p.c.src.Len() - srcOff
	if p.c.count != nil {
		count = min(count, p.c.count.Get())
	}
	count = min(count, p.c.dst.Len()-dstOff)
	return srcOff, dstOff, count
}

type copyTexturePass struct {
	c CopyTexture
}

func (p *copyTexturePass) resources() []Resource {
	return present(p.c.src, p.c.dst)
}

func (p *copyTexturePass) declare(gputypes.TextureFormat) (shader.Block, string, error) {
	return shader.Block{}, "", nil
}

func (p *copyTexturePass) Setup(*Library) error       { return nil }
func (p *copyTexturePass) Prerun(*FrameContext) error { return nil }
func (p *copyTexturePass) destroy()                   {}

// Encode records the copy of the region.
func (p *copyTexturePass) Encode(fc *FrameContext) error {
	src, dst := p.c.src, p.c.dst
	label := labelOr(p.c.label, "copy texture")
	if src == nil || dst == nil {
		Logger().Warn("framegraph: texture copy skipped, no texture",
			"label", label, "src", src != nil, "dst", dst != nil)
		return nil
	}
	if !src.Created() || !dst.Created() {
		Logger().Warn("framegraph: texture copy skipped, texture not created",
			"label", label, "src", src.ID(), "dst", dst.ID())
		return nil
	}
	if src.Format() != dst.Format() {
		Logger().Warn("framegraph: texture copy skipped, formats differ",
			"label", label, "src_format", src.Format().String(), "dst_format", dst.Format().String())
		return nil
	}

	r := p.region()
	if r.Width <= 0 || r.Height <= 0 {
		return nil
	}
	fc.Encoder().CopyTextureToTexture(src.Raw(), dst.Raw(), []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{
			Texture: src.Raw(),
			Origin:  hal.Origin3D{X: nonNegative(r.X), Y: nonNegative(r.Y)},
			Aspect:  gputypes.TextureAspectAll,
		},
		DstBase: hal.ImageCopyTexture{
			Texture: dst.Raw(),
			Origin:  hal.Origin3D{X: nonNegative(p.c.dstX), Y: nonNegative(p.c.dstY)},
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: nonNegative(r.Width), Height: nonNegative(r.Height), DepthOrArrayLayers: 1},
	}})
	return nil
}

// region returns the source rectangle clamped to the source extent and to
// the room left in the destination.
func (p *copyTexturePass) region() Region {
	sw, sh := p.c.src.Size()
	r := Region{Width: sw, Height: sh}
	if p.c.region != nil {
		r = p.c.region.Get()
	}
	r.X, r.Y = max(r.X, 0), max(r.Y, 0)
	dw, dh := p.c.dst.Size()
	r.Width = min(r.Width, sw-r.X, dw-max(p.c.dstX, 0))
	r.Height = min(r.Height, sh-r.Y, dh-max(p.c.dstY, 0))
	return r
}
