// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/shader"
)

type clearPass struct {
	c ClearRender
}

func (p *clearPass) resources() []Resource {
	if p.c.texture == nil {
		return nil
	}
	return []Resource{p.c.texture}
}

func (p *clearPass) declare(gputypes.TextureFormat) (shader.Block, string, error) {
	return shader.Block{}, "", nil
}

func (p *clearPass) Setup(*Library) error         { return nil }
func (p *clearPass) Prerun(*FrameContext) error   { return nil }
func (p *clearPass) destroy()                     {}
func (p *clearPass) label() string                { return labelOr(p.c.label, "clear") }
func (p *clearPass) target(fc *FrameContext) bool { return p.c.texture != nil || fc.drawable != nil }

// Encode begins and ends a render pass whose only effect is the clear.
func (p *clearPass) Encode(fc *FrameContext) error {
	if !p.target(fc) {
		return &EncodeError{Kind: MissingAttachment, Attachment: 0}
	}
	desc := &hal.RenderPassDescriptor{Label: p.label()}
	switch t := p.c.texture; {
	case t == nil:
		desc.ColorAttachments = []hal.RenderPassColorAttachment{p.colorAttachment(fc.drawable.View())}
	case !t.Created():
		return fmt.Errorf("framegraph: %s: %w", p.label(), ErrResourceNotCreated)
	case t.Format().IsDepthStencil():
		desc.DepthStencilAttachment = p.depthAttachment(t)
	default:
		desc.ColorAttachments = []hal.RenderPassColorAttachment{p.colorAttachment(t.View())}
	}

	rp := fc.Encoder().BeginRenderPass(desc)
	if rp == nil {
		return &EncodeError{Kind: NoRenderEncoder}
	}
	rp.End()
	return nil
}

func (p *clearPass) colorAttachment(view hal.TextureView) hal.RenderPassColorAttachment {
	return hal.RenderPassColorAttachment{
		View:       view,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: optional(p.c.color, Black).gpu(),
	}
}

func (p *clearPass) depthAttachment(t *Texture) *hal.RenderPassDepthStencilAttachment {
	ds := &hal.RenderPassDepthStencilAttachment{View: t.View()}
	if t.Format().HasDepth() {
		ds.DepthLoadOp = gputypes.LoadOpClear
		ds.DepthStoreOp = gputypes.StoreOpStore
		ds.DepthClearValue = optional(p.c.depth, 1)
	}
	if t.Format().HasStencil() {
		ds.StencilLoadOp = gputypes.LoadOpClear
		ds.StencilStoreOp = gputypes.StoreOpStore
		ds.StencilClearValue = optional(p.c.stencil, 0)
	}
	return ds
}

func labelOr(label, def string) string {
	if label == "" {
		return def
	}
	return label
}
