// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/shader"
)

type renderPass struct {
	env      *passEnv
	r        Render
	label    string
	args     *argSet
	colors   []ColorAttachment
	pipeline hal.RenderPipeline
}

func newRenderPass(env *passEnv, r Render) (*renderPass, error) {
	label := r.label
	if label == "" {
		label = r.vertex
	}
	args, err := newArgSet(label, r.args)
	if err != nil {
		return nil, err
	}
	return &renderPass{env: env, r: r, label: label, args: args, colors: denseColors(r)}, nil
}

// denseColors expands the configured attachments to indices 0..max. A pass
// with a fragment stage always has attachment 0.
func denseColors(r Render) []ColorAttachment {
	n := 0
	if r.fragment != "" {
		n = 1
	}
	if len(r.colors) > 0 {
		n = max(n, r.colors[len(r.colors)-1].index+1)
	}
	out := make([]ColorAttachment, n)
	for _, c := range r.colors {
		out[c.index] = c.attachment
	}
	return out
}

func (p *renderPass) resources() []Resource {
	out := p.args.resources()
	if p.r.index != nil {
		out = append(out, p.r.index)
	}
	for _, c := range p.colors {
		if c.Texture != nil {
			out = append(out, c.Texture)
		}
	}
	if p.r.depth != nil && p.r.depth.Texture != nil {
		out = append(out, p.r.depth.Texture)
	}
	return out
}

func (p *renderPass) declare(surface gputypes.TextureFormat) (shader.Block, string, error) {
	b, err := p.args.block(surface)
	return b, p.r.source, err
}

// depthTexture returns the pass's depth/stencil texture, falling back to
// the graph's.
func (p *renderPass) depthTexture(graph *Texture) *Texture {
	if p.r.depth == nil {
		return nil
	}
	if p.r.depth.Texture != nil {
		return p.r.depth.Texture
	}
	return graph
}

// Setup creates the bind group layouts and the render pipeline.
func (p *renderPass) Setup(lib *Library) error {
	vs, err := lib.entryPoint(p.r.vertex, shader.StageVertex)
	if err != nil {
		return err
	}
	var fs shader.EntryPoint
	if p.r.fragment != "" {
		if fs, err = lib.entryPoint(p.r.fragment, shader.StageFragment); err != nil {
			return err
		}
	}

	targets := make([]gputypes.ColorTargetState, len(p.colors))
	for i, c := range p.colors {
		f := p.env.surface
		if c.Texture != nil {
			f = c.Texture.format.Resolve(p.env.surface)
		}
		if f == gputypes.TextureFormatUndefined {
			return fmt.Errorf("color attachment %d: %w", i, ErrUnresolvedFormat)
		}
		mask := c.WriteMask
		if mask == 0 {
			mask = gputypes.ColorWriteMaskAll
		}
		targets[i] = gputypes.ColorTargetState{Format: f, Blend: c.Blend, WriteMask: mask}
	}

	desc := &hal.RenderPipelineDescriptor{
		Label: p.label,
		Vertex: hal.VertexState{
			Module:     lib.shader,
			EntryPoint: vs.Name,
		},
		Primitive:   p.primitive(),
		Multisample: gputypes.DefaultMultisampleState(),
	}
	if p.r.fragment != "" {
		desc.Fragment = &hal.FragmentState{Module: lib.shader, EntryPoint: fs.Name, Targets: targets}
	}
	if p.r.depthState != nil {
		ds, err := p.depthStencilState()
		if err != nil {
			return err
		}
		desc.DepthStencil = ds
	}

	if err := p.args.setup(p.env, renderVisibility); err != nil {
		return err
	}
	desc.Layout = p.args.layout.Pipeline()
	pipeline, err := p.env.device.CreateRenderPipeline(desc)
	if err != nil {
		p.args.destroy()
		return fmt.Errorf("create render pipeline: %w", err)
	}
	p.pipeline = pipeline
	Logger().Debug("framegraph: render pipeline created",
		"label", p.label, "targets", len(targets), "depth", desc.DepthStencil != nil)
	return nil
}

func (p *renderPass) primitive() gputypes.PrimitiveState {
	ps := gputypes.PrimitiveState{
		Topology:  p.r.topology,
		FrontFace: gputypes.FrontFaceCCW,
		CullMode:  p.r.cull,
	}
	strip := p.r.topology == gputypes.PrimitiveTopologyLineStrip ||
		p.r.topology == gputypes.PrimitiveTopologyTriangleStrip
	if strip && p.r.index != nil {
		f := p.r.indexFormat
		ps.StripIndexFormat = &f
	}
	return ps
}

func (p *renderPass) depthStencilState() (*hal.DepthStencilState, error) {
	t := p.depthTexture(p.env.depth)
	if t == nil {
		return nil, fmt.Errorf("depth/stencil state without a depth/stencil texture: %w", ErrMissingAttachment)
	}
	f := t.format.Resolve(p.env.surface)
	if !f.IsDepthStencil() {
		return nil, fmt.Errorf("depth/stencil texture format %s: %w", f, ErrUnresolvedFormat)
	}
	s := p.r.depthState
	return &hal.DepthStencilState{
		Format:              f,
		DepthWriteEnabled:   s.DepthWrite,
		DepthCompare:        compareOr(s.DepthCompare),
		StencilFront:        stencilFace(s.Front),
		StencilBack:         stencilFace(s.Back),
		StencilReadMask:     maskOr(s.ReadMask),
		StencilWriteMask:    maskOr(s.WriteMask),
		DepthBias:           p.r.bias.Constant,
		DepthBiasSlopeScale: p.r.bias.SlopeScale,
		DepthBiasClamp:      p.r.bias.Clamp,
	}, nil
}

func compareOr(c gputypes.CompareFunction) gputypes.CompareFunction {
	if c == gputypes.CompareFunctionUndefined {
		return gputypes.CompareFunctionAlways
	}
	return c
}

func maskOr(m uint32) uint32 {
	if m == 0 {
		return 0xff
	}
	return m
}

func stencilFace(f StencilFace) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     compareOr(f.Compare),
		FailOp:      f.FailOp,
		DepthFailOp: f.DepthFailOp,
		PassOp:      f.PassOp,
	}
}

// Prerun checks arguments and the index buffer.
func (p *renderPass) Prerun(*FrameContext) error {
	if err := p.args.check(); err != nil {
		return err
	}
	if p.r.index != nil && !p.r.index.Created() {
		return fmt.Errorf("framegraph: %s: index buffer: %w", p.label, ErrResourceNotCreated)
	}
	return nil
}

// Encode resolves attachments, binds and draws.
func (p *renderPass) Encode(fc *FrameContext) error {
	colors, width, height, err := p.colorAttachments(fc)
	if err != nil {
		return err
	}
	depth, err := p.depthAttachment(fc)
	if err != nil {
		return err
	}
	if err := p.args.upload(fc); err != nil {
		return err
	}
	groups, err := p.args.bind(fc)
	if err != nil {
		return err
	}

	rp := fc.Encoder().BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  p.label,
		ColorAttachments:       colors,
		DepthStencilAttachment: depth,
	})
	if rp == nil {
		return &EncodeError{Kind: NoRenderEncoder}
	}
	defer rp.End()

	rp.SetPipeline(p.pipeline)
	for i, g := range groups {
		rp.SetBindGroup(uint32(i), g, nil) //nolint:gosec // at most MaxGroups
	}
	vp := FullViewport(width, height)
	if p.r.viewport != nil {
		vp = p.r.viewport.Get()
	}
	rp.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	if p.r.stencilRef != nil {
		rp.SetStencilReference(p.r.stencilRef.Get())
	}

	instances := nonNegative(optional(p.r.instances, 1))
	if p.r.index != nil {
		count := nonNegative(optional(p.r.indexCount, p.r.index.Len()))
		if count == 0 || instances == 0 {
			return nil
		}
		rp.SetIndexBuffer(p.r.index.Raw(), p.r.indexFormat, 0)
		rp.DrawIndexed(count, instances, nonNegative(p.r.indexOffset), 0, 0)
		return nil
	}
	count := nonNegative(optional(p.r.vertexCount, 0))
	if count == 0 || instances == 0 {
		return nil
	}
	rp.Draw(count, instances, nonNegative(optional(p.r.vertexStart, 0)), 0)
	return nil
}

// colorAttachments resolves every color attachment for this frame and
// returns the extent of attachment 0.
func (p *renderPass) colorAttachments(fc *FrameContext) ([]hal.RenderPassColorAttachment, int, int, error) {
	out := make([]hal.RenderPassColorAttachment, len(p.colors))
	width, height := fc.width, fc.height
	for i, c := range p.colors {
		var view hal.TextureView
		var w, h int
		switch {
		case c.Texture != nil:
			if !c.Texture.Created() {
				return nil, 0, 0, fmt.Errorf("framegraph: %s: color attachment %d: %w", p.label, i, ErrResourceNotCreated)
			}
			view = c.Texture.View()
			w, h = c.Texture.Size()
		case i == 0 && fc.drawable != nil:
			view = fc.drawable.View()
			w, h = fc.drawable.Size()
		default:
			return nil, 0, 0, &EncodeError{Kind: MissingAttachment, Attachment: i}
		}
		load, store, clear := c.ops()
		out[i] = hal.RenderPassColorAttachment{View: view, LoadOp: load, StoreOp: store, ClearValue: clear}
		if i == 0 {
			width, height = w, h
		}
	}
	return out, width, height, nil
}

// depthAttachment configures only the aspects the texture format has.
func (p *renderPass) depthAttachment(fc *FrameContext) (*hal.RenderPassDepthStencilAttachment, error) {
	if p.r.depth == nil {
		return nil, nil
	}
	t := p.depthTexture(fc.depth)
	if t == nil {
		return nil, &EncodeError{Kind: MissingAttachment, Attachment: -1}
	}
	if !t.Created() {
		return nil, fmt.Errorf("framegraph: %s: depth/stencil attachment: %w", p.label, ErrResourceNotCreated)
	}
	a := p.r.depth
	ds := &hal.RenderPassDepthStencilAttachment{View: t.View()}
	f := t.Format()
	if f.HasDepth() {
		ds.DepthLoadOp = optional(a.DepthLoad, gputypes.LoadOpClear)
		ds.DepthStoreOp = optional(a.DepthStore, gputypes.StoreOpStore)
		ds.DepthClearValue = optional(a.DepthClear, 1)
	}
	if f.HasStencil() {
		ds.StencilLoadOp = optional(a.StencilLoad, gputypes.LoadOpClear)
		ds.StencilStoreOp = optional(a.StencilStore, gputypes.StoreOpStore)
		ds.StencilClearValue = optional(a.StencilClear, 0)
	}
	return ds, nil
}

func (p *renderPass) destroy() {
	if p.pipeline != nil {
		p.env.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	p.args.destroy()
}
