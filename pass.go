// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/gpu"
	"github.com/gogpu/framegraph/internal/shader"
)

// Pass is the executable counterpart of a Component.
//
// Setup runs once when the graph is built. Prerun and Encode run every
// frame, in pass order, sharing one FrameContext.
type Pass interface {
	Setup(lib *Library) error
	Prerun(fc *FrameContext) error
	Encode(fc *FrameContext) error
}

// graphPass is the builder's view of a pass.
type graphPass interface {
	Pass

	// resources returns every container the pass references.
	resources() []Resource

	// declare returns the argument declarations and library code of the
	// pass. Passes without shaders return empty values.
	declare(surface gputypes.TextureFormat) (shader.Block, string, error)

	// destroy releases pipelines and layouts.
	destroy()
}

// passEnv is what passes need from the graph.
type passEnv struct {
	device  hal.Device
	queue   hal.Queue
	surface gputypes.TextureFormat
	depth   *Texture
}

// newPass constructs the pass for c.
func newPass(env *passEnv, c Component) (graphPass, error) {
	switch c := c.(type) {
	case Compute:
		return newComputePass(env, c)
	case Render:
		return newRenderPass(env, c)
	case ClearRender:
		return &clearPass{c: c}, nil
	case CopyBuffer:
		return &copyBufferPass{c: c}, nil
	case CopyTexture:
		return &copyTexturePass{c: c}, nil
	case RunOnHost:
		return &hostPass{h: c}, nil
	case Group:
		return newGroupPass(env, c)
	case nil:
		return nil, fmt.Errorf("framegraph: nil component")
	default:
		panic(fmt.Sprintf("framegraph: unknown component %T", c))
	}
}

// walkPasses calls fn for p and, for groups, every nested pass.
func walkPasses(p graphPass, fn func(graphPass) error) error {
	if err := fn(p); err != nil {
		return err
	}
	if g, ok := p.(*groupPass); ok {
		for _, child := range g.children {
			if err := walkPasses(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func computeVisibility(Stage) gputypes.ShaderStages {
	return gputypes.ShaderStageCompute
}

// renderVisibility exposes render arguments to both stages. Stage only
// decides slot numbering and group placement.
func renderVisibility(Stage) gputypes.ShaderStages {
	return gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
}

// argSet holds the resolved arguments of one shader-bearing component and
// the GPU objects that bind them.
type argSet struct {
	owner   string
	args    []boundArg
	device  hal.Device
	layout  *gpu.Layout
	values  map[int]hal.Buffer
	sampler hal.Sampler

	// byte values written for the command buffer in session
	session *gpu.Session
	written map[int][]byte
}

func newArgSet(owner string, args []argument) (*argSet, error) {
	bound, err := assignSlots(owner, args)
	if err != nil {
		return nil, err
	}
	return &argSet{owner: owner, args: bound, values: make(map[int]hal.Buffer)}, nil
}

func (s *argSet) resources() []Resource {
	out := make([]Resource, 0, len(s.args))
	for _, a := range s.args {
		if r := a.resource(); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (s *argSet) block(surface gputypes.TextureFormat) (shader.Block, error) {
	return declarationBlock(s.owner, s.args, surface)
}

// gridArg returns the argument sizing the dispatch grid.
func (s *argSet) gridArg() (boundArg, bool) {
	for _, a := range s.args {
		if a.gridFit {
			return a, true
		}
	}
	return boundArg{}, false
}

// setup creates the layouts, the uniform buffers of value arguments and
// the shared sampler.
func (s *argSet) setup(env *passEnv, visibility func(Stage) gputypes.ShaderStages) error {
	s.device = env.device
	var entries [gpu.MaxGroups][]gpu.Entry
	sampled := false
	for i, a := range s.args {
		entries[a.group] = append(entries[a.group], a.entries(visibility(a.stage), env.surface)...)
		if a.isTexture() && a.effectiveAccess() == AccessSample {
			sampled = true
		}
		if a.value == nil {
			continue
		}
		buf, err := env.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.owner + "." + a.name,
			Size:  valueSize(a.value),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			s.destroy()
			return fmt.Errorf("create uniform buffer %q: %w", a.name, err)
		}
		s.values[i] = buf
	}

	layout, err := gpu.NewLayout(env.device, s.owner, entries)
	if err != nil {
		s.destroy()
		return err
	}
	s.layout = layout

	if sampled {
		sampler, err := env.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        s.owner + "_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeNearest,
			LodMaxClamp:  32,
		})
		if err != nil {
			s.destroy()
			return fmt.Errorf("create sampler: %w", err)
		}
		s.sampler = sampler
	}
	return nil
}

// valueSize rounds a value up to a legal uniform binding size.
func valueSize(v Value) uint64 {
	return max(alignUp(v.size(), 16), 16)
}

// check reports the first argument whose container has no allocation.
func (s *argSet) check() error {
	for _, a := range s.args {
		if r := a.resource(); r != nil && !r.Created() {
			return fmt.Errorf("framegraph: %s: argument %q: %w", s.owner, a.name, ErrResourceNotCreated)
		}
	}
	return nil
}

// upload writes the current value of every byte argument and pending
// uniforms changes. Queue writes land before the command buffer runs, so a
// value that changed since an earlier encode into the same command buffer
// (a repeated group, or uniforms shared with an earlier pass) first flushes
// the commands that read the previous value.
func (s *argSet) upload(fc *FrameContext) error {
	data := make(map[int][]byte, len(s.values))
	for i := range s.values {
		data[i] = padBytes(s.args[i].value.bytes())
	}
	if s.overwrites(fc.session, data) {
		if err := fc.Flush(); err != nil {
			return err
		}
	}
	for i, buf := range s.values {
		if err := fc.queue.WriteBuffer(buf, 0, data[i]); err != nil {
			return fmt.Errorf("upload %q: %w", s.args[i].name, err)
		}
	}
	for _, a := range s.args {
		if a.uniforms == nil {
			continue
		}
		if err := a.uniforms.flush(fc.queue, fc.session); err != nil {
			return err
		}
	}
	s.session, s.written = fc.session, data
	return nil
}

// overwrites reports whether uploading data would change values read by
// commands already encoded into session.
func (s *argSet) overwrites(session *gpu.Session, data map[int][]byte) bool {
	if s.session == session {
		for i, b := range data {
			if !bytes.Equal(b, s.written[i]) {
				return true
			}
		}
	}
	for _, a := range s.args {
		if a.uniforms != nil && a.uniforms.overwrites(session) {
			return true
		}
	}
	return false
}

// bind creates this frame's bind groups. They are destroyed once the frame
// completes.
func (s *argSet) bind(fc *FrameContext) ([]hal.BindGroup, error) {
	n := s.layout.Groups()
	bound := make([][]gpu.Bound, n)
	for i, a := range s.args {
		b, err := s.bound(i, a)
		if err != nil {
			return nil, err
		}
		bound[a.group] = append(bound[a.group], b...)
	}
	groups := make([]hal.BindGroup, 0, n)
	for g := 0; g < n; g++ {
		bg, err := s.layout.Bind(fc.device, g, bound[g])
		if err != nil {
			return nil, err
		}
		fc.release(func() { fc.device.DestroyBindGroup(bg) })
		groups = append(groups, bg)
	}
	return groups, nil
}

func (s *argSet) bound(i int, a boundArg) ([]gpu.Bound, error) {
	notCreated := fmt.Errorf("framegraph: %s: argument %q: %w", s.owner, a.name, ErrResourceNotCreated)
	switch {
	case a.value != nil:
		return []gpu.Bound{{Binding: a.binding, Buffer: s.values[i], Size: valueSize(a.value)}}, nil
	case a.uniforms != nil:
		ub := a.uniforms.buffer
		if !ub.Created() {
			return nil, notCreated
		}
		return []gpu.Bound{{Binding: a.binding, Buffer: ub.Raw(), Size: ub.Size()}}, nil
	case a.buffer != nil:
		if !a.buffer.Created() {
			return nil, notCreated
		}
		size := alignUp(uint64(a.buffer.Len())*a.buffer.Stride(), 4) //nolint:gosec // length is non-negative
		return []gpu.Bound{{Binding: a.binding, Buffer: a.buffer.Raw(), Size: size}}, nil
	}
	if !a.texture.Created() {
		return nil, notCreated
	}
	out := []gpu.Bound{{Binding: a.binding, View: a.texture.View()}}
	if a.effectiveAccess() == AccessSample {
		out = append(out, gpu.Bound{Binding: a.binding + samplerOffset, Sampler: s.sampler})
	}
	return out, nil
}

func (s *argSet) destroy() {
	if s.device == nil {
		return
	}
	for i, buf := range s.values {
		s.device.DestroyBuffer(buf)
		delete(s.values, i)
	}
	if s.sampler != nil {
		s.device.DestroySampler(s.sampler)
		s.sampler = nil
	}
	s.layout.Destroy(s.device)
	s.layout = nil
}
