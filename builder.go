// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/internal/shader"
)

// Build resolves components into an executable graph.
//
// Passes are created in component order. Every container referenced by a
// component is collected once, buffers are allocated, the shader library
// is compiled from the configured source and the generated argument
// declarations, passes are set up, and finally textures are allocated for
// the initial viewport. On error nothing allocated by Build survives.
func Build(handle DeviceHandle, components []Component, opts ...BuildOption) (*Graph, error) {
	device, queue, err := resolveDevice(handle)
	if err != nil {
		return nil, err
	}
	o := defaultBuildOptions()
	for _, opt := range opts {
		opt(&o)
	}
	surface := handle.SurfaceFormat()
	if o.surfaceSet {
		surface = o.surface
	}

	b := &builder{
		opts:      o,
		env:       &passEnv{device: device, queue: queue, surface: surface},
		resources: newResourceSet(),
	}
	if o.depthStencil != gputypes.TextureFormatUndefined {
		b.env.depth = NewTexture(TextureLabel("depth_stencil"), WithFormat(FixedFormat(o.depthStencil)))
	}
	g, err := b.build(components)
	if err != nil {
		b.cleanup()
		return nil, err
	}
	Logger().Info("framegraph: graph built",
		"passes", len(g.passes), "resources", g.resources.len(),
		"entry_points", len(g.lib.EntryPoints()), "surface", surface.String())
	return g, nil
}

type builder struct {
	opts      buildOptions
	env       *passEnv
	passes    []graphPass
	resources *resourceSet
	created   []Resource
	lib       *Library
}

func (b *builder) build(components []Component) (*Graph, error) {
	for i, c := range components {
		p, err := newPass(b.env, c)
		if err != nil {
			return nil, fmt.Errorf("framegraph: component %d: %w", i, err)
		}
		b.passes = append(b.passes, p)
	}

	b.collect()
	if err := b.materializeBuffers(); err != nil {
		return nil, err
	}
	src, err := b.source()
	if err != nil {
		return nil, err
	}
	lib, err := compileLibrary(b.env.device, src, b.opts.compile)
	if err != nil {
		return nil, &BuildError{Kind: LibraryCompileError, Err: err}
	}
	b.lib = lib

	for i, p := range b.passes {
		if err := p.Setup(lib); err != nil {
			return nil, &BuildError{Kind: PassSetupError, Index: i, Err: err}
		}
	}
	if err := b.materializeTextures(); err != nil {
		return nil, err
	}

	return &Graph{
		device:    b.env.device,
		queue:     b.env.queue,
		env:       b.env,
		passes:    b.passes,
		resources: b.resources,
		owned:     b.created,
		lib:       lib,
		width:     b.opts.width,
		height:    b.opts.height,
		async:     b.opts.async,
	}, nil
}

// collect gathers every referenced container, group children included, in
// first-seen order.
func (b *builder) collect() {
	for _, p := range b.passes {
		_ = walkPasses(p, func(gp graphPass) error {
			for _, r := range gp.resources() {
				b.resources.add(r)
			}
			return nil
		})
	}
	if b.env.depth != nil {
		b.resources.add(b.env.depth)
	}
}

// materializeBuffers allocates every declared buffer that has no
// allocation yet. Manual buffers are left to the caller.
func (b *builder) materializeBuffers() error {
	for _, r := range b.resources.items {
		buf, ok := r.(BufferResource)
		if !ok || buf.Created() || buf.manualCreate() {
			continue
		}
		if !buf.declared() {
			return &BuildError{Kind: ResourceNotCreated, Resource: buf.ID(), Label: buf.Label()}
		}
		if err := buf.Materialize(b.env.device, b.env.queue); err != nil {
			return &BuildError{Kind: ResourceNotCreated, Resource: buf.ID(), Label: buf.Label(), Err: err}
		}
		b.created = append(b.created, buf)
	}
	return nil
}

// source assembles the library source: configured code first, then each
// distinct component source. Declarations are generated only when there is
// code to compile.
func (b *builder) source() (*shader.Source, error) {
	prefix := b.opts.prefix
	if b.opts.files != nil && len(b.opts.paths) > 0 {
		code, err := shader.ReadFiles(b.opts.files, b.opts.paths...)
		if err != nil {
			return nil, &BuildError{Kind: LibraryCompileError, Err: err}
		}
		prefix = joinCode(prefix, code)
	}
	src := shader.NewSource(prefix)

	var blocks []shader.Block
	bodies := make(map[string]bool)
	for _, p := range b.passes {
		err := walkPasses(p, func(gp graphPass) error {
			block, body, err := gp.declare(b.env.surface)
			if err != nil {
				return err
			}
			if !block.Empty() {
				blocks = append(blocks, block)
			}
			if body != "" && !bodies[body] {
				bodies[body] = true
				src.AddBody(body)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if !src.HasCode() {
		return src, nil
	}
	for _, block := range blocks {
		if _, err := src.AddBlock(block); err != nil {
			var conflict *shader.ConflictError
			if errors.As(err, &conflict) {
				return nil, &ArgumentBufferError{Kind: ConflictingDescriptors, Buffer: conflict.Name}
			}
			return nil, err
		}
	}
	return src, nil
}

func joinCode(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n" + b
}

// materializeTextures allocates every texture without an allocation for the
// initial viewport.
func (b *builder) materializeTextures() error {
	ctx := SizeContext{Width: b.opts.width, Height: b.opts.height, Format: b.env.surface}
	for _, t := range b.resources.textures() {
		if t.Created() {
			continue
		}
		if err := t.Materialize(b.env.device, ctx); err != nil {
			return &BuildError{Kind: TextureCreateError, Resource: t.ID(), Label: t.Label(), Err: err}
		}
		b.created = append(b.created, t)
	}
	return nil
}

// cleanup releases everything a failed build allocated.
func (b *builder) cleanup() {
	for _, p := range b.passes {
		p.destroy()
	}
	b.lib.destroy()
	for _, r := range b.created {
		r.release()
	}
	Logger().Debug("framegraph: build rolled back", "released", len(b.created))
}
