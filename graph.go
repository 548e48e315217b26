// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/gpu"
)

// Graph is a built render graph. Draw, Resize and Close are serialized;
// a resize never interleaves with encoding.
type Graph struct {
	mu sync.Mutex

	device    hal.Device
	queue     hal.Queue
	env       *passEnv
	passes    []graphPass
	resources *resourceSet
	owned     []Resource
	lib       *Library

	width  int
	height int
	async  bool

	// set while viewport textures may be sized for a different viewport
	resizeFailed bool

	// readable from host passes while Draw holds mu
	state  atomic.Int32
	frames atomic.Uint64

	inflight *FrameContext
	closed   bool
}

// Passes returns the top-level passes in encoding order.
func (g *Graph) Passes() []Pass {
	out := make([]Pass, len(g.passes))
	for i, p := range g.passes {
		out[i] = p
	}
	return out
}

// Resources returns every container the graph references, deduplicated,
// in first-seen order.
func (g *Graph) Resources() []Resource {
	return append([]Resource(nil), g.resources.items...)
}

// Library returns the compiled shader library.
func (g *Graph) Library() *Library { return g.lib }

// SurfaceFormat returns the format SurfaceFormat textures resolve to.
func (g *Graph) SurfaceFormat() gputypes.TextureFormat { return g.env.surface }

// DepthStencil returns the graph's depth/stencil texture, or nil.
func (g *Graph) DepthStencil() *Texture { return g.env.depth }

// Viewport returns the current viewport size.
func (g *Graph) Viewport() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.width, g.height
}

// State returns the frame driver state.
func (g *Graph) State() FrameState { return FrameState(g.state.Load()) }

// Frames returns the number of frames submitted.
func (g *Graph) Frames() uint64 { return g.frames.Load() }

func (g *Graph) setState(s FrameState) { g.state.Store(int32(s)) } //nolint:gosec // small enum

// Draw encodes and submits one frame. Render passes without an explicit
// color attachment 0 draw into d, which may be nil for graphs that only
// compute, copy or render to textures.
//
// An error drops the frame: nothing is submitted and the drawable is
// discarded. The graph remains usable.
func (g *Graph) Draw(ctx context.Context, d Drawable) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGraphClosed
	}
	if err := g.settle(ctx); err != nil {
		return err
	}

	session, err := gpu.Begin(g.device, "framegraph")
	if err != nil {
		e := &EncodeError{Kind: NoCommandBuffer, Err: err}
		Logger().Warn("framegraph: frame skipped", "err", e)
		discardDrawable(d)
		return e
	}
	fc := &FrameContext{
		ctx:      ctx,
		device:   g.device,
		queue:    g.queue,
		session:  session,
		drawable: d,
		depth:    g.env.depth,
		width:    g.width,
		height:   g.height,
	}

	g.setState(FrameEncoding)
	for i, p := range g.passes {
		err := p.Prerun(fc)
		if err == nil {
			err = p.Encode(fc)
		}
		if err != nil {
			return g.drop(fc, i, err)
		}
	}

	g.setState(FramePresenting)
	if err := fc.submit(); err != nil {
		return g.drop(fc, -1, err)
	}
	frame := g.frames.Add(1)
	var presentErr error
	if d != nil {
		if presentErr = d.Present(g.queue); presentErr != nil {
			Logger().Warn("framegraph: present failed", "frame", frame, "err", presentErr)
		}
	}

	if g.async {
		g.inflight = fc
		g.setState(FrameIdle)
		return presentErr
	}
	err = fc.wait()
	g.setState(FrameIdle)
	if err != nil {
		// reclaimed by the next Draw, Resize or Close
		g.inflight = fc
		return err
	}
	return presentErr
}

// drop abandons the frame after the pass at index failed.
func (g *Graph) drop(fc *FrameContext, index int, err error) error {
	fc.discard()
	discardDrawable(fc.drawable)
	if fc.index > 0 {
		// earlier flushes may still reference this frame's bind groups
		if werr := gpu.Wait(context.WithoutCancel(fc.ctx), g.device, g.queue, fc.index); werr != nil {
			Logger().Warn("framegraph: wait after drop failed", "err", werr)
		}
	}
	fc.drain()
	g.setState(FrameIdle)
	Logger().Warn("framegraph: frame dropped", "pass", index, "err", err)
	return err
}

func discardDrawable(d Drawable) {
	if dd, ok := d.(discarder); ok {
		dd.Discard()
	}
}

// settle waits for the previous asynchronous frame.
func (g *Graph) settle(ctx context.Context) error {
	if g.inflight == nil {
		return nil
	}
	fc := g.inflight
	fc.ctx = ctx
	if err := fc.wait(); err != nil {
		return err
	}
	g.inflight = nil
	return nil
}

// Resize records the new viewport and re-allocates every texture sized
// from it. Fixed-size textures are untouched.
func (g *Graph) Resize(width, height int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGraphClosed
	}
	if width <= 0 || height <= 0 {
		return &ResourceError{Kind: ZeroSize, Err: fmt.Errorf("viewport %dx%d", width, height)}
	}
	if err := g.settle(context.Background()); err != nil {
		return err
	}
	if width == g.width && height == g.height && !g.resizeFailed {
		return nil
	}

	// commit the viewport only after every texture is re-allocated
	ctx := SizeContext{Width: width, Height: height, Format: g.env.surface}
	resized := 0
	for _, t := range g.resources.textures() {
		if !t.SizePolicy().FromViewport() {
			continue
		}
		if err := t.Materialize(g.device, ctx); err != nil {
			g.resizeFailed = true
			return err
		}
		resized++
	}
	g.width, g.height = width, height
	g.resizeFailed = false
	Logger().Debug("framegraph: viewport resized", "width", width, "height", height, "textures", resized)
	return nil
}

// Close waits for the GPU, destroys pipelines and releases every
// allocation the graph made. Containers allocated by the caller keep
// theirs.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if err := g.device.WaitIdle(); err != nil {
		Logger().Warn("framegraph: wait idle on close failed", "err", err)
	}
	if g.inflight != nil {
		g.inflight.drain()
		g.inflight = nil
	}
	for _, p := range g.passes {
		p.destroy()
	}
	g.lib.destroy()
	for _, r := range g.owned {
		r.release()
	}
	Logger().Info("framegraph: graph closed", "frames", g.frames.Load())
	return nil
}
