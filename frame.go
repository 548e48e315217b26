// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/gpu"
)

// FrameState is the phase of the frame driver.
type FrameState int

const (
	// FrameIdle means no frame is in progress.
	FrameIdle FrameState = iota

	// FrameEncoding means passes are being encoded.
	FrameEncoding

	// FramePresenting means the frame was submitted and is being presented
	// or waited on.
	FramePresenting
)

// String returns the string representation of FrameState.
func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameEncoding:
		return "Encoding"
	case FramePresenting:
		return "Presenting"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// FrameContext is shared by every pass encoded in one frame.
type FrameContext struct {
	ctx      context.Context
	device   hal.Device
	queue    hal.Queue
	session  *gpu.Session
	drawable Drawable
	depth    *Texture
	width    int
	height   int
	index    uint64

	// released after the frame's commands complete
	pending []func()
}

// Context returns the context passed to Draw.
func (fc *FrameContext) Context() context.Context { return fc.ctx }

// Device returns the hal device.
func (fc *FrameContext) Device() hal.Device { return fc.device }

// Queue returns the hal queue.
func (fc *FrameContext) Queue() hal.Queue { return fc.queue }

// Encoder returns the command encoder of the current command buffer.
func (fc *FrameContext) Encoder() hal.CommandEncoder { return fc.session.Encoder() }

// Drawable returns the frame's drawable, or nil for offscreen frames.
func (fc *FrameContext) Drawable() Drawable { return fc.drawable }

// DepthStencil returns the graph's depth/stencil texture, or nil.
func (fc *FrameContext) DepthStencil() *Texture { return fc.depth }

// ViewportSize returns the graph viewport in pixels.
func (fc *FrameContext) ViewportSize() (int, int) { return fc.width, fc.height }

// Flush submits the commands encoded so far, waits for them to complete and
// starts a new command buffer. Host code uses it to read results of earlier
// passes within the same frame.
func (fc *FrameContext) Flush() error {
	if err := fc.submit(); err != nil {
		return err
	}
	if err := fc.wait(); err != nil {
		return err
	}
	s, err := gpu.Begin(fc.device, "framegraph")
	if err != nil {
		return &EncodeError{Kind: NoCommandBuffer, Err: err}
	}
	fc.session = s
	return nil
}

// release schedules fn to run once the frame's commands have completed.
func (fc *FrameContext) release(fn func()) {
	fc.pending = append(fc.pending, fn)
}

func (fc *FrameContext) submit() error {
	index, err := fc.session.Submit(fc.queue)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fc.index = index
	fc.release(fc.session.Free)
	return nil
}

// wait blocks until the last submission completes, then runs pending
// releases.
func (fc *FrameContext) wait() error {
	if err := gpu.Wait(fc.ctx, fc.device, fc.queue, fc.index); err != nil {
		return err
	}
	fc.drain()
	return nil
}

// discard abandons the current command buffer.
func (fc *FrameContext) discard() {
	if fc.session != nil && fc.session.State() == gpu.SessionRecording {
		fc.session.Discard()
	}
}

func (fc *FrameContext) drain() {
	for _, fn := range fc.pending {
		fn()
	}
	fc.pending = fc.pending[:0]
}
