// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the noop backend for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

var errInjected = errors.New("injected failure")

type drawCall struct {
	indexed   bool
	count     uint32
	instances uint32
	first     uint32
}

// recorder collects what passes encode.
type recorder struct {
	mu sync.Mutex

	dispatches    [][3]uint32
	draws         []drawCall
	bufferCopies  []hal.BufferCopy
	textureCopies []hal.TextureCopy
	renderPasses  []hal.RenderPassDescriptor
	viewports     [][6]float32
	stencilRefs   []uint32

	computePipelines []hal.ComputePipelineDescriptor
	renderPipelines  []hal.RenderPipelineDescriptor

	buffers  int
	textures int
	encoders int
}

// recordingDevice wraps a hal.Device, records encoded commands and can
// inject failures.
type recordingDevice struct {
	hal.Device
	rec *recorder

	failEncoder  bool
	failPipeline bool
	failTexture  bool
	nilRenderEnc bool

	// failLabel fails texture creation for one label only.
	failLabel string
}

func newRecordingDevice(t *testing.T) (*recordingDevice, hal.Queue) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	return &recordingDevice{Device: device, rec: &recorder{}}, queue
}

// handle wraps the device as a DeviceHandle with surface format f.
func (d *recordingDevice) handle(queue hal.Queue, f gputypes.TextureFormat) DeviceHandle {
	return NewDeviceHandle(d, queue, f)
}

func (d *recordingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	b, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.rec.mu.Lock()
		d.rec.buffers++
		d.rec.mu.Unlock()
	}
	return b, err
}

func (d *recordingDevice) DestroyBuffer(b hal.Buffer) {
	d.rec.mu.Lock()
	d.rec.buffers--
	d.rec.mu.Unlock()
	d.Device.DestroyBuffer(b)
}

func (d *recordingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.failTexture || (d.failLabel != "" && desc.Label == d.failLabel) {
		return nil, errInjected
	}
	tex, err := d.Device.CreateTexture(desc)
	if err == nil {
		d.rec.mu.Lock()
		d.rec.textures++
		d.rec.mu.Unlock()
	}
	return tex, err
}

func (d *recordingDevice) DestroyTexture(tex hal.Texture) {
	d.rec.mu.Lock()
	d.rec.textures--
	d.rec.mu.Unlock()
	d.Device.DestroyTexture(tex)
}

func (d *recordingDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if d.failPipeline {
		return nil, errInjected
	}
	d.rec.mu.Lock()
	d.rec.computePipelines = append(d.rec.computePipelines, *desc)
	d.rec.mu.Unlock()
	return d.Device.CreateComputePipeline(desc)
}

func (d *recordingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if d.failPipeline {
		return nil, errInjected
	}
	d.rec.mu.Lock()
	d.rec.renderPipelines = append(d.rec.renderPipelines, *desc)
	d.rec.mu.Unlock()
	return d.Device.CreateRenderPipeline(desc)
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if d.failEncoder {
		return nil, errInjected
	}
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.rec.mu.Lock()
	d.rec.encoders++
	d.rec.mu.Unlock()
	return &recordingEncoder{CommandEncoder: enc, dev: d}, nil
}

type recordingEncoder struct {
	hal.CommandEncoder
	dev *recordingDevice
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	rec := e.dev.rec
	rec.mu.Lock()
	rec.renderPasses = append(rec.renderPasses, *desc)
	rec.mu.Unlock()
	if e.dev.nilRenderEnc {
		return nil
	}
	return &recordingRenderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), rec: rec}
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &recordingComputePass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), rec: e.dev.rec}
}

func (e *recordingEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	rec := e.dev.rec
	rec.mu.Lock()
	rec.bufferCopies = append(rec.bufferCopies, regions...)
	rec.mu.Unlock()
	e.CommandEncoder.CopyBufferToBuffer(src, dst, regions)
}

func (e *recordingEncoder) CopyTextureToTexture(src, dst hal.Texture, regions []hal.TextureCopy) {
	rec := e.dev.rec
	rec.mu.Lock()
	rec.textureCopies = append(rec.textureCopies, regions...)
	rec.mu.Unlock()
	e.CommandEncoder.CopyTextureToTexture(src, dst, regions)
}

type recordingRenderPass struct {
	hal.RenderPassEncoder
	rec *recorder
}

func (p *recordingRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.rec.mu.Lock()
	p.rec.draws = append(p.rec.draws, drawCall{count: vertexCount, instances: instanceCount, first: firstVertex})
	p.rec.mu.Unlock()
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *recordingRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.rec.mu.Lock()
	p.rec.draws = append(p.rec.draws, drawCall{indexed: true, count: indexCount, instances: instanceCount, first: firstIndex})
	p.rec.mu.Unlock()
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *recordingRenderPass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.rec.mu.Lock()
	p.rec.viewports = append(p.rec.viewports, [6]float32{x, y, w, h, minDepth, maxDepth})
	p.rec.mu.Unlock()
	p.RenderPassEncoder.SetViewport(x, y, w, h, minDepth, maxDepth)
}

func (p *recordingRenderPass) SetStencilReference(ref uint32) {
	p.rec.mu.Lock()
	p.rec.stencilRefs = append(p.rec.stencilRefs, ref)
	p.rec.mu.Unlock()
	p.RenderPassEncoder.SetStencilReference(ref)
}

type recordingComputePass struct {
	hal.ComputePassEncoder
	rec *recorder
}

func (p *recordingComputePass) Dispatch(x, y, z uint32) {
	p.rec.mu.Lock()
	p.rec.dispatches = append(p.rec.dispatches, [3]uint32{x, y, z})
	p.rec.mu.Unlock()
	p.ComputePassEncoder.Dispatch(x, y, z)
}

// snapshot returns a copy of the recorded state.
func (r *recorder) snapshot() *recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &recorder{
		dispatches:       append([][3]uint32(nil), r.dispatches...),
		draws:            append([]drawCall(nil), r.draws...),
		bufferCopies:     append([]hal.BufferCopy(nil), r.bufferCopies...),
		textureCopies:    append([]hal.TextureCopy(nil), r.textureCopies...),
		renderPasses:     append([]hal.RenderPassDescriptor(nil), r.renderPasses...),
		viewports:        append([][6]float32(nil), r.viewports...),
		stencilRefs:      append([]uint32(nil), r.stencilRefs...),
		computePipelines: append([]hal.ComputePipelineDescriptor(nil), r.computePipelines...),
		renderPipelines:  append([]hal.RenderPipelineDescriptor(nil), r.renderPipelines...),
		buffers:          r.buffers,
		textures:         r.textures,
		encoders:         r.encoders,
	}
}
