// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle provides GPU device access from the host application.
// The graph receives its device from the host and never creates one.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is implemented by hosts that expose hal types behind the
// opaque gpucontext interfaces.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// resolveDevice extracts hal.Device and hal.Queue from a DeviceHandle.
func resolveDevice(h DeviceHandle) (hal.Device, hal.Queue, error) {
	if h == nil {
		return nil, nil, ErrNoDevice
	}
	if hp, ok := h.(halProvider); ok {
		device, dok := hp.HalDevice().(hal.Device)
		queue, qok := hp.HalQueue().(hal.Queue)
		if dok && qok && device != nil && queue != nil {
			return device, queue, nil
		}
	}
	device, dok := h.Device().(hal.Device)
	queue, qok := h.Queue().(hal.Queue)
	if !dok || !qok || device == nil || queue == nil {
		return nil, nil, ErrNoDevice
	}
	return device, queue, nil
}

// halDeviceHandle adapts a hal device and queue to DeviceHandle.
type halDeviceHandle struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

// NewDeviceHandle wraps an opened hal device and its queue. format is the
// presentation surface format, or TextureFormatUndefined when rendering
// offscreen only.
func NewDeviceHandle(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) DeviceHandle {
	return &halDeviceHandle{device: device, queue: queue, format: format}
}

func (h *halDeviceHandle) Device() gpucontext.Device             { return h.device }
func (h *halDeviceHandle) Queue() gpucontext.Queue               { return h.queue }
func (h *halDeviceHandle) SurfaceFormat() gputypes.TextureFormat { return h.format }
func (h *halDeviceHandle) Adapter() gpucontext.Adapter           { return nil }
func (h *halDeviceHandle) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }
func (h *halDeviceHandle) HalDevice() any                        { return h.device }
func (h *halDeviceHandle) HalQueue() any                         { return h.queue }
