// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	// ErrNotHostVisible is returned by Contents and Data on a buffer created
	// without WithHostAccess.
	ErrNotHostVisible = errors.New("framegraph: buffer is not host visible")

	// ErrBufferNotCreated is returned when a buffer operation needs a live
	// allocation and the buffer has none.
	ErrBufferNotCreated = errors.New("framegraph: buffer has no allocation")

	// ErrBufferRange is returned when a write exceeds the allocation.
	ErrBufferRange = errors.New("framegraph: write outside buffer bounds")

	// ErrBufferStride is returned for a stride smaller than the element
	// size, and by Contents when the stride differs from it.
	ErrBufferStride = errors.New("framegraph: stride does not fit the element type")
)

// defaultBufferUsage lets one allocation serve as storage, uniform, vertex
// or index data and as a copy endpoint.
const defaultBufferUsage = gputypes.BufferUsageStorage |
	gputypes.BufferUsageUniform |
	gputypes.BufferUsageVertex |
	gputypes.BufferUsageIndex |
	gputypes.BufferUsageCopySrc |
	gputypes.BufferUsageCopyDst

// BufferOption configures a Buffer.
type BufferOption func(*bufferOptions)

type bufferOptions struct {
	label  string
	manual bool
	host   bool
	usage  gputypes.BufferUsage
	stride uint64
	elem   string
}

// BufferLabel sets the debug label.
func BufferLabel(label string) BufferOption {
	return func(o *bufferOptions) { o.label = label }
}

// Manual excludes the buffer from creation at build time. The caller
// allocates it later with Load or Materialize.
func Manual() BufferOption {
	return func(o *bufferOptions) { o.manual = true }
}

// WithHostAccess allocates the buffer in host-visible memory so that
// Contents and Data can read and write it directly.
func WithHostAccess() BufferOption {
	return func(o *bufferOptions) { o.host = true }
}

// WithBufferUsage replaces the default usage flags.
func WithBufferUsage(u gputypes.BufferUsage) BufferOption {
	return func(o *bufferOptions) { o.usage = u }
}

// WithStride overrides the element stride in bytes. The default is the size
// of the element type; a larger stride pads every element on upload, a
// smaller one fails materialization.
func WithStride(n uint64) BufferOption {
	return func(o *bufferOptions) { o.stride = n }
}

// WithElementType sets the WGSL element type used in generated
// declarations, e.g. "Particle" or "vec4<f32>".
func WithElementType(wgsl string) BufferOption {
	return func(o *bufferOptions) { o.elem = wgsl }
}

// BufferResource is the untyped view of a *Buffer[T] used by components.
type BufferResource interface {
	Resource

	// Len returns the element count of the live allocation, or the declared
	// count before materialization.
	Len() int

	// Stride returns the element size in bytes.
	Stride() uint64

	// ElementType returns the WGSL element type, or "" when unknown.
	ElementType() string

	// Raw returns the live hal buffer, or nil.
	Raw() hal.Buffer

	// Materialize allocates the buffer on device, uploading initial data.
	Materialize(device hal.Device, queue hal.Queue) error

	declared() bool
	manualCreate() bool
}

// Buffer is a typed container for a GPU buffer holding elements of T.
// T must be fixed-size data without pointers.
type Buffer[T any] struct {
	id    ResourceID
	opts  bufferOptions
	count int
	data  []T

	device hal.Device
	queue  hal.Queue
	buf    hal.Buffer
	length int
	mapped unsafe.Pointer
}

// NewBuffer declares a buffer of count elements. The allocation is made when
// the graph is built.
func NewBuffer[T any](count int, opts ...BufferOption) *Buffer[T] {
	b := &Buffer[T]{id: newResourceID(), count: count}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// NewBufferFrom declares a buffer initialised from data. The element count
// is len(data).
func NewBufferFrom[T any](data []T, opts ...BufferOption) *Buffer[T] {
	b := NewBuffer[T](len(data), opts...)
	b.data = append([]T(nil), data...)
	return b
}

func (b *Buffer[T]) ID() ResourceID { return b.id }
func (b *Buffer[T]) Label() string  { return b.opts.label }
func (b *Buffer[T]) Created() bool  { return b.buf != nil }

// Len returns the element count.
func (b *Buffer[T]) Len() int {
	if b.buf != nil {
		return b.length
	}
	return b.count
}

// Stride returns the element size in bytes.
func (b *Buffer[T]) Stride() uint64 {
	if b.opts.stride > 0 {
		return b.opts.stride
	}
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

// Size returns the allocation size in bytes.
func (b *Buffer[T]) Size() uint64 { return alignUp(uint64(b.Len())*b.Stride(), 4) }

// ElementType returns the WGSL element type.
func (b *Buffer[T]) ElementType() string {
	if b.opts.elem != "" {
		return b.opts.elem
	}
	return elementType[T]()
}

// Raw returns the live hal buffer, or nil.
func (b *Buffer[T]) Raw() hal.Buffer { return b.buf }

func (b *Buffer[T]) declared() bool     { return b.count > 0 || len(b.data) > 0 }
func (b *Buffer[T]) manualCreate() bool { return b.opts.manual }

func (b *Buffer[T]) usage() gputypes.BufferUsage {
	u := b.opts.usage
	if u == 0 {
		u = defaultBufferUsage
	}
	if b.opts.host {
		u |= gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite
	}
	return u
}

// Materialize allocates the buffer at its declared count and uploads any
// pending data. A previous allocation is replaced only on success.
func (b *Buffer[T]) Materialize(device hal.Device, queue hal.Queue) error {
	count := b.count
	if len(b.data) > 0 {
		count = len(b.data)
	}
	return b.create(device, queue, count, b.data)
}

func (b *Buffer[T]) create(device hal.Device, queue hal.Queue, count int, data []T) error {
	if count <= 0 || b.Stride() == 0 {
		return &ResourceError{Kind: ZeroSize, Resource: b.id, Label: b.opts.label}
	}
	if b.Stride() < elemSize[T]() {
		return fmt.Errorf("buffer %d: %w: stride %d, element size %d", b.id, ErrBufferStride, b.Stride(), elemSize[T]())
	}
	size := alignUp(uint64(count)*b.Stride(), 4)
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.opts.label,
		Size:  size,
		Usage: b.usage(),
	})
	if err != nil {
		return &ResourceError{Kind: AllocationFailed, Resource: b.id, Label: b.opts.label, Err: err}
	}
	if len(data) > 0 && queue != nil {
		if err := queue.WriteBuffer(buf, 0, padBytes(b.pack(data))); err != nil {
			device.DestroyBuffer(buf)
			return &ResourceError{Kind: AllocationFailed, Resource: b.id, Label: b.opts.label, Err: err}
		}
	}

	b.release()
	b.device, b.queue = device, queue
	b.buf = buf
	b.length = count
	b.data = nil
	Logger().Debug("framegraph: buffer created",
		"id", b.id, "label", b.opts.label, "count", count, "bytes", size)
	return nil
}

// Load replaces the contents with data, re-creating the allocation at
// len(data) elements. Before the buffer has a device the data is kept and
// uploaded when the graph materializes it.
func (b *Buffer[T]) Load(data []T) error {
	if b.device == nil {
		b.data = append([]T(nil), data...)
		b.count = len(data)
		return nil
	}
	return b.create(b.device, b.queue, len(data), data)
}

// Write uploads data starting at element offset without reallocating.
func (b *Buffer[T]) Write(offset int, data []T) error {
	if b.buf == nil {
		return ErrBufferNotCreated
	}
	if offset < 0 || offset+len(data) > b.length {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrBufferRange, offset, offset+len(data), b.length)
	}
	return b.queue.WriteBuffer(b.buf, uint64(offset)*b.Stride(), padBytes(b.pack(data)))
}

// pack lays data out at the buffer stride.
func (b *Buffer[T]) pack(data []T) []byte {
	raw := sliceBytes(data)
	size, stride := elemSize[T](), b.Stride()
	if stride == size || len(data) == 0 {
		return raw
	}
	out := make([]byte, uint64(len(data))*stride)
	for i := range data {
		copy(out[uint64(i)*stride:], raw[uint64(i)*size:uint64(i+1)*size])
	}
	return out
}

// mapView maps the allocation and returns its bytes.
func (b *Buffer[T]) mapView() ([]byte, error) {
	if !b.opts.host {
		return nil, ErrNotHostVisible
	}
	if b.buf == nil {
		return nil, ErrBufferNotCreated
	}
	if b.mapped == nil {
		m, err := b.device.MapBuffer(b.buf, 0, b.Size())
		if err != nil {
			return nil, fmt.Errorf("map buffer %d: %w", b.id, err)
		}
		b.mapped = m.Ptr
	}
	return unsafe.Slice((*byte)(b.mapped), b.Size()), nil
}

// Contents returns a view of host-visible buffer memory. The slice aliases
// GPU memory and is invalidated by Load, re-materialization and release.
// It needs the stride to equal the element size; use Data otherwise.
func (b *Buffer[T]) Contents() ([]T, error) {
	if b.Stride() != elemSize[T]() {
		return nil, fmt.Errorf("buffer %d: %w: stride %d, element size %d", b.id, ErrBufferStride, b.Stride(), elemSize[T]())
	}
	if _, err := b.mapView(); err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(b.mapped), b.length), nil
}

// Data returns a copy of the buffer contents.
func (b *Buffer[T]) Data() ([]T, error) {
	raw, err := b.mapView()
	if err != nil {
		return nil, err
	}
	out := make([]T, b.length)
	size, stride := elemSize[T](), b.Stride()
	dst := sliceBytes(out)
	for i := range out {
		copy(dst[uint64(i)*size:uint64(i+1)*size], raw[uint64(i)*stride:])
	}
	return out, nil
}

func elemSize[T any]() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

func (b *Buffer[T]) release() {
	if b.buf == nil || b.device == nil {
		return
	}
	if b.mapped != nil {
		if err := b.device.UnmapBuffer(b.buf); err != nil {
			Logger().Warn("framegraph: unmap buffer failed", "id", b.id, "err", err)
		}
		b.mapped = nil
	}
	b.device.DestroyBuffer(b.buf)
	b.buf = nil
	b.length = 0
}

// elementType infers the WGSL element type for common Go element types.
// [3]float32 is absent: vec3<f32> has a 16 byte array stride.
func elementType[T any]() string {
	var zero T
	switch any(zero).(type) {
	case float32:
		return "f32"
	case uint32:
		return "u32"
	case int32:
		return "i32"
	case [2]float32:
		return "vec2<f32>"
	case [4]float32:
		return "vec4<f32>"
	case [2]uint32:
		return "vec2<u32>"
	case [4]uint32:
		return "vec4<u32>"
	case [2]int32:
		return "vec2<i32>"
	case [4]int32:
		return "vec4<i32>"
	case [16]float32:
		return "mat4x4<f32>"
	}
	return ""
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// padBytes extends b to a multiple of four bytes, as queue writes require.
func padBytes(b []byte) []byte {
	if len(b)%4 == 0 {
		return b
	}
	out := make([]byte, alignUp(uint64(len(b)), 4))
	copy(out, b)
	return out
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}
