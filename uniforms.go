// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/framegraph/internal/gpu"
	"github.com/gogpu/framegraph/internal/shader"
)

// UniformType is the WGSL type of a uniforms field.
type UniformType int

const (
	// Float is f32.
	Float UniformType = iota + 1

	// Float2 is vec2<f32>.
	Float2

	// Float3 is vec3<f32>.
	Float3

	// Float4 is vec4<f32>.
	Float4
)

// String returns the WGSL spelling of the type.
func (t UniformType) String() string {
	switch t {
	case Float:
		return "f32"
	case Float2:
		return "vec2<f32>"
	case Float3:
		return "vec3<f32>"
	case Float4:
		return "vec4<f32>"
	default:
		return fmt.Sprintf("UniformType(%d)", int(t))
	}
}

// Components returns the number of floats in the type.
func (t UniformType) Components() int {
	if t < Float || t > Float4 {
		return 0
	}
	return int(t)
}

// align returns the WGSL alignment of the type in floats.
func (t UniformType) align() int {
	switch t {
	case Float:
		return 1
	case Float2:
		return 2
	default:
		return 4
	}
}

// UniformField declares one field of a Uniforms block.
type UniformField struct {
	Name    string
	Type    UniformType
	Initial []float32
}

// Field declares a uniforms field with an optional initial value.
func Field(name string, typ UniformType, initial ...float32) UniformField {
	return UniformField{Name: name, Type: typ, Initial: initial}
}

type uniformSlot struct {
	name   string
	typ    UniformType
	offset int
}

// Uniforms is an ordered block of float parameters shared by passes as a
// single uniform buffer. Field names are NFC-normalized.
//
// Uniforms is safe for concurrent use: setters may run on any goroutine and
// the frame loop uploads a consistent snapshot.
type Uniforms struct {
	typeName string

	mu     sync.Mutex
	slots  []uniformSlot
	index  map[string]int
	values []float32
	dirty  bool

	// command buffer that last bound the current values
	boundIn *gpu.Session

	buffer *Buffer[float32]
}

// NewUniforms declares a uniforms block whose WGSL struct is named typeName.
// Fields are laid out in order with WGSL uniform alignment.
func NewUniforms(typeName string, fields ...UniformField) *Uniforms {
	u := &Uniforms{typeName: typeName, index: make(map[string]int)}
	offset := 0
	for _, f := range fields {
		key := norm.NFC.String(f.Name)
		if _, dup := u.index[key]; dup || f.Type.Components() == 0 {
			continue
		}
		a := f.Type.align()
		offset = (offset + a - 1) / a * a
		u.index[key] = len(u.slots)
		u.slots = append(u.slots, uniformSlot{name: key, typ: f.Type, offset: offset})
		offset += f.Type.Components()
	}
	size := (offset + 3) / 4 * 4
	if size == 0 {
		size = 4
	}
	u.values = make([]float32, size)
	for _, f := range fields {
		if i, ok := u.index[norm.NFC.String(f.Name)]; ok && len(f.Initial) > 0 {
			s := u.slots[i]
			copy(u.values[s.offset:s.offset+s.typ.Components()], f.Initial)
		}
	}
	u.buffer = NewBufferFrom(u.values, BufferLabel(typeName),
		WithBufferUsage(gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst))
	u.dirty = true
	return u
}

// TypeName returns the WGSL struct name.
func (u *Uniforms) TypeName() string { return u.typeName }

// Struct returns the WGSL struct declaration.
func (u *Uniforms) Struct() shader.Struct {
	s := shader.Struct{Name: u.typeName}
	for _, slot := range u.slots {
		s.Fields = append(s.Fields, shader.Field{Name: slot.name, Type: slot.typ.String()})
	}
	return s
}

// Keys returns the field names in declaration order.
func (u *Uniforms) Keys() []string {
	keys := make([]string, len(u.slots))
	for i, s := range u.slots {
		keys[i] = s.name
	}
	return keys
}

// Type returns the type of key, or 0 when key is not a field.
func (u *Uniforms) Type(key string) UniformType {
	if i, ok := u.index[norm.NFC.String(key)]; ok {
		return u.slots[i].typ
	}
	return 0
}

// Float returns the first component of key.
func (u *Uniforms) Float(key string) (float32, bool) {
	v, ok := u.Vector(key)
	if !ok {
		return 0, false
	}
	return v[0], true
}

// Vector returns all components of key.
func (u *Uniforms) Vector(key string) ([]float32, bool) {
	i, ok := u.index[norm.NFC.String(key)]
	if !ok {
		return nil, false
	}
	s := u.slots[i]
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]float32(nil), u.values[s.offset:s.offset+s.typ.Components()]...), true
}

// SetFloat sets a Float field.
func (u *Uniforms) SetFloat(key string, v float32) bool { return u.set(key, Float, v) }

// SetFloat2 sets a Float2 field.
func (u *Uniforms) SetFloat2(key string, x, y float32) bool { return u.set(key, Float2, x, y) }

// SetFloat3 sets a Float3 field.
func (u *Uniforms) SetFloat3(key string, x, y, z float32) bool { return u.set(key, Float3, x, y, z) }

// SetFloat4 sets a Float4 field.
func (u *Uniforms) SetFloat4(key string, x, y, z, w float32) bool {
	return u.set(key, Float4, x, y, z, w)
}

// SetArray sets key from v when len(v) matches the field's component count.
// It reports whether the value was applied.
func (u *Uniforms) SetArray(key string, v []float32) bool {
	t := u.Type(key)
	if t == 0 || len(v) != t.Components() {
		return false
	}
	return u.set(key, t, v...)
}

func (u *Uniforms) set(key string, typ UniformType, v ...float32) bool {
	i, ok := u.index[norm.NFC.String(key)]
	if !ok || u.slots[i].typ != typ {
		return false
	}
	s := u.slots[i]
	u.mu.Lock()
	copy(u.values[s.offset:s.offset+len(v)], v)
	u.dirty = true
	u.mu.Unlock()
	return true
}

// Resource returns the buffer backing the block.
func (u *Uniforms) Resource() BufferResource { return u.buffer }

// flush uploads pending changes and records that the values are bound in
// command buffer s. Called by passes before encoding.
func (u *Uniforms) flush(queue hal.Queue, s *gpu.Session) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.buffer.Created() {
		return nil
	}
	if u.dirty {
		if err := queue.WriteBuffer(u.buffer.Raw(), 0, sliceBytes(u.values)); err != nil {
			return fmt.Errorf("upload %s: %w", u.typeName, err)
		}
		u.dirty = false
	}
	u.boundIn = s
	return nil
}

// overwrites reports whether flushing now would change values that commands
// already encoded into s still read.
func (u *Uniforms) overwrites(s *gpu.Session) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.dirty && s != nil && u.boundIn == s
}
