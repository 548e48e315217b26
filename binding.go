// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "unsafe"

// Binding is a shared mutable cell read by passes every frame. Several
// components may hold the same Binding; a Set is seen by all of them on the
// next encode.
//
// Binding does no locking of its own. Writers on other goroutines must
// synchronize with the frame loop, or supply get/set functions that do.
type Binding[T any] struct {
	get func() T
	set func(T)

	wgslType string
	name     string
}

// NewBinding returns a Binding backed by its own storage.
func NewBinding[T any](v T) *Binding[T] {
	cell := new(T)
	*cell = v
	return &Binding[T]{
		get: func() T { return *cell },
		set: func(nv T) { *cell = nv },
	}
}

// BindingFunc returns a Binding backed by caller-provided accessors.
// A nil set makes the binding read-only.
func BindingFunc[T any](get func() T, set func(T)) *Binding[T] {
	if set == nil {
		set = func(T) {}
	}
	return &Binding[T]{get: get, set: set}
}

// Constant returns a Binding that always yields v and ignores writes.
func Constant[T any](v T) *Binding[T] {
	return BindingFunc(func() T { return v }, nil)
}

// Get returns the current value.
func (b *Binding[T]) Get() T { return b.get() }

// Set stores v.
func (b *Binding[T]) Set(v T) { b.set(v) }

// Named returns a Binding sharing b's storage that declares itself to
// shaders as a variable name of WGSL type wgslType.
func (b *Binding[T]) Named(wgslType, name string) *Binding[T] {
	nb := *b
	nb.wgslType = wgslType
	nb.name = name
	return &nb
}

// WGSLType returns the declared WGSL type, inferring common Go types when
// none was given.
func (b *Binding[T]) WGSLType() string {
	if b.wgslType != "" {
		return b.wgslType
	}
	return elementType[T]()
}

// Name returns the declared shader variable name.
func (b *Binding[T]) Name() string { return b.name }

// bytes returns the raw bytes of the current value.
func (b *Binding[T]) bytes() []byte {
	v := b.get()
	return append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v))...)
}

func (b *Binding[T]) size() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

// Value is the untyped view of a *Binding[T] used as a shader argument.
type Value interface {
	WGSLType() string
	Name() string
	bytes() []byte
	size() uint64
}

// optional returns b.Get(), or def when b is nil.
func optional[T any](b *Binding[T], def T) T {
	if b == nil {
		return def
	}
	return b.Get()
}
