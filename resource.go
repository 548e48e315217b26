// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"reflect"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
)

// ResourceID is the stable identity of a resource container. IDs are unique
// for the life of the process and are the only key used for deduplication.
type ResourceID uint64

var lastResourceID atomic.Uint64

func newResourceID() ResourceID { return ResourceID(lastResourceID.Add(1)) }

// Resource is a container owning zero or one GPU allocation.
// It is implemented by *Buffer[T] and *Texture.
type Resource interface {
	// ID returns the container identity.
	ID() ResourceID

	// Label returns the debug label.
	Label() string

	// Created reports whether the container holds a live allocation.
	Created() bool

	release()
}

// resourceSet is an insertion-ordered set of resources keyed by ResourceID.
type resourceSet struct {
	index map[ResourceID]int
	items []Resource
}

func newResourceSet() *resourceSet {
	return &resourceSet{index: make(map[ResourceID]int)}
}

// missing reports whether r is nil, including a nil container pointer
// held in the interface.
func missing(r Resource) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// present returns the non-missing resources of rs.
func present(rs ...Resource) []Resource {
	out := rs[:0]
	for _, r := range rs {
		if !missing(r) {
			out = append(out, r)
		}
	}
	return out
}

// add appends r unless it is missing or a resource with the same ID is
// already present.
func (s *resourceSet) add(r Resource) bool {
	if missing(r) {
		return false
	}
	if _, ok := s.index[r.ID()]; ok {
		return false
	}
	s.index[r.ID()] = len(s.items)
	s.items = append(s.items, r)
	return true
}

func (s *resourceSet) len() int { return len(s.items) }

func (s *resourceSet) textures() []*Texture {
	var out []*Texture
	for _, r := range s.items {
		if t, ok := r.(*Texture); ok {
			out = append(out, t)
		}
	}
	return out
}

// destroyView releases a view and its texture, tolerating nils.
func destroyView(device hal.Device, tex hal.Texture, view hal.TextureView) {
	if device == nil {
		return
	}
	if view != nil {
		device.DestroyTextureView(view)
	}
	if tex != nil {
		device.DestroyTexture(tex)
	}
}
