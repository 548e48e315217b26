// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"fmt"
	"sort"
	"strings"
)

// Space is the WGSL address space or handle class of a resource variable.
type Space int

const (
	// SpaceUniform declares var<uniform>.
	SpaceUniform Space = iota

	// SpaceStorageRead declares var<storage, read>.
	SpaceStorageRead

	// SpaceStorageReadWrite declares var<storage, read_write>.
	SpaceStorageReadWrite

	// SpaceHandle declares a texture or sampler variable with no address space.
	SpaceHandle
)

// String returns the WGSL spelling of the address space.
func (s Space) String() string {
	switch s {
	case SpaceUniform:
		return "uniform"
	case SpaceStorageRead:
		return "storage, read"
	case SpaceStorageReadWrite:
		return "storage, read_write"
	case SpaceHandle:
		return "handle"
	default:
		return fmt.Sprintf("Space(%d)", int(s))
	}
}

// Field is one member of a generated struct.
type Field struct {
	Name string
	Type string
}

// Struct is a generated WGSL struct declaration.
type Struct struct {
	Name   string
	Fields []Field
}

// String renders the struct in WGSL.
func (s Struct) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "    %s: %s,\n", f.Name, f.Type)
	}
	b.WriteString("}\n")
	return b.String()
}

// ArrayStruct wraps count elements of elem into a single-member struct.
// The member is named items.
func ArrayStruct(name, elem string, count int) Struct {
	return Struct{
		Name:   name,
		Fields: []Field{{Name: "items", Type: fmt.Sprintf("array<%s, %d>", elem, count)}},
	}
}

// Binding is one resource variable declaration.
type Binding struct {
	Group uint32
	Slot  uint32
	Name  string
	Type  string
	Space Space
}

// String renders the binding in WGSL.
func (b Binding) String() string {
	if b.Space == SpaceHandle {
		return fmt.Sprintf("@group(%d) @binding(%d) var %s: %s;\n", b.Group, b.Slot, b.Name, b.Type)
	}
	return fmt.Sprintf("@group(%d) @binding(%d) var<%s> %s: %s;\n", b.Group, b.Slot, b.Space, b.Name, b.Type)
}

// Block is the declaration header for one shader-bearing component.
type Block struct {
	Structs  []Struct
	Bindings []Binding
}

// String renders structs first (in insertion order, deduplicated by name)
// followed by bindings ordered by group and slot.
func (b Block) String() string {
	var sb strings.Builder
	seen := make(map[string]bool, len(b.Structs))
	for _, s := range b.Structs {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		sb.WriteString(s.String())
	}
	for _, bd := range b.sortedBindings() {
		sb.WriteString(bd.String())
	}
	return sb.String()
}

func (b Block) sortedBindings() []Binding {
	bindings := make([]Binding, len(b.Bindings))
	copy(bindings, b.Bindings)
	sort.SliceStable(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Slot < bindings[j].Slot
	})
	return bindings
}

// Empty reports whether the block declares nothing.
func (b Block) Empty() bool {
	return len(b.Structs) == 0 && len(b.Bindings) == 0
}

// ConflictError reports two declarations that share a name but differ in
// content.
type ConflictError struct {
	Name     string
	Existing string
	New      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("shader: conflicting declarations of %q", e.Name)
}

// Source accumulates declaration blocks and library code. Identical blocks
// are emitted once; structs and variables shared between blocks are
// emitted once by name.
type Source struct {
	blocks map[string]bool
	names  map[string]string
	decls  []string
	body   []string
}

// NewSource creates a Source whose library body starts with prefix.
func NewSource(prefix string) *Source {
	s := &Source{
		blocks: make(map[string]bool),
		names:  make(map[string]string),
	}
	if prefix != "" {
		s.body = append(s.body, prefix)
	}
	return s
}

// AddBlock appends the parts of b not already declared. It reports whether
// anything was appended. A struct or variable whose name was declared
// before with different text yields a *ConflictError and leaves s unchanged.
func (s *Source) AddBlock(b Block) (bool, error) {
	text := b.String()
	if text == "" || s.blocks[text] {
		return false, nil
	}

	type item struct{ name, text string }
	var items []item
	for _, st := range b.Structs {
		items = append(items, item{st.Name, st.String()})
	}
	for _, bd := range b.sortedBindings() {
		items = append(items, item{bd.Name, bd.String()})
	}

	local := make(map[string]string, len(items))
	var fresh strings.Builder
	for _, it := range items {
		prev, ok := s.names[it.name]
		if !ok {
			prev, ok = local[it.name]
		}
		if ok {
			if prev != it.text {
				return false, &ConflictError{Name: it.name, Existing: prev, New: it.text}
			}
			continue
		}
		local[it.name] = it.text
		fresh.WriteString(it.text)
	}

	s.blocks[text] = true
	for k, v := range local {
		s.names[k] = v
	}
	if fresh.Len() == 0 {
		return false, nil
	}
	s.decls = append(s.decls, fresh.String())
	return true, nil
}

// AddBody appends library code after the existing body.
func (s *Source) AddBody(code string) {
	if code != "" {
		s.body = append(s.body, code)
	}
}

// Declarations returns the emitted declaration text in order.
func (s *Source) Declarations() []string {
	return s.decls
}

// HasCode reports whether any library code was supplied.
func (s *Source) HasCode() bool {
	return len(s.body) > 0
}

// String joins declarations ahead of the library body.
func (s *Source) String() string {
	parts := make([]string, 0, len(s.decls)+len(s.body))
	parts = append(parts, s.decls...)
	parts = append(parts, s.body...)
	return strings.Join(parts, "\n")
}
