// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"strings"
	"testing"
)

func TestBindingString(t *testing.T) {
	tests := []struct {
		name string
		b    Binding
		want string
	}{
		{
			name: "uniform",
			b:    Binding{Group: 0, Slot: 1, Name: "u", Type: "Uniforms", Space: SpaceUniform},
			want: "@group(0) @binding(1) var<uniform> u: Uniforms;\n",
		},
		{
			name: "storage read",
			b:    Binding{Group: 2, Slot: 0, Name: "src", Type: "array<f32>", Space: SpaceStorageRead},
			want: "@group(2) @binding(0) var<storage, read> src: array<f32>;\n",
		},
		{
			name: "storage read write",
			b:    Binding{Group: 0, Slot: 3, Name: "dst", Type: "array<u32>", Space: SpaceStorageReadWrite},
			want: "@group(0) @binding(3) var<storage, read_write> dst: array<u32>;\n",
		},
		{
			name: "texture handle",
			b:    Binding{Group: 1, Slot: 0, Name: "tex", Type: "texture_2d<f32>", Space: SpaceHandle},
			want: "@group(1) @binding(0) var tex: texture_2d<f32>;\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlockOrdersBindingsBySlot(t *testing.T) {
	b := Block{
		Bindings: []Binding{
			{Group: 0, Slot: 2, Name: "c", Type: "f32", Space: SpaceUniform},
			{Group: 0, Slot: 0, Name: "a", Type: "f32", Space: SpaceUniform},
			{Group: 1, Slot: 0, Name: "t", Type: "texture_2d<f32>", Space: SpaceHandle},
			{Group: 0, Slot: 1, Name: "b", Type: "f32", Space: SpaceUniform},
		},
	}
	got := b.String()
	ia, ib, ic, it := strings.Index(got, " a:"), strings.Index(got, " b:"), strings.Index(got, " c:"), strings.Index(got, " t:")
	if !(ia < ib && ib < ic && ic < it) {
		t.Errorf("bindings out of order:\n%s", got)
	}
}

func TestArrayStruct(t *testing.T) {
	s := ArrayStruct("Particles", "vec4<f32>", 100)
	want := "struct Particles {\n    items: array<vec4<f32>, 100>,\n}\n"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSourceSkipsIdenticalBlocks(t *testing.T) {
	src := NewSource("fn helper() {}")
	block := Block{Bindings: []Binding{{Slot: 0, Name: "data", Type: "array<f32>", Space: SpaceStorageReadWrite}}}

	added, err := src.AddBlock(block)
	if err != nil || !added {
		t.Fatalf("AddBlock() = %v, %v; want true, nil", added, err)
	}
	added, err = src.AddBlock(block)
	if err != nil || added {
		t.Fatalf("second AddBlock() = %v, %v; want false, nil", added, err)
	}
	if n := len(src.Declarations()); n != 1 {
		t.Errorf("Declarations() len = %d, want 1", n)
	}
	if got := strings.Count(src.String(), "var<storage, read_write> data"); got != 1 {
		t.Errorf("data declared %d times, want 1", got)
	}
	if !strings.HasSuffix(src.String(), "fn helper() {}") {
		t.Errorf("library body should follow declarations:\n%s", src.String())
	}
}

func TestSourceSharesStructsAcrossBlocks(t *testing.T) {
	src := NewSource("")
	uniforms := Struct{Name: "Uniforms", Fields: []Field{{Name: "time", Type: "f32"}}}

	_, err := src.AddBlock(Block{
		Structs:  []Struct{uniforms},
		Bindings: []Binding{{Slot: 0, Name: "u", Type: "Uniforms", Space: SpaceUniform}},
	})
	if err != nil {
		t.Fatal(err)
	}
	added, err := src.AddBlock(Block{
		Structs: []Struct{uniforms},
		Bindings: []Binding{
			{Slot: 0, Name: "u", Type: "Uniforms", Space: SpaceUniform},
			{Slot: 1, Name: "out_data", Type: "array<f32>", Space: SpaceStorageReadWrite},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Fatal("expected the new binding to be appended")
	}
	if got := strings.Count(src.String(), "struct Uniforms"); got != 1 {
		t.Errorf("struct Uniforms declared %d times, want 1", got)
	}
}

func TestSourceConflict(t *testing.T) {
	src := NewSource("")
	if _, err := src.AddBlock(Block{Bindings: []Binding{{Slot: 0, Name: "x", Type: "f32", Space: SpaceUniform}}}); err != nil {
		t.Fatal(err)
	}
	_, err := src.AddBlock(Block{Bindings: []Binding{{Slot: 1, Name: "x", Type: "f32", Space: SpaceUniform}}})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("AddBlock() error = %v, want *ConflictError", err)
	}
	if ce.Name != "x" {
		t.Errorf("ConflictError.Name = %q, want x", ce.Name)
	}
	if len(src.Declarations()) != 1 {
		t.Errorf("conflicting block must not be recorded")
	}
}
