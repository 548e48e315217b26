// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"strings"
	"testing"

	"github.com/gogpu/framegraph/internal/gpu"
)

func TestUniformTypeString(t *testing.T) {
	tests := []struct {
		typ  UniformType
		want string
		n    int
	}{
		{Float, "f32", 1},
		{Float2, "vec2<f32>", 2},
		{Float3, "vec3<f32>", 3},
		{Float4, "vec4<f32>", 4},
		{UniformType(9), "UniformType(9)", 0},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.typ.Components(); got != tt.n {
			t.Errorf("%v.Components() = %d, want %d", tt.typ, got, tt.n)
		}
	}
}

func TestUniformsLayout(t *testing.T) {
	u := NewUniforms("Params",
		Field("a", Float),
		Field("b", Float3),
		Field("c", Float2),
		Field("d", Float),
	)
	want := map[string]int{"a": 0, "b": 4, "c": 8, "d": 10}
	for _, s := range u.slots {
		if s.offset != want[s.name] {
			t.Errorf("offset(%s) = %d, want %d", s.name, s.offset, want[s.name])
		}
	}
	if len(u.values) != 12 {
		t.Errorf("len(values) = %d, want 12", len(u.values))
	}
	if got := u.buffer.Len(); got != 12 {
		t.Errorf("buffer.Len() = %d, want 12", got)
	}
}

func TestUniformsDuplicateAndInvalidFields(t *testing.T) {
	u := NewUniforms("P", Field("x", Float), Field("x", Float4), Field("y", UniformType(0)))
	if got := u.Keys(); len(got) != 1 || got[0] != "x" {
		t.Errorf("Keys() = %v, want [x]", got)
	}
	if got := u.Type("x"); got != Float {
		t.Errorf("Type(x) = %v, want f32", got)
	}
	if got := u.Type("y"); got != 0 {
		t.Errorf("Type(y) = %v, want 0", got)
	}
}

func TestUniformsSetters(t *testing.T) {
	u := NewUniforms("P",
		Field("f", Float, 1),
		Field("v2", Float2),
		Field("v3", Float3),
		Field("v4", Float4),
	)
	if f, _ := u.Float("f"); f != 1 {
		t.Errorf("initial Float(f) = %v, want 1", f)
	}
	if !u.SetFloat("f", 2) || !u.SetFloat2("v2", 1, 2) || !u.SetFloat3("v3", 1, 2, 3) || !u.SetFloat4("v4", 1, 2, 3, 4) {
		t.Fatal("setter rejected a matching field")
	}
	if u.SetFloat("v2", 1) {
		t.Error("SetFloat on a Float2 field should fail")
	}
	if u.SetFloat("nope", 1) {
		t.Error("SetFloat on an unknown key should fail")
	}
	if u.SetArray("v3", []float32{1, 2}) {
		t.Error("SetArray with wrong arity should fail")
	}
	if !u.SetArray("v3", []float32{7, 8, 9}) {
		t.Error("SetArray with matching arity should succeed")
	}
	v, ok := u.Vector("v3")
	if !ok || v[0] != 7 || v[2] != 9 {
		t.Errorf("Vector(v3) = %v, want [7 8 9]", v)
	}
	v[0] = 100
	if again, _ := u.Vector("v3"); again[0] != 7 {
		t.Error("Vector should return a copy")
	}
}

func TestUniformsStruct(t *testing.T) {
	u := NewUniforms("Params", Field("time", Float), Field("color", Float4))
	got := u.Struct().String()
	for _, want := range []string{"struct Params", "time: f32", "color: vec4<f32>"} {
		if !strings.Contains(got, want) {
			t.Errorf("Struct() = %q, missing %q", got, want)
		}
	}
}

func TestUniformsFlush(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	u := NewUniforms("P", Field("x", Float, 3))
	if err := u.flush(queue, nil); err != nil {
		t.Fatalf("flush before create: %v", err)
	}
	if err := u.buffer.Materialize(device, queue); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if err := u.flush(queue, nil); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if u.dirty {
		t.Error("dirty after flush")
	}
	u.SetFloat("x", 4)
	if !u.dirty {
		t.Error("not dirty after SetFloat")
	}
	u.buffer.release()
}

func TestUniformsOverwrites(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	u := NewUniforms("P", Field("x", Float, 3))
	if err := u.buffer.Materialize(device, queue); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	defer u.buffer.release()

	frame, next := &gpu.Session{}, &gpu.Session{}
	if err := u.flush(queue, frame); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if u.overwrites(frame) {
		t.Error("overwrites() with no pending change")
	}
	u.SetFloat("x", 4)
	if !u.overwrites(frame) {
		t.Error("overwrites(bound session) = false after SetFloat")
	}
	if u.overwrites(next) || u.overwrites(nil) {
		t.Error("overwrites() true for a command buffer that never bound the values")
	}
}
