// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/internal/shader"
)

// CompileOptions configures shader library compilation.
type CompileOptions struct {
	// Validate runs IR validation before code generation.
	Validate bool

	// Debug emits debug names into the generated module.
	Debug bool
}

// DefaultCompileOptions validates without debug info.
func DefaultCompileOptions() CompileOptions {
	o := shader.DefaultOptions()
	return CompileOptions{Validate: o.Validate, Debug: o.Debug}
}

// Library is the compiled shader code of a graph. A graph without shader
// code has an empty library.
type Library struct {
	device hal.Device
	module *shader.Module
	shader hal.ShaderModule
	decls  []string
}

// compileLibrary compiles src and loads the result on device. Without code
// the library is empty.
func compileLibrary(device hal.Device, src *shader.Source, opts CompileOptions) (*Library, error) {
	lib := &Library{device: device, decls: src.Declarations()}
	if !src.HasCode() {
		return lib, nil
	}
	m, err := shader.Compile(src.String(), shader.Options{Validate: opts.Validate, Debug: opts.Debug})
	if err != nil {
		return nil, err
	}
	sm, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "framegraph",
		Source: hal.ShaderSource{SPIRV: m.SPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	lib.module = m
	lib.shader = sm
	Logger().Debug("framegraph: library compiled",
		"entry_points", len(m.EntryPoints), "spirv_words", len(m.SPIRV))
	return lib, nil
}

// Empty reports whether the library holds no code.
func (l *Library) Empty() bool { return l == nil || l.module == nil }

// Source returns the compiled WGSL source, declarations included.
func (l *Library) Source() string {
	if l.Empty() {
		return ""
	}
	return l.module.Source
}

// Declarations returns the generated argument declaration blocks in order.
func (l *Library) Declarations() []string {
	if l == nil {
		return nil
	}
	return l.decls
}

// EntryPoints returns the names of all entry points.
func (l *Library) EntryPoints() []string {
	if l.Empty() {
		return nil
	}
	names := make([]string, len(l.module.EntryPoints))
	for i, ep := range l.module.EntryPoints {
		names[i] = ep.Name
	}
	return names
}

// entryPoint looks up name and checks its stage.
func (l *Library) entryPoint(name string, stage shader.Stage) (shader.EntryPoint, error) {
	if l.Empty() {
		return shader.EntryPoint{}, fmt.Errorf("no entry point %q: library is empty", name)
	}
	ep, ok := l.module.EntryPoint(name)
	if !ok {
		return shader.EntryPoint{}, fmt.Errorf("no entry point %q", name)
	}
	if ep.Stage != stage {
		return shader.EntryPoint{}, fmt.Errorf("entry point %q is a %s entry point, not %s", name, ep.Stage, stage)
	}
	return ep, nil
}

func (l *Library) destroy() {
	if l == nil || l.shader == nil {
		return
	}
	l.device.DestroyShaderModule(l.shader)
	l.shader = nil
}
