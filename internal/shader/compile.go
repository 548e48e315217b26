// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// ErrEmptySource is returned when Compile is called without code.
var ErrEmptySource = errors.New("shader: empty source")

// Stage identifies the pipeline stage of an entry point.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
	StageOther
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "other"
	}
}

// EntryPoint describes one entry point found in a compiled module.
type EntryPoint struct {
	Name  string
	Stage Stage

	// Workgroup is the @workgroup_size of a compute entry point.
	Workgroup [3]uint32
}

// Options configures compilation.
type Options struct {
	// Validate runs naga IR validation before code generation.
	Validate bool

	// Debug emits SPIR-V debug names.
	Debug bool
}

// DefaultOptions returns validation on, debug info off.
func DefaultOptions() Options {
	return Options{Validate: true}
}

// Module is a compiled shader library.
type Module struct {
	Source      string
	SPIRV       []uint32
	EntryPoints []EntryPoint
}

// EntryPoint returns the entry point named name.
func (m *Module) EntryPoint(name string) (EntryPoint, bool) {
	if m == nil {
		return EntryPoint{}, false
	}
	for _, ep := range m.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// CompileError carries the compiler diagnostic for a failed compile.
type CompileError struct {
	// Phase is one of parse, lower, validate, generate.
	Phase string

	// Diagnostics holds every message reported by the phase.
	Diagnostics []string

	Err error
}

func (e *CompileError) Error() string {
	if len(e.Diagnostics) > 1 {
		return fmt.Sprintf("shader: %s failed: %s (and %d more)", e.Phase, e.Diagnostics[0], len(e.Diagnostics)-1)
	}
	if len(e.Diagnostics) == 1 {
		return fmt.Sprintf("shader: %s failed: %s", e.Phase, e.Diagnostics[0])
	}
	return fmt.Sprintf("shader: %s failed: %v", e.Phase, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile compiles WGSL source to SPIR-V words and reflects its entry points.
func Compile(source string, opts Options) (*Module, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &CompileError{Phase: "parse", Diagnostics: []string{err.Error()}, Err: err}
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, &CompileError{Phase: "lower", Diagnostics: []string{err.Error()}, Err: err}
	}

	if opts.Validate {
		verrs, err := naga.Validate(module)
		if err != nil {
			return nil, &CompileError{Phase: "validate", Diagnostics: []string{err.Error()}, Err: err}
		}
		if len(verrs) > 0 {
			diags := make([]string, len(verrs))
			for i := range verrs {
				diags[i] = verrs[i].Error()
			}
			return nil, &CompileError{Phase: "validate", Diagnostics: diags, Err: &verrs[0]}
		}
	}

	spirvBytes, err := naga.GenerateSPIRV(module, spirv.Options{
		Version: spirv.Version1_3,
		Debug:   opts.Debug,
	})
	if err != nil {
		return nil, &CompileError{Phase: "generate", Diagnostics: []string{err.Error()}, Err: err}
	}

	return &Module{
		Source:      source,
		SPIRV:       Words(spirvBytes),
		EntryPoints: entryPoints(module),
	}, nil
}

// Words converts little-endian SPIR-V bytes into 32-bit words.
func Words(spirvBytes []byte) []uint32 {
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words
}

func entryPoints(m *ir.Module) []EntryPoint {
	eps := make([]EntryPoint, 0, len(m.EntryPoints))
	for _, ep := range m.EntryPoints {
		eps = append(eps, EntryPoint{
			Name:      ep.Name,
			Stage:     stageOf(ep.Stage),
			Workgroup: ep.Workgroup,
		})
	}
	return eps
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return StageVertex
	case ir.StageFragment:
		return StageFragment
	case ir.StageCompute:
		return StageCompute
	default:
		return StageOther
	}
}
