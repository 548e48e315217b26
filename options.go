// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/go-git/go-billy/v5"
	"github.com/gogpu/gputypes"
)

// BuildOption configures Build.
//
// Example:
//
//	g, err := framegraph.Build(handle, components,
//		framegraph.WithShaderSource(lib),
//		framegraph.WithViewport(800, 600),
//		framegraph.WithDepthStencil(gputypes.TextureFormatDepth24PlusStencil8),
//	)
type BuildOption func(*buildOptions)

type buildOptions struct {
	prefix       string
	files        billy.Filesystem
	paths        []string
	surface      gputypes.TextureFormat
	surfaceSet   bool
	width        int
	height       int
	compile      CompileOptions
	async        bool
	depthStencil gputypes.TextureFormat
}

func defaultBuildOptions() buildOptions {
	return buildOptions{
		width:   1,
		height:  1,
		compile: DefaultCompileOptions(),
	}
}

// WithShaderSource sets WGSL library code compiled ahead of the generated
// argument declarations and the components' own source.
func WithShaderSource(wgsl string) BuildOption {
	return func(o *buildOptions) {
		o.prefix = wgsl
	}
}

// WithShaderFiles reads WGSL library code from fs. The files are
// concatenated in order after any WithShaderSource code.
func WithShaderFiles(fs billy.Filesystem, paths ...string) BuildOption {
	return func(o *buildOptions) {
		o.files = fs
		o.paths = append(o.paths[:0:0], paths...)
	}
}

// WithSurfaceFormat overrides the surface format reported by the
// DeviceHandle. Textures using SurfaceFormat resolve to it.
func WithSurfaceFormat(f gputypes.TextureFormat) BuildOption {
	return func(o *buildOptions) {
		o.surface = f
		o.surfaceSet = true
	}
}

// WithViewport sets the initial viewport size in pixels. The default is
// 1x1; call Graph.Resize when the real size is known.
func WithViewport(width, height int) BuildOption {
	return func(o *buildOptions) {
		o.width, o.height = width, height
	}
}

// WithCompileOptions configures shader compilation.
func WithCompileOptions(c CompileOptions) BuildOption {
	return func(o *buildOptions) {
		o.compile = c
	}
}

// WithAsync makes Draw return after submission instead of waiting for the
// frame to complete. Resources released at the end of a frame are then
// released at the start of the next Draw.
func WithAsync(async bool) BuildOption {
	return func(o *buildOptions) {
		o.async = async
	}
}

// WithDepthStencil gives the graph a viewport-sized depth/stencil texture
// of format f. Render passes whose DepthStencilAttachment has no texture
// use it.
func WithDepthStencil(f gputypes.TextureFormat) BuildOption {
	return func(o *buildOptions) {
		o.depthStencil = f
	}
}
