// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Component is one declarative step of a frame. The set of components is
// closed: Compute, Render, ClearRender, CopyBuffer, CopyTexture, RunOnHost
// and Group.
//
// Components are plain values. Their methods return modified copies and
// never touch GPU state; resources and bindings are held by reference.
type Component interface {
	isComponent()
}

func (Compute) isComponent()     {}
func (Render) isComponent()      {}
func (ClearRender) isComponent() {}
func (CopyBuffer) isComponent()  {}
func (CopyTexture) isComponent() {}
func (RunOnHost) isComponent()   {}
func (Group) isComponent()       {}

// Compute dispatches a compute entry point.
type Compute struct {
	label    string
	function string
	source   string
	args     []argument
	grid     *Binding[[3]int]
}

// NewCompute returns a Compute component running the entry point function.
func NewCompute(function string) Compute {
	return Compute{function: function}
}

// Label sets the debug label.
func (c Compute) Label(label string) Compute {
	c.label = label
	return c
}

// Source sets WGSL library code used by this component.
func (c Compute) Source(wgsl string) Compute {
	c.source = wgsl
	return c
}

// Buffer binds a buffer as a storage array named name.
func (c Compute) Buffer(name string, b BufferResource, opts ...ArgOption) Compute {
	a := newArgument(StageCompute, name, opts)
	a.buffer = b
	c.args = append(slices.Clip(c.args), a)
	return c
}

// Texture binds a texture named name. Compute textures default to
// write-only storage textures.
func (c Compute) Texture(name string, t *Texture, opts ...ArgOption) Compute {
	a := newArgument(StageCompute, name, opts)
	a.texture = t
	c.args = append(slices.Clip(c.args), a)
	return c
}

// Bytes binds a value as a uniform, uploaded every frame. The shader
// variable takes the binding's name.
func (c Compute) Bytes(v Value, opts ...ArgOption) Compute {
	a := newArgument(StageCompute, v.Name(), opts)
	a.value = v
	c.args = append(slices.Clip(c.args), a)
	return c
}

// Uniforms binds a uniforms block as a uniform variable named name.
func (c Compute) Uniforms(u *Uniforms, name string) Compute {
	a := newArgument(StageCompute, name, nil)
	a.uniforms = u
	c.args = append(slices.Clip(c.args), a)
	return c
}

// Grid sets a fixed dispatch size in workgroups.
func (c Compute) Grid(x, y, z int) Compute {
	c.grid = Constant([3]int{x, y, z})
	return c
}

// GridBinding reads the dispatch size in workgroups every frame.
func (c Compute) GridBinding(b *Binding[[3]int]) Compute {
	c.grid = b
	return c
}

// ColorAttachment configures one color output of a render pass. Nil
// bindings take the defaults: clear to opaque black and store.
type ColorAttachment struct {
	// Texture is the render target. A nil texture at index 0 renders to
	// the drawable.
	Texture *Texture

	Load  *Binding[gputypes.LoadOp]
	Store *Binding[gputypes.StoreOp]
	Clear *Binding[Color]

	// Blend is the pipeline blend state. Nil disables blending.
	Blend *gputypes.BlendState

	// WriteMask defaults to all channels.
	WriteMask gputypes.ColorWriteMask
}

func (a ColorAttachment) ops() (gputypes.LoadOp, gputypes.StoreOp, gputypes.Color) {
	return optional(a.Load, gputypes.LoadOpClear),
		optional(a.Store, gputypes.StoreOpStore),
		optional(a.Clear, Black).gpu()
}

type colorSlot struct {
	index      int
	attachment ColorAttachment
}

// DepthStencilAttachment configures the depth/stencil output of a render
// pass. A nil Texture uses the graph's depth/stencil texture.
type DepthStencilAttachment struct {
	Texture *Texture

	DepthLoad  *Binding[gputypes.LoadOp]
	DepthStore *Binding[gputypes.StoreOp]
	DepthClear *Binding[float32]

	StencilLoad  *Binding[gputypes.LoadOp]
	StencilStore *Binding[gputypes.StoreOp]
	StencilClear *Binding[uint32]
}

// StencilFace is the stencil test of one face.
type StencilFace struct {
	Compare     gputypes.CompareFunction
	FailOp      hal.StencilOperation
	DepthFailOp hal.StencilOperation
	PassOp      hal.StencilOperation
}

// DepthStencilState is the depth and stencil test state of a pipeline.
type DepthStencilState struct {
	DepthWrite   bool
	DepthCompare gputypes.CompareFunction

	Front StencilFace
	Back  StencilFace

	// ReadMask and WriteMask default to 0xff.
	ReadMask  uint32
	WriteMask uint32
}

// DepthBias offsets fragment depth values.
type DepthBias struct {
	Constant   int32
	SlopeScale float32
	Clamp      float32
}

// Render draws primitives with a vertex and a fragment entry point.
//
// Vertex data is read from storage buffers indexed by the vertex index;
// no vertex buffer layouts are declared.
type Render struct {
	label    string
	vertex   string
	fragment string
	source   string

	topology    gputypes.PrimitiveTopology
	vertexStart *Binding[int]
	vertexCount *Binding[int]
	instances   *Binding[int]

	index       BufferResource
	indexFormat gputypes.IndexFormat
	indexCount  *Binding[int]
	indexOffset int

	args []argument

	colors     []colorSlot
	depth      *DepthStencilAttachment
	depthState *DepthStencilState
	stencilRef *Binding[uint32]
	viewport   *Binding[Viewport]
	cull       gputypes.CullMode
	bias       DepthBias
}

// NewRender returns a Render component drawing three vertices as a
// triangle list. An empty fragment name makes a depth-only pass.
func NewRender(vertex, fragment string) Render {
	return Render{
		vertex:      vertex,
		fragment:    fragment,
		topology:    gputypes.PrimitiveTopologyTriangleList,
		vertexCount: Constant(3),
	}
}

// Label sets the debug label.
func (r Render) Label(label string) Render {
	r.label = label
	return r
}

// Source sets WGSL library code used by this component.
func (r Render) Source(wgsl string) Render {
	r.source = wgsl
	return r
}

// Primitive sets the primitive topology.
func (r Render) Primitive(t gputypes.PrimitiveTopology) Render {
	r.topology = t
	return r
}

// Vertices draws count vertices starting at start.
func (r Render) Vertices(start, count int) Render {
	r.vertexStart = Constant(start)
	r.vertexCount = Constant(count)
	return r
}

// VertexCount reads the vertex count every frame.
func (r Render) VertexCount(b *Binding[int]) Render {
	r.vertexCount = b
	return r
}

// Instances reads the instance count every frame. The default is one.
func (r Render) Instances(b *Binding[int]) Render {
	r.instances = b
	return r
}

// Indexed draws with an index buffer. count is read every frame.
func (r Render) Indexed(b BufferResource, format gputypes.IndexFormat, count *Binding[int]) Render {
	r.index = b
	r.indexFormat = format
	r.indexCount = count
	return r
}

// IndexOffset sets the first index read from the index buffer.
func (r Render) IndexOffset(n int) Render {
	r.indexOffset = n
	return r
}

func (r Render) add(stage Stage, name string, opts []ArgOption, set func(*argument)) Render {
	a := newArgument(stage, name, opts)
	set(&a)
	r.args = append(slices.Clip(r.args), a)
	return r
}

// VertexBuffer binds a read-only storage buffer to the vertex stage.
func (r Render) VertexBuffer(name string, b BufferResource, opts ...ArgOption) Render {
	return r.add(StageVertex, name, opts, func(a *argument) { a.buffer = b })
}

// VertexTexture binds a sampled texture to the vertex stage.
func (r Render) VertexTexture(name string, t *Texture, opts ...ArgOption) Render {
	return r.add(StageVertex, name, opts, func(a *argument) { a.texture = t })
}

// VertexBytes binds a value as a vertex stage uniform.
func (r Render) VertexBytes(v Value, opts ...ArgOption) Render {
	return r.add(StageVertex, v.Name(), opts, func(a *argument) { a.value = v })
}

// FragmentBuffer binds a storage buffer to the fragment stage.
func (r Render) FragmentBuffer(name string, b BufferResource, opts ...ArgOption) Render {
	return r.add(StageFragment, name, opts, func(a *argument) { a.buffer = b })
}

// FragmentTexture binds a sampled texture to the fragment stage.
func (r Render) FragmentTexture(name string, t *Texture, opts ...ArgOption) Render {
	return r.add(StageFragment, name, opts, func(a *argument) { a.texture = t })
}

// FragmentBytes binds a value as a fragment stage uniform.
func (r Render) FragmentBytes(v Value, opts ...ArgOption) Render {
	return r.add(StageFragment, v.Name(), opts, func(a *argument) { a.value = v })
}

// Uniforms binds a uniforms block visible to both stages.
func (r Render) Uniforms(u *Uniforms, name string) Render {
	return r.add(StageVertex, name, nil, func(a *argument) { a.uniforms = u })
}

// ToTexture renders color attachment index into t. The attachment's
// load, store and clear settings are kept.
func (r Render) ToTexture(t *Texture, index int) Render {
	a, _ := r.attachment(index)
	a.Texture = t
	return r.ColorAttachment(index, a)
}

// ColorAttachment replaces the configuration of color attachment index.
func (r Render) ColorAttachment(index int, a ColorAttachment) Render {
	colors := make([]colorSlot, 0, len(r.colors)+1)
	for _, c := range r.colors {
		if c.index != index {
			colors = append(colors, c)
		}
	}
	colors = append(colors, colorSlot{index: index, attachment: a})
	slices.SortFunc(colors, func(x, y colorSlot) int { return x.index - y.index })
	r.colors = colors
	return r
}

func (r Render) attachment(index int) (ColorAttachment, bool) {
	for _, c := range r.colors {
		if c.index == index {
			return c.attachment, true
		}
	}
	return ColorAttachment{}, false
}

// DepthStencil enables depth/stencil testing against a.
func (r Render) DepthStencil(a DepthStencilAttachment, s DepthStencilState) Render {
	r.depth = &a
	r.depthState = &s
	return r
}

// StencilReference reads the stencil reference value every frame.
func (r Render) StencilReference(b *Binding[uint32]) Render {
	r.stencilRef = b
	return r
}

// Viewport reads the viewport every frame. The default covers color
// attachment 0.
func (r Render) Viewport(b *Binding[Viewport]) Render {
	r.viewport = b
	return r
}

// CullMode sets face culling.
func (r Render) CullMode(m gputypes.CullMode) Render {
	r.cull = m
	return r
}

// DepthBias sets the depth bias of the pipeline.
func (r Render) DepthBias(b DepthBias) Render {
	r.bias = b
	return r
}

// FragmentShader replaces the fragment entry point with fs and adds its
// arguments and source.
func (r Render) FragmentShader(fs FragmentShader) Render {
	r.fragment = fs.function
	if fs.source != "" {
		r.source += "\n" + fs.source
	}
	r.args = append(slices.Clip(r.args), fs.args...)
	return r
}

// FragmentShader is a fragment entry point with its own arguments, merged
// into a Render with Render.FragmentShader.
type FragmentShader struct {
	function string
	source   string
	args     []argument
}

// NewFragmentShader returns a FragmentShader for the entry point function.
func NewFragmentShader(function string) FragmentShader {
	return FragmentShader{function: function}
}

// Source sets WGSL library code containing the entry point.
func (f FragmentShader) Source(wgsl string) FragmentShader {
	f.source = wgsl
	return f
}

func (f FragmentShader) add(name string, opts []ArgOption, set func(*argument)) FragmentShader {
	a := newArgument(StageFragment, name, opts)
	set(&a)
	f.args = append(slices.Clip(f.args), a)
	return f
}

// Buffer binds a storage buffer.
func (f FragmentShader) Buffer(name string, b BufferResource, opts ...ArgOption) FragmentShader {
	return f.add(name, opts, func(a *argument) { a.buffer = b })
}

// Texture binds a sampled texture.
func (f FragmentShader) Texture(name string, t *Texture, opts ...ArgOption) FragmentShader {
	return f.add(name, opts, func(a *argument) { a.texture = t })
}

// Bytes binds a value as a uniform.
func (f FragmentShader) Bytes(v Value, opts ...ArgOption) FragmentShader {
	return f.add(v.Name(), opts, func(a *argument) { a.value = v })
}

// Uniforms binds a uniforms block.
func (f FragmentShader) Uniforms(u *Uniforms, name string) FragmentShader {
	return f.add(name, nil, func(a *argument) { a.uniforms = u })
}

// ClearRender clears a texture, or the drawable, without drawing.
type ClearRender struct {
	label   string
	texture *Texture
	color   *Binding[Color]
	depth   *Binding[float32]
	stencil *Binding[uint32]
}

// NewClearRender returns a ClearRender that clears the drawable to black.
func NewClearRender() ClearRender {
	return ClearRender{}
}

// Label sets the debug label.
func (c ClearRender) Label(label string) ClearRender {
	c.label = label
	return c
}

// Texture clears t instead of the drawable.
func (c ClearRender) Texture(t *Texture) ClearRender {
	c.texture = t
	return c
}

// Color reads the clear color every frame.
func (c ClearRender) Color(b *Binding[Color]) ClearRender {
	c.color = b
	return c
}

// Depth clears the depth aspect of a depth texture to the bound value.
func (c ClearRender) Depth(b *Binding[float32]) ClearRender {
	c.depth = b
	return c
}

// Stencil clears the stencil aspect of a depth/stencil texture.
func (c ClearRender) Stencil(b *Binding[uint32]) ClearRender {
	c.stencil = b
	return c
}

// CopyBuffer copies elements between two buffers with the same stride.
type CopyBuffer struct {
	label     string
	src       BufferResource
	dst       BufferResource
	count     *Binding[int]
	srcOffset *Binding[int]
	dstOffset *Binding[int]
}

// NewCopyBuffer copies all of src into dst.
func NewCopyBuffer(src, dst BufferResource) CopyBuffer {
	return CopyBuffer{src: src, dst: dst}
}

// Label sets the debug label.
func (c CopyBuffer) Label(label string) CopyBuffer {
	c.label = label
	return c
}

// Count reads the number of elements to copy every frame. The count is
// clamped to what the source holds after its offset.
func (c CopyBuffer) Count(b *Binding[int]) CopyBuffer {
	c.count = b
	return c
}

// SourceOffset reads the first source element every frame.
func (c CopyBuffer) SourceOffset(b *Binding[int]) CopyBuffer {
	c.srcOffset = b
	return c
}

// DestinationOffset reads the first destination element every frame.
func (c CopyBuffer) DestinationOffset(b *Binding[int]) CopyBuffer {
	c.dstOffset = b
	return c
}

// Region is a rectangle of texels.
type Region struct {
	X, Y          int
	Width, Height int
}

// CopyTexture copies texels between two textures of the same format.
type CopyTexture struct {
	label  string
	src    *Texture
	dst    *Texture
	region *Binding[Region]
	dstX   int
	dstY   int
}

// NewCopyTexture copies the full extent of src into dst.
func NewCopyTexture(src, dst *Texture) CopyTexture {
	return CopyTexture{src: src, dst: dst}
}

// Label sets the debug label.
func (c CopyTexture) Label(label string) CopyTexture {
	c.label = label
	return c
}

// Region reads the source rectangle every frame.
func (c CopyTexture) Region(b *Binding[Region]) CopyTexture {
	c.region = b
	return c
}

// Destination places the copy at (x, y) in dst.
func (c CopyTexture) Destination(x, y int) CopyTexture {
	c.dstX, c.dstY = x, y
	return c
}

// RunOnHost calls a Go function during encoding. The function may read
// host-visible buffers and call FrameContext.Flush to wait for the GPU.
type RunOnHost struct {
	label string
	fn    func(*FrameContext) error
}

// NewRunOnHost returns a RunOnHost calling fn.
func NewRunOnHost(fn func(*FrameContext) error) RunOnHost {
	return RunOnHost{fn: fn}
}

// Label sets the debug label.
func (h RunOnHost) Label(label string) RunOnHost {
	h.label = label
	return h
}

// Group encodes its children repeat times while active.
type Group struct {
	label    string
	children []Component
	repeat   *Binding[int]
	active   *Binding[bool]
	once     bool
}

// NewGroup returns an active Group encoding children once per frame.
func NewGroup(children ...Component) Group {
	return Group{children: slices.Clone(children)}
}

// Label sets the debug label.
func (g Group) Label(label string) Group {
	g.label = label
	return g
}

// Repeat reads the iteration count every frame.
func (g Group) Repeat(b *Binding[int]) Group {
	g.repeat = b
	return g
}

// Active reads whether the group runs every frame.
func (g Group) Active(b *Binding[bool]) Group {
	g.active = b
	return g
}

// Once deactivates the group after its first evaluation.
func (g Group) Once() Group {
	g.once = true
	return g
}
