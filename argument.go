// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/internal/gpu"
	"github.com/gogpu/framegraph/internal/shader"
)

// Stage is the shader stage an argument is declared for.
type Stage int

const (
	// StageCompute is the compute stage.
	StageCompute Stage = iota

	// StageVertex is the vertex stage.
	StageVertex

	// StageFragment is the fragment stage.
	StageFragment
)

// String returns the string representation of Stage.
func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Access is how a shader uses a buffer or texture argument.
type Access int

const (
	// AccessDefault picks read_write for compute buffers, read for render
	// buffers, write for compute textures and sample for render textures.
	AccessDefault Access = iota

	// AccessRead is read-only storage.
	AccessRead

	// AccessWrite is a write-only storage texture.
	AccessWrite

	// AccessReadWrite is read-write storage.
	AccessReadWrite

	// AccessSample is a sampled texture with a filtering sampler.
	AccessSample
)

// String returns the string representation of Access.
func (a Access) String() string {
	switch a {
	case AccessDefault:
		return "default"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read_write"
	case AccessSample:
		return "sample"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// samplerOffset is the distance between a sampled texture binding and the
// binding of its sampler.
const samplerOffset = 16

// ArgOption configures one argument of a component.
type ArgOption func(*argument)

// Slot requests an explicit binding slot.
func Slot(n int) ArgOption {
	return func(a *argument) { a.slot = n }
}

// ReadOnly declares a buffer or storage texture as read-only.
func ReadOnly() ArgOption {
	return func(a *argument) { a.access = AccessRead }
}

// WriteOnly declares a storage texture as write-only.
func WriteOnly() ArgOption {
	return func(a *argument) { a.access = AccessWrite }
}

// ReadWrite declares a buffer or storage texture as read-write.
func ReadWrite() ArgOption {
	return func(a *argument) { a.access = AccessReadWrite }
}

// Sampled declares a texture as sampled. A filtering sampler named
// <name>_sampler is declared next to it.
func Sampled() ArgOption {
	return func(a *argument) { a.access = AccessSample }
}

// FitGrid sizes the compute dispatch grid from this argument's dimensions.
func FitGrid() ArgOption {
	return func(a *argument) { a.gridFit = true }
}

// AsArray wraps a buffer's elements in a struct named structName with a
// fixed-size items array, instead of a runtime-sized array.
func AsArray(structName string) ArgOption {
	return func(a *argument) { a.array = structName }
}

// ArgType overrides the WGSL type of the argument.
func ArgType(wgsl string) ArgOption {
	return func(a *argument) { a.wgslType = wgsl }
}

// argument describes how one resource or value is exposed to a shader.
type argument struct {
	name     string
	stage    Stage
	slot     int
	access   Access
	gridFit  bool
	array    string
	wgslType string

	buffer   BufferResource
	texture  *Texture
	value    Value
	uniforms *Uniforms
}

func newArgument(stage Stage, name string, opts []ArgOption) argument {
	a := argument{name: name, stage: stage, slot: -1}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a argument) isTexture() bool { return a.texture != nil }

func (a argument) resource() Resource {
	switch {
	case a.buffer != nil:
		return a.buffer
	case a.texture != nil:
		return a.texture
	case a.uniforms != nil:
		return a.uniforms.buffer
	}
	return nil
}

// effectiveAccess resolves AccessDefault for the argument's stage and kind.
func (a argument) effectiveAccess() Access {
	if a.access != AccessDefault {
		return a.access
	}
	switch {
	case a.isTexture() && a.stage == StageCompute:
		return AccessWrite
	case a.isTexture():
		return AccessSample
	case a.stage == StageCompute:
		return AccessReadWrite
	default:
		return AccessRead
	}
}

// slotKind separates buffer and texture slot numbering.
type slotKind int

const (
	slotBuffer slotKind = iota
	slotTexture
)

type slotSpace struct {
	stage Stage
	kind  slotKind
}

// group returns the bind group index of a slot space. Compute and vertex
// share groups 0 and 1 since they never meet in one pipeline.
func (s slotSpace) group() uint32 {
	g := uint32(0)
	if s.stage == StageFragment {
		g = 2
	}
	if s.kind == slotTexture {
		g++
	}
	return g
}

// slotAllocator assigns binding slots per (stage, kind). Explicit slots are
// reserved first; automatic slots are assigned in registration order and
// skip every reserved slot.
type slotAllocator struct {
	taken map[slotSpace]*roaring.Bitmap
	next  map[slotSpace]uint32
}

func newSlotAllocator() *slotAllocator {
	return &slotAllocator{
		taken: make(map[slotSpace]*roaring.Bitmap),
		next:  make(map[slotSpace]uint32),
	}
}

func (a *slotAllocator) bitmap(sp slotSpace) *roaring.Bitmap {
	bm, ok := a.taken[sp]
	if !ok {
		bm = roaring.New()
		a.taken[sp] = bm
	}
	return bm
}

// reserve marks slots as taken. It reports false if any was already taken,
// in which case nothing is reserved.
func (a *slotAllocator) reserve(sp slotSpace, slots ...uint32) bool {
	bm := a.bitmap(sp)
	for _, s := range slots {
		if bm.Contains(s) {
			return false
		}
	}
	for _, s := range slots {
		bm.Add(s)
	}
	return true
}

// assign returns the lowest free slot at or above the auto counter. When
// paired is set the slot s+samplerOffset must be free as well.
func (a *slotAllocator) assign(sp slotSpace, paired bool) uint32 {
	bm := a.bitmap(sp)
	s := a.next[sp]
	for bm.Contains(s) || (paired && bm.Contains(s+samplerOffset)) {
		s++
	}
	bm.Add(s)
	if paired {
		bm.Add(s + samplerOffset)
	}
	a.next[sp] = s + 1
	return s
}

// boundArg is an argument with its slot resolved.
type boundArg struct {
	argument
	group   uint32
	binding uint32
}

func (b boundArg) space() slotSpace {
	k := slotBuffer
	if b.isTexture() {
		k = slotTexture
	}
	return slotSpace{stage: b.stage, kind: k}
}

// assignSlots resolves slots for one component's arguments. Explicit slots
// are reserved before any automatic assignment.
func assignSlots(owner string, args []argument) ([]boundArg, error) {
	alloc := newSlotAllocator()
	out := make([]boundArg, len(args))
	gridSeen := false
	for i, a := range args {
		out[i] = boundArg{argument: a}
		if a.gridFit {
			if gridSeen {
				return nil, &ArgumentBufferError{Kind: DuplicateGridFit, Buffer: owner, Argument: a.name}
			}
			gridSeen = true
		}
		if a.slot < 0 {
			continue
		}
		sp := out[i].space()
		slots := []uint32{uint32(a.slot)} //nolint:gosec // checked non-negative
		if a.isTexture() && a.effectiveAccess() == AccessSample {
			slots = append(slots, uint32(a.slot)+samplerOffset) //nolint:gosec // checked non-negative
		}
		if !alloc.reserve(sp, slots...) {
			return nil, &ArgumentBufferError{Kind: ConflictingDescriptors, Buffer: owner, Argument: a.name}
		}
		out[i].binding = uint32(a.slot) //nolint:gosec // checked non-negative
	}
	for i := range out {
		sp := out[i].space()
		if out[i].slot < 0 {
			paired := out[i].isTexture() && out[i].effectiveAccess() == AccessSample
			out[i].binding = alloc.assign(sp, paired)
		}
		out[i].group = sp.group()
	}
	return out, nil
}

// entries returns the bind group layout entries of the argument. A sampled
// texture contributes its sampler too.
func (b boundArg) entries(visibility gputypes.ShaderStages, surface gputypes.TextureFormat) []gpu.Entry {
	e := gpu.Entry{Binding: b.binding, Visibility: visibility}
	switch {
	case b.value != nil || b.uniforms != nil:
		e.Kind = gpu.EntryUniform
	case b.buffer != nil && b.effectiveAccess() == AccessRead:
		e.Kind = gpu.EntryStorageRead
	case b.buffer != nil:
		e.Kind = gpu.EntryStorage
	case b.effectiveAccess() == AccessSample:
		e.Kind = gpu.EntryTexture
		if b.texture.format.Resolve(surface).IsDepthStencil() {
			e.SampleType = gputypes.TextureSampleTypeDepth
		}
		return []gpu.Entry{e, {Binding: b.binding + samplerOffset, Kind: gpu.EntrySampler, Visibility: visibility}}
	default:
		e.Kind = gpu.EntryStorageTexture
		e.Format = b.texture.format.Resolve(surface)
		e.Access = storageAccess(b.effectiveAccess())
	}
	return []gpu.Entry{e}
}

func storageAccess(a Access) gputypes.StorageTextureAccess {
	switch a {
	case AccessRead:
		return gputypes.StorageTextureAccessReadOnly
	case AccessReadWrite:
		return gputypes.StorageTextureAccessReadWrite
	default:
		return gputypes.StorageTextureAccessWriteOnly
	}
}

// declare produces the WGSL declarations of the argument. surface resolves
// surface-derived texture formats.
func (b boundArg) declare(owner string, surface gputypes.TextureFormat) ([]shader.Struct, []shader.Binding, error) {
	if b.name == "" {
		return nil, nil, &ArgumentBufferError{Kind: NoArgumentWithName, Buffer: owner, Argument: fmt.Sprintf("@binding(%d)", b.binding)}
	}
	uncastable := &ArgumentBufferError{Kind: ResourceUncastable, Buffer: owner, Argument: b.name}
	decl := shader.Binding{Group: b.group, Slot: b.binding, Name: b.name, Type: b.wgslType}

	switch {
	case b.uniforms != nil:
		decl.Space = shader.SpaceUniform
		if decl.Type == "" {
			decl.Type = b.uniforms.TypeName()
		}
		return []shader.Struct{b.uniforms.Struct()}, []shader.Binding{decl}, nil

	case b.value != nil:
		decl.Space = shader.SpaceUniform
		if decl.Type == "" {
			decl.Type = b.value.WGSLType()
		}
		if decl.Type == "" {
			return nil, nil, uncastable
		}
		return nil, []shader.Binding{decl}, nil

	case b.buffer != nil:
		decl.Space = shader.SpaceStorageReadWrite
		if b.effectiveAccess() == AccessRead {
			decl.Space = shader.SpaceStorageRead
		}
		elem := b.buffer.ElementType()
		if b.array != "" {
			if elem == "" {
				return nil, nil, uncastable
			}
			decl.Type = b.array
			return []shader.Struct{shader.ArrayStruct(b.array, elem, b.buffer.Len())}, []shader.Binding{decl}, nil
		}
		if decl.Type == "" {
			if elem == "" {
				return nil, nil, uncastable
			}
			decl.Type = "array<" + elem + ">"
		}
		return nil, []shader.Binding{decl}, nil
	}

	decl.Space = shader.SpaceHandle
	format := b.texture.format.Resolve(surface)
	if b.effectiveAccess() == AccessSample {
		if decl.Type == "" {
			decl.Type = "texture_2d<f32>"
			if format.IsDepthStencil() {
				decl.Type = "texture_depth_2d"
			}
		}
		sampler := shader.Binding{
			Group: b.group, Slot: b.binding + samplerOffset,
			Name: b.name + "_sampler", Type: "sampler", Space: shader.SpaceHandle,
		}
		return nil, []shader.Binding{decl, sampler}, nil
	}
	if decl.Type == "" {
		texel, ok := storageTexelFormats[format]
		if !ok {
			return nil, nil, uncastable
		}
		decl.Type = fmt.Sprintf("texture_storage_2d<%s, %s>", texel, b.effectiveAccess())
	}
	return nil, []shader.Binding{decl}, nil
}

// declarationBlock builds the declaration block of a component's arguments.
func declarationBlock(owner string, args []boundArg, surface gputypes.TextureFormat) (shader.Block, error) {
	var block shader.Block
	for _, a := range args {
		structs, bindings, err := a.declare(owner, surface)
		if err != nil {
			return shader.Block{}, err
		}
		block.Structs = append(block.Structs, structs...)
		block.Bindings = append(block.Bindings, bindings...)
	}
	return block, nil
}
