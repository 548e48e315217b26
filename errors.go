// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors report errors.Is against the sentinel of
// their kind, so callers can test either way.
var (
	// ErrLibraryCompile matches a BuildError of kind LibraryCompileError.
	ErrLibraryCompile = errors.New("framegraph: shader library failed to compile")

	// ErrPassSetup matches a BuildError of kind PassSetupError.
	ErrPassSetup = errors.New("framegraph: pass setup failed")

	// ErrTextureCreate matches a BuildError of kind TextureCreateError.
	ErrTextureCreate = errors.New("framegraph: texture creation failed")

	// ErrResourceNotCreated matches a BuildError of kind ResourceNotCreated.
	ErrResourceNotCreated = errors.New("framegraph: resource has no allocation")

	// ErrNoCommandBuffer matches an EncodeError of kind NoCommandBuffer.
	ErrNoCommandBuffer = errors.New("framegraph: no command buffer available")

	// ErrNoRenderEncoder matches an EncodeError of kind NoRenderEncoder.
	ErrNoRenderEncoder = errors.New("framegraph: render encoder unavailable")

	// ErrMissingAttachment matches an EncodeError of kind MissingAttachment.
	ErrMissingAttachment = errors.New("framegraph: attachment has no output")

	// ErrAllocationFailed matches a ResourceError of kind AllocationFailed.
	ErrAllocationFailed = errors.New("framegraph: allocation failed")

	// ErrUnresolvedFormat matches a ResourceError of kind UnresolvedFormat.
	ErrUnresolvedFormat = errors.New("framegraph: pixel format unresolved")

	// ErrZeroSize matches a ResourceError of kind ZeroSize.
	ErrZeroSize = errors.New("framegraph: resolved size is zero")

	// ErrNoArgument matches an ArgumentBufferError of kind NoArgumentWithName.
	ErrNoArgument = errors.New("framegraph: no argument with that name")

	// ErrUncastable matches an ArgumentBufferError of kind ResourceUncastable.
	ErrUncastable = errors.New("framegraph: resource is uncastable")

	// ErrConflictingDescriptors matches an ArgumentBufferError of kind
	// ConflictingDescriptors.
	ErrConflictingDescriptors = errors.New("framegraph: conflicting argument descriptors")

	// ErrDuplicateGridFit matches an ArgumentBufferError of kind DuplicateGridFit.
	ErrDuplicateGridFit = errors.New("framegraph: grid fit set twice")

	// ErrGraphClosed is returned by Draw and Resize after Close.
	ErrGraphClosed = errors.New("framegraph: graph is closed")

	// ErrNoDevice is returned when a DeviceHandle exposes no hal device.
	ErrNoDevice = errors.New("framegraph: device handle has no hal device")
)

// BuildErrorKind classifies a BuildError.
type BuildErrorKind int

const (
	// LibraryCompileError means the accumulated shader source did not compile.
	LibraryCompileError BuildErrorKind = iota

	// PassSetupError means a pass failed its one-time setup.
	PassSetupError

	// TextureCreateError means a texture could not be materialized.
	TextureCreateError

	// ResourceNotCreated means a referenced buffer has no allocation and
	// nothing to create one from.
	ResourceNotCreated
)

// String returns the string representation of BuildErrorKind.
func (k BuildErrorKind) String() string {
	switch k {
	case LibraryCompileError:
		return "LibraryCompileError"
	case PassSetupError:
		return "PassSetupError"
	case TextureCreateError:
		return "TextureCreateError"
	case ResourceNotCreated:
		return "ResourceNotCreated"
	default:
		return fmt.Sprintf("BuildErrorKind(%d)", int(k))
	}
}

var buildSentinels = map[BuildErrorKind]error{
	LibraryCompileError: ErrLibraryCompile,
	PassSetupError:      ErrPassSetup,
	TextureCreateError:  ErrTextureCreate,
	ResourceNotCreated:  ErrResourceNotCreated,
}

// BuildError aborts graph construction. No partial graph is returned with it.
type BuildError struct {
	Kind BuildErrorKind

	// Index is the pass index for PassSetupError.
	Index int

	// Resource identifies the container for TextureCreateError and
	// ResourceNotCreated.
	Resource ResourceID

	// Label is the container label, if any.
	Label string

	Err error
}

func (e *BuildError) Error() string {
	var msg string
	switch e.Kind {
	case PassSetupError:
		msg = fmt.Sprintf("framegraph: setup of pass %d failed", e.Index)
	case TextureCreateError:
		msg = fmt.Sprintf("framegraph: texture %s could not be created", describe(e.Resource, e.Label))
	case ResourceNotCreated:
		msg = fmt.Sprintf("framegraph: buffer %s was not created", describe(e.Resource, e.Label))
	default:
		msg = "framegraph: shader library failed to compile"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *BuildError) Is(target error) bool { return buildSentinels[e.Kind] == target }

// EncodeErrorKind classifies an EncodeError.
type EncodeErrorKind int

const (
	// NoCommandBuffer means no command encoder could be obtained.
	NoCommandBuffer EncodeErrorKind = iota

	// NoRenderEncoder means a render pass could not be started.
	NoRenderEncoder

	// MissingAttachment means an attachment has neither a texture nor a
	// fallback: the drawable for color attachment 0, the graph's
	// depth/stencil texture for the depth/stencil attachment.
	MissingAttachment
)

// String returns the string representation of EncodeErrorKind.
func (k EncodeErrorKind) String() string {
	switch k {
	case NoCommandBuffer:
		return "NoCommandBuffer"
	case NoRenderEncoder:
		return "NoRenderEncoder"
	case MissingAttachment:
		return "MissingAttachment"
	default:
		return fmt.Sprintf("EncodeErrorKind(%d)", int(k))
	}
}

var encodeSentinels = map[EncodeErrorKind]error{
	NoCommandBuffer:   ErrNoCommandBuffer,
	NoRenderEncoder:   ErrNoRenderEncoder,
	MissingAttachment: ErrMissingAttachment,
}

// EncodeError aborts the current frame. The graph stays usable.
type EncodeError struct {
	Kind EncodeErrorKind

	// Attachment is the color attachment index for MissingAttachment, or
	// -1 for the depth/stencil attachment.
	Attachment int

	Err error
}

func (e *EncodeError) Error() string {
	var msg string
	switch e.Kind {
	case NoRenderEncoder:
		msg = "framegraph: render encoder unavailable"
	case MissingAttachment:
		if e.Attachment < 0 {
			msg = "framegraph: depth/stencil attachment has no output"
		} else {
			msg = fmt.Sprintf("framegraph: color attachment %d has no output", e.Attachment)
		}
	default:
		msg = "framegraph: no command buffer available"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *EncodeError) Is(target error) bool { return encodeSentinels[e.Kind] == target }

// ResourceErrorKind classifies a ResourceError.
type ResourceErrorKind int

const (
	// AllocationFailed means the device refused the allocation.
	AllocationFailed ResourceErrorKind = iota

	// UnresolvedFormat means a surface-derived format had no surface format.
	UnresolvedFormat

	// ZeroSize means the resolved size or element count is not positive.
	ZeroSize
)

// String returns the string representation of ResourceErrorKind.
func (k ResourceErrorKind) String() string {
	switch k {
	case AllocationFailed:
		return "AllocationFailed"
	case UnresolvedFormat:
		return "UnresolvedFormat"
	case ZeroSize:
		return "ZeroSize"
	default:
		return fmt.Sprintf("ResourceErrorKind(%d)", int(k))
	}
}

var resourceSentinels = map[ResourceErrorKind]error{
	AllocationFailed: ErrAllocationFailed,
	UnresolvedFormat: ErrUnresolvedFormat,
	ZeroSize:         ErrZeroSize,
}

// ResourceError reports a failed materialization. The container keeps its
// previous allocation.
type ResourceError struct {
	Kind     ResourceErrorKind
	Resource ResourceID
	Label    string
	Err      error
}

func (e *ResourceError) Error() string {
	var msg string
	switch e.Kind {
	case UnresolvedFormat:
		msg = fmt.Sprintf("framegraph: %s: surface format is undefined", describe(e.Resource, e.Label))
	case ZeroSize:
		msg = fmt.Sprintf("framegraph: %s: resolved size is zero", describe(e.Resource, e.Label))
	default:
		msg = fmt.Sprintf("framegraph: %s: allocation failed", describe(e.Resource, e.Label))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResourceError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *ResourceError) Is(target error) bool { return resourceSentinels[e.Kind] == target }

// ArgumentBufferErrorKind classifies an ArgumentBufferError.
type ArgumentBufferErrorKind int

const (
	// NoArgumentWithName means a lookup by argument name failed.
	NoArgumentWithName ArgumentBufferErrorKind = iota

	// ResourceUncastable means a resource cannot be bound as the requested
	// argument kind.
	ResourceUncastable

	// ConflictingDescriptors means two argument structs share a name but
	// declare different members.
	ConflictingDescriptors

	// DuplicateGridFit means two arguments of one compute component both
	// claim to size the dispatch grid.
	DuplicateGridFit
)

// String returns the string representation of ArgumentBufferErrorKind.
func (k ArgumentBufferErrorKind) String() string {
	switch k {
	case NoArgumentWithName:
		return "NoArgumentWithName"
	case ResourceUncastable:
		return "ResourceUncastable"
	case ConflictingDescriptors:
		return "ConflictingDescriptors"
	case DuplicateGridFit:
		return "DuplicateGridFit"
	default:
		return fmt.Sprintf("ArgumentBufferErrorKind(%d)", int(k))
	}
}

var argumentSentinels = map[ArgumentBufferErrorKind]error{
	NoArgumentWithName:     ErrNoArgument,
	ResourceUncastable:     ErrUncastable,
	ConflictingDescriptors: ErrConflictingDescriptors,
	DuplicateGridFit:       ErrDuplicateGridFit,
}

// ArgumentBufferError reports an inconsistent argument declaration.
type ArgumentBufferError struct {
	Kind ArgumentBufferErrorKind

	// Buffer is the argument group or struct name.
	Buffer string

	// Argument is the argument or resource name.
	Argument string
}

func (e *ArgumentBufferError) Error() string {
	switch e.Kind {
	case NoArgumentWithName:
		return fmt.Sprintf("framegraph: argument buffer %s has no argument %s", e.Buffer, e.Argument)
	case ResourceUncastable:
		return fmt.Sprintf("framegraph: argument buffer %s: resource %s is uncastable", e.Buffer, e.Argument)
	case ConflictingDescriptors:
		return fmt.Sprintf("framegraph: two argument buffers named %q with different descriptors", e.Buffer)
	case DuplicateGridFit:
		return fmt.Sprintf("framegraph: grid fit is set twice by argument %q", e.Argument)
	default:
		return "framegraph: argument buffer error"
	}
}

// Is reports whether target is the sentinel of e's kind.
func (e *ArgumentBufferError) Is(target error) bool { return argumentSentinels[e.Kind] == target }

func describe(id ResourceID, label string) string {
	if label != "" {
		return fmt.Sprintf("%q (#%d)", label, id)
	}
	return fmt.Sprintf("#%d", id)
}
