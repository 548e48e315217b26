// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/gogpu/framegraph/internal/gpu"
)

// ErrSnapshotFormat is returned by Snapshot for textures that are not 8-bit
// RGBA or BGRA.
var ErrSnapshotFormat = errors.New("framegraph: texture format cannot be snapshotted")

// copyRowAlignment is the required BytesPerRow alignment of texture to
// buffer copies.
const copyRowAlignment = 256

// Snapshot copies t back to host memory. It blocks until the copy
// completes. t must have been created with CopySrc usage, which is the
// default for color textures.
func Snapshot(ctx context.Context, device hal.Device, queue hal.Queue, t *Texture) (*image.RGBA, error) {
	if !t.Created() {
		return nil, fmt.Errorf("framegraph: snapshot %s: %w", describe(t.ID(), t.Label()), ErrResourceNotCreated)
	}
	bgra, ok := snapshotFormat(t.Format())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotFormat, t.Format())
	}
	w, h := t.Size()
	rowBytes := uint64(w) * 4 //nolint:gosec // texture sizes are positive
	bytesPerRow := alignUp(rowBytes, copyRowAlignment)
	size := bytesPerRow * uint64(h) //nolint:gosec // texture sizes are positive

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "snapshot",
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot buffer: %w", err)
	}
	defer device.DestroyBuffer(staging)

	s, err := gpu.Begin(device, "snapshot")
	if err != nil {
		return nil, &EncodeError{Kind: NoCommandBuffer, Err: err}
	}
	s.Encoder().CopyTextureToBuffer(t.Raw(), staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: uint32(bytesPerRow), RowsPerImage: uint32(h)}, //nolint:gosec // bounded by texture limits
		TextureBase:  hal.ImageCopyTexture{Texture: t.Raw(), Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // texture sizes are positive
	}})
	index, err := s.Submit(queue)
	if err != nil {
		return nil, err
	}
	defer s.Free()
	if err := gpu.Wait(ctx, device, queue, index); err != nil {
		return nil, err
	}

	m, err := device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map snapshot buffer: %w", err)
	}
	data := unsafe.Slice((*byte)(m.Ptr), size)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := data[uint64(y)*bytesPerRow : uint64(y)*bytesPerRow+rowBytes] //nolint:gosec // y is non-negative
		copy(img.Pix[y*img.Stride:], row)
	}
	if err := device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap snapshot buffer: %w", err)
	}
	if bgra {
		swizzle(img.Pix)
	}
	return img, nil
}

func snapshotFormat(f gputypes.TextureFormat) (bgra, ok bool) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return false, true
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return true, true
	}
	return false, false
}

// swizzle converts BGRA pixels to RGBA in place.
func swizzle(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

// ScaleImage resamples img to width by height.
func ScaleImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// EncodeImage writes img in the format named by the extension of path:
// .png, .tif/.tiff or .bmp.
func EncodeImage(w io.Writer, path string, img image.Image) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return png.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("framegraph: unsupported image extension %q", ext)
	}
}
