// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestSnapshot(t *testing.T) {
	dev, queue := newRecordingDevice(t)
	tex := NewTexture(WithSize(FixedSize(70, 3)), WithFormat(FixedFormat(gputypes.TextureFormatBGRA8Unorm)))
	if err := tex.Materialize(dev, SizeContext{}); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	defer tex.release()

	img, err := Snapshot(context.Background(), dev, queue, tex)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 70, 3) {
		t.Errorf("Bounds() = %v, want 70x3", got)
	}
	if got := dev.rec.snapshot().buffers; got != 0 {
		t.Errorf("staging buffers left = %d, want 0", got)
	}
}

func TestSnapshotErrors(t *testing.T) {
	dev, queue := newRecordingDevice(t)
	if _, err := Snapshot(context.Background(), dev, queue, fixedTexture(2, 2)); !errors.Is(err, ErrResourceNotCreated) {
		t.Errorf("Snapshot(uncreated) = %v, want ErrResourceNotCreated", err)
	}

	tex := NewTexture(WithSize(FixedSize(2, 2)), WithFormat(FixedFormat(gputypes.TextureFormatR32Float)))
	if err := tex.Materialize(dev, SizeContext{}); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	defer tex.release()
	if _, err := Snapshot(context.Background(), dev, queue, tex); !errors.Is(err, ErrSnapshotFormat) {
		t.Errorf("Snapshot(R32Float) = %v, want ErrSnapshotFormat", err)
	}
}

func TestSwizzle(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	swizzle(pix)
	want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
	if !bytes.Equal(pix, want) {
		t.Errorf("swizzle = %v, want %v", pix, want)
	}
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
		img.Set(x, 1, color.RGBA{B: 255, A: 255})
	}
	return img
}

func TestEncodeImage(t *testing.T) {
	decoders := map[string]func(*bytes.Reader) (image.Image, error){
		"out.png":  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		"out.TIFF": func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
		"out.tif":  func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
		"out.bmp":  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
	}
	src := testImage()
	for path, decode := range decoders {
		t.Run(path, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeImage(&buf, path, src); err != nil {
				t.Fatalf("EncodeImage: %v", err)
			}
			img, err := decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 2 {
				t.Errorf("decoded bounds = %v, want 4x2", img.Bounds())
			}
			r, _, b, _ := img.At(0, 1).RGBA()
			if r != 0 || b != 0xffff {
				t.Errorf("pixel (0,1) = r %#x b %#x, want blue", r, b)
			}
		})
	}

	if err := EncodeImage(&bytes.Buffer{}, "out.jpg", src); err == nil {
		t.Error("EncodeImage(.jpg) succeeded, want error")
	}
}

func TestScaleImage(t *testing.T) {
	img := ScaleImage(testImage(), 8, 4)
	if got := img.Bounds(); got != image.Rect(0, 0, 8, 4) {
		t.Errorf("Bounds() = %v, want 8x4", got)
	}
	r, _, _, _ := img.At(3, 0).RGBA()
	if r < 0x8000 {
		t.Errorf("top row red = %#x, want mostly red", r)
	}
}
