package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func TestEntryLayout(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		check func(gputypes.BindGroupLayoutEntry) bool
	}{
		{"uniform", Entry{Kind: EntryUniform}, func(le gputypes.BindGroupLayoutEntry) bool {
			return le.Buffer != nil && le.Buffer.Type == gputypes.BufferBindingTypeUniform
		}},
		{"storage read", Entry{Kind: EntryStorageRead}, func(le gputypes.BindGroupLayoutEntry) bool {
			return le.Buffer != nil && le.Buffer.Type == gputypes.BufferBindingTypeReadOnlyStorage
		}},
		{"storage", Entry{Kind: EntryStorage}, func(le gputypes.BindGroupLayoutEntry) bool {
			return le.Buffer != nil && le.Buffer.Type == gputypes.BufferBindingTypeStorage
		}},
		{"texture", Entry{Kind: EntryTexture}, func(le gputypes.BindGroupLayoutEntry) bool {
			return le.Texture != nil && le.Texture.SampleType == gputypes.TextureSampleTypeFloat
		}},
		{"storage texture", Entry{Kind: EntryStorageTexture, Format: gputypes.TextureFormatRGBA8Unorm}, func(le gputypes.BindGroupLayoutEntry) bool {
			return le.StorageTexture != nil &&
				le.StorageTexture.Access == gputypes.StorageTextureAccessWriteOnly &&
				le.StorageTexture.Format == gputypes.TextureFormatRGBA8Unorm
		}},
		{"sampler", Entry{Kind: EntrySampler}, func(le gputypes.BindGroupLayoutEntry) bool {
			return le.Sampler != nil && le.Sampler.Type == gputypes.SamplerBindingTypeFiltering
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.entry.LayoutEntry()) {
				t.Errorf("LayoutEntry() for %v is wrong: %+v", tt.entry.Kind, tt.entry.LayoutEntry())
			}
		})
	}
}

func TestLayoutFillsLowerGroups(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	var entries [MaxGroups][]Entry
	entries[2] = []Entry{{Binding: 0, Kind: EntryUniform, Visibility: gputypes.ShaderStageFragment}}
	l, err := NewLayout(device, "test", entries)
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	defer l.Destroy(device)

	if l.Groups() != 3 {
		t.Errorf("Groups() = %d, want 3", l.Groups())
	}
	if l.Pipeline() == nil {
		t.Error("Pipeline() is nil")
	}
}

func TestLayoutBind(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	var entries [MaxGroups][]Entry
	entries[0] = []Entry{
		{Binding: 0, Kind: EntryUniform, Visibility: gputypes.ShaderStageCompute},
		{Binding: 1, Kind: EntryStorage, Visibility: gputypes.ShaderStageCompute},
	}
	l, err := NewLayout(device, "bind", entries)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Destroy(device)

	buf, err := device.CreateBuffer(&hal.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageStorage})
	if err != nil {
		t.Fatal(err)
	}
	defer device.DestroyBuffer(buf)

	_, err = l.Bind(device, 0, []Bound{{Binding: 0, Buffer: buf, Size: 16}})
	if !errors.Is(err, ErrUnboundEntry) {
		t.Errorf("Bind() with missing entry error = %v, want ErrUnboundEntry", err)
	}

	bg, err := l.Bind(device, 0, []Bound{
		{Binding: 1, Buffer: buf, Size: 16},
		{Binding: 0, Buffer: buf, Size: 16},
	})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	device.DestroyBindGroup(bg)

	if _, err := l.Bind(device, 3, nil); err == nil {
		t.Error("Bind() out of range should fail")
	}
}
