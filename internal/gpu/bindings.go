package gpu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// MaxGroups is the number of bind groups a pipeline layout may use.
const MaxGroups = 4

// ErrUnboundEntry is returned when a bind group is assembled without a
// resource for one of its layout entries.
var ErrUnboundEntry = errors.New("gpu: layout entry has no bound resource")

// EntryKind selects the binding layout of an Entry.
type EntryKind int

const (
	// EntryUniform is a uniform buffer.
	EntryUniform EntryKind = iota

	// EntryStorageRead is a read-only storage buffer.
	EntryStorageRead

	// EntryStorage is a read-write storage buffer.
	EntryStorage

	// EntryTexture is a sampled texture.
	EntryTexture

	// EntryStorageTexture is a storage texture.
	EntryStorageTexture

	// EntrySampler is a filtering sampler.
	EntrySampler
)

// String returns the string representation of EntryKind.
func (k EntryKind) String() string {
	switch k {
	case EntryUniform:
		return "Uniform"
	case EntryStorageRead:
		return "StorageRead"
	case EntryStorage:
		return "Storage"
	case EntryTexture:
		return "Texture"
	case EntryStorageTexture:
		return "StorageTexture"
	case EntrySampler:
		return "Sampler"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// Entry describes one slot of a bind group layout.
type Entry struct {
	Binding    uint32
	Kind       EntryKind
	Visibility gputypes.ShaderStages

	// Format and Access apply to storage textures.
	Format gputypes.TextureFormat
	Access gputypes.StorageTextureAccess

	// SampleType applies to sampled textures. Zero means float.
	SampleType gputypes.TextureSampleType
}

// LayoutEntry converts e into a hal layout entry.
func (e Entry) LayoutEntry() gputypes.BindGroupLayoutEntry {
	le := gputypes.BindGroupLayoutEntry{Binding: e.Binding, Visibility: e.Visibility}
	switch e.Kind {
	case EntryUniform:
		le.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case EntryStorageRead:
		le.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	case EntryStorage:
		le.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case EntryTexture:
		st := e.SampleType
		if st == 0 {
			st = gputypes.TextureSampleTypeFloat
		}
		le.Texture = &gputypes.TextureBindingLayout{
			SampleType:    st,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case EntryStorageTexture:
		access := e.Access
		if access == 0 {
			access = gputypes.StorageTextureAccessWriteOnly
		}
		le.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        access,
			Format:        e.Format,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case EntrySampler:
		le.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	}
	return le
}

// Bound is the resource bound to one binding of a group.
type Bound struct {
	Binding uint32

	Buffer hal.Buffer
	Offset uint64
	Size   uint64

	View    hal.TextureView
	Sampler hal.Sampler
}

func (b Bound) groupEntry() (gputypes.BindGroupEntry, bool) {
	switch {
	case b.Buffer != nil:
		return gputypes.BindGroupEntry{Binding: b.Binding, Resource: gputypes.BufferBinding{
			Buffer: b.Buffer.NativeHandle(), Offset: b.Offset, Size: b.Size,
		}}, true
	case b.View != nil:
		return gputypes.BindGroupEntry{Binding: b.Binding, Resource: gputypes.TextureViewBinding{
			TextureView: b.View.NativeHandle(),
		}}, true
	case b.Sampler != nil:
		return gputypes.BindGroupEntry{Binding: b.Binding, Resource: gputypes.SamplerBinding{
			Sampler: b.Sampler.NativeHandle(),
		}}, true
	}
	return gputypes.BindGroupEntry{}, false
}

// Layout owns the bind group layouts and the pipeline layout of one pipeline.
// Groups below the highest used index get empty layouts.
type Layout struct {
	label    string
	entries  [MaxGroups][]Entry
	groups   []hal.BindGroupLayout
	pipeline hal.PipelineLayout
}

// NewLayout creates bind group layouts for entries (indexed by group) and
// a pipeline layout referencing them.
func NewLayout(device hal.Device, label string, entries [MaxGroups][]Entry) (*Layout, error) {
	l := &Layout{label: label, entries: entries}
	used := 0
	for g := range entries {
		if len(entries[g]) > 0 {
			used = g + 1
		}
	}

	for g := 0; g < used; g++ {
		sorted := append([]Entry(nil), entries[g]...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Binding < sorted[j].Binding })
		les := make([]gputypes.BindGroupLayoutEntry, 0, len(sorted))
		for _, e := range sorted {
			les = append(les, e.LayoutEntry())
		}
		bgl, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", label, g),
			Entries: les,
		})
		if err != nil {
			l.Destroy(device)
			return nil, fmt.Errorf("create bind group layout %d: %w", g, err)
		}
		l.groups = append(l.groups, bgl)
	}

	pl, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: l.groups,
	})
	if err != nil {
		l.Destroy(device)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	l.pipeline = pl
	slogger().Debug("gpu: pipeline layout created", "label", label, "groups", used)
	return l, nil
}

// Pipeline returns the pipeline layout.
func (l *Layout) Pipeline() hal.PipelineLayout { return l.pipeline }

// Groups returns the number of bind group layouts.
func (l *Layout) Groups() int { return len(l.groups) }

// Bind creates a bind group for group index g from bound. Every entry of the
// group's layout must be bound.
func (l *Layout) Bind(device hal.Device, g int, bound []Bound) (hal.BindGroup, error) {
	if g < 0 || g >= len(l.groups) {
		return nil, fmt.Errorf("gpu: bind group %d out of range [0, %d)", g, len(l.groups))
	}
	byBinding := make(map[uint32]Bound, len(bound))
	for _, b := range bound {
		byBinding[b.Binding] = b
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(l.entries[g]))
	for _, e := range l.entries[g] {
		b, ok := byBinding[e.Binding]
		if !ok {
			return nil, fmt.Errorf("%w: group %d binding %d", ErrUnboundEntry, g, e.Binding)
		}
		ge, ok := b.groupEntry()
		if !ok {
			return nil, fmt.Errorf("%w: group %d binding %d", ErrUnboundEntry, g, e.Binding)
		}
		entries = append(entries, ge)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })

	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s_bind%d", l.label, g),
		Layout:  l.groups[g],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %d: %w", g, err)
	}
	return bg, nil
}

// Destroy releases the pipeline layout and bind group layouts.
func (l *Layout) Destroy(device hal.Device) {
	if l == nil || device == nil {
		return
	}
	if l.pipeline != nil {
		device.DestroyPipelineLayout(l.pipeline)
		l.pipeline = nil
	}
	for _, g := range l.groups {
		if g != nil {
			device.DestroyBindGroupLayout(g)
		}
	}
	l.groups = nil
}
