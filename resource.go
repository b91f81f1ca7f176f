package prism

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Handles index into the arena's slot tables. The zero value is invalid, so a
// forgotten handle fails loudly instead of aliasing slot 0.
type (
	BufferHandle    uint32
	TextureHandle   uint32
	BindGroupHandle uint32
)

// uniformWriter is the write half of a wgpu queue. CPU-side state with a GPU
// mirror (camera, light, instances) syncs through this seam so tests can count
// writes without a device.
type uniformWriter interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// bufferAllocator creates writable GPU buffers of a fixed size. Implemented by
// ResourceArena; mocked in tests.
type bufferAllocator interface {
	CreateRawBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
}

type textureSlot struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// ResourceArena owns every long-lived GPU resource: buffers, textures and bind
// groups live in indexed slot tables, and meshes/materials hold handles rather
// than raw pointers, so drop order is irrelevant. Nothing is evicted; the arena
// is torn down once, with the engine.
type ResourceArena struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	buffers    []*wgpu.Buffer
	textures   []textureSlot
	bindGroups []*wgpu.BindGroup
}

func NewResourceArena(device *wgpu.Device, queue *wgpu.Queue) *ResourceArena {
	return &ResourceArena{device: device, queue: queue}
}

// CreateBuffer uploads data into a new GPU buffer. The byte length is fixed at
// creation: later writes may not grow it, only recreate it.
func (a *ResourceArena) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (BufferHandle, error) {
	buf, err := a.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return 0, fmt.Errorf("create buffer %q: %w", label, err)
	}
	a.buffers = append(a.buffers, buf)
	return BufferHandle(len(a.buffers)), nil
}

// CreateRawBuffer creates an empty buffer of the given size, outside the slot
// table. Used for buffers whose lifetime is managed by their owner (the
// per-object instance buffer, which is recreated when the count changes).
func (a *ResourceArena) CreateRawBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return buf, nil
}

func bytesPerPixel(format wgpu.TextureFormat) (uint32, error) {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb:
		return 4, nil
	case wgpu.TextureFormatR8Unorm:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: texture format %v", ErrUnsupportedFormat, format)
}

// validateTextureData checks pixel length against the declared dimensions
// before any GPU allocation happens.
func validateTextureData(pixels []byte, width, height uint32, format wgpu.TextureFormat) error {
	bpp, err := bytesPerPixel(format)
	if err != nil {
		return err
	}
	want := int(width) * int(height) * int(bpp)
	if len(pixels) != want {
		return fmt.Errorf("%w: got %d bytes for %dx%d (want %d)",
			ErrInvalidTextureData, len(pixels), width, height, want)
	}
	return nil
}

// CreateTexture uploads pixels into a new sampled 2D texture with a linear
// clamping sampler. Fails with ErrInvalidTextureData before touching the
// device if the pixel length does not match width*height*bpp.
func (a *ResourceArena) CreateTexture(label string, pixels []byte, width, height uint32, format wgpu.TextureFormat) (TextureHandle, error) {
	if err := validateTextureData(pixels, width, height, format); err != nil {
		return 0, err
	}

	extent := wgpu.Extent3D{
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
	}
	tex, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("create texture %q: %w", label, err)
	}

	bpp, _ := bytesPerPixel(format)
	err = a.queue.WriteTexture(
		tex.AsImageCopy(),
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * bpp,
			RowsPerImage: height,
		},
		&extent,
	)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("write texture %q: %w", label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("create texture view %q: %w", label, err)
	}
	sampler, err := a.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return 0, fmt.Errorf("create sampler %q: %w", label, err)
	}

	a.textures = append(a.textures, textureSlot{texture: tex, view: view, sampler: sampler})
	return TextureHandle(len(a.textures)), nil
}

// CreateBindGroup wraps already-created resources into a bind group for the
// given layout.
func (a *ResourceArena) CreateBindGroup(label string, layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry) (BindGroupHandle, error) {
	bg, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("create bind group %q: %w", label, err)
	}
	a.bindGroups = append(a.bindGroups, bg)
	return BindGroupHandle(len(a.bindGroups)), nil
}

func (a *ResourceArena) Buffer(h BufferHandle) *wgpu.Buffer {
	if h == 0 || int(h) > len(a.buffers) {
		return nil
	}
	return a.buffers[h-1]
}

func (a *ResourceArena) TextureView(h TextureHandle) *wgpu.TextureView {
	if h == 0 || int(h) > len(a.textures) {
		return nil
	}
	return a.textures[h-1].view
}

func (a *ResourceArena) Sampler(h TextureHandle) *wgpu.Sampler {
	if h == 0 || int(h) > len(a.textures) {
		return nil
	}
	return a.textures[h-1].sampler
}

func (a *ResourceArena) BindGroup(h BindGroupHandle) *wgpu.BindGroup {
	if h == 0 || int(h) > len(a.bindGroups) {
		return nil
	}
	return a.bindGroups[h-1]
}

func (a *ResourceArena) Release() {
	for _, bg := range a.bindGroups {
		bg.Release()
	}
	for _, ts := range a.textures {
		ts.sampler.Release()
		ts.view.Release()
		ts.texture.Release()
	}
	for _, b := range a.buffers {
		b.Release()
	}
	a.bindGroups = nil
	a.textures = nil
	a.buffers = nil
}
