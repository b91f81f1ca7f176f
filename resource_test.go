package prism

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestValidateTextureData(t *testing.T) {
	cases := []struct {
		name   string
		bytes  int
		w, h   uint32
		format wgpu.TextureFormat
		want   error
	}{
		{"exact rgba", 4 * 4 * 4, 4, 4, wgpu.TextureFormatRGBA8UnormSrgb, nil},
		{"exact r8", 4 * 4, 4, 4, wgpu.TextureFormatR8Unorm, nil},
		{"short", 4*4*4 - 1, 4, 4, wgpu.TextureFormatRGBA8Unorm, ErrInvalidTextureData},
		{"long", 4*4*4 + 4, 4, 4, wgpu.TextureFormatRGBA8Unorm, ErrInvalidTextureData},
		{"empty", 0, 4, 4, wgpu.TextureFormatRGBA8Unorm, ErrInvalidTextureData},
		{"unsupported format", 16, 2, 2, wgpu.TextureFormatDepth32Float, ErrUnsupportedFormat},
	}

	for _, c := range cases {
		err := validateTextureData(make([]byte, c.bytes), c.w, c.h, c.format)
		if c.want == nil {
			if err != nil {
				t.Errorf("%s: expected valid, got %v", c.name, err)
			}
			continue
		}
		if !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestResourceArena_ZeroHandleIsInvalid(t *testing.T) {
	a := NewResourceArena(nil, nil)

	if a.Buffer(0) != nil {
		t.Error("Expected nil for zero buffer handle")
	}
	if a.TextureView(0) != nil {
		t.Error("Expected nil for zero texture handle")
	}
	if a.BindGroup(0) != nil {
		t.Error("Expected nil for zero bind group handle")
	}
	if a.Buffer(99) != nil {
		t.Error("Expected nil for out-of-range handle")
	}
}
