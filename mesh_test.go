package prism

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

func TestVertexBufferLayout_TexturedVertex(t *testing.T) {
	layout := vertexBufferLayout(TexturedVertex{})

	if layout.ArrayStride != 32 {
		t.Errorf("Expected stride 32, got %d", layout.ArrayStride)
	}
	if layout.StepMode != wgpu.VertexStepModeVertex {
		t.Errorf("Expected per-vertex step mode, got %v", layout.StepMode)
	}
	if len(layout.Attributes) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(layout.Attributes))
	}

	wants := []struct {
		location uint32
		offset   uint64
		format   wgpu.VertexFormat
	}{
		{0, 0, wgpu.VertexFormatFloat32x3},
		{1, 12, wgpu.VertexFormatFloat32x2},
		{2, 20, wgpu.VertexFormatFloat32x3},
	}
	for i, w := range wants {
		attr := layout.Attributes[i]
		if attr.ShaderLocation != w.location || attr.Offset != w.offset || attr.Format != w.format {
			t.Errorf("attribute %d: expected loc=%d off=%d fmt=%v, got loc=%d off=%d fmt=%v",
				i, w.location, w.offset, w.format, attr.ShaderLocation, attr.Offset, attr.Format)
		}
	}
}

func TestVertexBufferLayout_SmallerVertices(t *testing.T) {
	uv := vertexBufferLayout(UVVertex{})
	if uv.ArrayStride != 20 || len(uv.Attributes) != 2 {
		t.Errorf("UVVertex: expected stride 20 with 2 attrs, got %d with %d",
			uv.ArrayStride, len(uv.Attributes))
	}

	color := vertexBufferLayout(ColorVertex{})
	if color.ArrayStride != 24 || len(color.Attributes) != 2 {
		t.Errorf("ColorVertex: expected stride 24 with 2 attrs, got %d with %d",
			color.ArrayStride, len(color.Attributes))
	}
	if color.Attributes[1].Format != wgpu.VertexFormatFloat32x3 {
		t.Errorf("ColorVertex color attr: expected float3, got %v", color.Attributes[1].Format)
	}
}

func TestInstanceBufferLayout(t *testing.T) {
	layout := instanceBufferLayout()

	if layout.ArrayStride != InstanceStride {
		t.Errorf("Expected stride %d, got %d", InstanceStride, layout.ArrayStride)
	}
	if layout.StepMode != wgpu.VertexStepModeInstance {
		t.Errorf("Expected per-instance step mode, got %v", layout.StepMode)
	}
	if len(layout.Attributes) != 4 {
		t.Fatalf("Expected 4 vec4 columns, got %d attributes", len(layout.Attributes))
	}
	for i, attr := range layout.Attributes {
		if attr.ShaderLocation != uint32(5+i) {
			t.Errorf("column %d: expected location %d, got %d", i, 5+i, attr.ShaderLocation)
		}
		if attr.Offset != uint64(16*i) {
			t.Errorf("column %d: expected offset %d, got %d", i, 16*i, attr.Offset)
		}
		if attr.Format != wgpu.VertexFormatFloat32x4 {
			t.Errorf("column %d: expected float4, got %v", i, attr.Format)
		}
	}
}

func TestTexturedVertexBytes(t *testing.T) {
	vertices := []TexturedVertex{
		{Position: [3]float32{1, 2, 3}, UV: [2]float32{0.5, 0.25}, Normal: [3]float32{0, 1, 0}},
		{},
	}
	data := texturedVertexBytes(vertices)
	if len(data) != 64 {
		t.Fatalf("Expected 64 bytes for 2 vertices, got %d", len(data))
	}
	if got := float32At(data, 0); got != 1 {
		t.Errorf("Expected position.x 1, got %v", got)
	}
	if got := float32At(data, 3); got != 0.5 {
		t.Errorf("Expected uv.x 0.5, got %v", got)
	}
	if got := float32At(data, 6); got != 1 {
		t.Errorf("Expected normal.y 1, got %v", got)
	}
}

func TestIndexBytes(t *testing.T) {
	data := indexBytes([]uint32{0, 1, 0x01020304})
	if len(data) != 12 {
		t.Fatalf("Expected 12 bytes, got %d", len(data))
	}
	// little-endian
	if data[8] != 0x04 || data[11] != 0x01 {
		t.Errorf("Expected little-endian index encoding, got % x", data[8:])
	}
}

func TestMeshStore_ValidateDrawListRejectsLayoutMismatch(t *testing.T) {
	store := NewMeshStore(nil, nil, nil)
	colored := uuid.New()
	store.meshes[colored] = &Mesh{Name: "tri", Layout: vertexBufferLayout(ColorVertex{})}

	// A 24-byte color mesh cannot feed the 32-byte textured layout.
	err := store.validateDrawList([]DrawItem{{
		Variant: VariantKey{Shading: ShadingUnlit, Vertex: VertexTextured},
		Mesh:    colored,
	}})
	if !errors.Is(err, ErrPipelineVariantMismatch) {
		t.Fatalf("Expected ErrPipelineVariantMismatch, got %v", err)
	}

	// The matching variant passes.
	err = store.validateDrawList([]DrawItem{{
		Variant: VariantKey{Shading: ShadingUnlit, Vertex: VertexColor},
		Mesh:    colored,
	}})
	if err != nil {
		t.Fatalf("Expected matching layout to validate, got %v", err)
	}
}

func TestMeshStore_ValidateDrawListEdgeCases(t *testing.T) {
	store := NewMeshStore(nil, nil, nil)

	// Unknown mesh ids fail up front, not at draw time.
	err := store.validateDrawList([]DrawItem{{
		Variant: VariantKey{Shading: ShadingUnlit, Vertex: VertexTextured},
		Mesh:    uuid.New(),
	}})
	if err == nil {
		t.Fatal("Expected an error for an unknown mesh")
	}

	// Debug items carry no mesh at all.
	if err := store.validateDrawList([]DrawItem{{Variant: VariantKey{Debug: true}}}); err != nil {
		t.Fatalf("Expected debug item to validate, got %v", err)
	}

	// Invalid variant keys are caught here too.
	err = store.validateDrawList([]DrawItem{{
		Variant: VariantKey{Shading: ShadingLit, Vertex: VertexColor},
	}})
	if !errors.Is(err, ErrPipelineVariantMismatch) {
		t.Fatalf("Expected ErrPipelineVariantMismatch, got %v", err)
	}
}
