package prism

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// TexturedVertex is the full lit vertex: position, texture coordinate and
// normal, 32 bytes. Locations match the lit and unlit textured shaders.
type TexturedVertex struct {
	Position [3]float32 `prism:"layout" format:"float3" location:"0"`
	UV       [2]float32 `prism:"layout" format:"float2" location:"1"`
	Normal   [3]float32 `prism:"layout" format:"float3" location:"2"`
}

// UVVertex carries position and texture coordinate only, 20 bytes. Used by the
// unlit textured variants.
type UVVertex struct {
	Position [3]float32 `prism:"layout" format:"float3" location:"0"`
	UV       [2]float32 `prism:"layout" format:"float2" location:"1"`
}

// ColorVertex carries position and an RGB color, 24 bytes. Location 1 is the
// color: the vertex-colored shader reads it where the textured shaders read UV.
type ColorVertex struct {
	Position [3]float32 `prism:"layout" format:"float3" location:"0"`
	Color    [3]float32 `prism:"layout" format:"float3" location:"1"`
}

// Mesh is an uploaded vertex/index buffer pair. Buffers live in the arena; the
// mesh records how to bind and draw them.
type Mesh struct {
	Name         string
	VertexBuffer BufferHandle
	IndexBuffer  BufferHandle
	IndexCount   uint32
	Layout       wgpu.VertexBufferLayout
}

// Material is a texture plus the bind group that exposes it to shaders at
// group 0.
type Material struct {
	Name      string
	Texture   TextureHandle
	BindGroup BindGroupHandle
}

// MeshStore owns uploaded meshes and materials, keyed by id. Upload goes
// through the arena; lookups return pointers into the store's own maps.
type MeshStore struct {
	arena         *ResourceArena
	textureLayout *wgpu.BindGroupLayout
	log           Logger

	meshes    map[uuid.UUID]*Mesh
	materials map[uuid.UUID]*Material
}

func NewMeshStore(arena *ResourceArena, textureLayout *wgpu.BindGroupLayout, log Logger) *MeshStore {
	if log == nil {
		log = NewNopLogger()
	}
	return &MeshStore{
		arena:         arena,
		textureLayout: textureLayout,
		log:           log,
		meshes:        make(map[uuid.UUID]*Mesh),
		materials:     make(map[uuid.UUID]*Material),
	}
}

func texturedVertexBytes(vertices []TexturedVertex) []byte {
	out := make([]byte, 0, len(vertices)*int(unsafe.Sizeof(TexturedVertex{})))
	for _, v := range vertices {
		out = appendFloats(out, v.Position[:])
		out = appendFloats(out, v.UV[:])
		out = appendFloats(out, v.Normal[:])
	}
	return out
}

func uvVertexBytes(vertices []UVVertex) []byte {
	out := make([]byte, 0, len(vertices)*int(unsafe.Sizeof(UVVertex{})))
	for _, v := range vertices {
		out = appendFloats(out, v.Position[:])
		out = appendFloats(out, v.UV[:])
	}
	return out
}

func colorVertexBytes(vertices []ColorVertex) []byte {
	out := make([]byte, 0, len(vertices)*int(unsafe.Sizeof(ColorVertex{})))
	for _, v := range vertices {
		out = appendFloats(out, v.Position[:])
		out = appendFloats(out, v.Color[:])
	}
	return out
}

func appendFloats(dst []byte, src []float32) []byte {
	for _, f := range src {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

func indexBytes(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	for _, ix := range indices {
		out = binary.LittleEndian.AppendUint32(out, ix)
	}
	return out
}

// LoadMesh uploads a textured mesh and returns its id. Index format is always
// uint32.
func (s *MeshStore) LoadMesh(name string, vertices []TexturedVertex, indices []uint32) (uuid.UUID, error) {
	return s.loadMesh(name, texturedVertexBytes(vertices), indices, vertexBufferLayout(TexturedVertex{}))
}

// LoadUVMesh uploads a position/UV mesh for the unlit textured variants.
func (s *MeshStore) LoadUVMesh(name string, vertices []UVVertex, indices []uint32) (uuid.UUID, error) {
	return s.loadMesh(name, uvVertexBytes(vertices), indices, vertexBufferLayout(UVVertex{}))
}

// LoadColorMesh uploads a vertex-colored mesh.
func (s *MeshStore) LoadColorMesh(name string, vertices []ColorVertex, indices []uint32) (uuid.UUID, error) {
	return s.loadMesh(name, colorVertexBytes(vertices), indices, vertexBufferLayout(ColorVertex{}))
}

func (s *MeshStore) loadMesh(name string, vertexData []byte, indices []uint32, layout wgpu.VertexBufferLayout) (uuid.UUID, error) {
	if len(vertexData) == 0 || len(indices) == 0 {
		return uuid.Nil, fmt.Errorf("mesh %q: empty vertex or index data", name)
	}

	vb, err := s.arena.CreateBuffer(name+":vertex", vertexData, wgpu.BufferUsageVertex)
	if err != nil {
		return uuid.Nil, err
	}
	ib, err := s.arena.CreateBuffer(name+":index", indexBytes(indices), wgpu.BufferUsageIndex)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	s.meshes[id] = &Mesh{
		Name:         name,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   uint32(len(indices)),
		Layout:       layout,
	}
	s.log.Debugf("mesh loaded name=%s indices=%d", name, len(indices))
	return id, nil
}

// LoadMaterial uploads RGBA pixels as an sRGB texture and builds the group-0
// bind group (view at binding 0, sampler at binding 1).
func (s *MeshStore) LoadMaterial(name string, pixels []byte, width, height uint32) (uuid.UUID, error) {
	tex, err := s.arena.CreateTexture(name, pixels, width, height, wgpu.TextureFormatRGBA8UnormSrgb)
	if err != nil {
		return uuid.Nil, err
	}

	bg, err := s.arena.CreateBindGroup(name, s.textureLayout, []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: s.arena.TextureView(tex)},
		{Binding: 1, Sampler: s.arena.Sampler(tex)},
	})
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	s.materials[id] = &Material{Name: name, Texture: tex, BindGroup: bg}
	s.log.Debugf("material loaded name=%s size=%dx%d", name, width, height)
	return id, nil
}

// validateDrawList rejects items whose mesh carries a different vertex layout
// than the requested pipeline variant expects, before anything is drawn. A
// mismatch here would otherwise have the GPU read the vertex buffer at the
// wrong stride.
func (s *MeshStore) validateDrawList(items []DrawItem) error {
	for _, item := range items {
		if err := item.Variant.validate(); err != nil {
			return err
		}
		if item.Variant.Debug {
			continue
		}
		mesh, ok := s.meshes[item.Mesh]
		if !ok {
			return fmt.Errorf("draw item references unknown mesh %s", item.Mesh)
		}
		want := variantVertexLayouts(item.Variant)[0]
		if !layoutsCompatible(mesh.Layout, want) {
			return fmt.Errorf("%w: mesh %q (stride %d) does not fit variant %s (stride %d)",
				ErrPipelineVariantMismatch, mesh.Name, mesh.Layout.ArrayStride,
				item.Variant, want.ArrayStride)
		}
	}
	return nil
}

func layoutsCompatible(got, want wgpu.VertexBufferLayout) bool {
	if got.ArrayStride != want.ArrayStride || len(got.Attributes) != len(want.Attributes) {
		return false
	}
	for i := range got.Attributes {
		if got.Attributes[i] != want.Attributes[i] {
			return false
		}
	}
	return true
}

func (s *MeshStore) Mesh(id uuid.UUID) (*Mesh, bool) {
	m, ok := s.meshes[id]
	return m, ok
}

func (s *MeshStore) Material(id uuid.UUID) (*Material, bool) {
	m, ok := s.materials[id]
	return m, ok
}
