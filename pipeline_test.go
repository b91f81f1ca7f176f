package prism

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingBuilder(builds *int) func(VariantKey) (*Pipeline, error) {
	return func(key VariantKey) (*Pipeline, error) {
		*builds++
		return &Pipeline{Key: key}, nil
	}
}

func TestPipelineRegistry_CachesByKey(t *testing.T) {
	builds := 0
	reg := NewPipelineRegistry(countingBuilder(&builds), NewNopLogger())

	key := VariantKey{Shading: ShadingLit, Vertex: VertexTextured, Instanced: true}
	p1, err := reg.Get(key)
	require.NoError(t, err)
	p2, err := reg.Get(key)
	require.NoError(t, err)

	assert.Same(t, p1, p2, "same key must return the identical pipeline")
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, reg.Size())
}

func TestPipelineRegistry_DistinctKeysBuildSeparately(t *testing.T) {
	builds := 0
	reg := NewPipelineRegistry(countingBuilder(&builds), nil)

	keys := []VariantKey{
		{Shading: ShadingLit, Vertex: VertexTextured, Instanced: true},
		{Shading: ShadingUnlit, Vertex: VertexUV, Instanced: true},
		{Shading: ShadingUnlit, Vertex: VertexUV},
		{Shading: ShadingUnlit, Vertex: VertexColor},
		{Debug: true},
	}
	for _, k := range keys {
		_, err := reg.Get(k)
		require.NoError(t, err, "key %s", k)
	}
	assert.Equal(t, len(keys), builds)
	assert.Equal(t, len(keys), reg.Size())
}

func TestPipelineRegistry_RejectsInvalidCombinations(t *testing.T) {
	builds := 0
	reg := NewPipelineRegistry(countingBuilder(&builds), nil)

	invalid := []VariantKey{
		{Shading: ShadingLit, Vertex: VertexColor, Instanced: true},
		{Shading: ShadingUnlit, Vertex: VertexColor, Instanced: true},
		{Shading: ShadingLit, Vertex: VertexUV, Instanced: true},
		{Shading: ShadingLit, Vertex: VertexTextured, Instanced: false},
	}
	for _, k := range invalid {
		_, err := reg.Get(k)
		require.Error(t, err, "key %+v", k)
		assert.ErrorIs(t, err, ErrPipelineVariantMismatch)
	}
	assert.Equal(t, 0, builds, "invalid keys must be rejected before build")
	assert.Equal(t, 0, reg.Size())
}

func TestPipelineRegistry_BuildErrorNotCached(t *testing.T) {
	fail := errors.New("no adapter")
	calls := 0
	reg := NewPipelineRegistry(func(key VariantKey) (*Pipeline, error) {
		calls++
		if calls == 1 {
			return nil, fail
		}
		return &Pipeline{Key: key}, nil
	}, nil)

	key := VariantKey{Shading: ShadingUnlit, Vertex: VertexTextured, Instanced: true}
	_, err := reg.Get(key)
	require.ErrorIs(t, err, fail)
	assert.Equal(t, 0, reg.Size())

	// A later attempt may succeed.
	p, err := reg.Get(key)
	require.NoError(t, err)
	assert.Equal(t, key, p.Key)
}

func TestVariantGroupLayouts_PreserveGroupNumbering(t *testing.T) {
	l := &BindGroupLayouts{}

	lit := variantGroupLayouts(VariantKey{Shading: ShadingLit, Vertex: VertexTextured, Instanced: true}, l)
	assert.Len(t, lit, 3, "lit: texture, camera, light")

	unlit := variantGroupLayouts(VariantKey{Shading: ShadingUnlit, Vertex: VertexTextured, Instanced: true}, l)
	assert.Len(t, unlit, 2, "unlit textured: texture, camera")

	// Vertex colors have no texture but the camera must stay at group 1, so
	// slot 0 is filled with the empty layout.
	color := variantGroupLayouts(VariantKey{Shading: ShadingUnlit, Vertex: VertexColor}, l)
	require.Len(t, color, 2)
	assert.Same(t, l.Empty, color[0])
	assert.Same(t, l.Uniform, color[1])

	assert.Empty(t, variantGroupLayouts(VariantKey{Debug: true}, l))
}

func TestVariantVertexLayouts(t *testing.T) {
	instanced := variantVertexLayouts(VariantKey{Shading: ShadingLit, Vertex: VertexTextured, Instanced: true})
	require.Len(t, instanced, 2)
	assert.Equal(t, uint64(32), instanced[0].ArrayStride)
	assert.Equal(t, uint64(InstanceStride), instanced[1].ArrayStride)

	static := variantVertexLayouts(VariantKey{Shading: ShadingUnlit, Vertex: VertexUV})
	require.Len(t, static, 1)
	assert.Equal(t, uint64(20), static[0].ArrayStride)

	color := variantVertexLayouts(VariantKey{Shading: ShadingUnlit, Vertex: VertexColor})
	require.Len(t, color, 1)
	assert.Equal(t, uint64(24), color[0].ArrayStride)

	assert.Empty(t, variantVertexLayouts(VariantKey{Debug: true}))
}

func TestVariantKey_String(t *testing.T) {
	assert.Equal(t, "lit/textured/instanced",
		VariantKey{Shading: ShadingLit, Vertex: VertexTextured, Instanced: true}.String())
	assert.Equal(t, "unlit/color/static",
		VariantKey{Shading: ShadingUnlit, Vertex: VertexColor}.String())
	assert.Equal(t, "debug", VariantKey{Debug: true}.String())
}
