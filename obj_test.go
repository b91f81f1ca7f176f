package prism

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `
# a unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestParseOBJ_QuadTriangulation(t *testing.T) {
	vertices, indices, err := ParseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Len(t, vertices, 4, "corners shared between triangles must be deduplicated")
	require.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices, "quad must fan into two triangles")

	for _, v := range vertices {
		assert.Equal(t, [3]float32{0, 0, 1}, v.Normal)
	}
}

func TestParseOBJ_FlipsV(t *testing.T) {
	vertices, _, err := ParseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	// vt 1 1 becomes (1, 0): OBJ uses a bottom-left origin, textures top-left.
	assert.Equal(t, [2]float32{1, 0}, vertices[2].UV)
	assert.Equal(t, [2]float32{0, 1}, vertices[0].UV)
}

func TestParseOBJ_PositionOnlyFaces(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	vertices, indices, err := ParseOBJ(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, vertices, 3)
	assert.Len(t, indices, 3)
	assert.Equal(t, [2]float32{0, 0}, vertices[0].UV)
}

func TestParseOBJ_NegativeIndices(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	vertices, indices, err := ParseOBJ(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, indices)
	assert.Equal(t, [3]float32{0, 0, 0}, vertices[0].Position)
	assert.Equal(t, [3]float32{0, 1, 0}, vertices[2].Position)
}

func TestParseOBJ_Errors(t *testing.T) {
	cases := map[string]string{
		"no faces":           "v 0 0 0\n",
		"index out of range": "v 0 0 0\nf 1 2 3\n",
		"short face":         "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad float":          "v zero 0 0\nf 1 1 1\n",
	}
	for name, src := range cases {
		_, _, err := ParseOBJ(strings.NewReader(src))
		assert.Error(t, err, name)
	}
}
