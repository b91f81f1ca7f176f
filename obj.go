package prism

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ParseOBJ reads a Wavefront OBJ stream into a textured vertex/index pair.
// Faces with more than three corners are triangulated as fans. Position,
// texcoord and normal indices are combined into unique vertices; the V
// texture coordinate is flipped to match top-left texture origin.
func ParseOBJ(r io.Reader) ([]TexturedVertex, []uint32, error) {
	var (
		positions [][3]float32
		texcoords [][2]float32
		normals   [][3]float32

		vertices []TexturedVertex
		indices  []uint32
		seen     = map[string]uint32{}
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			p, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			positions = append(positions, p)
		case "vt":
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("obj line %d: short vt", lineNo)
			}
			u, err1 := parseFloat32(fields[1])
			v, err2 := parseFloat32(fields[2])
			if err1 != nil || err2 != nil {
				return nil, nil, fmt.Errorf("obj line %d: bad vt", lineNo)
			}
			texcoords = append(texcoords, [2]float32{u, 1 - v})
		case "vn":
			n, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, nil, fmt.Errorf("obj line %d: %w", lineNo, err)
			}
			normals = append(normals, n)
		case "f":
			corners := fields[1:]
			if len(corners) < 3 {
				return nil, nil, fmt.Errorf("obj line %d: face with %d corners", lineNo, len(corners))
			}
			face := make([]uint32, len(corners))
			for i, c := range corners {
				ix, ok := seen[c]
				if !ok {
					v, err := resolveOBJCorner(c, positions, texcoords, normals)
					if err != nil {
						return nil, nil, fmt.Errorf("obj line %d: %w", lineNo, err)
					}
					ix = uint32(len(vertices))
					vertices = append(vertices, v)
					seen[c] = ix
				}
				face[i] = ix
			}
			for i := 1; i+1 < len(face); i++ {
				indices = append(indices, face[0], face[i], face[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read obj: %w", err)
	}
	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("obj contains no faces")
	}
	return vertices, indices, nil
}

// resolveOBJCorner expands a face corner "v/vt/vn" (vt and vn optional) into a
// vertex. OBJ indices are 1-based; negatives count from the end.
func resolveOBJCorner(corner string, positions [][3]float32, texcoords [][2]float32, normals [][3]float32) (TexturedVertex, error) {
	parts := strings.Split(corner, "/")
	var out TexturedVertex

	pi, err := objIndex(parts[0], len(positions))
	if err != nil {
		return out, fmt.Errorf("position index %q: %w", parts[0], err)
	}
	out.Position = positions[pi]

	if len(parts) > 1 && parts[1] != "" {
		ti, err := objIndex(parts[1], len(texcoords))
		if err != nil {
			return out, fmt.Errorf("texcoord index %q: %w", parts[1], err)
		}
		out.UV = texcoords[ti]
	}
	if len(parts) > 2 && parts[2] != "" {
		ni, err := objIndex(parts[2], len(normals))
		if err != nil {
			return out, fmt.Errorf("normal index %q: %w", parts[2], err)
		}
		out.Normal = normals[ni]
	}
	return out, nil
}

func objIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = n + i
	} else {
		i--
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index out of range (%d of %d)", i, n)
	}
	return i, nil
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}

func parseFloats3(fields []string) ([3]float32, error) {
	var out [3]float32
	if len(fields) < 3 {
		return out, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := parseFloat32(fields[i])
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}

// LoadOBJ parses an OBJ file and uploads it through the mesh store.
func (s *AssetServer) LoadOBJ(path string) (uuid.UUID, error) {
	file, err := os.Open(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer file.Close()

	vertices, indices, err := ParseOBJ(file)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse obj %q: %w", path, err)
	}
	return s.meshes.LoadMesh(path, vertices, indices)
}
