package prism

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// SceneDef defines the initial state of a scene: meshes to load from disk,
// their placements, the camera and the light.
type SceneDef struct {
	Objects []MeshObjectDef
	Camera  *CameraDef
	Light   *LightDef
}

// MeshObjectDef is one renderable object: an OBJ model, a texture, the variant
// to draw it with and one or more placements.
type MeshObjectDef struct {
	ModelPath   string
	TexturePath string
	Lit         bool
	Placements  []PlacementDef
}

type PlacementDef struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type CameraDef struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	FovY   float32
}

type LightDef struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	// OrbitDegPerSec, when nonzero, spins the light around the Y axis.
	OrbitDegPerSec float32
}

// LoadScene loads every asset a SceneDef names and produces the engine's draw
// list. Objects sharing a lit/unlit mode end up adjacent in the list so the
// frame encoder can keep the pipeline bound.
func LoadScene(e *Engine, scene *SceneDef) error {
	var lit, unlit []DrawItem

	for _, obj := range scene.Objects {
		item, err := loadSceneObject(e, obj)
		if err != nil {
			return err
		}
		if obj.Lit {
			lit = append(lit, item)
		} else {
			unlit = append(unlit, item)
		}
	}

	if scene.Camera != nil {
		cam := e.Camera()
		cam.SetView(scene.Camera.Eye, scene.Camera.Target, mgl32.Vec3{0, 1, 0})
		if scene.Camera.FovY > 0 {
			cam.SetProjection(scene.Camera.FovY,
				float32(e.cfg.WindowWidth)/float32(e.cfg.WindowHeight), 0.1, 100)
		}
	}
	if scene.Light != nil {
		e.Light().Set(scene.Light.Position, scene.Light.Color)
		e.cfg.LightOrbitDegPerSec = scene.Light.OrbitDegPerSec
	}

	return e.SetDrawList(append(lit, unlit...))
}

func loadSceneObject(e *Engine, def MeshObjectDef) (DrawItem, error) {
	mesh, err := e.Assets().LoadOBJ(def.ModelPath)
	if err != nil {
		return DrawItem{}, fmt.Errorf("scene object %q: %w", def.ModelPath, err)
	}
	var material uuid.UUID
	if def.TexturePath != "" {
		material, err = e.Assets().LoadTexture(def.TexturePath)
		if err != nil {
			return DrawItem{}, fmt.Errorf("scene object %q: %w", def.ModelPath, err)
		}
	}

	instances := make([]Instance, 0, len(def.Placements))
	for _, p := range def.Placements {
		inst := Instance{Position: p.Position, Rotation: p.Rotation, Scale: p.Scale}
		if inst.Rotation == (mgl32.Quat{}) {
			inst.Rotation = mgl32.QuatIdent()
		}
		if inst.Scale == (mgl32.Vec3{}) {
			inst.Scale = mgl32.Vec3{1, 1, 1}
		}
		instances = append(instances, inst)
	}
	set := NewInstanceSet()
	set.Set(instances)

	shading := ShadingUnlit
	if def.Lit {
		shading = ShadingLit
	}
	return DrawItem{
		Variant:   VariantKey{Shading: shading, Vertex: VertexTextured, Instanced: true},
		Mesh:      mesh,
		Material:  material,
		Instances: set,
	}, nil
}
