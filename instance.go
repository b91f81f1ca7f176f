package prism

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceStride is the per-instance byte size in the GPU buffer: one packed
// mat4, fed to the shader as four vec4 attributes at locations 5 through 8.
const InstanceStride = 64

// Instance is one placement of a mesh: translate * rotate * scale.
type Instance struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// NewInstance returns an identity placement at the given position.
func NewInstance(position mgl32.Vec3) Instance {
	return Instance{
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (i Instance) modelMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(i.Position.X(), i.Position.Y(), i.Position.Z())
	r := i.Rotation.Mat4()
	s := mgl32.Scale3D(i.Scale.X(), i.Scale.Y(), i.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// InstanceSet mirrors a slice of instances into a vertex buffer with
// step-mode Instance. The buffer is recreated only when the instance count
// changes; same-count updates reuse it via WriteBuffer. With zero instances
// there is no buffer and nothing to bind.
type InstanceSet struct {
	instances []Instance
	buffer    *wgpu.Buffer
	capacity  int
	dirty     bool
}

func NewInstanceSet() *InstanceSet {
	return &InstanceSet{}
}

// Set replaces the whole instance list. The set goes dirty even if the data is
// identical; callers that change nothing simply don't call Set.
func (s *InstanceSet) Set(instances []Instance) {
	s.instances = instances
	s.dirty = true
}

func (s *InstanceSet) Count() int    { return len(s.instances) }
func (s *InstanceSet) IsDirty() bool { return s.dirty }

// MoveTo places every instance at the given position, keeping rotation and
// scale, and marks the set dirty.
func (s *InstanceSet) MoveTo(position mgl32.Vec3) {
	if len(s.instances) == 0 {
		return
	}
	for i := range s.instances {
		s.instances[i].Position = position
	}
	s.dirty = true
}

// Spin rotates every instance about the given axis by degPerSec degrees scaled
// by the frame delta, marking the set dirty. Positions and scales are
// untouched.
func (s *InstanceSet) Spin(axis mgl32.Vec3, degPerSec, dt float32) {
	if len(s.instances) == 0 {
		return
	}
	rot := mgl32.QuatRotate(mgl32.DegToRad(degPerSec*dt), axis)
	for i := range s.instances {
		s.instances[i].Rotation = rot.Mul(s.instances[i].Rotation)
	}
	s.dirty = true
}

// Packed serializes all instances as column-major mat4s, little-endian.
func (s *InstanceSet) Packed() []byte {
	out := make([]byte, 0, len(s.instances)*InstanceStride)
	for _, inst := range s.instances {
		out = append(out, mat4Bytes(inst.modelMatrix())...)
	}
	return out
}

// Sync uploads pending instance data. A count change drops the old buffer and
// allocates a fresh one at the exact new size.
func (s *InstanceSet) Sync(alloc bufferAllocator, w uniformWriter) error {
	if !s.dirty {
		return nil
	}

	n := len(s.instances)
	if n == 0 {
		if s.buffer != nil {
			s.buffer.Release()
			s.buffer = nil
		}
		s.capacity = 0
		s.dirty = false
		return nil
	}

	if s.capacity != n {
		if s.buffer != nil {
			s.buffer.Release()
		}
		buf, err := alloc.CreateRawBuffer("instances", uint64(n*InstanceStride),
			wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
		if err != nil {
			return err
		}
		s.buffer = buf
		s.capacity = n
	}

	if err := w.WriteBuffer(s.buffer, 0, s.Packed()); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Buffer returns the current instance buffer, nil when the set is empty.
func (s *InstanceSet) Buffer() *wgpu.Buffer { return s.buffer }

func (s *InstanceSet) Release() {
	if s.buffer != nil {
		s.buffer.Release()
		s.buffer = nil
	}
	s.capacity = 0
}
