package prism

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// LightUniformSize is the byte size of the light's GPU mirror: position and
// color as vec3s, each padded to 16 bytes per WGSL struct layout rules.
const LightUniformSize = 32

// Light is the scene's single point light. Same CPU/GPU mirroring contract as
// Camera: mutate, then Sync once per frame.
type Light struct {
	position mgl32.Vec3
	color    mgl32.Vec3

	buffer *wgpu.Buffer
	dirty  bool
}

func NewLight(alloc bufferAllocator) (*Light, error) {
	buf, err := alloc.CreateRawBuffer("light-uniform", LightUniformSize,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &Light{
		position: mgl32.Vec3{2, 2, 2},
		color:    mgl32.Vec3{1, 1, 1},
		buffer:   buf,
		dirty:    true,
	}, nil
}

func (l *Light) Set(position, color mgl32.Vec3) {
	l.position = position
	l.color = color
	l.dirty = true
}

// Orbit rotates the light's position around the world Y axis by degPerSec
// degrees scaled by the frame delta. Distance from the axis is preserved.
func (l *Light) Orbit(degPerSec, dt float32) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(degPerSec*dt), mgl32.Vec3{0, 1, 0})
	l.position = rot.Rotate(l.position)
	l.dirty = true
}

func (l *Light) Position() mgl32.Vec3 { return l.position }
func (l *Light) Color() mgl32.Vec3    { return l.color }
func (l *Light) IsDirty() bool        { return l.dirty }

// Packed serializes position and color with 4 bytes of padding after each.
func (l *Light) Packed() []byte {
	out := make([]byte, 0, LightUniformSize)
	out = append(out, vec3BytesPadded(l.position)...)
	out = append(out, vec3BytesPadded(l.color)...)
	return out
}

func (l *Light) Sync(w uniformWriter) error {
	if !l.dirty {
		return nil
	}
	if err := w.WriteBuffer(l.buffer, 0, l.Packed()); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

func (l *Light) Buffer() *wgpu.Buffer { return l.buffer }

func (l *Light) Release() {
	if l.buffer != nil {
		l.buffer.Release()
		l.buffer = nil
	}
}
