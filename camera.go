package prism

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// ndcCorrection remaps OpenGL clip space (z in [-1,1]) to WebGPU clip space
// (z in [0,1]). Column-major, applied once on the left of projection*view.
var ndcCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// CameraUniformSize is the byte size of the camera's GPU mirror: one mat4.
const CameraUniformSize = 64

// Camera holds view and projection parameters on the CPU and mirrors their
// combined matrix into a 64-byte uniform buffer. Mutations set a dirty flag;
// Sync writes at most once per frame and only when something changed.
type Camera struct {
	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3

	fovy   float32
	aspect float32
	near   float32
	far    float32

	buffer *wgpu.Buffer
	dirty  bool
}

// NewCamera creates a camera with its uniform buffer allocated up front. The
// initial state is dirty so the first Sync uploads it.
func NewCamera(alloc bufferAllocator, aspect float32) (*Camera, error) {
	buf, err := alloc.CreateRawBuffer("camera-uniform", CameraUniformSize,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &Camera{
		eye:    mgl32.Vec3{0, 1, 2},
		target: mgl32.Vec3{0, 0, 0},
		up:     mgl32.Vec3{0, 1, 0},
		fovy:   45,
		aspect: aspect,
		near:   0.1,
		far:    100,
		buffer: buf,
		dirty:  true,
	}, nil
}

func (c *Camera) SetView(eye, target, up mgl32.Vec3) {
	c.eye, c.target, c.up = eye, target, up
	c.dirty = true
}

// SetProjection takes the vertical field of view in degrees.
func (c *Camera) SetProjection(fovyDeg, aspect, near, far float32) {
	c.fovy, c.aspect, c.near, c.far = fovyDeg, aspect, near, far
	c.dirty = true
}

// SetAspect updates only the aspect ratio; called on surface resize.
func (c *Camera) SetAspect(aspect float32) {
	c.aspect = aspect
	c.dirty = true
}

func (c *Camera) Eye() mgl32.Vec3    { return c.eye }
func (c *Camera) Target() mgl32.Vec3 { return c.target }
func (c *Camera) IsDirty() bool      { return c.dirty }

// Matrix returns correction * projection * view, ready for the shader.
func (c *Camera) Matrix() mgl32.Mat4 {
	view := mgl32.LookAtV(c.eye, c.target, c.up)
	proj := mgl32.Perspective(mgl32.DegToRad(c.fovy), c.aspect, c.near, c.far)
	return ndcCorrection.Mul4(proj).Mul4(view)
}

// Sync uploads the combined matrix if any parameter changed since the last
// call. Clean cameras cost nothing.
func (c *Camera) Sync(w uniformWriter) error {
	if !c.dirty {
		return nil
	}
	if err := w.WriteBuffer(c.buffer, 0, mat4Bytes(c.Matrix())); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Buffer exposes the uniform buffer for bind group construction.
func (c *Camera) Buffer() *wgpu.Buffer { return c.buffer }

func (c *Camera) Release() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
}
