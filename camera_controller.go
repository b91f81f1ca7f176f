package prism

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const maxPitch = float32(math.Pi/2) - 0.01

// CameraController is a free-fly controller: WASD moves in the view plane,
// Space/Shift move vertically, scroll moves along the view direction, and
// mouse deltas rotate while the cursor is captured. Direction comes from
// yaw/pitch rather than the camera's target so rotation is stable at any
// distance.
type CameraController struct {
	Speed       float32
	Sensitivity float32

	yaw   float32
	pitch float32
}

func NewCameraController(speed, sensitivity float32) *CameraController {
	return &CameraController{
		Speed:       speed,
		Sensitivity: sensitivity,
		yaw:         -float32(math.Pi) / 2,
	}
}

func (c *CameraController) forward() mgl32.Vec3 {
	cosPitch := float32(math.Cos(float64(c.pitch)))
	return mgl32.Vec3{
		float32(math.Cos(float64(c.yaw))) * cosPitch,
		float32(math.Sin(float64(c.pitch))),
		float32(math.Sin(float64(c.yaw))) * cosPitch,
	}
}

// Apply moves the camera for one frame. dt is the frame delta in seconds.
// The camera's view is only touched when there was actual input, so an idle
// camera stays clean and costs no uniform write.
func (c *CameraController) Apply(cam *Camera, input *Input, dt float32) {
	changed := false
	if input.MouseCaptured && (input.MouseDeltaX != 0 || input.MouseDeltaY != 0) {
		c.yaw += float32(input.MouseDeltaX) * c.Sensitivity
		c.pitch -= float32(input.MouseDeltaY) * c.Sensitivity
		if c.pitch > maxPitch {
			c.pitch = maxPitch
		}
		if c.pitch < -maxPitch {
			c.pitch = -maxPitch
		}
		changed = true
	}

	fwd := c.forward()
	flat := mgl32.Vec3{fwd.X(), 0, fwd.Z()}
	if flat.Len() > 0 {
		flat = flat.Normalize()
	}
	right := flat.Cross(mgl32.Vec3{0, 1, 0})

	var move mgl32.Vec3
	if input.Pressed[KeyW] || input.Pressed[KeyUp] {
		move = move.Add(flat)
	}
	if input.Pressed[KeyS] || input.Pressed[KeyDown] {
		move = move.Sub(flat)
	}
	if input.Pressed[KeyD] || input.Pressed[KeyRight] {
		move = move.Add(right)
	}
	if input.Pressed[KeyA] || input.Pressed[KeyLeft] {
		move = move.Sub(right)
	}
	if input.Pressed[KeySpace] {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if input.Pressed[KeyShift] {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}

	eye := cam.Eye()
	if move.Len() > 0 {
		eye = eye.Add(move.Normalize().Mul(c.Speed * dt))
		changed = true
	}
	if input.ScrollDelta != 0 {
		eye = eye.Add(fwd.Mul(float32(input.ScrollDelta) * c.Speed * 0.5))
		changed = true
	}

	if changed {
		cam.SetView(eye, eye.Add(fwd), mgl32.Vec3{0, 1, 0})
	}
}
