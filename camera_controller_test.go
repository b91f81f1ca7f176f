package prism

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCameraController_PitchClamp(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	c := NewCameraController(4, 0.01)
	input := &Input{MouseCaptured: true, MouseDeltaY: -1e6}

	c.Apply(cam, input, 0.016)
	if c.pitch > maxPitch {
		t.Errorf("Expected pitch clamped to %v, got %v", maxPitch, c.pitch)
	}

	input.MouseDeltaY = 1e6
	c.Apply(cam, input, 0.016)
	if c.pitch < -maxPitch {
		t.Errorf("Expected pitch clamped to %v, got %v", -maxPitch, c.pitch)
	}
}

func TestCameraController_MovesForward(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	cam.SetView(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	c := NewCameraController(4, 0.01)

	input := &Input{}
	input.Pressed[KeyW] = true

	before := cam.Eye()
	c.Apply(cam, input, 0.5)
	after := cam.Eye()

	// Default yaw faces -Z.
	if after.Z() >= before.Z() {
		t.Errorf("Expected forward movement along -Z, got %v -> %v", before, after)
	}
	if after.Y() != before.Y() {
		t.Errorf("Expected planar movement to hold Y, got %v -> %v", before.Y(), after.Y())
	}
}

func TestCameraController_IdleLeavesCameraClean(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	cam.Sync(&fakeWriter{})
	c := NewCameraController(4, 0.01)

	c.Apply(cam, &Input{}, 0.016)
	if cam.IsDirty() {
		t.Error("Expected idle controller to leave the camera clean")
	}
}

func TestCameraController_IgnoresMouseWhenNotCaptured(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	c := NewCameraController(4, 0.01)

	input := &Input{MouseCaptured: false, MouseDeltaX: 500, MouseDeltaY: 500}
	yawBefore, pitchBefore := c.yaw, c.pitch
	c.Apply(cam, input, 0.016)

	if c.yaw != yawBefore || c.pitch != pitchBefore {
		t.Error("Expected uncaptured mouse deltas to be ignored")
	}
}
