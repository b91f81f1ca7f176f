package prism

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeAllocator and fakeWriter stand in for the GPU queue so sync logic can be
// tested without a device.
type fakeAllocator struct {
	allocs []uint64
	fail   error
}

func (f *fakeAllocator) CreateRawBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.allocs = append(f.allocs, size)
	return nil, nil
}

type fakeWriter struct {
	writes [][]byte
}

func (f *fakeWriter) WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes = append(f.writes, cp)
	return nil
}

func TestCamera_StartsDirty(t *testing.T) {
	cam, err := NewCamera(&fakeAllocator{}, 16.0/9.0)
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	if !cam.IsDirty() {
		t.Error("Expected a new camera to be dirty")
	}
}

func TestCamera_SyncClearsDirtyAndWritesOnce(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	w := &fakeWriter{}

	if err := cam.Sync(w); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if cam.IsDirty() {
		t.Error("Expected camera to be clean after Sync")
	}
	if len(w.writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(w.writes))
	}
	if len(w.writes[0]) != CameraUniformSize {
		t.Errorf("Expected %d bytes, got %d", CameraUniformSize, len(w.writes[0]))
	}

	// Clean camera: no further writes.
	if err := cam.Sync(w); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(w.writes) != 1 {
		t.Errorf("Expected no write for clean camera, got %d writes", len(w.writes))
	}
}

func TestCamera_MutatorsSetDirty(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	w := &fakeWriter{}
	cam.Sync(w)

	cam.SetView(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	if !cam.IsDirty() {
		t.Error("Expected SetView to mark camera dirty")
	}
	cam.Sync(w)

	cam.SetProjection(60, 1, 0.1, 50)
	if !cam.IsDirty() {
		t.Error("Expected SetProjection to mark camera dirty")
	}
	cam.Sync(w)

	cam.SetAspect(2)
	if !cam.IsDirty() {
		t.Error("Expected SetAspect to mark camera dirty")
	}
}

func TestCamera_MatrixAppliesDepthCorrection(t *testing.T) {
	// The correction must remap z from [-1,1] to [0,1]: z' = 0.5z + 0.5w.
	v := mgl32.Vec4{0.3, -0.7, -1, 1}
	got := ndcCorrection.Mul4x1(v)

	if got.X() != v.X() || got.Y() != v.Y() {
		t.Errorf("Correction must not touch x/y: got %v", got)
	}
	if want := 0.5*v.Z() + 0.5*v.W(); got.Z() != want {
		t.Errorf("Expected corrected z %v, got %v", want, got.Z())
	}
	if got.W() != v.W() {
		t.Errorf("Correction must not touch w: got %v", got.W())
	}
}

func TestCamera_MatrixChangesWithView(t *testing.T) {
	cam, _ := NewCamera(&fakeAllocator{}, 1)
	before := cam.Matrix()
	cam.SetView(mgl32.Vec3{10, 10, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	after := cam.Matrix()
	if before == after {
		t.Error("Expected view change to alter the combined matrix")
	}
}

func TestCamera_ReleaseIsIdempotent(t *testing.T) {
	cam, err := NewCamera(&fakeAllocator{}, 1)
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	cam.Release()
	cam.Release()
	if cam.Buffer() != nil {
		t.Error("Expected no buffer after Release")
	}
}
