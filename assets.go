package prism

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "image/jpeg"
	_ "image/png"
)

// AssetServer loads images and models from disk into the mesh store. Decoding
// runs on a worker pool; GPU upload always happens on the caller's thread via
// Drain, since the device is not safe to use concurrently.
type AssetServer struct {
	meshes *MeshStore
	log    Logger

	pool worker.DynamicWorkerPool
	wg   sync.WaitGroup

	mu     sync.Mutex
	ready  []decodedTexture
	taskID int
}

type decodedTexture struct {
	name   string
	pixels []byte
	width  uint32
	height uint32
	err    error
	onDone func(uuid.UUID, error)
}

func NewAssetServer(meshes *MeshStore, log Logger) *AssetServer {
	if log == nil {
		log = NewNopLogger()
	}
	return &AssetServer{
		meshes: meshes,
		log:    log,
		pool:   worker.NewDynamicWorkerPool(4, 64, time.Second),
	}
}

// decodeImageFile reads and decodes any registered image format and converts
// the result to tightly packed RGBA8.
func decodeImageFile(path string) ([]byte, uint32, uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: decode %q: %v", ErrUnsupportedFormat, path, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	}

	return rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()), nil
}

// LoadTexture decodes path and uploads it as a material, synchronously.
func (s *AssetServer) LoadTexture(path string) (uuid.UUID, error) {
	pixels, w, h, err := decodeImageFile(path)
	if err != nil {
		return uuid.Nil, err
	}
	return s.meshes.LoadMaterial(path, pixels, w, h)
}

// LoadTextureAsync decodes path on the worker pool. The material id reaches
// onDone only after both decode and GPU upload have succeeded; until then the
// texture does not exist as far as callers are concerned. onDone runs inside
// Drain, on the frame thread.
func (s *AssetServer) LoadTextureAsync(path string, onDone func(uuid.UUID, error)) {
	s.mu.Lock()
	s.taskID++
	id := s.taskID
	s.mu.Unlock()

	s.wg.Add(1)
	s.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer s.wg.Done()

			pixels, w, h, err := decodeImageFile(path)
			s.mu.Lock()
			s.ready = append(s.ready, decodedTexture{
				name:   path,
				pixels: pixels,
				width:  w,
				height: h,
				err:    err,
				onDone: onDone,
			})
			s.mu.Unlock()
			return nil, nil
		},
	})
}

// Drain uploads every decoded texture that finished since the last call.
// Called once per frame by the engine.
func (s *AssetServer) Drain() {
	s.mu.Lock()
	ready := s.ready
	s.ready = nil
	s.mu.Unlock()

	for _, d := range ready {
		if d.err != nil {
			s.log.Errorf("texture decode failed name=%s: %v", d.name, d.err)
			if d.onDone != nil {
				d.onDone(uuid.Nil, d.err)
			}
			continue
		}
		id, err := s.meshes.LoadMaterial(d.name, d.pixels, d.width, d.height)
		if err != nil {
			s.log.Errorf("texture upload failed name=%s: %v", d.name, err)
		}
		if d.onDone != nil {
			d.onDone(id, err)
		}
	}
}

// Close waits for in-flight decodes. Results still queued are dropped, not
// uploaded.
func (s *AssetServer) Close() {
	s.wg.Wait()
}
