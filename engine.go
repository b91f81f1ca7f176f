package prism

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// EngineConfig is the startup configuration. Zero values are filled in by
// NewEngine.
type EngineConfig struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string

	ClearColor wgpu.Color

	// DebugOverlay draws the fullscreen debug triangle on top of every frame.
	DebugOverlay bool

	// LightOrbitDegPerSec spins the light around the Y axis. Zero leaves the
	// light where it was set.
	LightOrbitDegPerSec float32

	CameraSpeed       float32
	CameraSensitivity float32

	Logger Logger
}

func (c *EngineConfig) applyDefaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1280
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 720
	}
	if c.WindowTitle == "" {
		c.WindowTitle = "prism"
	}
	if c.CameraSpeed == 0 {
		c.CameraSpeed = 4
	}
	if c.CameraSensitivity == 0 {
		c.CameraSensitivity = 0.004
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger("prism", false)
	}
}

// Engine owns the window, the device, every GPU resource and the frame loop.
// Construct with NewEngine, load meshes and materials through Meshes() and
// Assets(), hand in a draw list, then Run.
type Engine struct {
	cfg EngineConfig
	log Logger

	window   *WindowState
	gpu      *GpuState
	arena    *ResourceArena
	layouts  *BindGroupLayouts
	meshes   *MeshStore
	assets   *AssetServer
	registry *PipelineRegistry

	camera     *Camera
	controller *CameraController
	light      *Light
	input      *Input

	cameraBG *wgpu.BindGroup
	lightBG  *wgpu.BindGroup
	emptyBG  *wgpu.BindGroup

	drawList []DrawItem
	timer    *FrameTimer
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	cfg.applyDefaults()
	log := cfg.Logger

	window, err := createWindowState(cfg.WindowWidth, cfg.WindowHeight, cfg.WindowTitle)
	if err != nil {
		return nil, err
	}
	gpu, err := createGpuState(window)
	if err != nil {
		window.release()
		return nil, err
	}

	arena := NewResourceArena(gpu.device, gpu.queue)
	layouts, err := createBindGroupLayouts(gpu.device)
	if err != nil {
		gpu.release()
		window.release()
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		window:   window,
		gpu:      gpu,
		arena:    arena,
		layouts:  layouts,
		meshes:   NewMeshStore(arena, layouts.Texture, log),
		registry: NewPipelineRegistry(pipelineBuilder(gpu, layouts), log),
		input:    &Input{},
		timer:    NewFrameTimer(),
	}
	e.assets = NewAssetServer(e.meshes, log)

	aspect := float32(cfg.WindowWidth) / float32(cfg.WindowHeight)
	e.camera, err = NewCamera(arena, aspect)
	if err != nil {
		e.Release()
		return nil, err
	}
	e.light, err = NewLight(arena)
	if err != nil {
		e.Release()
		return nil, err
	}
	e.controller = NewCameraController(cfg.CameraSpeed, cfg.CameraSensitivity)

	if err := e.createUniformBindGroups(); err != nil {
		e.Release()
		return nil, err
	}

	log.Infof("engine initialized window=%dx%d", cfg.WindowWidth, cfg.WindowHeight)
	return e, nil
}

func (e *Engine) createUniformBindGroups() error {
	var err error
	e.cameraBG, err = e.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "camera",
		Layout: e.layouts.Uniform,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: e.camera.Buffer(), Size: CameraUniformSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create camera bind group: %w", err)
	}
	e.lightBG, err = e.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "light",
		Layout: e.layouts.Uniform,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: e.light.Buffer(), Size: LightUniformSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create light bind group: %w", err)
	}
	e.emptyBG, err = e.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "empty",
		Layout:  e.layouts.Empty,
		Entries: []wgpu.BindGroupEntry{},
	})
	if err != nil {
		return fmt.Errorf("create empty bind group: %w", err)
	}
	return nil
}

func (e *Engine) Camera() *Camera               { return e.camera }
func (e *Engine) Controller() *CameraController { return e.controller }
func (e *Engine) Light() *Light                 { return e.light }
func (e *Engine) Meshes() *MeshStore            { return e.meshes }
func (e *Engine) Assets() *AssetServer          { return e.assets }
func (e *Engine) Pipelines() *PipelineRegistry  { return e.registry }
func (e *Engine) Input() *Input                 { return e.input }
func (e *Engine) Timer() *FrameTimer            { return e.timer }

// SetDrawList replaces what gets rendered each frame. Every item's mesh must
// carry the vertex layout its variant expects; mismatches are rejected here
// with ErrPipelineVariantMismatch so they never reach a draw call. Items are
// drawn in order; group items sharing a variant together to minimize pipeline
// binds.
func (e *Engine) SetDrawList(items []DrawItem) error {
	if err := e.meshes.validateDrawList(items); err != nil {
		return err
	}
	e.drawList = items
	return nil
}

// Run drives the frame loop until the window closes or Escape is pressed.
// Fatal GPU errors end the loop with the error; skipped frames do not.
func (e *Engine) Run() error {
	for !e.window.ShouldClose() {
		dt := e.timer.Tick()
		if err := e.RenderFrame(dt); err != nil {
			return err
		}
		if e.input.JustPressed[KeyEscape] {
			break
		}
	}
	return nil
}

// RenderFrame advances simulation by dt seconds and draws one frame. A frame
// skipped due to a transient surface error returns nil.
func (e *Engine) RenderFrame(dt float32) error {
	e.input.Update(e.window)
	if e.input.JustPressed[MouseButtonRight] {
		e.input.MouseCaptured = !e.input.MouseCaptured
	}
	e.controller.Apply(e.camera, e.input, dt)
	if e.cfg.LightOrbitDegPerSec != 0 {
		e.light.Orbit(e.cfg.LightOrbitDegPerSec, dt)
	}

	e.handleResize()

	if err := e.syncUniforms(); err != nil {
		return err
	}
	e.assets.Drain()

	tex, err := acquireFrameTexture(e.gpu.surface, e.gpu.reconfigureSurface, e.log)
	if err != nil {
		if errors.Is(err, errSkipFrame) {
			return nil
		}
		return err
	}

	defer tex.Release()

	view, err := tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create frame view: %w", err)
	}

	fc := &frameContext{
		gpu:       e.gpu,
		arena:     e.arena,
		meshes:    e.meshes,
		registry:  e.registry,
		cameraBG:  e.cameraBG,
		lightBG:   e.lightBG,
		emptyBG:   e.emptyBG,
		clear:     e.cfg.ClearColor,
		debugPass: e.cfg.DebugOverlay,
	}
	encodeErr := encodeFrame(fc, view, e.drawList)
	view.Release()
	if encodeErr != nil {
		return encodeErr
	}

	e.gpu.surface.Present()
	return nil
}

// handleResize reconfigures the surface when the window size changed since the
// last frame, keeping the camera's aspect ratio in step.
func (e *Engine) handleResize() {
	w, h := e.input.WindowWidth, e.input.WindowHeight
	if w <= 0 || h <= 0 {
		return
	}
	if uint32(w) == e.gpu.surfaceConfig.Width && uint32(h) == e.gpu.surfaceConfig.Height {
		return
	}
	if err := e.gpu.resizeSurface(w, h); err != nil {
		e.log.Errorf("resize to %dx%d failed: %v", w, h, err)
		return
	}
	e.camera.SetAspect(float32(w) / float32(h))
	e.log.Debugf("surface resized to %dx%d", w, h)
}

// syncUniforms flushes every dirty CPU-side mirror before encoding. Items
// tracking the light are repositioned first so their instance upload lands in
// the same frame as the light's.
func (e *Engine) syncUniforms() error {
	updateLightTrackers(e.drawList, e.light)
	if err := e.camera.Sync(e.gpu.queue); err != nil {
		return fmt.Errorf("sync camera: %w", err)
	}
	if err := e.light.Sync(e.gpu.queue); err != nil {
		return fmt.Errorf("sync light: %w", err)
	}
	for _, item := range e.drawList {
		if item.Instances == nil {
			continue
		}
		if err := item.Instances.Sync(e.arena, e.gpu.queue); err != nil {
			return fmt.Errorf("sync instances: %w", err)
		}
	}
	return nil
}

// Release tears everything down in reverse dependency order. Safe to call on a
// partially constructed engine.
func (e *Engine) Release() {
	if e.emptyBG != nil {
		e.emptyBG.Release()
	}
	if e.lightBG != nil {
		e.lightBG.Release()
	}
	if e.cameraBG != nil {
		e.cameraBG.Release()
	}
	for _, item := range e.drawList {
		if item.Instances != nil {
			item.Instances.Release()
		}
	}
	if e.light != nil {
		e.light.Release()
	}
	if e.camera != nil {
		e.camera.Release()
	}
	if e.registry != nil {
		e.registry.Release()
	}
	if e.assets != nil {
		e.assets.Close()
	}
	if e.arena != nil {
		e.arena.Release()
	}
	if e.layouts != nil {
		e.layouts.Release()
	}
	if e.gpu != nil {
		e.gpu.release()
	}
	if e.window != nil {
		e.window.release()
	}
}
