package prism

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// errSkipFrame tells the frame loop to drop the current frame and try again
// next tick. Never surfaces past RenderFrame's caller as a real failure.
var errSkipFrame = errors.New("skip frame")

// presentSurface is the slice of the wgpu surface the frame loop needs.
// Mocked in tests to exercise the retry policy without a swapchain.
type presentSurface interface {
	GetCurrentTexture() (*wgpu.Texture, error)
	Present()
}

// acquireFrameTexture gets the next surface texture. An outdated or lost
// surface is reconfigured and retried exactly once; a second failure skips the
// frame. Out-of-memory is fatal and returned as-is.
func acquireFrameTexture(s presentSurface, reconfigure func(), log Logger) (*wgpu.Texture, error) {
	tex, err := s.GetCurrentTexture()
	if err == nil {
		return tex, nil
	}

	switch classifySurfaceError(err) {
	case SurfaceErrorFatal:
		return nil, fmt.Errorf("surface out of memory: %w", err)
	case SurfaceErrorRecoverable:
		log.Warnf("surface lost, reconfiguring: %v", err)
		reconfigure()
		tex, err = s.GetCurrentTexture()
		if err == nil {
			return tex, nil
		}
		if classifySurfaceError(err) == SurfaceErrorFatal {
			return nil, fmt.Errorf("surface out of memory: %w", err)
		}
		log.Warnf("surface still unavailable after reconfigure, skipping frame: %v", err)
		return nil, errSkipFrame
	default:
		log.Debugf("transient surface error, skipping frame: %v", err)
		return nil, errSkipFrame
	}
}

// DrawItem is one draw call: a mesh, its pipeline variant, the bind groups the
// variant expects, and an optional instance set. TrackLight pins the item's
// instances to the light's position each frame, drawing the light as a visible
// marker in the scene.
type DrawItem struct {
	Variant    VariantKey
	Mesh       uuid.UUID
	Material   uuid.UUID
	Instances  *InstanceSet
	TrackLight bool
}

// updateLightTrackers moves every light-tracking item to the light's current
// position. Runs before the light's own sync so a clean light moves nothing.
func updateLightTrackers(items []DrawItem, l *Light) {
	if !l.IsDirty() {
		return
	}
	for _, item := range items {
		if item.TrackLight && item.Instances != nil {
			item.Instances.MoveTo(l.Position())
		}
	}
}

// frameContext carries everything encodeFrame needs from the engine.
type frameContext struct {
	gpu       *GpuState
	arena     *ResourceArena
	meshes    *MeshStore
	registry  *PipelineRegistry
	cameraBG  *wgpu.BindGroup
	lightBG   *wgpu.BindGroup
	emptyBG   *wgpu.BindGroup
	clear     wgpu.Color
	debugPass bool
}

// encodeFrame records one render pass over the draw list into a command buffer
// and submits it. Consecutive items with the same pipeline skip the SetPipeline
// call. Items whose instance set is empty are skipped entirely.
func encodeFrame(fc *frameContext, view *wgpu.TextureView, items []DrawItem) error {
	encoder, err := fc.gpu.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "frame",
	})
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "frame",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: fc.clear,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            fc.gpu.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	var bound *Pipeline
	for _, item := range items {
		if err := encodeItem(fc, pass, item, &bound); err != nil {
			pass.Release()
			return err
		}
	}

	if fc.debugPass {
		debug, err := fc.registry.Get(VariantKey{Debug: true})
		if err != nil {
			pass.Release()
			return err
		}
		pass.SetPipeline(debug.Handle)
		pass.Draw(3, 1, 0, 0)
	}

	if err := pass.End(); err != nil {
		pass.Release()
		return fmt.Errorf("end pass: %w", err)
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()

	fc.gpu.queue.Submit(cmd)
	return nil
}

func encodeItem(fc *frameContext, pass *wgpu.RenderPassEncoder, item DrawItem, bound **Pipeline) error {
	if item.Variant.Instanced {
		if item.Instances == nil || item.Instances.Count() == 0 {
			return nil
		}
	}

	mesh, ok := fc.meshes.Mesh(item.Mesh)
	if !ok {
		return fmt.Errorf("draw item references unknown mesh %s", item.Mesh)
	}

	pipeline, err := fc.registry.Get(item.Variant)
	if err != nil {
		return err
	}
	if *bound != pipeline {
		pass.SetPipeline(pipeline.Handle)
		*bound = pipeline
	}

	if item.Variant.Vertex == VertexColor {
		pass.SetBindGroup(0, fc.emptyBG, nil)
	} else {
		mat, ok := fc.meshes.Material(item.Material)
		if !ok {
			return fmt.Errorf("draw item references unknown material %s", item.Material)
		}
		pass.SetBindGroup(0, fc.arena.BindGroup(mat.BindGroup), nil)
	}
	pass.SetBindGroup(1, fc.cameraBG, nil)
	if item.Variant.Shading == ShadingLit {
		pass.SetBindGroup(2, fc.lightBG, nil)
	}

	pass.SetVertexBuffer(0, fc.arena.Buffer(mesh.VertexBuffer), 0, wgpu.WholeSize)
	instances := uint32(1)
	if item.Variant.Instanced {
		pass.SetVertexBuffer(1, item.Instances.Buffer(), 0, wgpu.WholeSize)
		instances = uint32(item.Instances.Count())
	}
	pass.SetIndexBuffer(fc.arena.Buffer(mesh.IndexBuffer), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(mesh.IndexCount, instances, 0, 0, 0)
	return nil
}
