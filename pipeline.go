package prism

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/prism3d/prism/shaders"
)

// ShadingMode selects the fragment model.
type ShadingMode int

const (
	ShadingUnlit ShadingMode = iota
	ShadingLit
)

// VertexKind selects the vertex input layout.
type VertexKind int

const (
	VertexTextured VertexKind = iota
	VertexUV
	VertexColor
)

// VariantKey identifies one render pipeline configuration. Keys are plain
// comparable structs so they work as cache keys.
type VariantKey struct {
	Shading   ShadingMode
	Vertex    VertexKind
	Instanced bool
	Debug     bool
}

func (k VariantKey) String() string {
	if k.Debug {
		return "debug"
	}
	shading := "unlit"
	if k.Shading == ShadingLit {
		shading = "lit"
	}
	vertex := "textured"
	switch k.Vertex {
	case VertexUV:
		vertex = "uv"
	case VertexColor:
		vertex = "color"
	}
	mode := "static"
	if k.Instanced {
		mode = "instanced"
	}
	return fmt.Sprintf("%s/%s/%s", shading, vertex, mode)
}

// validate rejects shading/layout combinations no shader exists for. Lit
// shading needs normals and the per-instance model matrix; vertex colors only
// come unlit.
func (k VariantKey) validate() error {
	if k.Debug {
		return nil
	}
	if k.Shading == ShadingLit && (k.Vertex != VertexTextured || !k.Instanced) {
		return fmt.Errorf("%w: lit shading requires textured instanced geometry (key %s)",
			ErrPipelineVariantMismatch, k)
	}
	if k.Vertex == VertexColor && (k.Shading != ShadingUnlit || k.Instanced) {
		return fmt.Errorf("%w: vertex colors are unlit and static only (key %s)", ErrPipelineVariantMismatch, k)
	}
	return nil
}

// Pipeline wraps a compiled render pipeline with its key. The wrapper has
// identity, so cache hits are observable without a device.
type Pipeline struct {
	Key    VariantKey
	Handle *wgpu.RenderPipeline
}

// BindGroupLayouts are the fixed group layouts shared by every variant:
// slot 0 texture+sampler, slots 1 and 2 one uniform buffer each. The empty
// layout fills slot 0 for the vertex-colored variant so camera stays at
// group 1 across all shaders.
type BindGroupLayouts struct {
	Texture *wgpu.BindGroupLayout
	Uniform *wgpu.BindGroupLayout
	Empty   *wgpu.BindGroupLayout
}

func createBindGroupLayouts(device *wgpu.Device) (*BindGroupLayouts, error) {
	texture, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "texture-layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create texture layout: %w", err)
	}

	uniform, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "uniform-layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
		},
	})
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("create uniform layout: %w", err)
	}

	empty, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "empty-layout",
		Entries: []wgpu.BindGroupLayoutEntry{},
	})
	if err != nil {
		uniform.Release()
		texture.Release()
		return nil, fmt.Errorf("create empty layout: %w", err)
	}

	return &BindGroupLayouts{Texture: texture, Uniform: uniform, Empty: empty}, nil
}

func (l *BindGroupLayouts) Release() {
	l.Empty.Release()
	l.Uniform.Release()
	l.Texture.Release()
}

// PipelineRegistry builds pipelines on first use and caches them by key.
// Requesting the same key twice returns the identical *Pipeline.
type PipelineRegistry struct {
	build func(VariantKey) (*Pipeline, error)
	cache map[VariantKey]*Pipeline
	log   Logger
}

func NewPipelineRegistry(build func(VariantKey) (*Pipeline, error), log Logger) *PipelineRegistry {
	if log == nil {
		log = NewNopLogger()
	}
	return &PipelineRegistry{
		build: build,
		cache: make(map[VariantKey]*Pipeline),
		log:   log,
	}
}

// Get validates the key, then returns the cached pipeline or builds it.
func (r *PipelineRegistry) Get(key VariantKey) (*Pipeline, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if p, ok := r.cache[key]; ok {
		return p, nil
	}
	p, err := r.build(key)
	if err != nil {
		return nil, fmt.Errorf("build pipeline %s: %w", key, err)
	}
	r.cache[key] = p
	r.log.Debugf("pipeline built variant=%s", key)
	return p, nil
}

// Size reports how many pipelines the cache holds.
func (r *PipelineRegistry) Size() int { return len(r.cache) }

func (r *PipelineRegistry) Release() {
	for _, p := range r.cache {
		if p.Handle != nil {
			p.Handle.Release()
		}
	}
	r.cache = make(map[VariantKey]*Pipeline)
}

func variantShader(key VariantKey) string {
	if key.Debug {
		return shaders.FullscreenWGSL
	}
	if key.Vertex == VertexColor {
		return shaders.VertexColorWGSL
	}
	if key.Shading == ShadingLit {
		return shaders.LitTexturedWGSL
	}
	if key.Instanced {
		return shaders.UnlitTexturedWGSL
	}
	return shaders.UnlitTexturedStaticWGSL
}

func variantVertexLayouts(key VariantKey) []wgpu.VertexBufferLayout {
	if key.Debug {
		return nil
	}
	var mesh wgpu.VertexBufferLayout
	switch key.Vertex {
	case VertexTextured:
		mesh = vertexBufferLayout(TexturedVertex{})
	case VertexUV:
		mesh = vertexBufferLayout(UVVertex{})
	case VertexColor:
		mesh = vertexBufferLayout(ColorVertex{})
	}
	layouts := []wgpu.VertexBufferLayout{mesh}
	if key.Instanced {
		layouts = append(layouts, instanceBufferLayout())
	}
	return layouts
}

func variantGroupLayouts(key VariantKey, l *BindGroupLayouts) []*wgpu.BindGroupLayout {
	switch {
	case key.Debug:
		return nil
	case key.Vertex == VertexColor:
		return []*wgpu.BindGroupLayout{l.Empty, l.Uniform}
	case key.Shading == ShadingLit:
		return []*wgpu.BindGroupLayout{l.Texture, l.Uniform, l.Uniform}
	default:
		return []*wgpu.BindGroupLayout{l.Texture, l.Uniform}
	}
}

// pipelineBuilder returns the registry's build function bound to a live
// device. Every variant shares the surface color format and the engine depth
// format; the debug variant passes the depth test unconditionally and writes
// no depth.
func pipelineBuilder(gpu *GpuState, layouts *BindGroupLayouts) func(VariantKey) (*Pipeline, error) {
	return func(key VariantKey) (*Pipeline, error) {
		name := key.String()

		shader, err := gpu.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          name,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: variantShader(key)},
		})
		if err != nil {
			return nil, fmt.Errorf("compile shader: %w", err)
		}
		defer shader.Release()

		layout, err := gpu.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            name,
			BindGroupLayouts: variantGroupLayouts(key, layouts),
		})
		if err != nil {
			return nil, fmt.Errorf("create pipeline layout: %w", err)
		}
		defer layout.Release()

		depth := &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		}
		if key.Debug {
			depth.DepthWriteEnabled = false
			depth.DepthCompare = wgpu.CompareFunctionAlways
		}

		pipeline, err := gpu.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  name,
			Layout: layout,
			Vertex: wgpu.VertexState{
				Module:     shader,
				EntryPoint: "vs_main",
				Buffers:    variantVertexLayouts(key),
			},
			Fragment: &wgpu.FragmentState{
				Module:     shader,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{
					{
						Format:    gpu.surfaceConfig.Format,
						Blend:     nil,
						WriteMask: wgpu.ColorWriteMaskAll,
					},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  wgpu.PrimitiveTopologyTriangleList,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeBack,
			},
			DepthStencil: depth,
			Multisample: wgpu.MultisampleState{
				Count:                  1,
				Mask:                   0xFFFFFFFF,
				AlphaToCoverageEnabled: false,
			},
		})
		if err != nil {
			return nil, err
		}
		return &Pipeline{Key: key, Handle: pipeline}, nil
	}
}
