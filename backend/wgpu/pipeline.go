//go:build !nogpu

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/internal/batch"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/color.wgsl
var colorShaderSource string

//go:embed shaders/textured.wgsl
var texturedShaderSource string

//go:embed shaders/text.wgsl
var textShaderSource string

// transformSize is the byte size of one mat4x4<f32> in the transform buffer.
const transformSize = 64

// pipelineKey identifies one render pipeline variant.
type pipelineKey struct {
	kind gpucore.PipelineKind
	mode gpucore.PrimitiveMode
}

// pipelineCache compiles shaders and layouts once and creates render
// pipelines lazily per (kind, mode) pair.
type pipelineCache struct {
	device hal.Device
	format gputypes.TextureFormat

	shaders [3]hal.ShaderModule

	transformLayout hal.BindGroupLayout
	textureLayout   hal.BindGroupLayout

	colorLayout    hal.PipelineLayout
	texturedLayout hal.PipelineLayout

	pipelines map[pipelineKey]hal.RenderPipeline
}

func newPipelineCache(device hal.Device, format gputypes.TextureFormat) (*pipelineCache, error) {
	pc := &pipelineCache{
		device:    device,
		format:    format,
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}
	if err := pc.init(); err != nil {
		pc.destroy()
		return nil, err
	}
	return pc, nil
}

func (pc *pipelineCache) init() error {
	sources := [3]struct {
		label, src string
	}{
		gpucore.PipelineColor:    {"imdraw_color_shader", colorShaderSource},
		gpucore.PipelineTextured: {"imdraw_textured_shader", texturedShaderSource},
		gpucore.PipelineText:     {"imdraw_text_shader", textShaderSource},
	}
	for i, s := range sources {
		if s.src == "" {
			return fmt.Errorf("%s: source is empty", s.label)
		}
		mod, err := pc.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  s.label,
			Source: hal.ShaderSource{WGSL: s.src},
		})
		if err != nil {
			return fmt.Errorf("compile %s: %w", s.label, err)
		}
		pc.shaders[i] = mod
	}

	var err error
	pc.transformLayout, err = pc.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "imdraw_transform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create transform layout: %w", err)
	}

	pc.textureLayout, err = pc.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "imdraw_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create texture layout: %w", err)
	}

	pc.colorLayout, err = pc.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "imdraw_color_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{pc.transformLayout},
	})
	if err != nil {
		return fmt.Errorf("create color pipeline layout: %w", err)
	}

	pc.texturedLayout, err = pc.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "imdraw_textured_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{pc.transformLayout, pc.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create textured pipeline layout: %w", err)
	}
	return nil
}

// get returns the pipeline for key, creating it on first use.
func (pc *pipelineCache) get(key pipelineKey) (hal.RenderPipeline, error) {
	if p, ok := pc.pipelines[key]; ok {
		return p, nil
	}
	if int(key.kind) >= len(pc.shaders) {
		return nil, fmt.Errorf("unknown pipeline kind %d", key.kind)
	}
	topology, err := topologyOf(key.mode)
	if err != nil {
		return nil, err
	}

	layout, buffers := pc.colorLayout, colorVertexLayout()
	if key.kind != gpucore.PipelineColor {
		layout, buffers = pc.texturedLayout, texVertexLayout()
	}
	shader := pc.shaders[key.kind]
	label := fmt.Sprintf("imdraw_%s_%s", key.kind, key.mode)

	premulBlend := gputypes.BlendStatePremultiplied()
	p, err := pc.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    pc.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", label, err)
	}
	pc.pipelines[key] = p
	slogger().Debug("wgpu: pipeline created", "kind", key.kind, "mode", key.mode)
	return p, nil
}

// destroy releases all pipeline resources in reverse creation order.
func (pc *pipelineCache) destroy() {
	for k, p := range pc.pipelines {
		pc.device.DestroyRenderPipeline(p)
		delete(pc.pipelines, k)
	}
	if pc.texturedLayout != nil {
		pc.device.DestroyPipelineLayout(pc.texturedLayout)
		pc.texturedLayout = nil
	}
	if pc.colorLayout != nil {
		pc.device.DestroyPipelineLayout(pc.colorLayout)
		pc.colorLayout = nil
	}
	if pc.textureLayout != nil {
		pc.device.DestroyBindGroupLayout(pc.textureLayout)
		pc.textureLayout = nil
	}
	if pc.transformLayout != nil {
		pc.device.DestroyBindGroupLayout(pc.transformLayout)
		pc.transformLayout = nil
	}
	for i, s := range pc.shaders {
		if s != nil {
			pc.device.DestroyShaderModule(s)
			pc.shaders[i] = nil
		}
	}
}

func topologyOf(m gpucore.PrimitiveMode) (gputypes.PrimitiveTopology, error) {
	switch m {
	case gpucore.PrimitivePoints:
		return gputypes.PrimitiveTopologyPointList, nil
	case gpucore.PrimitiveLines:
		return gputypes.PrimitiveTopologyLineList, nil
	case gpucore.PrimitiveLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, nil
	case gpucore.PrimitiveTriangles:
		return gputypes.PrimitiveTopologyTriangleList, nil
	case gpucore.PrimitiveTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, nil
	default:
		return 0, fmt.Errorf("unsupported primitive mode %s", m)
	}
}

func indexFormatOf(f gpucore.IndexFormat) (gputypes.IndexFormat, error) {
	switch f {
	case gpucore.IndexFormatUint16:
		return gputypes.IndexFormatUint16, nil
	case gpucore.IndexFormatUint32:
		return gputypes.IndexFormatUint32, nil
	default:
		return 0, fmt.Errorf("unsupported index format %s", f)
	}
}

// colorVertexLayout matches batch.ColorVertex.
func colorVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: batch.ColorVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: 1},
			},
		},
	}
}

// texVertexLayout matches batch.TexVertex.
func texVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: batch.TexVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
				{Format: gputypes.VertexFormatUnorm8x4, Offset: 20, ShaderLocation: 2},
			},
		},
	}
}
