//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/vecmath"
	"github.com/gogpu/wgpu/hal"
)

// Resize sets the offscreen target size. The target is recreated on the
// next Submit when the size changes.
func (b *Backend) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	width, height = max(width, 1), max(height, 1)
	if width == b.width && height == b.height {
		return
	}
	if b.surfaceView == nil {
		b.destroyOffscreen()
	}
	b.width, b.height = width, height
}

// SetSurfaceTarget renders subsequent frames into view, which must use the
// backend's target format. A nil view switches back to the offscreen target.
// The view stays owned by the caller.
func (b *Backend) SetSurfaceTarget(view hal.TextureView, width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if view != nil && b.surfaceView == nil {
		b.destroyOffscreen()
	}
	b.surfaceView = view
	b.width, b.height = max(width, 1), max(height, 1)
}

// Size returns the current target size in pixels.
func (b *Backend) Size() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// Draw records a draw call for the current frame.
func (b *Backend) Draw(call *gpucore.DrawCall) {
	if call == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.draws = append(b.draws, *call)
}

// Submit encodes the recorded draws into one render pass over the current
// target and submits it. Draws referencing unknown resources are skipped.
// The recorded draws are cleared even when Submit fails.
func (b *Backend) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	draws := b.draws
	b.draws = b.draws[:0]

	view, err := b.targetView()
	if err != nil {
		return fmt.Errorf("wgpu: %w", err)
	}
	if err := b.uploadTransforms(draws); err != nil {
		return fmt.Errorf("wgpu: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "imdraw_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imdraw_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "imdraw_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: b.cfg.clear,
		}},
	})
	recorded := 0
	for i := range draws {
		if err := b.record(rp, uint32(i), &draws[i]); err != nil { //nolint:gosec // draw count fits uint32
			slogger().Warn("wgpu: draw skipped", "index", i,
				"pipeline", draws[i].Pipeline, "mode", draws[i].Mode, "err", err)
			continue
		}
		recorded++
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	fence, err := b.device.CreateFence()
	if err != nil {
		b.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		b.device.DestroyFence(fence)
		b.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("wgpu: submit: %w", err)
	}

	prev := b.last
	b.last = &submission{fence: fence, cmd: cmdBuf, refs: 1}
	b.release(prev)
	b.frames++
	slogger().Debug("wgpu: frame submitted", "frame", b.frames, "draws", recorded, "skipped", len(draws)-recorded)
	return nil
}

// record encodes one draw call. index selects the draw's transform.
func (b *Backend) record(rp hal.RenderPassEncoder, index uint32, call *gpucore.DrawCall) error {
	vb, ok := b.buffers[call.VertexBuffer]
	if !ok {
		return fmt.Errorf("vertex buffer %d: %w", call.VertexBuffer, ErrUnknownBuffer)
	}
	pipeline, err := b.pipes.get(pipelineKey{kind: call.Pipeline, mode: call.Mode})
	if err != nil {
		return err
	}

	var texGroup hal.BindGroup
	if call.Pipeline != gpucore.PipelineColor {
		t, ok := b.textures[call.Texture]
		if !ok {
			return fmt.Errorf("texture %d: %w", call.Texture, ErrUnknownTexture)
		}
		if texGroup, err = b.textureBindGroup(t); err != nil {
			return err
		}
	}

	if !call.Indexed() {
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, b.transformsGroup, nil)
		if texGroup != nil {
			rp.SetBindGroup(1, texGroup, nil)
		}
		rp.SetVertexBuffer(0, vb.buf, call.VertexOffset)
		rp.Draw(call.VertexCount, 1, 0, index)
		return nil
	}

	ib, ok := b.buffers[call.IndexBuffer]
	if !ok {
		return fmt.Errorf("index buffer %d: %w", call.IndexBuffer, ErrUnknownBuffer)
	}
	format, err := indexFormatOf(call.IndexFormat)
	if err != nil {
		return err
	}
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, b.transformsGroup, nil)
	if texGroup != nil {
		rp.SetBindGroup(1, texGroup, nil)
	}
	rp.SetVertexBuffer(0, vb.buf, call.VertexOffset)
	rp.SetIndexBuffer(ib.buf, format, call.IndexOffset)
	rp.DrawIndexed(call.IndexCount, 1, 0, 0, index)
	return nil
}

// uploadTransforms writes one matrix per draw into the storage buffer,
// growing it to the next power of two when needed.
func (b *Backend) uploadTransforms(draws []gpucore.DrawCall) error {
	need := max(len(draws), 1)
	if need > b.transformsCap {
		capacity := max(b.transformsCap, 64)
		for capacity < need {
			capacity *= 2
		}
		b.destroyTransforms()
		buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "imdraw_transforms",
			Size:  uint64(capacity) * transformSize, //nolint:gosec // capacity is positive
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create transform buffer: %w", err)
		}
		bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "imdraw_transforms_bind",
			Layout: b.pipes.transformLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(),
					Offset: 0,
					Size:   0, // 0 = entire buffer
				}},
			},
		})
		if err != nil {
			b.device.DestroyBuffer(buf)
			return fmt.Errorf("create transform bind group: %w", err)
		}
		b.transforms, b.transformsGroup, b.transformsCap = buf, bg, capacity
		slogger().Debug("wgpu: transform buffer grown", "capacity", capacity)
	}
	if len(draws) == 0 {
		return nil
	}

	b.scratch = b.scratch[:0]
	for i := range draws {
		for _, f := range clipTransform(draws[i].Transform) {
			b.scratch = binary.LittleEndian.AppendUint32(b.scratch, math.Float32bits(f))
		}
	}
	b.queue.WriteBuffer(b.transforms, 0, b.scratch)
	return nil
}

// depthRemap maps OpenGL clip depth, -w at the near plane to w at the far
// plane, onto the WebGPU range 0 to w.
var depthRemap = vecmath.FromRows(
	[4]float32{1, 0, 0, 0},
	[4]float32{0, 1, 0, 0},
	[4]float32{0, 0, 0.5, 0.5},
	[4]float32{0, 0, 0, 1},
)

// clipTransform returns the matrix uploaded for a draw's transform.
func clipTransform(m [16]float32) vecmath.Mat4 {
	return depthRemap.Mul(vecmath.Mat4(m))
}

func (b *Backend) destroyTransforms() {
	if b.transformsGroup != nil {
		b.device.DestroyBindGroup(b.transformsGroup)
		b.transformsGroup = nil
	}
	if b.transforms != nil {
		b.device.DestroyBuffer(b.transforms)
		b.transforms = nil
	}
	b.transformsCap = 0
}

// === Targets ===

// targetView returns the view the next frame renders into.
func (b *Backend) targetView() (hal.TextureView, error) {
	if b.surfaceView != nil {
		return b.surfaceView, nil
	}
	if b.offscreenView != nil {
		return b.offscreenView, nil
	}
	w, h := uint32(b.width), uint32(b.height) //nolint:gosec // clamped to >= 1
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "imdraw_offscreen",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.cfg.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create offscreen target: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "imdraw_offscreen_view",
		Format:        b.cfg.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create offscreen view: %w", err)
	}
	b.offscreen, b.offscreenView = tex, view
	slogger().Debug("wgpu: offscreen target created", "width", w, "height", h)
	return view, nil
}

func (b *Backend) destroyOffscreen() {
	if b.offscreenView != nil {
		b.device.DestroyTextureView(b.offscreenView)
		b.offscreenView = nil
	}
	if b.offscreen != nil {
		b.device.DestroyTexture(b.offscreen)
		b.offscreen = nil
	}
}

// ReadPixels copies the offscreen target of the last submitted frame back
// to the CPU. It waits for the GPU and is meant for tests and tooling.
func (b *Backend) ReadPixels() (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.surfaceView != nil || b.offscreen == nil {
		return nil, ErrNoOffscreen
	}

	w, h := uint32(b.width), uint32(b.height) //nolint:gosec // clamped to >= 1
	bytesPerRow := w * 4
	// WebGPU requires BytesPerRow aligned to 256 bytes.
	alignedBytesPerRow := (bytesPerRow + 255) &^ 255
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "imdraw_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "imdraw_readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imdraw_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.offscreen,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(b.offscreen, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: b.offscreen, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.offscreen,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("wgpu: submit readback: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, waitTimeout)
	if err != nil || !ok {
		return nil, fmt.Errorf("wgpu: wait for readback: ok=%v err=%w", ok, err)
	}

	raw := make([]byte, size)
	if err := b.queue.ReadBuffer(staging, 0, raw); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := range int(h) {
		src := raw[row*int(alignedBytesPerRow) : row*int(alignedBytesPerRow)+int(bytesPerRow)]
		copy(img.Pix[row*img.Stride:], src)
	}
	if b.cfg.format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i+3 < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img, nil
}
