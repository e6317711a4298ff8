//go:build !nogpu

// Package wgpu implements the imdraw GPU device on top of the gogpu/wgpu
// hardware abstraction layer.
//
// A Backend satisfies both gpucore.Device and gpucore.CommandSink. Draw
// calls recorded during a frame are encoded into a single render pass when
// the frame is submitted, one pipeline per (pipeline kind, primitive mode)
// pair, cached on first use.
//
// # Targets
//
// By default the backend renders into an offscreen RGBA8 texture that can
// be read back with ReadPixels. SetSurfaceTarget redirects rendering to a
// caller-owned texture view, typically the current swapchain image.
//
// # Transforms
//
// Every draw carries its own clip-from-object matrix. The matrices of a
// frame are uploaded into one read-only storage buffer and the shaders pick
// theirs through @builtin(instance_index); each draw is issued with
// firstInstance set to its position in the frame.
//
// Draw transforms use OpenGL clip depth (-w to w). Each matrix is remapped
// to the WebGPU depth range (0 to w) on upload.
//
// # Limitations
//
// WebGPU has no 8-bit index format, no point size and no wide lines, so
// Capabilities reports IndexUint8 and WideLines as false. The imdraw batch
// layer promotes 8-bit indices to 16-bit accordingly, and DrawCall.Width is
// ignored.
//
// # Shared devices
//
// NewFromProvider accepts any gpucontext.DeviceProvider whose HalDevice and
// HalQueue return hal types, e.g. a gogpu application window:
//
//	b, err := wgpu.NewFromProvider(app.GPUContextProvider())
//	if err != nil {
//		return err
//	}
//	ctx, err := imdraw.NewContext(b, b)
package wgpu
