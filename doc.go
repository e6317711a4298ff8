// Package imdraw is an immediate mode debug drawing toolkit for GPU
// applications.
//
// # Overview
//
// Callers reissue every primitive each frame: lines, points, textured
// triangles, text and 3D manipulation gizmos. imdraw batches them per
// primitive kind, streams the geometry through fenced multi-region GPU
// arenas, and submits one draw call per batch.
//
// # Quick Start
//
//	ctx, err := imdraw.NewContext(dev, dev)
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	for running {
//	    ctx.BeginFrame(width, height, imdraw.Pointer{X: mx, Y: my, Down: pressed})
//	    ctx.BeginCamera(cam)
//	    ctx.Grid(10, 1, false, imdraw.Gray, 1)
//	    ctx.ManipulatePosition(id, &target, 1)
//	    ctx.Text(target, "target", imdraw.White, 1)
//	    ctx.EndCamera()
//	    if err := ctx.EndFrame(); err != nil {
//	        return err
//	    }
//	}
//
// # Batches
//
// The color batch takes position and color per vertex:
//
//	ctx.Begin(imdraw.Lines, 2)
//	a := ctx.Vertex(p0, imdraw.Red)
//	b := ctx.Vertex(p1, imdraw.Red)
//	ctx.Index(a)
//	ctx.Index(b)
//	ctx.End()
//
// End uploads the vertices and indices and issues a single draw. Indices
// are re-encoded with the narrowest width that holds the largest index.
// Textured triangles follow the same protocol through BeginTriangles,
// TexVertex, TexIndex and EndTriangles.
//
// # Cameras
//
// BeginCamera, BeginCamera2DCanvas and BeginCameraNone push onto a bounded
// camera stack and EndCamera pops. Every batch uses the matrices of the
// innermost camera combined with the object transform set through
// SetObjectTransform.
//
// # Errors
//
// Protocol violations are programmer errors and panic with an error that
// wraps ErrNestedBegin, ErrNotBegun, ErrCameraStackOverflow,
// ErrCameraStackUnderflow or ErrUnbalancedFrame. Device failures during
// streaming panic with stream errors. Texture creation and frame
// submission return errors.
//
// # Backends
//
// The device and command sink are gpucore interfaces. backend/wgpu
// implements them on gogpu/wgpu HAL devices.
package imdraw
