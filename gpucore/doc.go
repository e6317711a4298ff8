// Package gpucore defines the backend-neutral GPU boundary used by the
// immediate mode renderer.
//
// The rendering core never talks to a graphics API directly. It sees two
// small interfaces:
//   - [Device] owns resources: buffers, textures and fences, all addressed
//     by opaque IDs.
//   - [CommandSink] receives one [DrawCall] per flushed batch and submits
//     the frame.
//
// A backend implements both; see backend/wgpu for the gogpu/wgpu HAL
// implementation.
//
//	               +------------------+
//	               |  imdraw.Context  |
//	               +---------+--------+
//	                         |
//	          +--------------+--------------+
//	          |                             |
//	+---------v---------+         +---------v---------+
//	|  internal/stream  |         |  internal/batch   |
//	|  (Device)         |         |  (CommandSink)    |
//	+---------+---------+         +---------+---------+
//	          |                             |
//	          +--------------+--------------+
//	                         |
//	               +---------v--------+
//	               |   backend/wgpu   |
//	               |  (hal.Device)    |
//	               +------------------+
//
// # Resource Management
//
// Resources are created and destroyed explicitly. IDs become invalid after
// destruction and must not be reused. [InvalidID] is never returned for a
// live resource.
//
// # Fences
//
// [Device.InsertFence] marks the point in the submission stream after all
// work recorded so far. [Device.WaitFence] blocks for at most the given
// timeout and reports a [WaitStatus]; only [WaitAlreadySignaled] and
// [WaitConditionSatisfied] mean the GPU has finished with the fenced work.
package gpucore
