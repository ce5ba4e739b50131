// Package native implements framegraph.Device on the gogpu/wgpu HAL.
//
// The device wraps one hal.Device and hal.Queue. Every logical framegraph
// queue is served by that hal.Queue; each logical queue owns a hal.Fence
// whose value is its timeline. hal.Queue.Submit takes no wait list, so
// cross-queue waits are resolved on the CPU before submission by waiting on
// the source queue's fence.
//
// Limitations of the HAL surface:
//   - texture transitions are whole-texture (subresource ranges are merged)
//   - buffer barriers are dropped; the HAL orders buffer access itself
//   - timestamp queries are unavailable, so TimestampPeriod reports 0 and
//     the graph disables timing
//   - MapBuffer returns a read-back snapshot; writes to it are not flushed
//
// Use New with an existing device, NewFromProvider to share a device from a
// gpucontext.DeviceProvider, or the "hal" backend from the backend registry
// to open a standalone Vulkan device.
package native
