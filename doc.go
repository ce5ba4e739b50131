// Package framegraph schedules one frame of GPU work as a render graph.
//
// # Overview
//
// Client code declares passes (units of GPU work) together with the images
// and buffers each pass reads or writes. The graph then compiles the frame:
//
//   - passes whose results nothing observable depends on are culled
//   - transient resources are allocated only for their surviving lifetime
//   - state transitions and cross-queue ownership transfers are inserted
//   - passes are grouped into queue-homogeneous batches and submitted
//
// The graph never touches a GPU API directly. It drives a [Device], which
// is implemented by backends such as backend/native (gogpu/wgpu HAL) and
// backend/trace (a recording software device used in tests).
//
// # Quick Start
//
//	g := framegraph.New(dev)
//
//	color := g.CreateImage(framegraph.ImageDesc{
//	    Label:  "color",
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	    Width:  1280, Height: 720,
//	})
//	colorView := g.CreateImageView(color, framegraph.ImageViewDesc{})
//
//	g.AddPass("lighting", framegraph.QueueGraphics,
//	    []framegraph.Usage{
//	        framegraph.Use(colorView, framegraph.StateColorAttachment, framegraph.StageColorAttachmentOutput),
//	    },
//	    func(cmd framegraph.CommandBuffer, reg *framegraph.Registry) {
//	        // record draws into cmd using reg.ImageView(colorView)
//	    })
//
//	err := g.Execute(colorView, framegraph.Access{State: framegraph.StatePresent}, nil)
//	...
//	err = g.Reset() // before declaring the next frame
//
// # Generations
//
// Every handle ([ResourceID], [ViewID], [PassID]) belongs to the generation
// that created it. Reset waits for the GPU to retire the generation,
// destroys its transient objects and starts a new one. Imported resources
// ([ExternalImage], [ExternalBuffer]) are owned by the caller and carry
// their tracked state from one generation to the next.
//
// # Contract violations
//
// Malformed graphs (stale handles, declarations after Execute, a pass
// touching a subresource twice) panic with a [*ContractError]. Build with
// the fgnoassert tag to compile the checks out.
package framegraph
