package native

import (
	"encoding/binary"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// CommandBuffer records into a HAL command encoder.
type CommandBuffer struct {
	dev     *Device
	queue   framegraph.Queue
	label   string
	encoder hal.CommandEncoder
	buf     hal.CommandBuffer

	// Views created for clears, destroyed with the command buffer.
	scratchViews []hal.TextureView

	transitions []hal.TextureBarrier
}

var _ framegraph.CommandBuffer = (*CommandBuffer)(nil)

// Encoder returns the HAL encoder for pass callbacks to record into.
func (c *CommandBuffer) Encoder() hal.CommandEncoder { return c.encoder }

// Queue returns the logical queue the buffer records for.
func (c *CommandBuffer) Queue() framegraph.Queue { return c.queue }

// Barriers implements framegraph.CommandBuffer. Subresource barriers of one
// texture collapse into a single whole-texture transition.
func (c *CommandBuffer) Barriers(barriers []framegraph.Barrier) {
	c.transitions = c.transitions[:0]
	for i := range barriers {
		b := &barriers[i]
		if b.Image == nil {
			continue
		}
		tex := b.Image.(*Texture).raw
		old, next := b.Before.State.TextureUsage(), b.After.State.TextureUsage()
		if c.merged(tex, old, next) {
			continue
		}
		c.transitions = append(c.transitions, hal.TextureBarrier{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: old,
				NewUsage: next,
			},
		})
	}
	if len(c.transitions) > 0 {
		c.encoder.TransitionTextures(c.transitions)
	}
}

func (c *CommandBuffer) merged(tex hal.Texture, old, next gputypes.TextureUsage) bool {
	for i := range c.transitions {
		t := &c.transitions[i]
		if t.Texture == tex {
			t.Usage.OldUsage |= old
			t.Usage.NewUsage |= next
			return true
		}
	}
	return false
}

// ClearImage implements framegraph.CommandBuffer with an empty render pass
// that clears the whole image. The image is in the copy-destination state
// on entry and exit.
func (c *CommandBuffer) ClearImage(img framegraph.Image, color framegraph.ClearColor) {
	tex := img.(*Texture)
	view, err := c.dev.device.CreateTextureView(tex.raw, &hal.TextureViewDescriptor{
		Label:         tex.info.Label + " (clear)",
		Format:        tex.info.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		framegraph.Logger().Warn("native: clear view failed", "image", tex.info.Label, "error", err)
		return
	}
	c.scratchViews = append(c.scratchViews, view)

	c.transition(tex.raw, gputypes.TextureUsageCopyDst, gputypes.TextureUsageRenderAttachment)
	desc := &hal.RenderPassDescriptor{Label: tex.info.Label + " clear"}
	if tex.info.Format == gputypes.TextureFormatDepth24PlusStencil8 {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   float32(color.R),
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: 0,
		}
	} else {
		desc.ColorAttachments = []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: color.R, G: color.G, B: color.B, A: color.A},
		}}
	}
	rp := c.encoder.BeginRenderPass(desc)
	rp.End()
	c.transition(tex.raw, gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageCopyDst)
}

func (c *CommandBuffer) transition(tex hal.Texture, old, next gputypes.TextureUsage) {
	c.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage:   hal.TextureUsageTransition{OldUsage: old, NewUsage: next},
	}})
}

// FillBuffer implements framegraph.CommandBuffer. The fill is a queue write
// staged ahead of this submission, which is correct for first use: no
// earlier work in the frame touches the buffer.
func (c *CommandBuffer) FillBuffer(buf framegraph.Buffer, value uint32) {
	b := buf.(*Buffer)
	data := make([]byte, b.info.Size)
	for off := 0; off+4 <= len(data); off += 4 {
		binary.LittleEndian.PutUint32(data[off:], value)
	}
	c.dev.queue.WriteBuffer(b.raw, 0, data)
}

// WriteTimestamp implements framegraph.CommandBuffer. The graph never calls
// it on this device because TimestampPeriod reports 0.
func (c *CommandBuffer) WriteTimestamp(framegraph.QueryPool, int) {}

// End implements framegraph.CommandBuffer.
func (c *CommandBuffer) End() error {
	buf, err := c.encoder.EndEncoding()
	if err != nil {
		return err
	}
	c.buf = buf
	return nil
}
