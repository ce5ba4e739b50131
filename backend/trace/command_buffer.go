package trace

import "github.com/gogpu/framegraph"

// CommandBuffer records commands for later execution by Device.Submit.
type CommandBuffer struct {
	Queue    framegraph.Queue
	Label    string
	Commands []Command
	ended    bool
}

var _ framegraph.CommandBuffer = (*CommandBuffer)(nil)

// Barriers implements framegraph.CommandBuffer.
func (c *CommandBuffer) Barriers(barriers []framegraph.Barrier) {
	c.Commands = append(c.Commands, Command{
		Kind:     CmdBarriers,
		Barriers: append([]framegraph.Barrier(nil), barriers...),
	})
}

// ClearImage implements framegraph.CommandBuffer.
func (c *CommandBuffer) ClearImage(img framegraph.Image, color framegraph.ClearColor) {
	c.Commands = append(c.Commands, Command{Kind: CmdClearImage, Image: img.(*Image), Color: color})
}

// FillBuffer implements framegraph.CommandBuffer.
func (c *CommandBuffer) FillBuffer(buf framegraph.Buffer, value uint32) {
	c.Commands = append(c.Commands, Command{Kind: CmdFillBuffer, Buffer: buf.(*Buffer), Value: value})
}

// WriteTimestamp implements framegraph.CommandBuffer.
func (c *CommandBuffer) WriteTimestamp(pool framegraph.QueryPool, index int) {
	c.Commands = append(c.Commands, Command{Kind: CmdTimestamp, Pool: pool.(*QueryPool), Slot: index})
}

// Note records a user command; pass callbacks use it to mark their work.
func (c *CommandBuffer) Note(text string) {
	c.Commands = append(c.Commands, Command{Kind: CmdUser, Note: text})
}

// End implements framegraph.CommandBuffer.
func (c *CommandBuffer) End() error {
	if c.ended {
		return ErrRecordingEnded
	}
	c.ended = true
	return nil
}
