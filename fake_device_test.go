package framegraph

import (
	"errors"
	"time"
)

// fakeDevice is the smallest Device a one-pass graphics frame can run on.
// Methods the frame does not reach are left to the nil embedded interface.
type fakeDevice struct {
	Device

	images, views, cmds int
	waitErr             error
}

type fakeCmd struct {
	CommandBuffer
	barriers int
}

type fakeTimeline struct{ value uint64 }

func (d *fakeDevice) CreateImage(*ImageCreateInfo) (Image, error) {
	d.images++
	return new(int), nil
}

func (d *fakeDevice) DestroyImage(Image) { d.images-- }

func (d *fakeDevice) CreateImageView(Image, *ImageViewCreateInfo) (ImageView, error) {
	d.views++
	return new(int), nil
}

func (d *fakeDevice) DestroyImageView(ImageView) { d.views-- }

func (d *fakeDevice) CreateTimeline(Queue) (Semaphore, error) { return &fakeTimeline{}, nil }
func (d *fakeDevice) DestroyTimeline(Semaphore)               {}

func (d *fakeDevice) WaitTimeline(sem Semaphore, value uint64, _ time.Duration) error {
	if d.waitErr != nil {
		return d.waitErr
	}
	if sem.(*fakeTimeline).value < value {
		return errors.New("fake: not reached")
	}
	return nil
}

func (d *fakeDevice) NewCommandBuffer(Queue, string) (CommandBuffer, error) {
	d.cmds++
	return &fakeCmd{}, nil
}

func (d *fakeDevice) FreeCommandBuffer(CommandBuffer) { d.cmds-- }

func (d *fakeDevice) Submit(_ Queue, _ CommandBuffer, _ []SemaphoreWait, signal SemaphoreSignal) error {
	if signal.Semaphore != nil {
		signal.Semaphore.(*fakeTimeline).value = signal.Value
	}
	return nil
}

func (d *fakeDevice) TimestampPeriod() float64 { return 0 }

func (c *fakeCmd) Barriers(b []Barrier) { c.barriers += len(b) }
func (c *fakeCmd) End() error           { return nil }

// runFrame declares and executes one graphics pass writing a 4x4 image.
func runFrame(g *Graph) error {
	res := g.CreateImage(ImageDesc{Label: "target", Width: 4, Height: 4})
	v := g.CreateImageView(res, ImageViewDesc{})
	g.AddPass("draw", QueueGraphics, []Usage{Use(v, StateColorAttachment, StageColorAttachmentOutput)}, nil)
	return g.Execute(v, Access{}, nil)
}
