package native

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// Texture is the image object returned by Device.CreateImage.
type Texture struct {
	raw  hal.Texture
	info framegraph.ImageCreateInfo
}

// Raw returns the underlying HAL texture.
func (t *Texture) Raw() hal.Texture { return t.raw }

// Info returns the create info the texture was allocated with.
func (t *Texture) Info() framegraph.ImageCreateInfo { return t.info }

// TextureView is the view object returned by Device.CreateImageView.
type TextureView struct {
	raw     hal.TextureView
	texture *Texture
}

// Raw returns the underlying HAL texture view.
func (v *TextureView) Raw() hal.TextureView { return v.raw }

// Texture returns the viewed texture.
func (v *TextureView) Texture() *Texture { return v.texture }

// Buffer is the buffer object returned by Device.CreateBuffer.
type Buffer struct {
	raw  hal.Buffer
	info framegraph.BufferCreateInfo
}

// Raw returns the underlying HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.info.Size }

// BufferRange is the buffer view object. HAL has no buffer view object, so
// a range is the buffer plus its byte window.
type BufferRange struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

// timeline is a logical queue's fence and the last value submitted on it.
type timeline struct {
	queue framegraph.Queue
	fence hal.Fence
}
