package trace

import "github.com/gogpu/framegraph"

// Image is the trace device's image object.
type Image struct {
	ID   int
	Info framegraph.ImageCreateInfo
}

// Buffer is the trace device's buffer object. Host-visible buffers carry
// their backing memory.
type Buffer struct {
	ID     int
	Info   framegraph.BufferCreateInfo
	Memory []byte
}

// ImageView is the trace device's image view object.
type ImageView struct {
	ID    int
	Image *Image
	Info  framegraph.ImageViewCreateInfo
}

// BufferView is the trace device's buffer view object.
type BufferView struct {
	ID     int
	Buffer *Buffer
	Info   framegraph.BufferViewCreateInfo
}

// Timeline is a simulated timeline semaphore.
type Timeline struct {
	Queue framegraph.Queue
	Value uint64
}

// QueryPool holds simulated timestamps.
type QueryPool struct {
	Stamps []uint64
}

// CommandKind identifies a recorded command.
type CommandKind uint8

// Command kinds.
const (
	CmdBarriers CommandKind = iota
	CmdClearImage
	CmdFillBuffer
	CmdTimestamp
	CmdUser
)

func (k CommandKind) String() string {
	switch k {
	case CmdBarriers:
		return "barriers"
	case CmdClearImage:
		return "clear-image"
	case CmdFillBuffer:
		return "fill-buffer"
	case CmdTimestamp:
		return "timestamp"
	case CmdUser:
		return "user"
	}
	return "cmd?"
}

// Command is one recorded command.
type Command struct {
	Kind     CommandKind
	Barriers []framegraph.Barrier
	Image    *Image
	Buffer   *Buffer
	Color    framegraph.ClearColor
	Value    uint32
	Pool     *QueryPool
	Slot     int
	Note     string
}

// Submission is one executed Submit call.
type Submission struct {
	Queue    framegraph.Queue
	Label    string
	Waits    []framegraph.SemaphoreWait
	Signal   framegraph.SemaphoreSignal
	Commands []Command
}

// Barriers returns every barrier recorded in the submission, in order.
func (s *Submission) Barriers() []framegraph.Barrier {
	var out []framegraph.Barrier
	for _, c := range s.Commands {
		if c.Kind == CmdBarriers {
			out = append(out, c.Barriers...)
		}
	}
	return out
}

// Notes returns the notes of user commands, in order. Pass callbacks add
// notes with CommandBuffer.Note to mark where they ran.
func (s *Submission) Notes() []string {
	var out []string
	for _, c := range s.Commands {
		if c.Kind == CmdUser {
			out = append(out, c.Note)
		}
	}
	return out
}
