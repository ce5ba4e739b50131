package framegraph

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// Queue identifies one of the hardware queues a pass can run on.
type Queue uint8

// Queues. Passes on different queues execute asynchronously; the planner
// bridges them with timeline semaphores.
const (
	QueueGraphics Queue = iota
	QueueCompute
	QueueTransfer

	// QueueCount is the number of queues a graph schedules onto.
	QueueCount = 3
)

func (q Queue) String() string {
	switch q {
	case QueueGraphics:
		return "graphics"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	}
	return "queue?"
}

// State is the access state a subresource is in while a pass uses it.
// It combines what Vulkan splits into image layout and access mask.
type State uint8

// Resource states.
const (
	StateUndefined State = iota
	StateGeneral
	StateVertexBuffer
	StateIndexBuffer
	StateUniformBuffer
	StateIndirectArgument
	StateShaderRead
	StateStorageRead
	StateStorageWrite
	StateColorAttachment
	StateDepthStencilWrite
	StateDepthStencilRead
	StateCopySrc
	StateCopyDst
	StateHostRead
	StateHostWrite
	StatePresent
)

var stateNames = [...]string{
	StateUndefined:         "undefined",
	StateGeneral:           "general",
	StateVertexBuffer:      "vertex-buffer",
	StateIndexBuffer:       "index-buffer",
	StateUniformBuffer:     "uniform-buffer",
	StateIndirectArgument:  "indirect-argument",
	StateShaderRead:        "shader-read",
	StateStorageRead:       "storage-read",
	StateStorageWrite:      "storage-write",
	StateColorAttachment:   "color-attachment",
	StateDepthStencilWrite: "depth-stencil-write",
	StateDepthStencilRead:  "depth-stencil-read",
	StateCopySrc:           "copy-src",
	StateCopyDst:           "copy-dst",
	StateHostRead:          "host-read",
	StateHostWrite:         "host-write",
	StatePresent:           "present",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state?"
}

// ParseState returns the state named by s, as printed by State.String.
func ParseState(s string) (State, bool) {
	for i, name := range stateNames {
		if name == s {
			return State(i), true
		}
	}
	return StateUndefined, false
}

// IsWrite reports whether a pass in this state may modify the contents.
func (s State) IsWrite() bool {
	switch s {
	case StateGeneral, StateStorageWrite, StateColorAttachment,
		StateDepthStencilWrite, StateCopyDst, StateHostWrite:
		return true
	}
	return false
}

// TextureUsage returns the image capability a state requires.
func (s State) TextureUsage() gputypes.TextureUsage {
	switch s {
	case StateShaderRead:
		return gputypes.TextureUsageTextureBinding
	case StateGeneral, StateStorageRead, StateStorageWrite:
		return gputypes.TextureUsageStorageBinding
	case StateColorAttachment, StateDepthStencilWrite, StateDepthStencilRead, StatePresent:
		return gputypes.TextureUsageRenderAttachment
	case StateCopySrc:
		return gputypes.TextureUsageCopySrc
	case StateCopyDst:
		return gputypes.TextureUsageCopyDst
	}
	return 0
}

// BufferUsage returns the buffer capability a state requires.
func (s State) BufferUsage() gputypes.BufferUsage {
	switch s {
	case StateVertexBuffer:
		return gputypes.BufferUsageVertex
	case StateIndexBuffer:
		return gputypes.BufferUsageIndex
	case StateUniformBuffer:
		return gputypes.BufferUsageUniform
	case StateIndirectArgument:
		return gputypes.BufferUsageIndirect
	case StateGeneral, StateStorageRead, StateStorageWrite:
		return gputypes.BufferUsageStorage
	case StateCopySrc:
		return gputypes.BufferUsageCopySrc
	case StateCopyDst:
		return gputypes.BufferUsageCopyDst
	case StateHostRead:
		return gputypes.BufferUsageMapRead
	case StateHostWrite:
		return gputypes.BufferUsageMapWrite
	}
	return 0
}

// Stage is a bitmask of pipeline stages.
type Stage uint32

// StageNone means no stage: the first access of a fresh subresource.
const StageNone Stage = 0

// Pipeline stages.
const (
	StageDrawIndirect Stage = 1 << iota
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageHost
	StageAllCommands
)

var stageNames = []struct {
	stage Stage
	name  string
}{
	{StageDrawIndirect, "draw-indirect"},
	{StageVertexInput, "vertex-input"},
	{StageVertexShader, "vertex-shader"},
	{StageFragmentShader, "fragment-shader"},
	{StageEarlyFragmentTests, "early-fragment-tests"},
	{StageLateFragmentTests, "late-fragment-tests"},
	{StageColorAttachmentOutput, "color-attachment-output"},
	{StageComputeShader, "compute-shader"},
	{StageTransfer, "transfer"},
	{StageHost, "host"},
	{StageAllCommands, "all-commands"},
}

func (s Stage) String() string {
	if s == StageNone {
		return "none"
	}
	var parts []string
	for _, n := range stageNames {
		if s&n.stage != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseStage parses a "|"-separated list of stage names.
func ParseStage(s string) (Stage, bool) {
	if s == "" || s == "none" {
		return StageNone, true
	}
	var out Stage
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, n := range stageNames {
			if n.name == strings.TrimSpace(part) {
				out |= n.stage
				found = true
				break
			}
		}
		if !found {
			return StageNone, false
		}
	}
	return out, true
}

// Access is a state together with the stages that perform the access.
type Access struct {
	State  State
	Stages Stage
}

func (a Access) String() string {
	return a.State.String() + "@" + a.Stages.String()
}

// needsBarrier reports whether moving from prev to next on one queue
// requires an execution or memory dependency.
func needsBarrier(prev, next Access) bool {
	return prev.State != next.State || prev.State.IsWrite() || next.State.IsWrite()
}

// Usage declares how a pass accesses a view. Entry is the state the pass
// expects on entry, Exit the state it leaves the subresources in.
type Usage struct {
	View  ViewID
	Entry Access
	Exit  Access
}

// Use declares an access that leaves the subresources in the state they
// entered with.
func Use(v ViewID, s State, stages Stage) Usage {
	a := Access{State: s, Stages: stages}
	return Usage{View: v, Entry: a, Exit: a}
}

// Transition declares an access whose pass moves the subresources from
// entry to exit itself, for example a render pass with a final layout.
func Transition(v ViewID, entry, exit Access) Usage {
	return Usage{View: v, Entry: entry, Exit: exit}
}

// isWrite classifies a usage for culling: it writes if either end is a
// write state.
func (u Usage) isWrite() bool {
	return u.Entry.State.IsWrite() || u.Exit.State.IsWrite()
}
