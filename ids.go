package framegraph

import "fmt"

// Handles
//
// Handles are opaque, 1-based and scoped to one generation of the graph:
// the high 32 bits hold the generation, the low 32 bits the table index
// plus one. The zero value is never a valid handle.

// ResourceID identifies a logical image or buffer.
type ResourceID uint64

// ViewID identifies a logical view into one resource.
type ViewID uint64

// PassID identifies a declared or synthetic pass.
type PassID uint64

// InvalidID is the zero handle.
const InvalidID = 0

func makeHandle(gen uint32, index int) uint64 {
	return uint64(gen)<<32 | uint64(index+1)
}

func splitHandle(h uint64) (gen uint32, index int) {
	return uint32(h >> 32), int(uint32(h)) - 1
}

func (id ResourceID) String() string { return handleString("res", uint64(id)) }
func (id ViewID) String() string     { return handleString("view", uint64(id)) }
func (id PassID) String() string     { return handleString("pass", uint64(id)) }

func handleString(kind string, h uint64) string {
	if h == InvalidID {
		return kind + "(invalid)"
	}
	gen, idx := splitHandle(h)
	return fmt.Sprintf("%s(%d@%d)", kind, idx+1, gen)
}

// resourceIndex resolves a resource handle of the current generation.
func (g *Graph) resourceIndex(id ResourceID) int32 {
	gen, idx := splitHandle(uint64(id))
	assert(id != InvalidID, "null resource handle")
	assert(gen == g.gen, "%v belongs to generation %d, current is %d", id, gen, g.gen)
	assert(idx >= 0 && idx < len(g.resources), "%v out of range", id)
	return int32(idx)
}

// viewIndex resolves a view handle of the current generation.
func (g *Graph) viewIndex(id ViewID) int32 {
	gen, idx := splitHandle(uint64(id))
	assert(id != InvalidID, "null view handle")
	assert(gen == g.gen, "%v belongs to generation %d, current is %d", id, gen, g.gen)
	assert(idx >= 0 && idx < len(g.views), "%v out of range", id)
	return int32(idx)
}

func (g *Graph) resourceID(index int32) ResourceID {
	return ResourceID(makeHandle(g.gen, int(index)))
}

func (g *Graph) viewID(index int32) ViewID {
	return ViewID(makeHandle(g.gen, int(index)))
}

func (g *Graph) passID(index int32) PassID {
	return PassID(makeHandle(g.gen, int(index)))
}
