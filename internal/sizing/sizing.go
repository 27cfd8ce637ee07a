package sizing

import (
	"math"

	"github.com/vk/pipeforge/internal/attribute"
)

// NodeView is the read-only view of a node instance the sizing model needs:
// its declared attribute descriptors, its current values, and its cached
// logical size. Strategies never hold a node back-reference.
type NodeView interface {
	// Descriptor returns the input descriptor with the given name, or nil.
	Descriptor(name string) *attribute.Descriptor
	// Value returns the current value of the named attribute.
	Value(name string) (any, bool)
	// Size returns the node's computed logical size.
	Size() int
}

// Link marks a value that references an upstream node's output. Sizing
// through a link propagates the upstream node's parallel granularity.
type Link interface {
	UpstreamSize() int
}

// Sizer computes a node instance's logical size.
type Sizer interface {
	ComputeSize(n NodeView) int
}

// DynamicNodeSize sizes a node from a single input attribute: an upstream
// link yields the linked node's size, a list yields its element count, an
// int yields its value, anything else counts as 1.
type DynamicNodeSize struct {
	Param string
}

func (s DynamicNodeSize) ComputeSize(n NodeView) int {
	return attributeSize(n, s.Param)
}

// MultiDynamicNodeSize sums the DynamicNodeSize resolution over several
// input attributes.
type MultiDynamicNodeSize struct {
	Params []string
}

func (s MultiDynamicNodeSize) ComputeSize(n NodeView) int {
	size := 0
	for _, param := range s.Params {
		size += attributeSize(n, param)
	}
	return size
}

// StaticNodeSize is a constant logical size.
type StaticNodeSize struct {
	Size int
}

func (s StaticNodeSize) ComputeSize(NodeView) int {
	return s.Size
}

func attributeSize(n NodeView, param string) int {
	value, ok := n.Value(param)
	if !ok {
		return 1
	}
	if link, ok := value.(Link); ok {
		return link.UpstreamSize()
	}
	desc := n.Descriptor(param)
	if desc == nil {
		return 1
	}
	switch desc.Kind {
	case attribute.KindList:
		if items, ok := value.([]any); ok {
			return len(items)
		}
	case attribute.KindInt:
		if v, ok := value.(int); ok {
			return v
		}
	}
	return 1
}

// Parallelization splits a node's logical size into dispatchable blocks.
// Exactly one of BlockSize or StaticNbBlocks applies; a zero value for both
// means the node is not parallelized.
type Parallelization struct {
	StaticNbBlocks int
	BlockSize      int
}

// GetSizes resolves the shared (blockSize, fullSize, nbBlocks) triple for a
// node. ok is false when the node is not parallelized.
func (p Parallelization) GetSizes(n NodeView) (blockSize, fullSize, nbBlocks int, ok bool) {
	size := n.Size()
	if p.BlockSize > 0 {
		nbBlocks = int(math.Ceil(float64(size) / float64(p.BlockSize)))
		return p.BlockSize, size, nbBlocks, true
	}
	if p.StaticNbBlocks > 0 {
		return 1, p.StaticNbBlocks, p.StaticNbBlocks, true
	}
	return 0, 0, 0, false
}

// GetRange builds the range for one block index.
func (p Parallelization) GetRange(n NodeView, iteration int) (Range, bool) {
	blockSize, fullSize, _, ok := p.GetSizes(n)
	if !ok {
		return Range{}, false
	}
	return Range{Iteration: iteration, BlockSize: blockSize, FullSize: fullSize}, true
}

// GetRanges builds the ordered, disjoint ranges covering the node's full
// logical size, one per block index.
func (p Parallelization) GetRanges(n NodeView) []Range {
	blockSize, fullSize, nbBlocks, ok := p.GetSizes(n)
	if !ok {
		return nil
	}
	ranges := make([]Range, 0, nbBlocks)
	for i := 0; i < nbBlocks; i++ {
		ranges = append(ranges, Range{Iteration: i, BlockSize: blockSize, FullSize: fullSize})
	}
	return ranges
}
