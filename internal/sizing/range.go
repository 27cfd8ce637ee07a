// Package sizing turns a node instance's logical size into an ordered
// sequence of bounded, non-overlapping ranges, one per dispatchable chunk.
package sizing

// Range describes one bounded slice of a node's logical workload.
type Range struct {
	Iteration int
	BlockSize int
	FullSize  int
}

// Start is the first index covered by the range.
func (r Range) Start() int {
	return r.Iteration * r.BlockSize
}

// EffectiveBlockSize is the block size clamped to the remaining work. The
// remainder is computed inclusively of FullSize, preserving the coverage
// behavior of the engine this replaces.
func (r Range) EffectiveBlockSize() int {
	remaining := (r.FullSize - r.Start()) + 1
	if remaining >= r.BlockSize {
		return r.BlockSize
	}
	return remaining
}

// End is one past the last index covered by the range.
func (r Range) End() int {
	return r.Start() + r.EffectiveBlockSize()
}

// Last is the last index covered by the range.
func (r Range) Last() int {
	return r.End() - 1
}

// Vars exposes the range's derived fields under the placeholder keys used
// by command range templates.
func (r Range) Vars() map[string]any {
	return map[string]any{
		"rangeIteration":          r.Iteration,
		"rangeStart":              r.Start(),
		"rangeEnd":                r.End(),
		"rangeLast":               r.Last(),
		"rangeBlockSize":          r.BlockSize,
		"rangeEffectiveBlockSize": r.EffectiveBlockSize(),
		"rangeFullSize":           r.FullSize,
	}
}
