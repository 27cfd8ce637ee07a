// Package node implements node instances: a reference to an immutable type
// descriptor, a validated mapping of attribute values, the computed logical
// size, the derived cache key, and the cache-keyed output folder.
package node

import (
	"fmt"
	"sync"

	"github.com/vk/pipeforge/internal/attribute"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/sizing"
)

// Node is one instance of a node type.
type Node struct {
	desc *descriptor.Descriptor
	name string

	mu     sync.Mutex
	values map[string]any
	size   int
	sized  bool
	uids   map[int]string
}

// New creates an instance of the given type, seeded with every declared and
// internal input's default value.
func New(desc *descriptor.Descriptor, name string) *Node {
	n := &Node{
		desc:   desc,
		name:   name,
		values: make(map[string]any),
		uids:   make(map[int]string),
	}
	for _, in := range desc.Inputs {
		n.values[in.Name] = in.Default
	}
	for _, in := range descriptor.InternalInputs() {
		n.values[in.Name] = in.Default
	}
	return n
}

// Name returns the instance name.
func (n *Node) Name() string { return n.name }

// Type returns the node type name.
func (n *Node) Type() string { return n.desc.Type }

// Desc returns the instance's immutable descriptor.
func (n *Node) Desc() *descriptor.Descriptor { return n.desc }

// Descriptor returns the input attribute descriptor with the given name.
// It implements sizing.NodeView.
func (n *Node) Descriptor(attr string) *attribute.Descriptor {
	return n.desc.Input(attr)
}

// Value returns the current value of the named attribute, falling back to
// its declared default.
func (n *Node) Value(attr string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.values[attr]
	return v, ok
}

// SetValue validates raw against the attribute's descriptor and stores the
// coerced value, invalidating the cached size and uids.
func (n *Node) SetValue(attr string, raw any) error {
	desc := n.desc.Input(attr)
	if desc == nil {
		return fmt.Errorf("node %q: unknown attribute %q", n.name, attr)
	}
	value, err := desc.Validate(raw)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values[attr] = value
	n.invalidateLocked()
	return nil
}

// SetLink connects the named attribute to an upstream node's attribute,
// propagating the upstream node's size along the dependency edge.
func (n *Node) SetLink(attr string, target *Node, targetAttr string) error {
	if n.desc.Input(attr) == nil {
		return fmt.Errorf("node %q: unknown attribute %q", n.name, attr)
	}
	if target.desc.Output(targetAttr) == nil && target.desc.Input(targetAttr) == nil {
		return fmt.Errorf("node %q: link target %s.%s does not exist", n.name, target.Name(), targetAttr)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values[attr] = &Link{target: target, attr: targetAttr}
	n.invalidateLocked()
	return nil
}

func (n *Node) invalidateLocked() {
	n.sized = false
	n.uids = make(map[int]string)
}

// Snapshot returns a copy of the current attribute values for enabled
// predicates and lifecycle hooks.
func (n *Node) Snapshot() attribute.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	snap := make(attribute.Snapshot, len(n.values))
	for k, v := range n.values {
		snap[k] = v
	}
	return snap
}

// Size computes and caches the node's logical size via the descriptor's
// sizing strategy. It implements sizing.NodeView.
func (n *Node) Size() int {
	n.mu.Lock()
	if n.sized {
		defer n.mu.Unlock()
		return n.size
	}
	n.mu.Unlock()

	size := 1
	if n.desc.Size != nil {
		size = n.desc.Size.ComputeSize(n)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.size = size
	n.sized = true
	return size
}

// Ranges returns the ordered chunk ranges of the instance. A type without a
// parallelization strategy yields one full-size range.
func (n *Node) Ranges() []sizing.Range {
	if n.desc.IsParallelized() {
		return n.desc.Parallelization.GetRanges(n)
	}
	size := n.Size()
	return []sizing.Range{{Iteration: 0, BlockSize: size, FullSize: size}}
}

// Update runs the descriptor's pre-recompute hook on this instance.
func (n *Node) Update() { n.desc.Update(n) }

// PostUpdate runs the descriptor's post-recompute hook on this instance.
func (n *Node) PostUpdate() { n.desc.PostUpdate(n) }

// Link is a value referencing an upstream node's attribute.
type Link struct {
	target *Node
	attr   string
}

// Target returns the upstream node.
func (l *Link) Target() *Node { return l.target }

// Attr returns the referenced attribute name on the upstream node.
func (l *Link) Attr() string { return l.attr }

// UpstreamSize implements sizing.Link: a linked attribute sizes the node
// like the upstream node it points to.
func (l *Link) UpstreamSize() int { return l.target.Size() }

// Resolve yields the linked value: for upstream outputs the expanded output
// path, for upstream inputs its current value.
func (l *Link) Resolve(cacheRoot string) any {
	if out := l.target.desc.Output(l.attr); out != nil {
		return l.target.resolveOutput(out, cacheRoot)
	}
	if v, ok := l.target.Value(l.attr); ok {
		if nested, ok := v.(*Link); ok {
			return nested.Resolve(cacheRoot)
		}
		return v
	}
	return nil
}

var _ sizing.Link = (*Link)(nil)
var _ sizing.NodeView = (*Node)(nil)
var _ descriptor.Instance = (*Node)(nil)
