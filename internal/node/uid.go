package node

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/pipeforge/internal/attribute"
	"github.com/vk/pipeforge/internal/descriptor"
)

// uidNamespace seeds the deterministic SHA1-based uids so the same
// parameter combination always maps to the same cache key.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pipeforge.node.uid"))

// UID derives the cache-key component for one uid slot. Attributes
// contribute when their descriptor's uid indices include the slot, they are
// enabled for the current values, and their value differs from the
// declared ignore value. The result is stable across processes: a UUIDv5
// over the sorted name/value pairs.
func (n *Node) UID(index int) string {
	n.mu.Lock()
	if cached, ok := n.uids[index]; ok {
		n.mu.Unlock()
		return cached
	}
	n.mu.Unlock()

	snap := n.Snapshot()
	attrs := append([]*attribute.Descriptor{}, n.desc.Inputs...)
	attrs = append(attrs, descriptor.InternalInputs()...)

	var parts []string
	for _, desc := range attrs {
		if !desc.ContributesTo(index) || !desc.IsEnabled(snap) {
			continue
		}
		value, ok := snap[desc.Name]
		if !ok {
			value = desc.Default
		}
		// Ignore values may be composite (list or group), so the
		// comparison has to be deep rather than interface equality.
		if desc.UIDIgnoreValue != nil && reflect.DeepEqual(value, desc.UIDIgnoreValue) {
			continue
		}
		parts = append(parts, desc.Name+"="+hashToken(value, index))
	}
	sort.Strings(parts)

	uid := uuid.NewSHA1(uidNamespace, []byte(n.desc.Type+"\n"+strings.Join(parts, "\n"))).String()

	n.mu.Lock()
	n.uids[index] = uid
	n.mu.Unlock()
	return uid
}

// hashToken renders a value deterministically for uid hashing. Links
// contribute the upstream node's uid for the same slot plus the referenced
// attribute, so a change upstream invalidates downstream keys.
func hashToken(value any, index int) string {
	switch v := value.(type) {
	case *Link:
		return v.target.UID(index) + "." + v.attr
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+":"+hashToken(v[k], index))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, hashToken(item, index))
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
