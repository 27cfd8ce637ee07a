// Package attribute implements the typed parameter and output descriptors a
// node type is declared with: per-kind value validation, schema consistency
// checks, match tests for previously saved values, and each attribute's
// contribution to the owning node's cache key.
package attribute

import (
	"fmt"
	"slices"
)

// Kind identifies the value type of an attribute descriptor.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindColor  Kind = "color"
	KindFile   Kind = "file"
	KindChoice Kind = "choice"
	KindList   Kind = "list"
	KindGroup  Kind = "group"
)

// DefaultGroup is the group tag that makes an attribute part of the
// catch-all command-line parameter expansion.
const DefaultGroup = "allParams"

// Snapshot is a read-only view of a node instance's current attribute
// values, keyed by attribute name.
type Snapshot map[string]any

// EnabledFunc decides whether an attribute is active given the owning
// node's current values. It must be pure: no stored node back-reference.
type EnabledFunc func(Snapshot) bool

// Descriptor declares a single typed attribute of a node type. Descriptors
// are immutable once registered; the uid indices in particular are fixed at
// definition time and independent of runtime values.
type Descriptor struct {
	Name        string
	Label       string
	Description string
	Kind        Kind

	// Default is the descriptor's default value. Its type must agree with
	// Kind, which CheckValueTypes verifies.
	Default any

	// UIDIndices lists the positional uid slots this attribute contributes
	// to. Empty means the attribute never affects the cache key.
	UIDIndices []int

	// UIDIgnoreValue, when non-nil and equal to the current value, removes
	// the attribute from the uid computation so that an empty or default
	// value does not perturb caching.
	UIDIgnoreValue any

	// Group tags the attribute for command-line expansion. An empty group
	// keeps the attribute out of the expansion entirely.
	Group string

	Advanced bool

	// Semantic is a free-form hint for consumers, e.g. "image" or
	// "multiline".
	Semantic string

	// Enabled gates the attribute on the owning node's current values.
	// A nil func means always enabled.
	Enabled EnabledFunc

	// Range holds the inclusive [min, max] bounds for numeric kinds.
	Range []any

	// Values and Exclusive configure a choice attribute: the fixed set of
	// allowed values, and whether a single value (exclusive) or an ordered
	// sequence of values (non-exclusive) is expected.
	Values    []any
	Exclusive bool

	// JoinChar separates the serialized elements of multi-valued
	// attributes (non-exclusive choices, lists, groups).
	JoinChar string

	// Element describes the homogeneous element type of a list attribute.
	Element *Descriptor

	// Children describe the named members of a group attribute, in
	// declaration order.
	Children []*Descriptor
}

// IsEnabled reports whether the attribute is active for the given snapshot
// of the owning node's values.
func (d *Descriptor) IsEnabled(snap Snapshot) bool {
	if d.Enabled == nil {
		return true
	}
	return d.Enabled(snap)
}

// UID returns the uid indices the attribute contributes to. A list inherits
// the indices of its element descriptor; a group contributes the
// concatenation of all its descendants' indices.
func (d *Descriptor) UID() []int {
	switch d.Kind {
	case KindList:
		if d.Element != nil {
			return d.Element.UID()
		}
		return nil
	case KindGroup:
		var all []int
		for _, child := range d.Children {
			all = append(all, child.UID()...)
		}
		return all
	default:
		return d.UIDIndices
	}
}

// ContributesTo reports whether the attribute participates in the uid slot
// at the given index.
func (d *Descriptor) ContributesTo(index int) bool {
	return slices.Contains(d.UID(), index)
}

// Child returns the group child descriptor with the given name, or nil.
func (d *Descriptor) Child(name string) *Descriptor {
	for _, child := range d.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ValidationError reports a value rejected by a descriptor's coercion rule.
// It carries the attribute name, the offending value and its runtime type.
type ValidationError struct {
	Attr  string
	Value any
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("attribute %q: %s (value: %v, type: %T)", e.Attr, e.Msg, e.Value, e.Value)
}

func validationErr(d *Descriptor, value any, format string, args ...any) *ValidationError {
	return &ValidationError{Attr: d.Name, Value: value, Msg: fmt.Sprintf(format, args...)}
}
