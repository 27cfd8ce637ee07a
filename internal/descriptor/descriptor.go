// Package descriptor defines the immutable per-type template a node
// instance is built from: declared attributes, resource hints, the command
// template, sizing and parallelization strategies, and lifecycle hooks.
package descriptor

import (
	"fmt"

	"github.com/vk/pipeforge/internal/attribute"
	"github.com/vk/pipeforge/internal/sizing"
)

// Level is a qualitative resource requirement hint.
type Level int

const (
	LevelNone Level = iota
	LevelNormal
	LevelIntensive
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelNormal:
		return "normal"
	case LevelIntensive:
		return "intensive"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel parses a resource level name.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none":
		return LevelNone, nil
	case "normal":
		return LevelNormal, nil
	case "intensive":
		return LevelIntensive, nil
	}
	return LevelNone, fmt.Errorf("invalid resource level %q: must be 'none', 'normal' or 'intensive'", s)
}

// DefaultInternalFolder is the cache-keyed output directory template every
// node type starts from.
const DefaultInternalFolder = "{cache}/{nodeType}/{uid0}/"

// Instance is the running node a descriptor's lifecycle hooks observe.
type Instance interface {
	Name() string
	Value(attr string) (any, bool)
	SetValue(attr string, value any) error
}

// Hooks are the optional lifecycle callbacks invoked around recomputation
// of a node instance. All default to no-ops that must not fail under normal
// conditions; UpgradeValues defaults to identity.
type Hooks struct {
	// Update runs before a node instance's internal update on
	// invalidation.
	Update func(Instance)
	// PostUpdate runs after the internal update.
	PostUpdate func(Instance)
	// UpgradeValues translates a serialized value mapping saved under an
	// older schema version to the current one.
	UpgradeValues func(values map[string]any, fromVersion string) map[string]any
}

// Descriptor is the immutable template of one node type.
type Descriptor struct {
	Type          string
	Version       string
	Description   string
	Documentation string
	Category      string

	Inputs  []*attribute.Descriptor
	Outputs []*attribute.Descriptor

	CPU Level
	GPU Level
	RAM Level

	// PackageName and PackageVersion identify the versioned runtime the
	// command requires; empty version disables runtime relocation.
	PackageName    string
	PackageVersion string

	// CommandLine is the external invocation template. The {allParams}
	// token expands to every resolved, enabled input flag.
	CommandLine string
	// CommandLineRange is the suffix template appended per chunk when the
	// node is parallelized, filled from the chunk range's derived fields.
	CommandLineRange string
	// LimitFlags appends the quota-derived memory/core limit flags
	// discovered once per process lifetime.
	LimitFlags bool

	Size            sizing.Sizer
	Parallelization *sizing.Parallelization

	// InternalFolder is the output directory template, parameterized by
	// the cache root, the type name, and the first uid component.
	InternalFolder string

	Hooks Hooks
}

// New returns a descriptor with the engine's defaults: normal cpu/ram, no
// gpu, a constant size of 1, and the standard internal folder template.
func New(typeName string) *Descriptor {
	return &Descriptor{
		Type:           typeName,
		Category:       "Other",
		CPU:            LevelNormal,
		GPU:            LevelNone,
		RAM:            LevelNormal,
		Size:           sizing.StaticNodeSize{Size: 1},
		InternalFolder: DefaultInternalFolder,
	}
}

// IsParallelized reports whether the type splits its work into chunks.
func (d *Descriptor) IsParallelized() bool {
	if d.Parallelization == nil {
		return false
	}
	return d.Parallelization.BlockSize > 0 || d.Parallelization.StaticNbBlocks > 0
}

// Input returns the declared or internal input with the given name, or nil.
func (d *Descriptor) Input(name string) *attribute.Descriptor {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in
		}
	}
	for _, in := range InternalInputs() {
		if in.Name == name {
			return in
		}
	}
	return nil
}

// Output returns the declared output with the given name, or nil.
func (d *Descriptor) Output(name string) *attribute.Descriptor {
	for _, out := range d.Outputs {
		if out.Name == name {
			return out
		}
	}
	return nil
}

// PackageFullName is the launcher argument naming the required runtime.
func (d *Descriptor) PackageFullName() string {
	if d.PackageVersion == "" {
		return d.PackageName
	}
	return d.PackageName + "-" + d.PackageVersion
}

// Update invokes the pre-recompute hook, if any.
func (d *Descriptor) Update(inst Instance) {
	if d.Hooks.Update != nil {
		d.Hooks.Update(inst)
	}
}

// PostUpdate invokes the post-recompute hook, if any.
func (d *Descriptor) PostUpdate(inst Instance) {
	if d.Hooks.PostUpdate != nil {
		d.Hooks.PostUpdate(inst)
	}
}

// UpgradeValues translates values saved under fromVersion to the current
// schema version. Without a hook it is the identity.
func (d *Descriptor) UpgradeValues(values map[string]any, fromVersion string) map[string]any {
	if d.Hooks.UpgradeValues != nil {
		return d.Hooks.UpgradeValues(values, fromVersion)
	}
	return values
}
