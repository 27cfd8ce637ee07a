package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/pipeforge/internal/attribute"
	"github.com/vk/pipeforge/internal/ctyconv"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/sizing"
)

// translateType converts one manifest block into an immutable descriptor.
func translateType(block *typeBlock) (*descriptor.Descriptor, error) {
	d := descriptor.New(block.Type)
	d.Description = block.Description
	d.Documentation = block.Documentation
	d.Version = block.Version
	d.CommandLine = block.CommandLine
	d.CommandLineRange = block.CommandLineRange
	if block.Category != "" {
		d.Category = block.Category
	}
	if block.InternalFolder != "" {
		d.InternalFolder = block.InternalFolder
	}
	if block.Package != nil {
		d.PackageName = block.Package.Name
		d.PackageVersion = block.Package.Version
	}

	if block.Resources != nil {
		var err error
		if d.CPU, err = levelOrDefault(block.Resources.CPU, descriptor.LevelNormal); err != nil {
			return nil, fmt.Errorf("node type %q: cpu: %w", block.Type, err)
		}
		if d.GPU, err = levelOrDefault(block.Resources.GPU, descriptor.LevelNone); err != nil {
			return nil, fmt.Errorf("node type %q: gpu: %w", block.Type, err)
		}
		if d.RAM, err = levelOrDefault(block.Resources.RAM, descriptor.LevelNormal); err != nil {
			return nil, fmt.Errorf("node type %q: ram: %w", block.Type, err)
		}
		d.LimitFlags = block.Resources.LimitFlags
	}

	if block.Size != nil {
		switch {
		case len(block.Size.Dynamic) == 1:
			d.Size = sizing.DynamicNodeSize{Param: block.Size.Dynamic[0]}
		case len(block.Size.Dynamic) > 1:
			d.Size = sizing.MultiDynamicNodeSize{Params: block.Size.Dynamic}
		case block.Size.Static > 0:
			d.Size = sizing.StaticNodeSize{Size: block.Size.Static}
		default:
			return nil, fmt.Errorf("node type %q: size block declares neither dynamic nor static", block.Type)
		}
	}

	if block.Parallelization != nil {
		d.Parallelization = &sizing.Parallelization{
			BlockSize:      block.Parallelization.BlockSize,
			StaticNbBlocks: block.Parallelization.StaticBlocks,
		}
	}

	for _, in := range block.Inputs {
		attr, err := translateAttr(in)
		if err != nil {
			return nil, fmt.Errorf("node type %q: input %q: %w", block.Type, in.Name, err)
		}
		d.Inputs = append(d.Inputs, attr)
	}
	for _, out := range block.Outputs {
		attr, err := translateAttr(out)
		if err != nil {
			return nil, fmt.Errorf("node type %q: output %q: %w", block.Type, out.Name, err)
		}
		d.Outputs = append(d.Outputs, attr)
	}
	return d, nil
}

func levelOrDefault(s string, def descriptor.Level) (descriptor.Level, error) {
	if s == "" {
		return def, nil
	}
	return descriptor.ParseLevel(s)
}

// translateAttr converts one attribute block, recursing into list elements
// and group children.
func translateAttr(block *attrBlock) (*attribute.Descriptor, error) {
	kind := attribute.Kind(block.Kind)
	d := &attribute.Descriptor{
		Name:        block.Name,
		Label:       block.Label,
		Description: block.Description,
		Kind:        kind,
		UIDIndices:  block.UID,
		Advanced:    block.Advanced,
		Semantic:    block.Semantic,
		Exclusive:   block.Exclusive,
		JoinChar:    block.Join,
		Group:       attribute.DefaultGroup,
	}
	if block.Group != nil {
		d.Group = *block.Group
	}

	// A missing optional expression decodes to a synthetic null literal,
	// so presence is judged on the evaluated value, not on the field.
	values, err := evalAs(block.Values, kind)
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	if values != nil {
		items, ok := values.([]any)
		if !ok {
			return nil, fmt.Errorf("values must be a list")
		}
		d.Values = items
	}

	bounds, err := evalAs(block.Range, kind)
	if err != nil {
		return nil, fmt.Errorf("range: %w", err)
	}
	if bounds != nil {
		items, ok := bounds.([]any)
		if !ok || len(items) != 2 {
			return nil, fmt.Errorf("range must be a two-element list")
		}
		d.Range = items
	}

	if d.Default, err = evalAs(block.Default, kind); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	if d.UIDIgnoreValue, err = evalAs(block.UIDIgnore, kind); err != nil {
		return nil, fmt.Errorf("uid_ignore: %w", err)
	}
	if exprPresent(block.Enabled) {
		d.Enabled = enabledFunc(block.Enabled)
	}

	if block.Element != nil {
		element, err := translateAttr(block.Element)
		if err != nil {
			return nil, fmt.Errorf("element: %w", err)
		}
		d.Element = element
	}
	for _, child := range block.Children {
		translated, err := translateAttr(child)
		if err != nil {
			return nil, fmt.Errorf("child %q: %w", child.Name, err)
		}
		d.Children = append(d.Children, translated)
	}

	if d.Default == nil {
		d.Default = kindZero(d)
	}
	return d, nil
}

// exprPresent reports whether an optional expression was actually written
// in the manifest: either it references variables (so static evaluation
// fails) or it evaluates to a non-null value.
func exprPresent(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	val, diags := expr.Value(nil)
	return diags.HasErrors() || !val.IsNull()
}

// evalAs evaluates a static manifest expression and shapes the result for
// the declared kind, so a manifest "2" lands as an int for int attributes
// and a float64 for float attributes.
func evalAs(expr hcl.Expression, kind attribute.Kind) (any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	out, err := ctyconv.ToGo(val)
	if err != nil {
		return nil, err
	}
	return shapeForKind(out, kind), nil
}

func shapeForKind(v any, kind attribute.Kind) any {
	switch kind {
	case attribute.KindFloat:
		if i, ok := v.(int); ok {
			return float64(i)
		}
		if items, ok := v.([]any); ok {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = shapeForKind(item, kind)
			}
			return out
		}
	}
	return v
}

func kindZero(d *attribute.Descriptor) any {
	switch d.Kind {
	case attribute.KindBool:
		return false
	case attribute.KindInt:
		return 0
	case attribute.KindFloat:
		return 0.0
	case attribute.KindString, attribute.KindColor, attribute.KindFile:
		return ""
	case attribute.KindChoice:
		if len(d.Values) > 0 {
			return d.Values[0]
		}
		return nil
	case attribute.KindList:
		return []any{}
	case attribute.KindGroup:
		defaults := make(map[string]any, len(d.Children))
		for _, child := range d.Children {
			defaults[child.Name] = child.Default
		}
		return defaults
	}
	return nil
}

// enabledFunc closes over an HCL expression evaluated against a read-only
// snapshot of the owning node's values, exposed as the `values` object.
// Evaluation problems leave the attribute enabled.
func enabledFunc(expr hcl.Expression) attribute.EnabledFunc {
	return func(snap attribute.Snapshot) bool {
		vars := make(map[string]cty.Value, len(snap))
		for name, value := range snap {
			cv, err := ctyconv.ToCty(value)
			if err != nil {
				continue
			}
			vars[name] = cv
		}
		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{"values": cty.ObjectVal(vars)},
		}
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() || val.IsNull() {
			return true
		}
		b, err := convert.Convert(val, cty.Bool)
		if err != nil {
			return true
		}
		return b.True()
	}
}
