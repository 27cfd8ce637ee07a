package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/ctyconv"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/node"
)

// link is a parsed node.<instance>.<attr> reference awaiting resolution.
type link struct {
	instance string
	attr     string
}

// LoadPipeline reads a pipeline file and instantiates its node blocks in
// declaration order. Static value expressions are validated and assigned;
// expressions referencing node.<instance>.<attr> become links once every
// instance exists.
func (l *Loader) LoadPipeline(ctx context.Context, path string, reg *descriptor.Registry) ([]*node.Node, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline file.", "path", path)

	hclFile, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing pipeline %s: %w", path, diags)
	}
	var file pipelineFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("decoding pipeline %s: %w", path, diags)
	}

	instances := make(map[string]*node.Node, len(file.Nodes))
	order := make([]*node.Node, 0, len(file.Nodes))
	pendingLinks := make(map[string]map[string]link)

	// First pass: instantiate and assign static values.
	for _, block := range file.Nodes {
		desc, ok := reg.Get(block.Type)
		if !ok {
			return nil, fmt.Errorf("pipeline %s: unknown node type '%s'", path, block.Type)
		}
		if _, exists := instances[block.Name]; exists {
			return nil, fmt.Errorf("pipeline %s: duplicate instance name '%s'", path, block.Name)
		}
		inst := node.New(desc, block.Name)
		instances[block.Name] = inst
		order = append(order, inst)

		entries, err := splitValues(block.Values)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: node '%s': %w", path, block.Name, err)
		}
		for attrName, expr := range entries {
			if ref, ok := linkRef(expr); ok {
				if pendingLinks[block.Name] == nil {
					pendingLinks[block.Name] = make(map[string]link)
				}
				pendingLinks[block.Name][attrName] = ref
				continue
			}
			val, diags := expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("pipeline %s: node '%s': value %q: %w", path, block.Name, attrName, diags)
			}
			goVal, err := ctyconv.ToGo(val)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: node '%s': value %q: %w", path, block.Name, attrName, err)
			}
			if err := inst.SetValue(attrName, goVal); err != nil {
				return nil, fmt.Errorf("pipeline %s: node '%s': %w", path, block.Name, err)
			}
		}
	}

	// Second pass: connect links now that every instance exists.
	for instName, links := range pendingLinks {
		inst := instances[instName]
		for attrName, ref := range links {
			target, ok := instances[ref.instance]
			if !ok {
				return nil, fmt.Errorf("pipeline %s: node '%s': link target instance '%s' not found", path, instName, ref.instance)
			}
			if err := inst.SetLink(attrName, target, ref.attr); err != nil {
				return nil, fmt.Errorf("pipeline %s: %w", path, err)
			}
		}
	}

	logger.Info("Pipeline loaded.", "instances", len(order))
	return order, nil
}

// splitValues breaks a values object expression into per-key expressions so
// link references can be detected individually.
func splitValues(expr hcl.Expression) (map[string]hcl.Expression, error) {
	if expr == nil {
		return nil, nil
	}
	obj, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		// An omitted values attribute decodes to a null literal.
		if val, diags := expr.Value(nil); !diags.HasErrors() && val.IsNull() {
			return nil, nil
		}
		return nil, fmt.Errorf("values must be an object")
	}
	entries := make(map[string]hcl.Expression, len(obj.Items))
	for _, item := range obj.Items {
		key, diags := item.KeyExpr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("object keys must be static: %w", diags)
		}
		entries[key.AsString()] = item.ValueExpr
	}
	return entries, nil
}

// linkRef recognizes a bare node.<instance>.<attr> traversal.
func linkRef(expr hcl.Expression) (link, bool) {
	vars := expr.Variables()
	if len(vars) != 1 || vars[0].RootName() != "node" {
		return link{}, false
	}
	traversal := vars[0]
	if len(traversal) != 3 {
		return link{}, false
	}
	instStep, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return link{}, false
	}
	attrStep, ok := traversal[2].(hcl.TraverseAttr)
	if !ok {
		return link{}, false
	}
	return link{instance: instStep.Name, attr: attrStep.Name}, true
}
