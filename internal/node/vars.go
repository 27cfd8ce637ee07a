package node

import (
	"fmt"
	"strings"

	"github.com/vk/pipeforge/internal/attribute"
	"github.com/vk/pipeforge/internal/descriptor"
)

// Expand substitutes {key} placeholders in a template with the given
// variables. Unknown placeholders are left untouched.
func Expand(template string, vars map[string]any) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", fmt.Sprintf("%v", value))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// InternalFolder resolves the instance's cache-keyed output directory:
// every distinct parameter combination maps to an isolated directory.
func (n *Node) InternalFolder(cacheRoot string) string {
	return Expand(n.desc.InternalFolder, map[string]any{
		"cache":    cacheRoot,
		"nodeType": n.desc.Type,
		"uid0":     n.UID(0),
	})
}

// CommandVars builds the substitution variables for the command template:
// the cache/type/uid base vars, one entry per attribute, the expanded
// output paths, and the catch-all allParams expansion over every enabled
// input and output in the command group.
func (n *Node) CommandVars(cacheRoot string) map[string]any {
	snap := n.Snapshot()
	vars := map[string]any{
		"cache":    cacheRoot,
		"nodeType": n.desc.Type,
		"uid0":     n.UID(0),
	}

	var flags []string
	for _, in := range n.desc.Inputs {
		value, ok := snap[in.Name]
		if !ok {
			value = in.Default
		}
		token := n.commandToken(in, value, cacheRoot)
		vars[in.Name] = token
		if in.Group == attribute.DefaultGroup && in.IsEnabled(snap) {
			flags = append(flags, "--"+in.Name+" "+token)
		}
	}
	for _, out := range n.desc.Outputs {
		resolved := n.resolveOutput(out, cacheRoot)
		vars[out.Name] = resolved
		if out.Group == attribute.DefaultGroup {
			flags = append(flags, "--"+out.Name+" "+resolved)
		}
	}
	vars["allParams"] = strings.Join(flags, " ")
	return vars
}

func (n *Node) commandToken(desc *attribute.Descriptor, value any, cacheRoot string) string {
	if link, ok := value.(*Link); ok {
		resolved := link.Resolve(cacheRoot)
		if s, ok := resolved.(string); ok {
			return s
		}
		return desc.CommandValue(resolved)
	}
	return desc.CommandValue(value)
}

// resolveOutput expands an output attribute's default path template with
// the instance's cache variables.
func (n *Node) resolveOutput(out *attribute.Descriptor, cacheRoot string) string {
	template, _ := out.Default.(string)
	if template == "" {
		template = descriptor.DefaultInternalFolder
	}
	return Expand(template, map[string]any{
		"cache":    cacheRoot,
		"nodeType": n.desc.Type,
		"uid0":     n.UID(0),
	})
}
