package attribute

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandValue serializes a validated value into its command-line token.
// Multi-valued attributes (non-exclusive choices, lists, groups) join their
// elements with the descriptor's JoinChar.
func (d *Descriptor) CommandValue(value any) string {
	join := d.JoinChar
	if join == "" {
		join = " "
	}
	switch d.Kind {
	case KindList:
		items, ok := value.([]any)
		if !ok {
			return scalarToken(value)
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if d.Element != nil {
				parts = append(parts, d.Element.CommandValue(item))
			} else {
				parts = append(parts, scalarToken(item))
			}
		}
		return strings.Join(parts, join)
	case KindGroup:
		return d.groupToken(value, join)
	case KindChoice:
		if items, ok := value.([]any); ok && !d.Exclusive {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, scalarToken(item))
			}
			return strings.Join(parts, join)
		}
		return scalarToken(value)
	default:
		return scalarToken(value)
	}
}

func (d *Descriptor) groupToken(value any, join string) string {
	var parts []string
	switch v := value.(type) {
	case map[string]any:
		for _, child := range d.Children {
			childValue, ok := v[child.Name]
			if !ok {
				childValue = child.Default
			}
			parts = append(parts, child.CommandValue(childValue))
		}
	case []any:
		for i, childValue := range v {
			if i < len(d.Children) {
				parts = append(parts, d.Children[i].CommandValue(childValue))
			}
		}
	default:
		return scalarToken(value)
	}
	return strings.Join(parts, join)
}

func scalarToken(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		if strings.ContainsAny(v, " \t") {
			return strconv.Quote(v)
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
