package descriptor

import "github.com/vk/pipeforge/internal/attribute"

// InternalInputs are the attributes every node type carries implicitly.
// The invalidation message participates in the cache key unless empty, so
// an untouched node keeps its cached outputs.
func InternalInputs() []*attribute.Descriptor {
	return []*attribute.Descriptor{
		{
			Name:  "invalidation",
			Label: "Invalidation Message",
			Description: "A message that invalidates the node's output folder.\n" +
				"Useful during development to discard cached outputs after a code change.",
			Kind:           attribute.KindString,
			Default:        "",
			Semantic:       "multiline",
			UIDIndices:     []int{0},
			Advanced:       true,
			UIDIgnoreValue: "",
			Group:          "",
		},
		{
			Name:        "comment",
			Label:       "Comments",
			Description: "User comments describing this specific node instance.",
			Kind:        attribute.KindString,
			Default:     "",
			Semantic:    "multiline",
			Group:       "",
		},
		{
			Name:        "label",
			Label:       "Node's Label",
			Description: "Customize the default label shown for the node instance.",
			Kind:        attribute.KindString,
			Default:     "",
			Group:       "",
		},
		{
			Name:        "color",
			Label:       "Color",
			Description: "Custom color for the node (SVG name or hexadecimal code).",
			Kind:        attribute.KindColor,
			Default:     "",
			Group:       "",
		},
	}
}
