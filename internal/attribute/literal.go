package attribute

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/pipeforge/internal/ctyconv"
)

// parseLiteral interprets a string as a literal HCL expression, so that
// composite values arriving as text (e.g. "[1, 2, 3]" or "{a: 1}") can be
// validated structurally.
func parseLiteral(src string) (any, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<literal>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	out, err := ctyconv.ToGo(val)
	if err != nil {
		return nil, fmt.Errorf("literal conversion: %w", err)
	}
	return out, nil
}
