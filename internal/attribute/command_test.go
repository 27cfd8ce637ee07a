package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandValue(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		b := &Descriptor{Name: "flag", Kind: KindBool}
		assert.Equal(t, "1", b.CommandValue(true))
		assert.Equal(t, "0", b.CommandValue(false))

		i := &Descriptor{Name: "count", Kind: KindInt}
		assert.Equal(t, "42", i.CommandValue(42))

		f := &Descriptor{Name: "scale", Kind: KindFloat}
		assert.Equal(t, "0.5", f.CommandValue(0.5))

		s := &Descriptor{Name: "label", Kind: KindString}
		assert.Equal(t, "plain", s.CommandValue("plain"))
		assert.Equal(t, `"two words"`, s.CommandValue("two words"))
	})

	t.Run("non-exclusive choice joins with JoinChar", func(t *testing.T) {
		d := &Descriptor{
			Name:     "features",
			Kind:     KindChoice,
			Values:   []any{"sift", "akaze", "orb"},
			JoinChar: ",",
		}
		assert.Equal(t, "sift,orb", d.CommandValue([]any{"sift", "orb"}))
	})

	t.Run("list joins elements", func(t *testing.T) {
		d := &Descriptor{
			Name:    "frames",
			Kind:    KindList,
			Element: &Descriptor{Name: "frame", Kind: KindInt},
		}
		assert.Equal(t, "1 2 3", d.CommandValue([]any{1, 2, 3}))
	})

	t.Run("group serializes children in declaration order", func(t *testing.T) {
		d := &Descriptor{
			Name:     "pose",
			Kind:     KindGroup,
			JoinChar: ",",
			Children: []*Descriptor{
				{Name: "x", Kind: KindFloat, Default: 0.0},
				{Name: "y", Kind: KindFloat, Default: 0.0},
				{Name: "z", Kind: KindFloat, Default: 0.0},
			},
		}
		assert.Equal(t, "1,2,0", d.CommandValue(map[string]any{"x": 1.0, "y": 2.0}),
			"missing children fall back to their defaults")
		assert.Equal(t, "1,2,3", d.CommandValue([]any{1.0, 2.0, 3.0}))
	})
}
