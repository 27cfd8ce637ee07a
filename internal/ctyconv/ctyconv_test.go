package ctyconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestToGo(t *testing.T) {
	t.Run("whole numbers land as int, fractions as float64", func(t *testing.T) {
		v, err := ToGo(cty.NumberIntVal(42))
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		v, err = ToGo(cty.NumberFloatVal(0.5))
		require.NoError(t, err)
		assert.Equal(t, 0.5, v)
	})

	t.Run("null and unknown become nil", func(t *testing.T) {
		v, err := ToGo(cty.NullVal(cty.String))
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = ToGo(cty.UnknownVal(cty.Number))
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("composites convert recursively", func(t *testing.T) {
		v, err := ToGo(cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("two")}))
		require.NoError(t, err)
		assert.Equal(t, []any{1, "two"}, v)

		v, err = ToGo(cty.ObjectVal(map[string]cty.Value{
			"enabled": cty.True,
			"scale":   cty.NumberFloatVal(1.5),
		}))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"enabled": true, "scale": 1.5}, v)
	})
}

func TestToCty(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		v, err := ToCty(42)
		require.NoError(t, err)
		assert.True(t, cty.NumberIntVal(42).RawEquals(v))

		v, err = ToCty("hello")
		require.NoError(t, err)
		assert.True(t, cty.StringVal("hello").RawEquals(v))

		v, err = ToCty(true)
		require.NoError(t, err)
		assert.True(t, cty.True.RawEquals(v))
	})

	t.Run("composites", func(t *testing.T) {
		v, err := ToCty([]any{1, "two"})
		require.NoError(t, err)
		assert.True(t, cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("two")}).RawEquals(v))

		v, err = ToCty(map[string]any{"a": 1})
		require.NoError(t, err)
		assert.True(t, cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1)}).RawEquals(v))
	})

	t.Run("unsupported types fail", func(t *testing.T) {
		_, err := ToCty(struct{}{})
		assert.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	original := map[string]any{
		"downscale": 2,
		"threshold": 0.75,
		"features":  []any{"sift", "akaze"},
	}
	cv, err := ToCty(original)
	require.NoError(t, err)
	back, err := ToGo(cv)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}
