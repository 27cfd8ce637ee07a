package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/attribute"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/sizing"
)

func featureDesc() *descriptor.Descriptor {
	d := descriptor.New("FeatureExtraction")
	d.Inputs = []*attribute.Descriptor{
		{Name: "input", Kind: attribute.KindFile, Default: "", UIDIndices: []int{0}, Group: attribute.DefaultGroup},
		{Name: "downscale", Kind: attribute.KindChoice, Default: 2, Values: []any{1, 2, 4, 8}, Exclusive: true, UIDIndices: []int{0}, Group: attribute.DefaultGroup},
		{Name: "verbose", Kind: attribute.KindBool, Default: false, Group: attribute.DefaultGroup},
	}
	d.Outputs = []*attribute.Descriptor{
		{Name: "output", Kind: attribute.KindFile, Default: "", Group: attribute.DefaultGroup},
	}
	return d
}

func TestNewSeedsDefaults(t *testing.T) {
	n := New(featureDesc(), "features_1")

	assert.Equal(t, "features_1", n.Name())
	assert.Equal(t, "FeatureExtraction", n.Type())

	v, ok := n.Value("downscale")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = n.Value("invalidation")
	require.True(t, ok, "internal inputs are seeded too")
	assert.Equal(t, "", v)
}

func TestSetValue(t *testing.T) {
	n := New(featureDesc(), "f")

	require.NoError(t, n.SetValue("downscale", "4"))
	v, _ := n.Value("downscale")
	assert.Equal(t, 4, v, "values are coerced on the way in")

	err := n.SetValue("downscale", 3)
	var verr *attribute.ValidationError
	require.ErrorAs(t, err, &verr)
	v, _ = n.Value("downscale")
	assert.Equal(t, 4, v, "a rejected value leaves the stored one untouched")

	assert.Error(t, n.SetValue("unknown", 1))
}

func TestSizeAndRanges(t *testing.T) {
	t.Run("static size without parallelization yields one range", func(t *testing.T) {
		n := New(featureDesc(), "f")
		assert.Equal(t, 1, n.Size())
		ranges := n.Ranges()
		require.Len(t, ranges, 1)
		assert.Equal(t, sizing.Range{Iteration: 0, BlockSize: 1, FullSize: 1}, ranges[0])
	})

	t.Run("dynamic size over an int attribute", func(t *testing.T) {
		d := descriptor.New("Matcher")
		d.Inputs = []*attribute.Descriptor{
			{Name: "count", Kind: attribute.KindInt, Default: 0},
		}
		d.Size = sizing.DynamicNodeSize{Param: "count"}
		d.Parallelization = &sizing.Parallelization{BlockSize: 4}

		n := New(d, "m")
		require.NoError(t, n.SetValue("count", 10))
		assert.Equal(t, 10, n.Size())
		assert.Len(t, n.Ranges(), 3)
	})

	t.Run("size is cached until a value changes", func(t *testing.T) {
		d := descriptor.New("Counter")
		d.Inputs = []*attribute.Descriptor{
			{Name: "count", Kind: attribute.KindInt, Default: 5},
		}
		d.Size = sizing.DynamicNodeSize{Param: "count"}

		n := New(d, "c")
		assert.Equal(t, 5, n.Size())
		require.NoError(t, n.SetValue("count", 8))
		assert.Equal(t, 8, n.Size())
	})
}

func TestLinks(t *testing.T) {
	up := New(featureDesc(), "features_1")

	matchDesc := descriptor.New("FeatureMatching")
	matchDesc.Inputs = []*attribute.Descriptor{
		{Name: "features", Kind: attribute.KindFile, Default: "", UIDIndices: []int{0}, Group: attribute.DefaultGroup},
	}
	matchDesc.Size = sizing.DynamicNodeSize{Param: "features"}
	down := New(matchDesc, "matching_1")

	require.NoError(t, down.SetLink("features", up, "output"))

	v, ok := down.Value("features")
	require.True(t, ok)
	link, ok := v.(*Link)
	require.True(t, ok)
	assert.Equal(t, up, link.Target())
	assert.Equal(t, "output", link.Attr())

	t.Run("links propagate the upstream size", func(t *testing.T) {
		assert.Equal(t, up.Size(), down.Size())
	})

	t.Run("output links resolve to the expanded output path", func(t *testing.T) {
		resolved := link.Resolve("/tmp/cache")
		assert.Equal(t, "/tmp/cache/FeatureExtraction/"+up.UID(0)+"/", resolved)
	})

	t.Run("input links resolve to the upstream value", func(t *testing.T) {
		require.NoError(t, up.SetValue("input", "/data/images"))
		require.NoError(t, down.SetLink("features", up, "input"))
		v, _ := down.Value("features")
		assert.Equal(t, "/data/images", v.(*Link).Resolve("/tmp/cache"))
	})

	t.Run("missing target attribute is rejected", func(t *testing.T) {
		assert.Error(t, down.SetLink("features", up, "nope"))
	})
}

func TestUID(t *testing.T) {
	t.Run("deterministic across instances", func(t *testing.T) {
		a := New(featureDesc(), "a")
		b := New(featureDesc(), "b")
		require.NoError(t, a.SetValue("input", "/data"))
		require.NoError(t, b.SetValue("input", "/data"))
		assert.Equal(t, a.UID(0), b.UID(0), "the instance name never enters the uid")
	})

	t.Run("participating value changes the uid", func(t *testing.T) {
		n := New(featureDesc(), "n")
		before := n.UID(0)
		require.NoError(t, n.SetValue("downscale", 8))
		assert.NotEqual(t, before, n.UID(0))
	})

	t.Run("non-participating value leaves the uid alone", func(t *testing.T) {
		n := New(featureDesc(), "n")
		before := n.UID(0)
		require.NoError(t, n.SetValue("verbose", true))
		assert.Equal(t, before, n.UID(0))
	})

	t.Run("ignore value drops the attribute from the key", func(t *testing.T) {
		n := New(featureDesc(), "n")
		before := n.UID(0)

		require.NoError(t, n.SetValue("invalidation", "retry after fix"))
		invalidated := n.UID(0)
		assert.NotEqual(t, before, invalidated)

		require.NoError(t, n.SetValue("invalidation", ""))
		assert.Equal(t, before, n.UID(0), "the empty message is declared ignorable")
	})

	t.Run("composite ignore value compares deeply", func(t *testing.T) {
		d := descriptor.New("Sampler")
		d.Inputs = []*attribute.Descriptor{
			{
				Name: "frames", Kind: attribute.KindList, Default: []any{},
				UIDIgnoreValue: []any{},
				Element:        &attribute.Descriptor{Name: "frame", Kind: attribute.KindInt, UIDIndices: []int{0}},
			},
		}
		n := New(d, "s")
		empty := n.UID(0)

		require.NoError(t, n.SetValue("frames", []any{1, 2}))
		assert.NotEqual(t, empty, n.UID(0))

		require.NoError(t, n.SetValue("frames", []any{}))
		assert.Equal(t, empty, n.UID(0), "the empty list is declared ignorable")
	})

	t.Run("disabled attributes do not contribute", func(t *testing.T) {
		d := descriptor.New("T")
		d.Inputs = []*attribute.Descriptor{
			{Name: "mode", Kind: attribute.KindString, Default: "auto", UIDIndices: []int{0}},
			{
				Name: "threshold", Kind: attribute.KindFloat, Default: 0.5, UIDIndices: []int{0},
				Enabled: func(s attribute.Snapshot) bool {
					v, _ := s["mode"].(string)
					return v == "manual"
				},
			},
		}
		n := New(d, "n")
		before := n.UID(0)
		require.NoError(t, n.SetValue("threshold", 0.9))
		assert.Equal(t, before, n.UID(0), "threshold is gated off in auto mode")

		require.NoError(t, n.SetValue("mode", "manual"))
		assert.NotEqual(t, before, n.UID(0))
	})

	t.Run("upstream change invalidates downstream", func(t *testing.T) {
		up := New(featureDesc(), "up")
		d := descriptor.New("Down")
		d.Inputs = []*attribute.Descriptor{
			{Name: "src", Kind: attribute.KindFile, Default: "", UIDIndices: []int{0}},
		}
		down := New(d, "down")
		require.NoError(t, down.SetLink("src", up, "output"))
		before := down.UID(0)

		require.NoError(t, up.SetValue("input", "/other"))
		require.NoError(t, down.SetLink("src", up, "output"))
		assert.NotEqual(t, before, down.UID(0))
	})
}

func TestInternalFolder(t *testing.T) {
	n := New(featureDesc(), "f")
	folder := n.InternalFolder("/tmp/cache")
	assert.Equal(t, "/tmp/cache/FeatureExtraction/"+n.UID(0)+"/", folder)
}

func TestExpand(t *testing.T) {
	out := Expand("{cache}/{nodeType}/{uid0}/", map[string]any{
		"cache":    "/c",
		"nodeType": "T",
		"uid0":     "abc",
	})
	assert.Equal(t, "/c/T/abc/", out)

	assert.Equal(t, "{unknown} stays", Expand("{unknown} stays", map[string]any{"cache": "/c"}))
}

func TestCommandVars(t *testing.T) {
	n := New(featureDesc(), "f")
	require.NoError(t, n.SetValue("input", "/data/images"))
	require.NoError(t, n.SetValue("verbose", true))

	vars := n.CommandVars("/tmp/cache")

	assert.Equal(t, "/tmp/cache", vars["cache"])
	assert.Equal(t, "FeatureExtraction", vars["nodeType"])
	assert.Equal(t, n.UID(0), vars["uid0"])
	assert.Equal(t, "/data/images", vars["input"])
	assert.Equal(t, "2", vars["downscale"])
	assert.Equal(t, "1", vars["verbose"])

	outPath := "/tmp/cache/FeatureExtraction/" + n.UID(0) + "/"
	assert.Equal(t, outPath, vars["output"])

	allParams, ok := vars["allParams"].(string)
	require.True(t, ok)
	assert.Equal(t,
		"--input /data/images --downscale 2 --verbose 1 --output "+outPath,
		allParams, "flags follow declaration order, outputs last")
}
