package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/node"
)

type recordingRunner struct{ processed int }

func (r *recordingRunner) ProcessChunk(context.Context, *Chunk) error {
	r.processed++
	return nil
}

func (r *recordingRunner) StopProcess(*Chunk) error { return nil }

func TestRunnerFor(t *testing.T) {
	t.Run("command template selects the command runner", func(t *testing.T) {
		d := descriptor.New("WithCommand")
		d.CommandLine = "tool {allParams}"
		r := RunnerFor(d, "/tmp/cache")
		cr, ok := r.(*CommandRunner)
		require.True(t, ok)
		assert.Equal(t, "/tmp/cache", cr.CacheRoot)
	})

	t.Run("no command and no registration is unimplemented", func(t *testing.T) {
		d := descriptor.New("Inert")
		r := RunnerFor(d, "/tmp/cache")

		n := node.New(d, "inert_1")
		c := NewChunk(n, n.Ranges()[0], t.TempDir())

		err := r.ProcessChunk(context.Background(), c)
		var uerr *UnimplementedOperationError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "inert_1", uerr.Node)
		assert.Equal(t, "processChunk", uerr.Op)

		err = r.StopProcess(c)
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "stopProcess", uerr.Op)
	})

	t.Run("registered runners take precedence", func(t *testing.T) {
		custom := &recordingRunner{}
		RegisterRunner("CustomKind", func(cacheRoot string) Runner { return custom })

		d := descriptor.New("CustomKind")
		d.CommandLine = "never used"
		r := RunnerFor(d, "/tmp/cache")
		assert.Same(t, custom, r)

		t.Run("double registration panics", func(t *testing.T) {
			assert.Panics(t, func() {
				RegisterRunner("CustomKind", func(string) Runner { return custom })
			})
		})
	})
}
