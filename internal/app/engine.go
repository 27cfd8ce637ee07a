package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/executor"
	"github.com/vk/pipeforge/internal/node"
)

// engine drives one pipeline run: per instance, it resolves the chunk
// ranges and dispatches every chunk concurrently within the worker limit.
type engine struct {
	config   *Config
	registry *descriptor.Registry
}

func newEngine(config *Config, registry *descriptor.Registry) *engine {
	return &engine{config: config, registry: registry}
}

// runNode executes every chunk of one instance. Chunks of a single
// instance carry no ordering between them; the sizing model guarantees
// their ranges are disjoint and cover the full logical size.
func (e *engine) runNode(ctx context.Context, inst *node.Node) error {
	logger := ctxlog.FromContext(ctx).With("node", inst.Name(), "type", inst.Type())
	logger.Info("▶️ Starting node", "size", inst.Size(), "uid0", inst.UID(0))

	inst.Update()

	runner := executor.RunnerFor(inst.Desc(), e.config.CacheRoot)
	ranges := inst.Ranges()
	chunks := make([]*executor.Chunk, 0, len(ranges))
	for _, r := range ranges {
		chunks = append(chunks, executor.NewChunk(inst, r, e.config.CacheRoot))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.WorkerCount)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			return runner.ProcessChunk(gctx, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		// Signal the whole process subtree of any chunk still running.
		for _, chunk := range chunks {
			_ = runner.StopProcess(chunk)
		}
		return err
	}

	inst.PostUpdate()
	logger.Info("✅ Finished node", "chunks", len(chunks))
	return nil
}
