// Package app wires the engine together: it loads the node type manifests
// and the pipeline file, orders instances by their link dependencies, and
// dispatches each instance's chunks to the executor.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/dag"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/manifest"
	"github.com/vk/pipeforge/internal/node"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   *manifest.Loader
	registry *descriptor.Registry
	pipeline []*node.Node
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
func NewApp(outW io.Writer, config *Config) *App {
	logger := config.newLogger(outW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		loader:   manifest.NewLoader(),
		registry: descriptor.NewRegistry(),
	}
}

// Registry returns the application's node type registry. Primarily for testing.
func (a *App) Registry() *descriptor.Registry {
	return a.registry
}

// Pipeline returns the loaded node instances. Primarily for testing.
func (a *App) Pipeline() []*node.Node {
	return a.pipeline
}

// LoadTypes loads and validates every node type manifest.
func (a *App) LoadTypes(ctx context.Context) error {
	if a.config.NodesPath == "" {
		return nil
	}
	return a.loader.LoadTypes(ctx, a.config.NodesPath, a.registry)
}

// LoadPipeline loads the pipeline file and instantiates its nodes.
func (a *App) LoadPipeline(ctx context.Context) error {
	pipeline, err := a.loader.LoadPipeline(ctx, a.config.PipelinePath, a.registry)
	if err != nil {
		return err
	}
	a.pipeline = pipeline
	return nil
}

// Run executes the main application logic: load, order, execute.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.pipeline == nil {
		if err := a.LoadTypes(ctx); err != nil {
			return fmt.Errorf("failed to load node type manifests: %w", err)
		}
		if err := a.LoadPipeline(ctx); err != nil {
			return fmt.Errorf("failed to load pipeline: %w", err)
		}
	}

	if len(a.pipeline) == 0 {
		a.logger.Warn("No node instances found in pipeline, execution not required.")
		return nil
	}

	order, err := a.executionOrder()
	if err != nil {
		return fmt.Errorf("failed to order pipeline: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(order))

	a.logger.Info("🚀 Starting execution...", "instances", len(order))
	eng := newEngine(a.config, a.registry)
	for _, inst := range order {
		if err := eng.runNode(ctx, inst); err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}
	}
	a.logger.Info("🏁 Execution finished.")
	return nil
}

// executionOrder builds the dependency graph from link values and returns
// the instances in a deterministic upstream-first order.
func (a *App) executionOrder() ([]*node.Node, error) {
	byName := make(map[string]*node.Node, len(a.pipeline))
	graph := dag.New()
	for _, inst := range a.pipeline {
		byName[inst.Name()] = inst
		graph.AddNode(inst.Name())
	}
	for _, inst := range a.pipeline {
		for _, value := range inst.Snapshot() {
			link, ok := value.(*node.Link)
			if !ok {
				continue
			}
			if err := graph.AddEdge(link.Target().Name(), inst.Name()); err != nil {
				return nil, err
			}
		}
	}

	names, err := graph.TopoSort()
	if err != nil {
		return nil, err
	}
	order := make([]*node.Node, 0, len(names))
	for _, name := range names {
		order = append(order, byName[name])
	}
	return order, nil
}
