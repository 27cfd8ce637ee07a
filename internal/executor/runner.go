package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/pipeforge/internal/descriptor"
)

// Runner supplies the execution operations of a node type. Node types that
// perform work must provide both; anything else surfaces an
// *UnimplementedOperationError when invoked.
type Runner interface {
	ProcessChunk(ctx context.Context, c *Chunk) error
	StopProcess(c *Chunk) error
}

// RunnerFactory builds the runner for one node type.
type RunnerFactory func(cacheRoot string) Runner

var (
	runnersMu sync.RWMutex
	runners   = map[string]RunnerFactory{}
)

// RegisterRunner installs a custom runner for a node type, taking
// precedence over the default command runner. Registering a type twice
// panics: runners are wired once at startup.
func RegisterRunner(nodeType string, factory RunnerFactory) {
	runnersMu.Lock()
	defer runnersMu.Unlock()
	if _, exists := runners[nodeType]; exists {
		panic(fmt.Sprintf("runner for node type '%s' already registered", nodeType))
	}
	runners[nodeType] = factory
}

// RunnerFor resolves the runner for a node type: a registered custom
// runner, the command runner when the type declares a command template, or
// the unimplemented stub.
func RunnerFor(d *descriptor.Descriptor, cacheRoot string) Runner {
	runnersMu.RLock()
	factory, ok := runners[d.Type]
	runnersMu.RUnlock()
	if ok {
		return factory(cacheRoot)
	}
	if d.CommandLine != "" {
		return &CommandRunner{CacheRoot: cacheRoot}
	}
	return unimplemented{}
}

type unimplemented struct{}

func (unimplemented) ProcessChunk(_ context.Context, c *Chunk) error {
	return &UnimplementedOperationError{Node: c.Node().Name(), Op: "processChunk"}
}

func (unimplemented) StopProcess(c *Chunk) error {
	return &UnimplementedOperationError{Node: c.Node().Name(), Op: "stopProcess"}
}
