// Package testutil provides the shared harness for integration-style tests
// that exercise manifests, pipelines, and the execution engine together.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a harness run. Logs is the live
// buffer the app keeps writing to; LogOutput is its content at the end of
// the load phase.
type HarnessResult struct {
	LogOutput string
	Logs      *SafeBuffer
	Err       error
	App       *app.App
	CacheRoot string
}

// LoadPipelineTest writes the given files (relative paths under a temporary
// root, e.g. "nodes/type.hcl" and "pipeline.hcl") and runs the load phase:
// manifests parsed and registered, pipeline instantiated. Execution itself
// stays under the caller's control through the returned App.
func LoadPipelineTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return loadWithContext(context.Background(), t, files)
}

func loadWithContext(ctx context.Context, t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	nodesDir := filepath.Join(tmpDir, "nodes")
	cacheDir := filepath.Join(tmpDir, "cache")
	require.NoError(t, os.MkdirAll(nodesDir, 0o755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: filepath.Join(tmpDir, "pipeline.hcl"),
		NodesPath:    nodesDir,
		CacheRoot:    cacheDir,
		LogLevel:     "debug",
		LogFormat:    "text",
		WorkerCount:  4,
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	testApp := app.NewApp(logBuffer, appConfig)

	var runErr error
	if err := testApp.LoadTypes(ctx); err != nil {
		runErr = err
	} else if err := testApp.LoadPipeline(ctx); err != nil {
		runErr = err
	}

	if os.Getenv("PIPEFORGE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Logs:      logBuffer,
		Err:       runErr,
		App:       testApp,
		CacheRoot: cacheDir,
	}
}
