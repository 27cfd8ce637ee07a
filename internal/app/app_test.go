package app_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/executor"
	"github.com/vk/pipeforge/internal/testutil"
)

func TestRunPipeline(t *testing.T) {
	result := testutil.LoadPipelineTest(t, map[string]string{
		"nodes/types.hcl": `
node "CameraInit" {
  command_line = "echo initializing cameras"

  output "output" {
    kind = "file"
  }
}

node "FeatureExtraction" {
  command_line       = "echo extracting {allParams}"
  command_line_range = "--rangeStart {rangeStart} --rangeSize {rangeEffectiveBlockSize}"

  size {
    dynamic = ["count"]
  }

  parallelization {
    block_size = 2
  }

  input "images" {
    kind = "file"
    uid  = [0]
  }

  input "count" {
    kind    = "int"
    default = 0
  }
}
`,
		"pipeline.hcl": `
node "FeatureExtraction" "features_1" {
  values = {
    images = node.cameraInit_1.output
    count  = 5
  }
}

node "CameraInit" "cameraInit_1" {}
`,
	})
	require.NoError(t, result.Err)
	require.Len(t, result.App.Pipeline(), 2)

	require.NoError(t, result.App.Run(context.Background()))

	t.Run("upstream runs before downstream", func(t *testing.T) {
		log := result.Logs.String()
		init := strings.Index(log, `node=cameraInit_1`)
		features := strings.Index(log, `node=features_1`)
		require.GreaterOrEqual(t, init, 0)
		require.GreaterOrEqual(t, features, 0)
		assert.Less(t, init, features)
	})

	t.Run("every chunk leaves a SUCCESS record and a log", func(t *testing.T) {
		var dir string
		for _, inst := range result.App.Pipeline() {
			if inst.Name() == "features_1" {
				dir = inst.InternalFolder(result.CacheRoot)
			}
		}
		require.NotEmpty(t, dir)

		for iteration := 0; iteration < 3; iteration++ {
			record, err := executor.LoadStatus(filepath.Join(dir, fmt.Sprintf("status.%d.json", iteration)))
			require.NoError(t, err, "iteration %d", iteration)
			assert.Equal(t, executor.StateSuccess, record.State)
			assert.Equal(t, "FeatureExtraction", record.NodeType)
			assert.Equal(t, iteration, record.Iteration)
			assert.Equal(t, 0, record.ReturnCode)
			assert.Contains(t, record.CommandLine, "--rangeStart")
		}

		logText, err := os.ReadFile(filepath.Join(dir, "1.log"))
		require.NoError(t, err)
		assert.Contains(t, string(logText), "--rangeStart 2 --rangeSize 2")
	})
}

func TestRunPipelineFailure(t *testing.T) {
	result := testutil.LoadPipelineTest(t, map[string]string{
		"nodes/types.hcl": `
node "Doomed" {
  command_line = "sh -c 'echo dependency missing >&2; exit 3'"
}
`,
		"pipeline.hcl": `
node "Doomed" "doomed_1" {}
`,
	})
	require.NoError(t, result.Err)

	err := result.App.Run(context.Background())
	var perr *executor.ProcessExecutionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "doomed_1", perr.Node)
	assert.Equal(t, 3, perr.ReturnCode)
	assert.Contains(t, perr.Log, "dependency missing")
}

func TestRunPipelineUnimplemented(t *testing.T) {
	result := testutil.LoadPipelineTest(t, map[string]string{
		"nodes/types.hcl": `
node "Inert" {
  input "count" {
    kind = "int"
  }
}
`,
		"pipeline.hcl": `
node "Inert" "inert_1" {}
`,
	})
	require.NoError(t, result.Err)

	err := result.App.Run(context.Background())
	var uerr *executor.UnimplementedOperationError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "inert_1", uerr.Node)
}

func TestRunEmptyPipeline(t *testing.T) {
	result := testutil.LoadPipelineTest(t, map[string]string{
		"pipeline.hcl": ``,
	})
	require.NoError(t, result.Err)
	require.NoError(t, result.App.Run(context.Background()))
	assert.Contains(t, result.Logs.String(), "execution not required")
}

func TestLoadFailureSurfaces(t *testing.T) {
	result := testutil.LoadPipelineTest(t, map[string]string{
		"nodes/types.hcl": `
node "T" {}
`,
		"pipeline.hcl": `
node "Unknown" "u_1" {}
`,
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "unknown node type 'Unknown'")
}
