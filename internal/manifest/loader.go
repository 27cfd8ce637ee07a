package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/descriptor"
	"github.com/vk/pipeforge/internal/fsutil"
)

// Loader parses node-type manifests and pipeline files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a Loader with a fresh HCL parser.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// LoadTypes reads every .hcl manifest under path and registers the declared
// node types.
func (l *Loader) LoadTypes(ctx context.Context, path string, reg *descriptor.Registry) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading node type manifests.", "path", path)

	filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return fmt.Errorf("walking manifest path %s: %w", path, err)
	}
	if len(filePaths) == 0 {
		logger.Warn("No .hcl manifest files found in path.", "path", path)
		return nil
	}

	for _, filePath := range filePaths {
		hclFile, diags := l.parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("parsing manifest %s: %w", filePath, diags)
		}

		var file typeFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &file); diags.HasErrors() {
			return fmt.Errorf("decoding manifest %s: %w", filePath, diags)
		}

		for _, block := range file.Nodes {
			desc, err := translateType(block)
			if err != nil {
				return fmt.Errorf("manifest %s: %w", filePath, err)
			}
			if err := reg.Register(desc); err != nil {
				return fmt.Errorf("manifest %s: %w", filePath, err)
			}
			logger.Debug("Registered node type.", "type", desc.Type, "file", filePath)
		}
	}

	logger.Info("Node type manifests loaded.", "types_registered", reg.Len())
	return nil
}
