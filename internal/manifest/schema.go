// Package manifest loads the engine's declarative configuration surface:
// node-type manifests describing typed templates, and pipeline files
// instantiating them with concrete values and upstream links.
package manifest

import "github.com/hashicorp/hcl/v2"

// typeFile is the top-level structure of a node-type manifest file.
type typeFile struct {
	Nodes []*typeBlock `hcl:"node,block"`
	Body  hcl.Body     `hcl:",remain"`
}

// typeBlock declares one node type.
type typeBlock struct {
	Type             string                `hcl:"type,label"`
	Description      string                `hcl:"description,optional"`
	Documentation    string                `hcl:"documentation,optional"`
	Category         string                `hcl:"category,optional"`
	Version          string                `hcl:"version,optional"`
	CommandLine      string                `hcl:"command_line,optional"`
	CommandLineRange string                `hcl:"command_line_range,optional"`
	InternalFolder   string                `hcl:"internal_folder,optional"`
	Package          *packageBlock         `hcl:"package,block"`
	Resources        *resourcesBlock       `hcl:"resources,block"`
	Size             *sizeBlock            `hcl:"size,block"`
	Parallelization  *parallelizationBlock `hcl:"parallelization,block"`
	Inputs           []*attrBlock          `hcl:"input,block"`
	Outputs          []*attrBlock          `hcl:"output,block"`
}

// packageBlock names the versioned runtime the node's command requires.
type packageBlock struct {
	Name    string `hcl:"name"`
	Version string `hcl:"version,optional"`
}

// resourcesBlock carries the qualitative resource hints of a node type.
type resourcesBlock struct {
	CPU        string `hcl:"cpu,optional"`
	GPU        string `hcl:"gpu,optional"`
	RAM        string `hcl:"ram,optional"`
	LimitFlags bool   `hcl:"limit_flags,optional"`
}

// sizeBlock selects the sizing strategy: one or more dynamic attribute
// names, or a static constant.
type sizeBlock struct {
	Dynamic []string `hcl:"dynamic,optional"`
	Static  int      `hcl:"static,optional"`
}

// parallelizationBlock configures chunk partitioning. Exactly one of the
// two fields applies.
type parallelizationBlock struct {
	BlockSize    int `hcl:"block_size,optional"`
	StaticBlocks int `hcl:"static_blocks,optional"`
}

// attrBlock declares one attribute descriptor. Group children nest as
// further input blocks; a list's element type nests as an element block.
type attrBlock struct {
	Name        string         `hcl:"name,label"`
	Kind        string         `hcl:"kind"`
	Label       string         `hcl:"label,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Range       hcl.Expression `hcl:"range,optional"`
	Values      hcl.Expression `hcl:"values,optional"`
	Exclusive   bool           `hcl:"exclusive,optional"`
	Join        string         `hcl:"join,optional"`
	UID         []int          `hcl:"uid,optional"`
	UIDIgnore   hcl.Expression `hcl:"uid_ignore,optional"`
	Group       *string        `hcl:"group,optional"`
	Advanced    bool           `hcl:"advanced,optional"`
	Semantic    string         `hcl:"semantic,optional"`
	Enabled     hcl.Expression `hcl:"enabled,optional"`
	Element     *attrBlock     `hcl:"element,block"`
	Children    []*attrBlock   `hcl:"input,block"`
}

// pipelineFile is the top-level structure of a pipeline file.
type pipelineFile struct {
	Nodes []*instanceBlock `hcl:"node,block"`
	Body  hcl.Body         `hcl:",remain"`
}

// instanceBlock instantiates a node type under an instance name. Value
// expressions referencing node.<name>.<attr> become links.
type instanceBlock struct {
	Type   string         `hcl:"node_type,label"`
	Name   string         `hcl:"instance_name,label"`
	Values hcl.Expression `hcl:"values,optional"`
}
