package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl pipeline file
	NodesPath    string // hcl node type manifests
	CacheRoot    string // root of the cache-keyed output folders

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.CacheRoot == "" {
		return nil, errors.New("CacheRoot is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &cfg, nil
}
