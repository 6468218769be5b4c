package model

import "runtime"

// Config holds every tunable of a run
type Config struct {
	Catalog  CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Passages PassageConfig `yaml:"passages" mapstructure:"passages"`
	Entities EntityConfig  `yaml:"entities" mapstructure:"entities"`
	Engine   EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Cache    CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Output   OutputConfig  `yaml:"output" mapstructure:"output"`
}

// CatalogConfig selects the reference catalog source
type CatalogConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"`   // yaml or sqlite
	Path    string `yaml:"path" mapstructure:"path"`       // File path or SQLite DSN
	Require string `yaml:"require" mapstructure:"require"` // Optional semver constraint, e.g. ">= 2.0.0"
}

// PassageConfig selects the evidence passage source
type PassageConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // jsonl or html
	Path   string `yaml:"path" mapstructure:"path"`     // File (jsonl) or directory (html)
}

// EntityConfig selects the entity list
type EntityConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // .yaml/.yml or .jsonl
}

// EngineConfig tunes evaluation
type EngineConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`           // Entity tasks run in parallel
	EvidenceCap int `yaml:"evidence_cap" mapstructure:"evidence_cap"` // Max evidence refs per FOUND slot
}

// CacheConfig controls the resolver memo
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`     // Result file, "-" for stdout
	Format  string `yaml:"format" mapstructure:"format"` // json or yaml
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Driver: "yaml",
			Path:   "catalog.yaml",
		},
		Passages: PassageConfig{
			Format: "jsonl",
			Path:   "passages.jsonl",
		},
		Entities: EntityConfig{
			Path: "entities.yaml",
		},
		Engine: EngineConfig{
			Workers:     runtime.NumCPU(),
			EvidenceCap: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Output: OutputConfig{
			Path:   "result.json",
			Format: "json",
		},
	}
}
