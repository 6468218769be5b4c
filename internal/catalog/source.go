package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Source loads a raw catalog document from a versioned reference store
type Source interface {
	Load(ctx context.Context) (*Raw, error)
	Describe() string
}

// Load reads, validates and freezes a catalog. When require is not empty the catalog
// version must satisfy that semver constraint.
func Load(ctx context.Context, src Source, require string) (*Catalog, error) {
	logger := slog.Default().With("component", "catalog")

	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrInvalidCatalog, src.Describe(), err)
	}

	cat, err := Build(raw)
	if err != nil {
		return nil, err
	}

	if require = strings.TrimSpace(require); require != "" {
		constraint, err := semver.NewConstraint(require)
		if err != nil {
			return nil, fmt.Errorf("%w: version constraint %q: %v", ErrInvalidCatalog, require, err)
		}
		if !constraint.Check(cat.SemVer()) {
			return nil, fmt.Errorf("%w: version %s does not satisfy %q", ErrInvalidCatalog, cat.Version(), require)
		}
	}

	logger.Debug("catalog loaded",
		"source", src.Describe(),
		"version", cat.Version(),
		"entries", len(cat.entries),
		"aliases", cat.AliasCount(),
	)
	return cat, nil
}

// NewSource picks a source implementation by driver name
func NewSource(driver, path string) (Source, error) {
	switch strings.ToLower(driver) {
	case "", "yaml", "yml":
		return &YAMLSource{Path: path}, nil
	case "sqlite", "sqlite3":
		return &SQLiteSource{DSN: path}, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", driver)
	}
}

// YAMLSource reads the catalog from a YAML file
type YAMLSource struct {
	Path string
}

// Describe implements Source
func (s *YAMLSource) Describe() string {
	return "yaml:" + s.Path
}

// Load implements Source
func (s *YAMLSource) Load(ctx context.Context) (*Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a raw catalog document. Unknown fields are rejected so that a
// misspelled pattern table never silently disappears.
func ParseYAML(data []byte) (*Raw, error) {
	var raw Raw
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return &raw, nil
}

// StaticSource serves a raw document held in memory
type StaticSource struct {
	Raw  *Raw
	Name string
}

// Describe implements Source
func (s *StaticSource) Describe() string {
	if s.Name == "" {
		return "static"
	}
	return "static:" + s.Name
}

// Load implements Source
func (s *StaticSource) Load(ctx context.Context) (*Raw, error) {
	if s.Raw == nil {
		return nil, fmt.Errorf("no catalog document")
	}
	return s.Raw, ctx.Err()
}
