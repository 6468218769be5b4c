package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/covgate/internal/model"
)

// LoadEntities reads an entity batch from a YAML list or a JSONL file,
// chosen by extension. Exact duplicates collapse; the first occurrence wins.
func LoadEntities(path string) ([]model.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}

	var entities []model.Entity
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		entities, err = parseEntityLines(data)
	case ".yaml", ".yml", ".json":
		entities, err = parseEntityList(data)
	default:
		return nil, fmt.Errorf("unsupported entity file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return Dedupe(entities), nil
}

// Dedupe drops entities whose identity was already seen. A later entity with the same
// identity but different anchor terms is dropped with a warning.
func Dedupe(entities []model.Entity) []model.Entity {
	seen := make(map[string]int, len(entities))
	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if i, dup := seen[e.ID()]; dup {
			if !slices.Equal(out[i].AnchorTerms, e.AnchorTerms) {
				slog.Default().With("component", "source").Warn("duplicate entity with different anchor terms dropped",
					"entity", e.ID(),
					"kept", out[i].AnchorTerms,
					"dropped", e.AnchorTerms)
			}
			continue
		}
		seen[e.ID()] = len(out)
		out = append(out, e)
	}
	return out
}

func parseEntityList(data []byte) ([]model.Entity, error) {
	var entities []model.Entity
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func parseEntityLines(data []byte) ([]model.Entity, error) {
	var entities []model.Entity
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for scanner.Scan() {
		n++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var e model.Entity
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		entities = append(entities, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entities, nil
}
