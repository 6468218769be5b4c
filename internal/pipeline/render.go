package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/covgate/internal/model"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Renderer writes run results
type Renderer struct {
	format string
}

// NewRenderer creates a renderer for json or yaml output
func NewRenderer(format string) (*Renderer, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return &Renderer{format: FormatJSON}, nil
	case FormatYAML, "yml":
		return &Renderer{format: FormatYAML}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Encode renders the result as one document
func (r *Renderer) Encode(result *model.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	switch r.format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Render writes the result to path, or to stdout when path is "-".
// File output goes through a temp file and a rename so a partial document is never left behind.
func (r *Renderer) Render(result *model.RunResult, path string, stdout io.Writer) error {
	data, err := r.Encode(result)
	if err != nil {
		return err
	}

	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// RenderSummary prints a short human summary of a run
func RenderSummary(w io.Writer, result *model.RunResult) {
	m := result.Manifest
	_, _ = fmt.Fprintf(w, "Run %s (catalog %s, suffix table %s)\n", m.RunID, m.CatalogVersion, m.SuffixTableVersion)
	_, _ = fmt.Fprintf(w, "Entities: %d (matched %d, unmatched %d)\n",
		m.Entities, m.MappingStatus[model.MappingMatched], m.MappingStatus[model.MappingUnmatched])
	_, _ = fmt.Fprintf(w, "Slots: FOUND %d, NOT_FOUND %d, UNKNOWN %d\n",
		m.SlotStatus[model.StatusFound], m.SlotStatus[model.StatusNotFound], m.SlotStatus[model.StatusUnknown])
	_, _ = fmt.Fprintf(w, "Passages: %d (skipped %d), contested %d\n", m.Passages, m.SkippedPassages, m.Contentions)
}
