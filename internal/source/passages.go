// Package source reads evidence passages and entity batches.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/covgate/internal/extract"
	"github.com/ppiankov/covgate/internal/model"
)

// Passage source formats
const (
	FormatJSONL = "jsonl"
	FormatHTML  = "html"
)

const maxLineBytes = 4 << 20

// PassageIterator yields passages in source order
type PassageIterator interface {
	Next() (model.Passage, bool)
	Err() error
	Close() error
}

// PassageSource opens a fresh iterator on every call
type PassageSource interface {
	Open(ctx context.Context) (PassageIterator, error)
	Describe() string
}

// NewPassageSource returns the source for a configured format
func NewPassageSource(format, path string) (PassageSource, error) {
	switch strings.ToLower(format) {
	case FormatJSONL, "":
		return &JSONLSource{Path: path}, nil
	case FormatHTML:
		return &HTMLDirSource{Dir: path}, nil
	default:
		return nil, fmt.Errorf("unknown passage format %q", format)
	}
}

// ReadAll drains a source. Passages with a blank excerpt are dropped and counted.
func ReadAll(ctx context.Context, src PassageSource) ([]model.Passage, int, error) {
	it, err := src.Open(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", src.Describe(), err)
	}
	defer func() { _ = it.Close() }()

	logger := slog.Default().With("component", "source")

	var passages []model.Passage
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		p, ok := it.Next()
		if !ok {
			break
		}
		if strings.TrimSpace(p.Excerpt) == "" {
			skipped++
			logger.Warn("empty passage skipped", "locator", p.Locator())
			continue
		}
		passages = append(passages, p)
	}
	if err := it.Err(); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", src.Describe(), err)
	}

	logger.Debug("passages loaded", "source", src.Describe(), "passages", len(passages), "skipped", skipped)
	return passages, skipped, nil
}

// JSONLSource reads one JSON passage per line
type JSONLSource struct {
	Path string
}

// Describe implements PassageSource
func (s *JSONLSource) Describe() string {
	return "jsonl:" + s.Path
}

// Open implements PassageSource
func (s *JSONLSource) Open(ctx context.Context) (PassageIterator, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &jsonlIterator{file: f, scanner: scanner}, nil
}

type jsonlIterator struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
	err     error
}

func (it *jsonlIterator) Next() (model.Passage, bool) {
	if it.err != nil {
		return model.Passage{}, false
	}
	for it.scanner.Scan() {
		it.line++
		line := bytes.TrimSpace(it.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var p model.Passage
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			it.err = fmt.Errorf("line %d: %w", it.line, err)
			return model.Passage{}, false
		}
		if p.Issuer == "" || p.DocumentID == "" {
			it.err = fmt.Errorf("line %d: issuer and document_id are required", it.line)
			return model.Passage{}, false
		}
		return p, true
	}
	if err := it.scanner.Err(); err != nil {
		it.err = fmt.Errorf("scan file: %w", err)
	}
	return model.Passage{}, false
}

func (it *jsonlIterator) Err() error {
	return it.err
}

func (it *jsonlIterator) Close() error {
	return it.file.Close()
}

// HTMLDirSource segments every *.html file of a directory. The document id is
// the file name without extension; files are read in name order.
type HTMLDirSource struct {
	Dir string
}

// Describe implements PassageSource
func (s *HTMLDirSource) Describe() string {
	return "html:" + s.Dir
}

// Open implements PassageSource
func (s *HTMLDirSource) Open(ctx context.Context) (PassageIterator, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no .html documents in %s", s.Dir)
	}
	sort.Strings(matches)

	segmenter := extract.NewSegmenter()
	var passages []model.Passage
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segs, err := segmentFile(segmenter, path)
		if err != nil {
			return nil, err
		}
		passages = append(passages, segs...)
	}
	return &sliceIterator{passages: passages}, nil
}

func segmentFile(segmenter *extract.Segmenter, path string) ([]model.Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return segmenter.Segment(f, id)
}

type sliceIterator struct {
	passages []model.Passage
	pos      int
}

func (it *sliceIterator) Next() (model.Passage, bool) {
	if it.pos >= len(it.passages) {
		return model.Passage{}, false
	}
	p := it.passages[it.pos]
	it.pos++
	return p, true
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

// StaticSource serves passages held in memory
type StaticSource struct {
	Passages []model.Passage
}

// Describe implements PassageSource
func (s *StaticSource) Describe() string {
	return "static"
}

// Open implements PassageSource
func (s *StaticSource) Open(ctx context.Context) (PassageIterator, error) {
	return &sliceIterator{passages: s.Passages}, ctx.Err()
}
