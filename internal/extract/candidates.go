package extract

import (
	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/normalize"
)

// Anchors returns the anchor terms for an entity. Declared anchors win; otherwise
// the raw name, its decoration-stripped core and the canonical name are used.
func Anchors(entity model.Entity, entry *catalog.Entry) []string {
	if len(entity.AnchorTerms) > 0 {
		return append([]string(nil), entity.AnchorTerms...)
	}

	candidates := []string{entity.RawName, normalize.StripDecorations(entity.RawName)}
	if entry != nil {
		candidates = append(candidates, entry.Name())
	}

	seen := make(map[string]bool)
	var anchors []string
	for _, c := range candidates {
		key := normalize.Compact(c)
		if normalize.RuneLen(key) < 2 || seen[key] {
			continue
		}
		seen[key] = true
		anchors = append(anchors, c)
	}
	return anchors
}

// Index groups normalized passages by issuer for candidate retrieval
type Index struct {
	byIssuer map[string][]*model.NormalizedPassage
	total    int
}

// NewIndex indexes passages, keeping input order within each issuer
func NewIndex(passages []model.NormalizedPassage) *Index {
	idx := &Index{byIssuer: make(map[string][]*model.NormalizedPassage)}
	for i := range passages {
		p := &passages[i]
		idx.byIssuer[p.Issuer] = append(idx.byIssuer[p.Issuer], p)
		idx.total++
	}
	return idx
}

// Len returns the number of indexed passages
func (x *Index) Len() int {
	return x.total
}

// Candidates returns the in-scope passages that mention any of the matchers,
// in input order. Each passage appears at most once.
func (x *Index) Candidates(entity model.Entity, matchers ...*catalog.Matcher) []*model.NormalizedPassage {
	var out []*model.NormalizedPassage
	for _, p := range x.byIssuer[entity.Issuer] {
		if !p.AppliesTo(entity) {
			continue
		}
		for _, m := range matchers {
			if _, ok := m.Match(p.Text, p.Compact); ok {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Normalize derives the comparison forms for raw passages
func Normalize(passages []model.Passage) []model.NormalizedPassage {
	out := make([]model.NormalizedPassage, len(passages))
	for i, p := range passages {
		out[i] = model.NormalizedPassage{
			Passage: p,
			Order:   i,
			Text:    normalize.Text(p.Excerpt),
			Compact: normalize.Compact(p.Excerpt),
		}
	}
	return out
}
