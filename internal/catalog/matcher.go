package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/covgate/internal/normalize"
)

// RegexPrefix marks a term that is a regular expression rather than a literal
const RegexPrefix = "re:"

// Matcher is a compiled, immutable term list. Literal terms are searched in the
// whitespace-free normalized text; regex terms run on the normalized text.
type Matcher struct {
	terms []compiledTerm
}

type compiledTerm struct {
	source  string
	literal string
	pattern *regexp.Regexp
}

// NewMatcher compiles terms in declared order
func NewMatcher(terms []string) (*Matcher, error) {
	m := &Matcher{terms: make([]compiledTerm, 0, len(terms))}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if expr, ok := strings.CutPrefix(term, RegexPrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q: %w", term, err)
			}
			m.terms = append(m.terms, compiledTerm{source: term, pattern: re})
			continue
		}
		literal := normalize.Compact(term)
		if literal == "" {
			continue
		}
		m.terms = append(m.terms, compiledTerm{source: term, literal: literal})
	}
	return m, nil
}

// MustMatcher is NewMatcher for static term lists
func MustMatcher(terms ...string) *Matcher {
	m, err := NewMatcher(terms)
	if err != nil {
		panic(err)
	}
	return m
}

// Empty reports whether no usable term was declared. A nil matcher is empty.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.terms) == 0
}

// Len returns the number of compiled terms
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.terms)
}

// Match returns the first declared term found in the text forms
func (m *Matcher) Match(text, compact string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, t := range m.terms {
		if t.pattern != nil {
			if t.pattern.MatchString(text) {
				return t.source, true
			}
			continue
		}
		if strings.Contains(compact, t.literal) {
			return t.source, true
		}
	}
	return "", false
}

// MatchString normalizes s and matches it
func (m *Matcher) MatchString(s string) (string, bool) {
	text := normalize.Text(s)
	return m.Match(text, normalize.Compact(s))
}

// MatchAll returns every declared term found, in declared order
func (m *Matcher) MatchAll(text, compact string) []string {
	if m == nil {
		return nil
	}
	var found []string
	for _, t := range m.terms {
		if t.pattern != nil {
			if t.pattern.MatchString(text) {
				found = append(found, t.source)
			}
			continue
		}
		if strings.Contains(compact, t.literal) {
			found = append(found, t.source)
		}
	}
	return found
}

// Terms returns the declared source terms
func (m *Matcher) Terms() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.terms))
	for i, t := range m.terms {
		out[i] = t.source
	}
	return out
}
