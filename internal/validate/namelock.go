package validate

import (
	"strings"

	"github.com/ppiankov/covgate/internal/normalize"
)

const (
	// CompoundTokenMinRunes is the length from which a lone name token may match
	// through rolling substrings. The comparison is >=; a 5-rune token must match exactly.
	CompoundTokenMinRunes = 6

	// RollingWindowRunes is the substring length used for compound tokens
	RollingWindowRunes = 4

	// MinTokenOverlap is the number of exact tokens required otherwise
	MinTokenOverlap = 1
)

// NameLock is the precomputed name evidence for one entity
type NameLock struct {
	full   []string // compact full names, canonical first
	tokens []string // decoration-stripped tokens of the raw name
}

// NewNameLock prepares the lock for a raw name and its canonical display name
func NewNameLock(rawName, canonicalName string) NameLock {
	var lock NameLock
	seen := make(map[string]bool)
	for _, name := range []string{canonicalName, rawName} {
		compact := normalize.Compact(name)
		if compact == "" || seen[compact] {
			continue
		}
		seen[compact] = true
		lock.full = append(lock.full, compact)
	}

	lock.tokens = normalize.Tokens(rawName)
	if len(lock.tokens) == 0 {
		lock.tokens = normalize.Tokens(canonicalName)
	}
	return lock
}

// Tokens returns the tokens used for overlap matching
func (l NameLock) Tokens() []string {
	return append([]string(nil), l.tokens...)
}

// Check reports whether compact passage text names the coverage, and how
func (l NameLock) Check(passageCompact string) (bool, string) {
	for _, full := range l.full {
		if strings.Contains(passageCompact, full) {
			return true, "full:" + full
		}
	}

	if len(l.tokens) == 1 && normalize.RuneLen(l.tokens[0]) >= CompoundTokenMinRunes {
		if window, ok := rollingOverlap(l.tokens[0], passageCompact); ok {
			return true, "substring:" + window
		}
		return false, ""
	}

	matched := 0
	var last string
	for _, token := range l.tokens {
		if strings.Contains(passageCompact, token) {
			matched++
			last = token
		}
	}
	if matched >= MinTokenOverlap {
		return true, "token:" + last
	}
	return false, ""
}

// rollingOverlap looks for any RollingWindowRunes-long substring of token in text
func rollingOverlap(token, text string) (string, bool) {
	runes := []rune(token)
	for i := 0; i+RollingWindowRunes <= len(runes); i++ {
		window := string(runes[i : i+RollingWindowRunes])
		if strings.Contains(text, window) {
			return window, true
		}
	}
	return "", false
}
