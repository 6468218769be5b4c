// Package normalize builds the comparison forms of coverage names and passages.
//
// Every function here is pure and returns a new string; stored originals are
// never touched. Three forms are produced:
//   - Text: NFKC folded, lower-cased, whitespace collapsed. Regex patterns run on it.
//   - Compact: Text with all whitespace removed. Literal terms are searched in it.
//   - Key: Text reduced to letters and digits. Name equality is decided on it.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// glyphReplacer folds separators and range marks. It runs before NFKC, which
// would otherwise turn the compatibility jamo ㆍ into a conjoining vowel.
var glyphReplacer = strings.NewReplacer(
	"ㆍ", " ", // Hangul araea used as a middle dot
	"·", " ",
	"•", " ",
	"〜", "~",
	"∼", "~",
	"–", "-",
	"—", "-",
	"‐", "-",
	"「", "(",
	"」", ")",
	"【", "[",
	"】", "]",
)

// Text returns the normalized comparison text of s.
// NFKC turns Roman numeral glyphs (Ⅱ, ⅱ) and full-width forms into ASCII.
func Text(s string) string {
	if s == "" {
		return ""
	}
	folded := norm.NFKC.String(glyphReplacer.Replace(s))
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Compact returns Text(s) without any whitespace
func Compact(s string) string {
	return stripSpaces(Text(s))
}

// Key returns Text(s) reduced to letters and digits
func Key(s string) string {
	t := Text(s)
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripSpaces(s string) string {
	if !strings.ContainsFunc(s, unicode.IsSpace) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	parenGroupRE    = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]`)
	genericSuffixRE = regexp.MustCompile(`\s*(?:특별약관|특약|담보)$`)
)

// StripDecorations removes qualifiers that never identify a coverage: parenthetical
// groups, Roman numeral markers and trailing generic suffixes. Used for token
// extraction only, never for catalog lookups.
func StripDecorations(name string) string {
	s := Text(name)
	for {
		next := parenGroupRE.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	s = stripRomanMarkers(s)
	for {
		next := strings.TrimSpace(genericSuffixRE.ReplaceAllString(s, ""))
		if next == s || next == "" {
			break
		}
		s = next
	}
	return strings.Join(strings.Fields(s), " ")
}

// stripRomanMarkers drops runs of i/v/x that are not part of a Latin word
func stripRomanMarkers(s string) string {
	runes := []rune(s)
	var out []rune
	for i := 0; i < len(runes); {
		if !isRoman(runes[i]) {
			out = append(out, runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isRoman(runes[j]) {
			j++
		}
		before := i > 0 && isLatin(runes[i-1])
		after := j < len(runes) && isLatin(runes[j])
		if before || after {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	return string(out)
}

func isRoman(r rune) bool {
	return r == 'i' || r == 'v' || r == 'x'
}

func isLatin(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

// Tokens returns the letter/digit runs of at least two runes in the decoration-stripped name
func Tokens(name string) []string {
	stripped := StripDecorations(name)
	fields := strings.FieldsFunc(stripped, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if RuneLen(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// RuneLen counts characters, not bytes
func RuneLen(s string) int {
	return len([]rune(s))
}
