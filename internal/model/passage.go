package model

import "fmt"

// Passage is one evidence span, already segmented at paragraph or table-row granularity.
// Passages are never edited after construction; only filtered and classified.
type Passage struct {
	Issuer       string `json:"issuer" yaml:"issuer"`                       // Insurer code (ins_cd)
	Product      string `json:"product,omitempty" yaml:"product,omitempty"` // Empty means issuer-wide
	DocumentID   string `json:"document_id" yaml:"document_id"`             // Source document key
	DocumentType string `json:"document_type" yaml:"document_type"`         // terms, summary, brochure, ...
	Page         int    `json:"page" yaml:"page"`                           // 1-based page number
	Seq          int    `json:"seq" yaml:"seq"`                             // Position within the page
	Excerpt      string `json:"excerpt" yaml:"excerpt"`                     // Raw text as extracted
}

// Locator returns the reference used in evidence lists and conflict detection
func (p Passage) Locator() string {
	return fmt.Sprintf("%s#p%d:%d", p.DocumentID, p.Page, p.Seq)
}

// AppliesTo reports whether the passage belongs to the entity's document scope
func (p Passage) AppliesTo(e Entity) bool {
	if p.Issuer != e.Issuer {
		return false
	}
	return p.Product == "" || p.Product == e.Product
}

// NormalizedPassage carries the comparison forms next to the untouched original
type NormalizedPassage struct {
	Passage
	Order   int    `json:"-"` // Input order, used for tie-breaks
	Text    string `json:"-"` // Normalized text (regex matching)
	Compact string `json:"-"` // Normalized text without whitespace (literal matching)
}

// EvidenceRef points at a passage backing a slot value
type EvidenceRef struct {
	Locator      string `json:"locator" yaml:"locator"`
	DocumentType string `json:"document_type" yaml:"document_type"`
	Page         int    `json:"page" yaml:"page"`
	Excerpt      string `json:"excerpt" yaml:"excerpt"`
}

// RefOf builds an evidence reference for a passage
func RefOf(p Passage) EvidenceRef {
	return EvidenceRef{
		Locator:      p.Locator(),
		DocumentType: p.DocumentType,
		Page:         p.Page,
		Excerpt:      p.Excerpt,
	}
}
