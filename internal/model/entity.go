package model

import "strings"

// Entity is one (issuer, product, coverage) triple as printed in a document batch
type Entity struct {
	Issuer      string   `json:"issuer" yaml:"issuer"`                                 // Insurer code (ins_cd)
	Product     string   `json:"product" yaml:"product"`                               // Product code or name
	RawName     string   `json:"raw_name" yaml:"raw_name"`                             // Coverage label as printed
	AnchorTerms []string `json:"anchor_terms,omitempty" yaml:"anchor_terms,omitempty"` // Terms evidence must mention
}

// ID returns the stable identity of the entity within a run
func (e Entity) ID() string {
	return e.Issuer + "/" + e.Product + "/" + e.RawName
}

// DocumentScope returns the key of the document set this entity reads evidence from
func (e Entity) DocumentScope() string {
	return e.Issuer + "/" + e.Product
}

// HasName reports whether the raw name carries any non-space content
func (e Entity) HasName() bool {
	return strings.TrimSpace(e.RawName) != ""
}
