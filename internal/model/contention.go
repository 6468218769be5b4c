package model

// Contention is one passage claimed by more than one entity for the same attribute
type Contention struct {
	DocumentID string   `json:"document_id" yaml:"document_id"`
	Attribute  string   `json:"attribute" yaml:"attribute"`
	Locator    string   `json:"locator" yaml:"locator"`
	Entities   []string `json:"entities" yaml:"entities"` // Sorted entity ids
}
