package model

// Manifest summarizes a run so downstream consumers can check they compare the same result set
type Manifest struct {
	RunID              string                `json:"run_id" yaml:"run_id"`                             // Derived from inputs, never random
	CatalogVersion     string                `json:"catalog_version" yaml:"catalog_version"`           // Semver of the reference catalog
	CatalogAsOf        string                `json:"catalog_as_of,omitempty" yaml:"catalog_as_of"`     // As-of marker of the catalog
	SuffixTableVersion string                `json:"suffix_table_version" yaml:"suffix_table_version"` // Resolver suffix pattern table
	Entities           int                   `json:"entities" yaml:"entities"`                         // Total entities processed
	MappingStatus      map[MappingStatus]int `json:"mapping_status" yaml:"mapping_status"`             // Counts by mapping status
	SlotStatus         map[SlotStatus]int    `json:"slot_status" yaml:"slot_status"`                   // Counts by slot status
	Passages           int                   `json:"passages" yaml:"passages"`                         // Passages accepted from the source
	SkippedPassages    int                   `json:"skipped_passages" yaml:"skipped_passages"`         // Empty passages dropped
	PassageSetHash     string                `json:"passage_set_hash" yaml:"passage_set_hash"`         // sha256 over the canonical passage set
	Contentions        int                   `json:"contentions" yaml:"contentions"`                   // Passages claimed by several entities
}

// RunResult is the complete, internally consistent output of one run
type RunResult struct {
	Manifest    Manifest     `json:"manifest" yaml:"manifest"`
	Resolutions []Resolution `json:"resolutions" yaml:"resolutions"`
	Slots       []Slot       `json:"slots" yaml:"slots"`
	Contentions []Contention `json:"contentions" yaml:"contentions"`
}
