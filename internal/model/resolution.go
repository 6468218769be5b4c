package model

// MappingStatus tells whether an entity reached a canonical identifier
type MappingStatus string

const (
	MappingMatched   MappingStatus = "matched"
	MappingUnmatched MappingStatus = "unmatched"
)

// MatchStrategy records which resolver step produced the mapping
type MatchStrategy string

const (
	StrategyExact           MatchStrategy = "exact"
	StrategyNormalized      MatchStrategy = "normalized"
	StrategyAlias           MatchStrategy = "alias"
	StrategyNormalizedAlias MatchStrategy = "normalized_alias"
	StrategySuffix          MatchStrategy = "suffix_normalized"
	StrategyNone            MatchStrategy = "none"
)

// Resolution reason codes
const (
	ReasonEmptyInput     = "EMPTY_INPUT"
	ReasonNoCatalogMatch = "NO_CATALOG_MATCH"
)

// Resolution is the per-entity resolver outcome
type Resolution struct {
	EntityID         string        `json:"entity_id" yaml:"entity_id"`
	RawName          string        `json:"raw_name" yaml:"raw_name"`
	CanonicalID      *string       `json:"canonical_id" yaml:"canonical_id"`
	MappingStatus    MappingStatus `json:"mapping_status" yaml:"mapping_status"`
	MatchStrategy    MatchStrategy `json:"match_strategy" yaml:"match_strategy"`
	MatchedName      string        `json:"matched_name,omitempty" yaml:"matched_name,omitempty"`           // Name that hit the catalog
	StrippedSuffixes []string      `json:"stripped_suffixes,omitempty" yaml:"stripped_suffixes,omitempty"` // Suffix classes removed, in order
	Reason           string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Matched reports whether the entity has a canonical identifier
func (r Resolution) Matched() bool {
	return r.MappingStatus == MappingMatched && r.CanonicalID != nil
}

// Canonical returns the canonical identifier or ""
func (r Resolution) Canonical() string {
	if r.CanonicalID == nil {
		return ""
	}
	return *r.CanonicalID
}
