package model

import (
	"encoding/json"
	"fmt"
)

// SlotStatus is the outcome of resolving one (entity, attribute) pair
type SlotStatus string

const (
	StatusFound    SlotStatus = "FOUND"     // Value backed by evidence
	StatusNotFound SlotStatus = "NOT_FOUND" // No passage cleared the gates
	StatusUnknown  SlotStatus = "UNKNOWN"   // Evidence exists but no single value can be trusted
)

// Confidence grades how a FOUND value was extracted
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"   // Exact-pattern rule
	ConfidenceMedium Confidence = "MEDIUM" // Fallback pattern rule
	ConfidenceNone   Confidence = "NONE"   // Not found / unknown
)

// Slot reason codes
const (
	ReasonNoPassage            = "no_passage_cleared_gates"
	ReasonNoParsableValue      = "matched_context_no_parsable_value"
	ReasonConflictingValues    = "conflicting_values"
	ReasonAmbiguousAttribution = "ambiguous_attribution"
	ReasonMissingTriggerTerms  = "catalog_entry_missing_trigger_terms"
	ReasonMissingRule          = "catalog_attribute_missing_rule"
)

// Slot is the output unit for one (entity, attribute). Fields are unexported so that a
// slot can only be built through Found, NotFound or Unknown; value and evidence never
// drift apart.
type Slot struct {
	entityID   string
	attribute  string
	status     SlotStatus
	value      string
	confidence Confidence
	refs       []EvidenceRef
	reason     string
}

// Found builds a FOUND slot. The first evidence reference is mandatory.
func Found(entityID, attribute, value string, conf Confidence, first EvidenceRef, more ...EvidenceRef) Slot {
	refs := make([]EvidenceRef, 0, 1+len(more))
	refs = append(refs, first)
	refs = append(refs, more...)
	return Slot{
		entityID:   entityID,
		attribute:  attribute,
		status:     StatusFound,
		value:      value,
		confidence: conf,
		refs:       refs,
	}
}

// NotFound builds a NOT_FOUND slot
func NotFound(entityID, attribute, reason string) Slot {
	return Slot{
		entityID:   entityID,
		attribute:  attribute,
		status:     StatusNotFound,
		confidence: ConfidenceNone,
		reason:     reason,
	}
}

// Unknown builds an UNKNOWN slot
func Unknown(entityID, attribute, reason string) Slot {
	return Slot{
		entityID:   entityID,
		attribute:  attribute,
		status:     StatusUnknown,
		confidence: ConfidenceNone,
		reason:     reason,
	}
}

// Demote returns the UNKNOWN version of s carrying reason
func (s Slot) Demote(reason string) Slot {
	return Unknown(s.entityID, s.attribute, reason)
}

func (s Slot) EntityID() string { return s.entityID }
func (s Slot) Attribute() string { return s.attribute }
func (s Slot) Status() SlotStatus { return s.status }
func (s Slot) Confidence() Confidence { return s.confidence }
func (s Slot) Reason() string { return s.reason }
func (s Slot) IsZero() bool { return s.status == "" }
func (s Slot) Key() string { return s.entityID + "::" + s.attribute }
func (s Slot) String() string { return fmt.Sprintf("%s[%s]=%s", s.entityID, s.attribute, s.status) }
func (s Slot) EvidenceCount() int { return len(s.refs) }

// Value returns the slot value; ok is false unless the slot is FOUND
func (s Slot) Value() (string, bool) {
	if s.status != StatusFound {
		return "", false
	}
	return s.value, true
}

// EvidenceRefs returns a copy of the ordered evidence references
func (s Slot) EvidenceRefs() []EvidenceRef {
	out := make([]EvidenceRef, len(s.refs))
	copy(out, s.refs)
	return out
}

// SlotRecord is the wire form of a slot
type SlotRecord struct {
	EntityID     string        `json:"entity_id" yaml:"entity_id"`
	Attribute    string        `json:"attribute" yaml:"attribute"`
	Status       SlotStatus    `json:"status" yaml:"status"`
	Value        *string       `json:"value" yaml:"value"`
	Confidence   Confidence    `json:"confidence" yaml:"confidence"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs" yaml:"evidence_refs"`
	Reason       string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Record converts the slot to its wire form
func (s Slot) Record() SlotRecord {
	rec := SlotRecord{
		EntityID:     s.entityID,
		Attribute:    s.attribute,
		Status:       s.status,
		Confidence:   s.confidence,
		EvidenceRefs: s.EvidenceRefs(),
		Reason:       s.reason,
	}
	if v, ok := s.Value(); ok {
		rec.Value = &v
	}
	return rec
}

// MarshalJSON implements json.Marshaler
func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// MarshalYAML implements yaml.Marshaler
func (s Slot) MarshalYAML() (interface{}, error) {
	return s.Record(), nil
}
