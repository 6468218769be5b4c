package validate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/model"
)

// GateID names a gate in the cascade
type GateID string

const (
	GateAnchor          GateID = "anchor"
	GateHardNegative    GateID = "hard_negative"
	GateSectionNegative GateID = "section_negative"
	GateTriggerSignal   GateID = "trigger_signal"
	GateNameLock        GateID = "name_lock"
	GateRequiredTerm    GateID = "required_term"
	GateSlotNegative    GateID = "slot_negative"
)

// DefaultOrder is the reviewed evaluation order. Cheap global filters run first.
var DefaultOrder = []GateID{
	GateAnchor,
	GateHardNegative,
	GateSectionNegative,
	GateTriggerSignal,
	GateNameLock,
	GateRequiredTerm,
	GateSlotNegative,
}

// Outcome is the verdict of a single gate
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
	Skip Outcome = "skip" // Gate not applicable, e.g. no required terms declared
)

// Subject is what a gate looks at
type Subject struct {
	Attribute string
	Passage   *model.NormalizedPassage
	Target    *Target
	Catalog   *catalog.Catalog
}

// Check is a pure gate predicate. The detail names the term that decided it.
type Check func(s *Subject) (Outcome, string)

// Step is one evaluated gate in a trace
type Step struct {
	Gate    GateID  `json:"gate"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// GateResult is the outcome of the cascade for one (attribute, passage) pair
type GateResult struct {
	Passed     bool
	FailedGate GateID
	Detail     string
	Trace      []Step
}

// Target is an entity prepared for gating: its catalog entry, anchors and name lock
type Target struct {
	Entity  model.Entity
	Entry   *catalog.Entry
	anchors *catalog.Matcher
	lock    NameLock
}

// NewTarget compiles anchors and the name lock for a matched entity
func NewTarget(entity model.Entity, entry *catalog.Entry, anchors []string) (*Target, error) {
	if entry == nil {
		return nil, fmt.Errorf("entity %s has no catalog entry", entity.ID())
	}
	m, err := catalog.NewMatcher(anchors)
	if err != nil {
		return nil, fmt.Errorf("entity %s anchors: %w", entity.ID(), err)
	}
	return &Target{
		Entity:  entity,
		Entry:   entry,
		anchors: m,
		lock:    NewNameLock(entity.RawName, entry.Name()),
	}, nil
}

// Anchors returns the compiled anchor matcher
func (t *Target) Anchors() *catalog.Matcher {
	return t.anchors
}

// NameLock returns the precomputed name lock
func (t *Target) NameLock() NameLock {
	return t.lock
}

var registry = map[GateID]Check{
	GateAnchor:          checkAnchor,
	GateHardNegative:    checkHardNegative,
	GateSectionNegative: checkSectionNegative,
	GateTriggerSignal:   checkTriggerSignal,
	GateNameLock:        checkNameLock,
	GateRequiredTerm:    checkRequiredTerm,
	GateSlotNegative:    checkSlotNegative,
}

type gate struct {
	id    GateID
	check Check
}

// Evaluator runs the gate cascade in a fixed order
type Evaluator struct {
	catalog *catalog.Catalog
	gates   []gate
}

// NewEvaluator builds an evaluator over cat. An empty order means DefaultOrder.
// Every known gate must appear exactly once.
func NewEvaluator(cat *catalog.Catalog, order ...GateID) (*Evaluator, error) {
	if cat == nil {
		return nil, fmt.Errorf("evaluator needs a catalog")
	}
	if len(order) == 0 {
		order = DefaultOrder
	}

	seen := make(map[GateID]bool, len(order))
	ev := &Evaluator{catalog: cat}
	for _, id := range order {
		check, ok := registry[id]
		if !ok {
			return nil, fmt.Errorf("unknown gate %q", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("gate %q listed twice", id)
		}
		seen[id] = true
		ev.gates = append(ev.gates, gate{id: id, check: check})
	}
	if len(seen) != len(registry) {
		var missing []string
		for id := range registry {
			if !seen[id] {
				missing = append(missing, string(id))
			}
		}
		return nil, fmt.Errorf("gate order misses %s", strings.Join(sortStrings(missing), ", "))
	}
	return ev, nil
}

// Order returns the evaluation order
func (e *Evaluator) Order() []GateID {
	ids := make([]GateID, len(e.gates))
	for i, g := range e.gates {
		ids[i] = g.id
	}
	return ids
}

// Evaluate runs every gate in order until the first failure
func (e *Evaluator) Evaluate(attr string, p *model.NormalizedPassage, t *Target) GateResult {
	s := &Subject{Attribute: attr, Passage: p, Target: t, Catalog: e.catalog}
	res := GateResult{Trace: make([]Step, 0, len(e.gates))}
	for _, g := range e.gates {
		outcome, detail := g.check(s)
		res.Trace = append(res.Trace, Step{Gate: g.id, Outcome: outcome, Detail: detail})
		if outcome == Fail {
			res.FailedGate = g.id
			res.Detail = detail
			return res
		}
	}
	res.Passed = true
	return res
}
