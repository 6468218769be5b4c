// Package conflict demotes slots whose evidence is shared between entities.
package conflict

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ppiankov/covgate/internal/model"
)

// Claim records that a slot's passage cleared every gate
type Claim struct {
	Slot        int // Index into the slot list
	EntityID    string
	CanonicalID string // Contenders are counted by canonical coverage
	DocumentID  string
	Attribute   string
	Passage     int    // Passage identity (input order); locators may repeat
	Locator     string // Reported in contentions
}

type key struct {
	document  string
	attribute string
	passage   int
}

type claimants struct {
	locator   string
	canonical map[string]bool
	entities  map[string]bool
}

// Resolver runs after every entity has finished gating
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger means slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger.With("component", "conflict")}
}

// Reason formats the demotion reason for n contending canonical entities
func Reason(n int) string {
	return fmt.Sprintf("%s: shared evidence across %d entities", model.ReasonAmbiguousAttribution, n)
}

// Resolve returns a copy of slots where every slot holding a contested passage is
// UNKNOWN, plus the contentions sorted by locator and attribute. A passage is contested
// when it cleared the gates for at least two distinct canonical ids; entities resolving
// to the same canonical id never contend. The result depends only on the set of claims,
// not their order.
func (r *Resolver) Resolve(slots []model.Slot, claims []Claim) ([]model.Slot, []model.Contention) {
	byPassage := make(map[key]*claimants)
	for _, c := range claims {
		k := key{document: c.DocumentID, attribute: c.Attribute, passage: c.Passage}
		cl := byPassage[k]
		if cl == nil {
			cl = &claimants{locator: c.Locator, canonical: make(map[string]bool), entities: make(map[string]bool)}
			byPassage[k] = cl
		}
		cl.canonical[c.CanonicalID] = true
		cl.entities[c.EntityID] = true
	}

	// Largest contender count seen by each slot
	contenders := make(map[int]int)
	for _, c := range claims {
		k := key{document: c.DocumentID, attribute: c.Attribute, passage: c.Passage}
		n := len(byPassage[k].canonical)
		if n >= 2 && n > contenders[c.Slot] {
			contenders[c.Slot] = n
		}
	}

	out := make([]model.Slot, len(slots))
	copy(out, slots)
	for i, n := range contenders {
		if i < 0 || i >= len(out) {
			continue
		}
		out[i] = out[i].Demote(Reason(n))
		r.logger.Debug("slot demoted", "slot", out[i].Key(), "contenders", n)
	}

	type ranked struct {
		passage    int
		contention model.Contention
	}
	var found []ranked
	for k, cl := range byPassage {
		if len(cl.canonical) < 2 {
			continue
		}
		found = append(found, ranked{
			passage: k.passage,
			contention: model.Contention{
				DocumentID: k.document,
				Attribute:  k.attribute,
				Locator:    cl.locator,
				Entities:   sortedSet(cl.entities),
			},
		})
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i].contention, found[j].contention
		if a.Locator != b.Locator {
			return a.Locator < b.Locator
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.Attribute != b.Attribute {
			return a.Attribute < b.Attribute
		}
		return found[i].passage < found[j].passage
	})
	var contentions []model.Contention
	for _, f := range found {
		contentions = append(contentions, f.contention)
	}

	if len(contentions) > 0 {
		r.logger.Info("shared evidence detected", "passages", len(contentions), "slots", len(contenders))
	}
	return out, contentions
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
