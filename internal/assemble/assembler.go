package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/extract"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/normalize"
)

// DefaultEvidenceCap is the number of evidence references kept per FOUND slot
const DefaultEvidenceCap = 3

// Assembler turns gate-cleared passages into a slot
type Assembler struct {
	evidenceCap int
}

// NewAssembler creates an assembler. A cap below 1 means DefaultEvidenceCap.
func NewAssembler(evidenceCap int) *Assembler {
	if evidenceCap < 1 {
		evidenceCap = DefaultEvidenceCap
	}
	return &Assembler{evidenceCap: evidenceCap}
}

// tier collects the passages yielding each distinct value at one confidence level
type tier struct {
	values  []string
	sources map[string][]*model.NormalizedPassage
}

func (t *tier) add(value string, p *model.NormalizedPassage) {
	if t.sources == nil {
		t.sources = make(map[string][]*model.NormalizedPassage)
	}
	if _, ok := t.sources[value]; !ok {
		t.values = append(t.values, value)
	}
	t.sources[value] = append(t.sources[value], p)
}

// Assemble decides the slot for one (entity, attribute) from the passages that
// cleared every gate
func (a *Assembler) Assemble(entityID, attribute string, rule catalog.Rule, entry *catalog.Entry, surviving []*model.NormalizedPassage) model.Slot {
	// 1. Nothing cleared the gates
	if len(surviving) == 0 {
		return model.NotFound(entityID, attribute, model.ReasonNoPassage)
	}

	// 2. Read a value from each passage, split by confidence
	var high, medium tier
	for _, p := range surviving {
		v, ok := extract.ExtractValue(rule, p, entry)
		if !ok {
			continue
		}
		if v.Confidence == model.ConfidenceHigh {
			high.add(v.Text, p)
		} else {
			medium.add(v.Text, p)
		}
	}

	// 3. Exact rule values take precedence over fallbacks
	winning, conf := &high, model.ConfidenceHigh
	if len(high.values) == 0 {
		winning, conf = &medium, model.ConfidenceMedium
	}
	if len(winning.values) == 0 {
		return model.Unknown(entityID, attribute, model.ReasonNoParsableValue)
	}

	// 4. Disagreement inside the winning tier is never resolved by picking one
	if len(winning.values) > 1 {
		values := append([]string(nil), winning.values...)
		sort.Strings(values)
		return model.Unknown(entityID, attribute,
			fmt.Sprintf("%s: %s", model.ReasonConflictingValues, strings.Join(values, " | ")))
	}

	value := winning.values[0]
	refs := a.evidence(winning.sources[value])
	return model.Found(entityID, attribute, value, conf, refs[0], refs[1:]...)
}

// evidence orders passages by excerpt length then input order and applies the cap
func (a *Assembler) evidence(passages []*model.NormalizedPassage) []model.EvidenceRef {
	sorted := append([]*model.NormalizedPassage(nil), passages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := normalize.RuneLen(sorted[i].Excerpt), normalize.RuneLen(sorted[j].Excerpt)
		if li != lj {
			return li < lj
		}
		return sorted[i].Order < sorted[j].Order
	})
	if len(sorted) > a.evidenceCap {
		sorted = sorted[:a.evidenceCap]
	}

	refs := make([]model.EvidenceRef, len(sorted))
	for i, p := range sorted {
		refs[i] = model.RefOf(p.Passage)
	}
	return refs
}
