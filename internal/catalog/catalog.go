// Package catalog holds the versioned reference catalog: canonical coverage entries,
// issuer-scoped aliases and the term tables used by the gate cascade.
//
// A Catalog is built once per run from a Raw document and is read-only afterwards,
// so it can be shared by every worker without locks. Any problem found while
// building is fatal: a partially valid catalog is never returned.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ppiankov/covgate/internal/normalize"
)

// ErrInvalidCatalog is wrapped by every build and load failure
var ErrInvalidCatalog = errors.New("invalid catalog")

// Rule names the deterministic value-extraction rule of an attribute
type Rule string

const (
	RuleAmount        Rule = "amount"         // Payout amount in won
	RuleWaitingPeriod Rule = "waiting_period" // Days before coverage starts
	RuleReduction     Rule = "reduction"      // Reduced payout period and ratio
	RulePayoutLimit   Rule = "payout_limit"   // Payout occurrence limit
	RuleRenewal       Rule = "renewal"        // Renewable or not
	RuleAgeRange      Rule = "age_range"      // Enrollment age range
	RuleSubtype       Rule = "subtype"        // Named subtypes covered
)

var knownRules = map[Rule]bool{
	RuleAmount:        true,
	RuleWaitingPeriod: true,
	RuleReduction:     true,
	RulePayoutLimit:   true,
	RuleRenewal:       true,
	RuleAgeRange:      true,
	RuleSubtype:       true,
}

// KnownRule reports whether r is an enumerated rule
func KnownRule(r Rule) bool {
	return knownRules[r]
}

// Raw is the catalog document as stored by the reference source
type Raw struct {
	Version          string              `yaml:"version" json:"version"`
	AsOf             string              `yaml:"as_of" json:"as_of"`
	HardNegatives    []string            `yaml:"hard_negatives" json:"hard_negatives"`
	SectionNegatives []string            `yaml:"section_negatives" json:"section_negatives"`
	SlotNegatives    map[string][]string `yaml:"slot_negatives" json:"slot_negatives"`
	Attributes       []RawAttribute      `yaml:"attributes" json:"attributes"`
	Entries          []RawEntry          `yaml:"entries" json:"entries"`
}

// RawAttribute declares an attribute and its extraction rule
type RawAttribute struct {
	Key  string `yaml:"key" json:"key"`
	Rule Rule   `yaml:"rule" json:"rule"`
}

// RawEntry is one canonical coverage as stored
type RawEntry struct {
	ID              string              `yaml:"id" json:"id"`
	Name            string              `yaml:"name" json:"name"`
	Aliases         map[string][]string `yaml:"aliases" json:"aliases"` // ins_cd -> raw names
	RequiredTerms   map[string][]string `yaml:"required_terms" json:"required_terms"`
	TriggerTerms    []string            `yaml:"trigger_terms" json:"trigger_terms"`
	SubtypeKeywords []string            `yaml:"subtype_keywords" json:"subtype_keywords"`
	Attributes      []string            `yaml:"attributes" json:"attributes"` // Empty means every catalog attribute
}

// Attribute is a declared attribute
type Attribute struct {
	Key  string
	Rule Rule
}

// Entry is a frozen canonical coverage
type Entry struct {
	id              string
	name            string
	requiredTerms   map[string]*Matcher
	trigger         *Matcher
	subtype         *Matcher
	subtypeKeywords []string
	attributes      []string
}

// ID returns the canonical coverage id
func (e *Entry) ID() string {
	return e.id
}

// Name returns the canonical display name
func (e *Entry) Name() string {
	return e.name
}

// RequiredTerms returns the whitelist for attr, or nil when none is declared
func (e *Entry) RequiredTerms(attr string) *Matcher {
	return e.requiredTerms[attr]
}

// TriggerTerms returns the diagnosis/trigger signal vocabulary
func (e *Entry) TriggerTerms() *Matcher {
	return e.trigger
}

// SubtypeTerms returns the compiled subtype vocabulary
func (e *Entry) SubtypeTerms() *Matcher {
	return e.subtype
}

// SubtypeKeywords returns a copy of the subtype vocabulary
func (e *Entry) SubtypeKeywords() []string {
	return append([]string(nil), e.subtypeKeywords...)
}

// Attributes returns the attribute keys this entry declares, in catalog order
func (e *Entry) Attributes() []string {
	return append([]string(nil), e.attributes...)
}

// Catalog is the frozen, shared reference catalog
type Catalog struct {
	version          *semver.Version
	asOf             string
	hardNegatives    *Matcher
	sectionNegatives *Matcher
	slotNegatives    map[string]*Matcher
	attributes       []Attribute
	attributeIndex   map[string]Attribute
	entries          []*Entry
	byID             map[string]*Entry
	byName           map[string]*Entry
	byKey            map[string]*Entry
	aliases          map[string]map[string]*Entry
	aliasKeys        map[string]map[string]*Entry
}

// Build validates raw and returns the frozen catalog
func Build(raw *Raw) (*Catalog, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
	}

	version, err := semver.NewVersion(strings.TrimSpace(raw.Version))
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", ErrInvalidCatalog, raw.Version, err)
	}

	c := &Catalog{
		version:        version,
		asOf:           strings.TrimSpace(raw.AsOf),
		slotNegatives:  make(map[string]*Matcher),
		attributeIndex: make(map[string]Attribute),
		byID:           make(map[string]*Entry),
		byName:         make(map[string]*Entry),
		byKey:          make(map[string]*Entry),
		aliases:        make(map[string]map[string]*Entry),
		aliasKeys:      make(map[string]map[string]*Entry),
	}

	// Required global pattern sets
	if len(raw.HardNegatives) == 0 {
		return nil, fmt.Errorf("%w: hard_negatives pattern set is missing", ErrInvalidCatalog)
	}
	if len(raw.SectionNegatives) == 0 {
		return nil, fmt.Errorf("%w: section_negatives pattern set is missing", ErrInvalidCatalog)
	}
	if c.hardNegatives, err = NewMatcher(raw.HardNegatives); err != nil {
		return nil, fmt.Errorf("%w: hard_negatives: %v", ErrInvalidCatalog, err)
	}
	if c.sectionNegatives, err = NewMatcher(raw.SectionNegatives); err != nil {
		return nil, fmt.Errorf("%w: section_negatives: %v", ErrInvalidCatalog, err)
	}

	// Attributes
	if len(raw.Attributes) == 0 {
		return nil, fmt.Errorf("%w: no attributes declared", ErrInvalidCatalog)
	}
	for _, a := range raw.Attributes {
		key := strings.TrimSpace(a.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: attribute with empty key", ErrInvalidCatalog)
		}
		if _, dup := c.attributeIndex[key]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute %q", ErrInvalidCatalog, key)
		}
		// An empty rule is recovered per slot; an unknown one is a typo in the catalog
		if a.Rule != "" && !KnownRule(a.Rule) {
			return nil, fmt.Errorf("%w: attribute %q: unknown rule %q", ErrInvalidCatalog, key, a.Rule)
		}
		attr := Attribute{Key: key, Rule: a.Rule}
		c.attributes = append(c.attributes, attr)
		c.attributeIndex[key] = attr
	}

	for attr, terms := range raw.SlotNegatives {
		if _, ok := c.attributeIndex[attr]; !ok {
			return nil, fmt.Errorf("%w: slot_negatives for undeclared attribute %q", ErrInvalidCatalog, attr)
		}
		m, err := NewMatcher(terms)
		if err != nil {
			return nil, fmt.Errorf("%w: slot_negatives[%s]: %v", ErrInvalidCatalog, attr, err)
		}
		c.slotNegatives[attr] = m
	}

	// Entries
	if len(raw.Entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidCatalog)
	}
	for i := range raw.Entries {
		entry, err := c.buildEntry(&raw.Entries[i])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidCatalog, raw.Entries[i].ID, err)
		}
		if err := c.index(entry, &raw.Entries[i]); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidCatalog, entry.ID(), err)
		}
		c.entries = append(c.entries, entry)
	}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].ID() < c.entries[j].ID() })

	return c, nil
}

func (c *Catalog) buildEntry(raw *RawEntry) (*Entry, error) {
	id := strings.TrimSpace(raw.ID)
	name := strings.TrimSpace(raw.Name)
	if id == "" {
		return nil, errors.New("missing id")
	}
	if name == "" {
		return nil, errors.New("missing name")
	}

	entry := &Entry{
		id:              id,
		name:            name,
		requiredTerms:   make(map[string]*Matcher),
		subtypeKeywords: append([]string(nil), raw.SubtypeKeywords...),
	}

	trigger, err := NewMatcher(raw.TriggerTerms)
	if err != nil {
		return nil, fmt.Errorf("trigger_terms: %w", err)
	}
	entry.trigger = trigger

	subtype, err := NewMatcher(raw.SubtypeKeywords)
	if err != nil {
		return nil, fmt.Errorf("subtype_keywords: %w", err)
	}
	entry.subtype = subtype

	for attr, terms := range raw.RequiredTerms {
		if _, ok := c.attributeIndex[attr]; !ok {
			return nil, fmt.Errorf("required_terms for undeclared attribute %q", attr)
		}
		m, err := NewMatcher(terms)
		if err != nil {
			return nil, fmt.Errorf("required_terms[%s]: %w", attr, err)
		}
		entry.requiredTerms[attr] = m
	}

	if len(raw.Attributes) == 0 {
		for _, a := range c.attributes {
			entry.attributes = append(entry.attributes, a.Key)
		}
		return entry, nil
	}
	declared := make(map[string]bool, len(raw.Attributes))
	for _, attr := range raw.Attributes {
		if _, ok := c.attributeIndex[attr]; !ok {
			return nil, fmt.Errorf("undeclared attribute %q", attr)
		}
		declared[attr] = true
	}
	// Keep catalog order so slot output order does not depend on entry spelling
	for _, a := range c.attributes {
		if declared[a.Key] {
			entry.attributes = append(entry.attributes, a.Key)
		}
	}
	return entry, nil
}

func (c *Catalog) index(entry *Entry, raw *RawEntry) error {
	if _, dup := c.byID[entry.ID()]; dup {
		return errors.New("duplicate id")
	}
	c.byID[entry.ID()] = entry

	if other, dup := c.byName[entry.Name()]; dup {
		return fmt.Errorf("display name %q already used by %q", entry.Name(), other.ID())
	}
	c.byName[entry.Name()] = entry

	key := normalize.Key(entry.Name())
	if other, dup := c.byKey[key]; dup {
		return fmt.Errorf("normalized name %q collides with %q", key, other.ID())
	}
	c.byKey[key] = entry

	issuers := make([]string, 0, len(raw.Aliases))
	for issuer := range raw.Aliases {
		issuers = append(issuers, issuer)
	}
	sort.Strings(issuers)

	for _, issuer := range issuers {
		if c.aliases[issuer] == nil {
			c.aliases[issuer] = make(map[string]*Entry)
			c.aliasKeys[issuer] = make(map[string]*Entry)
		}
		for _, alias := range raw.Aliases[issuer] {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			if other, dup := c.aliases[issuer][alias]; dup && other != entry {
				return fmt.Errorf("alias %q for %s already registered to %q", alias, issuer, other.ID())
			}
			c.aliases[issuer][alias] = entry

			aliasKey := normalize.Key(alias)
			if other, dup := c.aliasKeys[issuer][aliasKey]; dup && other != entry {
				return fmt.Errorf("normalized alias %q for %s collides with %q", aliasKey, issuer, other.ID())
			}
			c.aliasKeys[issuer][aliasKey] = entry
		}
	}
	return nil
}

// Version returns the catalog version string
func (c *Catalog) Version() string {
	return c.version.String()
}

// SemVer returns the parsed catalog version
func (c *Catalog) SemVer() *semver.Version {
	return c.version
}

// AsOf returns the as-of marker
func (c *Catalog) AsOf() string {
	return c.asOf
}

// HardNegatives returns the global hard-negative patterns
func (c *Catalog) HardNegatives() *Matcher {
	return c.hardNegatives
}

// SectionNegatives returns the global section-negative patterns
func (c *Catalog) SectionNegatives() *Matcher {
	return c.sectionNegatives
}

// SlotNegatives returns the negative patterns scoped to attr, or nil
func (c *Catalog) SlotNegatives(attr string) *Matcher {
	return c.slotNegatives[attr]
}

// Attributes returns the declared attributes in catalog order
func (c *Catalog) Attributes() []Attribute {
	return append([]Attribute(nil), c.attributes...)
}

// Attribute looks up a declared attribute
func (c *Catalog) Attribute(key string) (Attribute, bool) {
	a, ok := c.attributeIndex[key]
	return a, ok
}

// Entries returns every entry sorted by id
func (c *Catalog) Entries() []*Entry {
	return append([]*Entry(nil), c.entries...)
}

// Entry looks up an entry by canonical id
func (c *Catalog) Entry(id string) (*Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// LookupName finds an entry by exact display name
func (c *Catalog) LookupName(name string) (*Entry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// LookupKey finds an entry by normalized display name
func (c *Catalog) LookupKey(key string) (*Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// LookupAlias finds an entry by exact issuer alias
func (c *Catalog) LookupAlias(issuer, alias string) (*Entry, bool) {
	e, ok := c.aliases[issuer][alias]
	return e, ok
}

// LookupAliasKey finds an entry by normalized issuer alias
func (c *Catalog) LookupAliasKey(issuer, key string) (*Entry, bool) {
	e, ok := c.aliasKeys[issuer][key]
	return e, ok
}

// AliasCount returns the number of registered aliases across issuers
func (c *Catalog) AliasCount() int {
	n := 0
	for _, m := range c.aliases {
		n += len(m)
	}
	return n
}
