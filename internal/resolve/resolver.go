// Package resolve maps printed coverage names to canonical catalog identifiers.
//
// Strategies run in strict priority order and the first hit wins:
// exact, normalized, alias, normalized_alias, then suffix_normalized, which strips
// one trailing qualifier class at a time and retries the first four. Anything else
// is unmatched; the resolver never guesses.
package resolve

import (
	"log/slog"
	"strings"

	"github.com/ppiankov/covgate/internal/cache"
	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/normalize"
)

// Resolver resolves raw names against one frozen catalog
type Resolver struct {
	catalog *catalog.Catalog
	memo    cache.Cache
	logger  *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithCache memoizes outcomes in c
func WithCache(c cache.Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.memo = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a resolver for cat
func New(cat *catalog.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog: cat,
		memo:    cache.Nop{},
		logger:  slog.Default().With("component", "resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveEntity resolves the entity's raw name within its issuer
func (r *Resolver) ResolveEntity(e model.Entity) model.Resolution {
	res := r.Resolve(e.RawName, e.Issuer)
	res.EntityID = e.ID()
	return res
}

// Resolve runs the strategy cascade for rawName under issuer
func (r *Resolver) Resolve(rawName, issuer string) model.Resolution {
	key := cache.Key(r.catalog.Version(), SuffixTableVersion, issuer, rawName)
	if cached, ok := r.memo.Get(key); ok {
		return clone(cached.(model.Resolution))
	}

	res := r.resolve(rawName, issuer)
	r.memo.Set(key, clone(res))

	r.logger.Debug("resolved",
		"issuer", issuer,
		"raw_name", rawName,
		"status", res.MappingStatus,
		"strategy", res.MatchStrategy,
		"canonical_id", res.Canonical(),
	)
	return res
}

func (r *Resolver) resolve(rawName, issuer string) model.Resolution {
	name := strings.TrimSpace(rawName)
	if name == "" || normalize.Key(name) == "" {
		return unmatched(rawName, model.ReasonEmptyInput)
	}

	if entry, strategy, ok := r.direct(name, issuer); ok {
		return matched(rawName, entry, strategy, name, nil)
	}

	current := name
	var stripped []string
	for {
		progressed := false
		for _, class := range SuffixClasses {
			next, ok := class.Strip(current)
			if !ok {
				continue
			}
			current = next
			stripped = append(stripped, class.Name)
			progressed = true
			if entry, _, ok := r.direct(current, issuer); ok {
				return matched(rawName, entry, model.StrategySuffix, current, stripped)
			}
			// Restart from the first class on the shorter name
			break
		}
		if !progressed {
			return unmatched(rawName, model.ReasonNoCatalogMatch)
		}
	}
}

// direct runs strategies 1-4 on name
func (r *Resolver) direct(name, issuer string) (*catalog.Entry, model.MatchStrategy, bool) {
	if entry, ok := r.catalog.LookupName(name); ok {
		return entry, model.StrategyExact, true
	}
	key := normalize.Key(name)
	if entry, ok := r.catalog.LookupKey(key); ok {
		return entry, model.StrategyNormalized, true
	}
	if entry, ok := r.catalog.LookupAlias(issuer, name); ok {
		return entry, model.StrategyAlias, true
	}
	if entry, ok := r.catalog.LookupAliasKey(issuer, key); ok {
		return entry, model.StrategyNormalizedAlias, true
	}
	return nil, model.StrategyNone, false
}

func matched(rawName string, entry *catalog.Entry, strategy model.MatchStrategy, matchedName string, stripped []string) model.Resolution {
	id := entry.ID()
	return model.Resolution{
		RawName:          rawName,
		CanonicalID:      &id,
		MappingStatus:    model.MappingMatched,
		MatchStrategy:    strategy,
		MatchedName:      matchedName,
		StrippedSuffixes: append([]string(nil), stripped...),
	}
}

func unmatched(rawName, reason string) model.Resolution {
	return model.Resolution{
		RawName:       rawName,
		MappingStatus: model.MappingUnmatched,
		MatchStrategy: model.StrategyNone,
		Reason:        reason,
	}
}

func clone(r model.Resolution) model.Resolution {
	if r.CanonicalID != nil {
		id := *r.CanonicalID
		r.CanonicalID = &id
	}
	if r.StrippedSuffixes != nil {
		r.StrippedSuffixes = append([]string(nil), r.StrippedSuffixes...)
	}
	return r
}
