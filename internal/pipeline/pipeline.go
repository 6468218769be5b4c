package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/covgate/internal/assemble"
	"github.com/ppiankov/covgate/internal/cache"
	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/conflict"
	"github.com/ppiankov/covgate/internal/extract"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/resolve"
	"github.com/ppiankov/covgate/internal/source"
	"github.com/ppiankov/covgate/internal/validate"
	"github.com/ppiankov/covgate/internal/worker"
)

// Pipeline orchestrates a complete run
type Pipeline struct {
	config *model.Config
	memo   cache.Cache
	logger *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithCache shares a resolver memo across runs
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.memo = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	p := &Pipeline{config: cfg, memo: cache.Nop{}, logger: slog.Default()}
	if cfg.Cache.Enabled {
		p.memo = cache.NewMemoryCache()
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p
}

// Inputs are the three sources of a run
type Inputs struct {
	Catalog  catalog.Source
	Passages source.PassageSource
	Entities []model.Entity
}

// loaded is the frozen state shared read-only by every entity task
type loaded struct {
	catalog   *catalog.Catalog
	passages  []model.Passage
	skipped   int
	index     *extract.Index
	evaluator *validate.Evaluator
	assembler *assemble.Assembler
}

// entityTask is one matched entity to gate and assemble
type entityTask struct {
	entity model.Entity
	entry  *catalog.Entry
}

// entityOutcome is the slot list of one entity plus the passages each slot claimed
type entityOutcome struct {
	canonical string
	slots     []model.Slot
	claims    [][]*model.NormalizedPassage // Parallel to slots
}

// Run executes every stage. Either a complete result comes back or an error naming the
// failing stage; a partial result is never returned.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*model.RunResult, error) {
	// 1. Load catalog and passages concurrently
	st, err := p.load(ctx, in)
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}

	// 2. Fingerprint the passage set
	passageHash, err := PassageSetHash(st.passages)
	if err != nil {
		return nil, stageErr(StageHash, err)
	}

	// 3. Resolve every entity
	entities := source.Dedupe(in.Entities)
	resolver := resolve.New(st.catalog, resolve.WithCache(p.memo), resolve.WithLogger(p.logger))
	resolutions := make([]model.Resolution, len(entities))
	var tasks []entityTask
	for i, e := range entities {
		resolutions[i] = resolver.ResolveEntity(e)
		if !resolutions[i].Matched() {
			continue
		}
		entry, ok := st.catalog.Entry(resolutions[i].Canonical())
		if !ok {
			return nil, stageErr(StageResolve, fmt.Errorf("entity %s resolved to unknown id %s", e.ID(), resolutions[i].Canonical()))
		}
		tasks = append(tasks, entityTask{entity: e, entry: entry})
	}

	// 4. Gate and assemble, one task per matched entity
	processor := worker.NewBatchProcessor(func(ctx context.Context, t entityTask) (entityOutcome, error) {
		return p.processEntity(st, t)
	}, p.config.Engine.Workers)
	outcomes, err := processor.Process(ctx, tasks)
	if err != nil {
		return nil, stageErr(StageGate, err)
	}

	// 5. Barrier passed: every entity finished. Detect shared evidence.
	var slots []model.Slot
	var claims []conflict.Claim
	for _, o := range outcomes {
		for i, s := range o.slots {
			idx := len(slots)
			slots = append(slots, s)
			for _, np := range o.claims[i] {
				claims = append(claims, conflict.Claim{
					Slot:        idx,
					EntityID:    s.EntityID(),
					CanonicalID: o.canonical,
					DocumentID:  np.DocumentID,
					Attribute:   s.Attribute(),
					Passage:     np.Order,
					Locator:     np.Locator(),
				})
			}
		}
	}
	slots, contentions := conflict.NewResolver(p.logger).Resolve(slots, claims)

	// 6. Verify completeness
	if err := verify(st.catalog, entities, resolutions, slots); err != nil {
		return nil, stageErr(StageVerify, err)
	}

	// 7. Manifest
	result := &model.RunResult{
		Manifest:    p.manifest(st, entities, resolutions, slots, passageHash, len(contentions)),
		Resolutions: resolutions,
		Slots:       slots,
		Contentions: contentions,
	}
	if result.Contentions == nil {
		result.Contentions = []model.Contention{}
	}

	p.logger.Info("run complete",
		"run_id", result.Manifest.RunID,
		"entities", len(entities),
		"slots", len(slots),
		"contentions", len(contentions))
	return result, nil
}

func (p *Pipeline) load(ctx context.Context, in Inputs) (*loaded, error) {
	if in.Catalog == nil || in.Passages == nil {
		return nil, fmt.Errorf("catalog and passage sources are required")
	}

	st := &loaded{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cat, err := catalog.Load(gctx, in.Catalog, p.config.Catalog.Require)
		if err != nil {
			return err
		}
		st.catalog = cat
		return nil
	})
	g.Go(func() error {
		passages, skipped, err := source.ReadAll(gctx, in.Passages)
		if err != nil {
			return err
		}
		st.passages, st.skipped = passages, skipped
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	evaluator, err := validate.NewEvaluator(st.catalog)
	if err != nil {
		return nil, err
	}
	st.evaluator = evaluator
	st.index = extract.NewIndex(extract.Normalize(st.passages))
	st.assembler = assemble.NewAssembler(p.config.Engine.EvidenceCap)

	p.logger.Debug("inputs loaded",
		"catalog", st.catalog.Version(),
		"entries", len(st.catalog.Entries()),
		"passages", len(st.passages),
		"skipped", st.skipped)
	return st, nil
}

// processEntity produces one slot per declared attribute of the entity's entry
func (p *Pipeline) processEntity(st *loaded, t entityTask) (entityOutcome, error) {
	id := t.entity.ID()
	attrs := t.entry.Attributes()
	out := entityOutcome{
		canonical: t.entry.ID(),
		slots:     make([]model.Slot, 0, len(attrs)),
		claims:    make([][]*model.NormalizedPassage, 0, len(attrs)),
	}

	target, err := validate.NewTarget(t.entity, t.entry, extract.Anchors(t.entity, t.entry))
	if err != nil {
		return out, err
	}

	retrieval := []*catalog.Matcher{target.Anchors()}
	for _, attr := range attrs {
		if m := t.entry.RequiredTerms(attr); !m.Empty() {
			retrieval = append(retrieval, m)
		}
	}
	candidates := st.index.Candidates(t.entity, retrieval...)

	for _, attr := range attrs {
		attribute, _ := st.catalog.Attribute(attr)
		switch {
		case attribute.Rule == "" || !extract.HasRule(attribute.Rule):
			out.slots = append(out.slots, model.Unknown(id, attr, model.ReasonMissingRule))
			out.claims = append(out.claims, nil)
			continue
		case t.entry.TriggerTerms().Empty():
			out.slots = append(out.slots, model.Unknown(id, attr, model.ReasonMissingTriggerTerms))
			out.claims = append(out.claims, nil)
			continue
		}

		var surviving []*model.NormalizedPassage
		for _, np := range candidates {
			res := st.evaluator.Evaluate(attr, np, target)
			if !res.Passed {
				p.logger.Debug("passage rejected",
					"entity", id,
					"attribute", attr,
					"locator", np.Locator(),
					"gate", res.FailedGate,
					"term", res.Detail)
				continue
			}
			surviving = append(surviving, np)
		}

		out.slots = append(out.slots, st.assembler.Assemble(id, attr, attribute.Rule, t.entry, surviving))
		out.claims = append(out.claims, surviving)
	}
	return out, nil
}

// verify checks that every entity has a resolution and every matched entity has
// exactly one slot per declared attribute
func verify(cat *catalog.Catalog, entities []model.Entity, resolutions []model.Resolution, slots []model.Slot) error {
	if len(resolutions) != len(entities) {
		return fmt.Errorf("%w: %d resolutions for %d entities", ErrIncomplete, len(resolutions), len(entities))
	}

	expected := make(map[string]bool)
	for i, e := range entities {
		if resolutions[i].EntityID != e.ID() {
			return fmt.Errorf("%w: resolution %d belongs to %s, want %s", ErrIncomplete, i, resolutions[i].EntityID, e.ID())
		}
		if !resolutions[i].Matched() {
			continue
		}
		entry, ok := cat.Entry(resolutions[i].Canonical())
		if !ok {
			return fmt.Errorf("%w: unknown canonical id %s", ErrIncomplete, resolutions[i].Canonical())
		}
		for _, attr := range entry.Attributes() {
			expected[e.ID()+"::"+attr] = true
		}
	}

	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.IsZero() {
			return fmt.Errorf("%w: empty slot", ErrIncomplete)
		}
		if !expected[s.Key()] {
			return fmt.Errorf("%w: unexpected slot %s", ErrIncomplete, s.Key())
		}
		if seen[s.Key()] {
			return fmt.Errorf("%w: duplicate slot %s", ErrIncomplete, s.Key())
		}
		seen[s.Key()] = true
	}
	if len(seen) != len(expected) {
		return fmt.Errorf("%w: %d of %d slots emitted", ErrIncomplete, len(seen), len(expected))
	}
	return nil
}

func (p *Pipeline) manifest(st *loaded, entities []model.Entity, resolutions []model.Resolution, slots []model.Slot, passageHash string, contentions int) model.Manifest {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID()
	}

	mapping := map[model.MappingStatus]int{
		model.MappingMatched:   0,
		model.MappingUnmatched: 0,
	}
	for _, r := range resolutions {
		mapping[r.MappingStatus]++
	}

	status := map[model.SlotStatus]int{
		model.StatusFound:    0,
		model.StatusNotFound: 0,
		model.StatusUnknown:  0,
	}
	for _, s := range slots {
		status[s.Status()]++
	}

	return model.Manifest{
		RunID:              RunID(st.catalog.Version(), resolve.SuffixTableVersion, passageHash, ids),
		CatalogVersion:     st.catalog.Version(),
		CatalogAsOf:        st.catalog.AsOf(),
		SuffixTableVersion: resolve.SuffixTableVersion,
		Entities:           len(entities),
		MappingStatus:      mapping,
		SlotStatus:         status,
		Passages:           len(st.passages),
		SkippedPassages:    st.skipped,
		PassageSetHash:     passageHash,
		Contentions:        contentions,
	}
}
