package validate

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/catalog/catalogtest"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/normalize"
)

func passage(excerpt string) *model.NormalizedPassage {
	return &model.NormalizedPassage{
		Passage: model.Passage{
			Issuer:       "L01",
			DocumentID:   "terms-001",
			DocumentType: "terms",
			Page:         1,
			Seq:          1,
			Excerpt:      excerpt,
		},
		Text:    normalize.Text(excerpt),
		Compact: normalize.Compact(excerpt),
	}
}

func target(t *testing.T, cat *catalog.Catalog, id, raw string, anchors ...string) *Target {
	t.Helper()
	entry, ok := cat.Entry(id)
	require.True(t, ok, "fixture entry %s", id)
	if len(anchors) == 0 {
		anchors = []string{raw}
	}
	tgt, err := NewTarget(model.Entity{Issuer: "L01", Product: "P1", RawName: raw}, entry, anchors)
	require.NoError(t, err)
	return tgt
}

func TestEvaluate_Gates(t *testing.T) {
	cat := catalogtest.New(t)
	ev, err := NewEvaluator(cat)
	require.NoError(t, err)

	general := target(t, cat, catalogtest.CancerGeneral, "일반암진단비")

	tests := []struct {
		name    string
		target  *Target
		attr    string
		excerpt string
		failed  GateID
		detail  string
	}{
		{
			name:    "passes every gate",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "일반암진단비: 암으로 진단 확정시 가입금액 3,000만원 지급",
		},
		{
			name:    "no anchor",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "갑상선암 진단시 300만원",
			failed:  GateAnchor,
		},
		{
			name:    "hard negative",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "일반암진단비 해지환급금 예시표",
			failed:  GateHardNegative,
			detail:  "해지환급금",
		},
		{
			name:    "hard negative pattern",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "일반암진단비 만기 환급 없음",
			failed:  GateHardNegative,
			detail:  `re:만기\s*환급`,
		},
		{
			name:    "section negative",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "일반암진단비 진단 확정시 보험료 납입면제",
			failed:  GateSectionNegative,
			detail:  "보험료 납입면제",
		},
		{
			name:    "no trigger signal",
			target:  target(t, cat, catalogtest.CancerDiag, "암보장"),
			attr:    catalogtest.AttrAmount,
			excerpt: "암보장 가입금액 1,000만원",
			failed:  GateTriggerSignal,
		},
		{
			name:    "name lock",
			target:  target(t, cat, catalogtest.CancerGeneral, "일반암진단비", "가입금액"),
			attr:    catalogtest.AttrAmount,
			excerpt: "유사암 진단시 가입금액의 20% 지급",
			failed:  GateNameLock,
		},
		{
			name:    "required term",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "일반암진단비 진단 확정시 1,000만원",
			failed:  GateRequiredTerm,
		},
		{
			name:    "slot negative",
			target:  general,
			attr:    catalogtest.AttrAmount,
			excerpt: "일반암진단비 진단 시 가입금액 지급, 월 보험료 12,000원",
			failed:  GateSlotNegative,
			detail:  `re:(?:월|연)\s*보험료\s*[0-9,]+\s*원`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ev.Evaluate(tt.attr, passage(tt.excerpt), tt.target)
			assert.Equal(t, tt.failed == "", res.Passed)
			assert.Equal(t, tt.failed, res.FailedGate)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, res.Detail)
			}
			if tt.failed == "" {
				assert.Len(t, res.Trace, len(DefaultOrder))
				return
			}
			last := res.Trace[len(res.Trace)-1]
			assert.Equal(t, tt.failed, last.Gate)
			assert.Equal(t, Fail, last.Outcome)
		})
	}
}

func TestEvaluate_SkipsUndeclaredGates(t *testing.T) {
	cat := catalogtest.New(t)
	ev, err := NewEvaluator(cat)
	require.NoError(t, err)

	res := ev.Evaluate(catalogtest.AttrWaitingPeriod, passage("일반암진단비 진단 후 90일 면책"), target(t, cat, catalogtest.CancerGeneral, "일반암진단비"))
	require.True(t, res.Passed)
	assert.Equal(t, Step{Gate: GateRequiredTerm, Outcome: Skip}, res.Trace[5])
	assert.Equal(t, Step{Gate: GateSlotNegative, Outcome: Skip}, res.Trace[6])
}

func TestEvaluate_TraceStopsAtFirstFailure(t *testing.T) {
	cat := catalogtest.New(t)
	ev, err := NewEvaluator(cat)
	require.NoError(t, err)
	tgt := target(t, cat, catalogtest.CancerGeneral, "일반암진단비")

	excerpts := []string{
		"일반암진단비 해지환급금 진단",
		"일반암진단비 진단 확정시 1,000만원",
		"다른 문장",
		"일반암진단비 진단 시 가입금액 지급",
	}
	for _, excerpt := range excerpts {
		res := ev.Evaluate(catalogtest.AttrAmount, passage(excerpt), tgt)
		for i, step := range res.Trace {
			assert.Equal(t, DefaultOrder[i], step.Gate)
			if i < len(res.Trace)-1 || res.Passed {
				assert.NotEqual(t, Fail, step.Outcome, excerpt)
			}
		}
	}
}

func TestNewEvaluator_Order(t *testing.T) {
	cat := catalogtest.New(t)

	_, err := NewEvaluator(nil)
	assert.Error(t, err)

	_, err = NewEvaluator(cat, GateAnchor, "bogus")
	assert.ErrorContains(t, err, "unknown gate")

	dup := append(append([]GateID(nil), DefaultOrder...), GateAnchor)
	_, err = NewEvaluator(cat, dup...)
	assert.ErrorContains(t, err, "listed twice")

	_, err = NewEvaluator(cat, GateAnchor, GateNameLock)
	assert.ErrorContains(t, err, "gate order misses")

	ev, err := NewEvaluator(cat)
	require.NoError(t, err)
	assert.Equal(t, DefaultOrder, ev.Order())
}

func TestNewTarget(t *testing.T) {
	cat := catalogtest.New(t)
	entry, _ := cat.Entry(catalogtest.Stroke)

	_, err := NewTarget(model.Entity{RawName: "x"}, nil, nil)
	assert.Error(t, err)

	_, err = NewTarget(model.Entity{RawName: "x"}, entry, []string{"re:("})
	assert.Error(t, err)

	tgt, err := NewTarget(model.Entity{RawName: "뇌졸중진단비"}, entry, []string{"뇌졸중", ""})
	require.NoError(t, err)
	assert.Equal(t, 1, tgt.Anchors().Len())
	assert.Equal(t, []string{"뇌졸중진단비"}, tgt.NameLock().Tokens())
}

// Gates are a conjunction of pure predicates: any order admits the same passages.
func TestEvaluate_OrderIndependentVerdict(t *testing.T) {
	cat := catalogtest.New(t)
	base, err := NewEvaluator(cat)
	require.NoError(t, err)
	tgt := target(t, cat, catalogtest.CancerGeneral, "일반암진단비")

	excerpts := []string{
		"일반암진단비: 암으로 진단 확정시 가입금액 3,000만원 지급",
		"일반암진단비 해지환급금 예시표",
		"일반암진단비 진단 확정시 보험료 납입면제",
		"일반암진단비 진단 시 가입금액 지급, 월 보험료 12,000원",
		"유사암 진단시 가입금액의 20% 지급",
		"갑상선암 진단시 300만원",
	}

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("verdict does not depend on gate order", prop.ForAll(
		func(keys []int, idx int) bool {
			order := append([]GateID(nil), DefaultOrder...)
			sort.SliceStable(order, func(i, j int) bool {
				return keys[indexOf(order[i])] < keys[indexOf(order[j])]
			})
			ev, err := NewEvaluator(cat, order...)
			if err != nil {
				return false
			}
			p := passage(excerpts[idx])
			return ev.Evaluate(catalogtest.AttrAmount, p, tgt).Passed == base.Evaluate(catalogtest.AttrAmount, p, tgt).Passed
		},
		gen.SliceOfN(len(DefaultOrder), gen.IntRange(0, 100)),
		gen.IntRange(0, len(excerpts)-1),
	))

	properties.TestingRun(t)
}

func indexOf(id GateID) int {
	for i, g := range DefaultOrder {
		if g == id {
			return i
		}
	}
	return -1
}
