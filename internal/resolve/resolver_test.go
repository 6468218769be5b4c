package resolve

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/covgate/internal/cache"
	"github.com/ppiankov/covgate/internal/catalog/catalogtest"
	"github.com/ppiankov/covgate/internal/model"
)

func TestResolve_Cascade(t *testing.T) {
	r := New(catalogtest.New(t))

	tests := []struct {
		name      string
		raw       string
		issuer    string
		wantID    string
		wantStrat model.MatchStrategy
		stripped  []string
	}{
		{"exact", "일반암진단비", "L01", catalogtest.CancerGeneral, model.StrategyExact, nil},
		{"exact beats suffix stripping", "질병입원일당(갱신형)", "L01", catalogtest.HospDailyRenew, model.StrategyExact, nil},
		{"normalized whitespace", "일반암 진단비", "L02", catalogtest.CancerGeneral, model.StrategyNormalized, nil},
		{"normalized full-width", "질병입원일당（갱신형）", "L02", catalogtest.HospDailyRenew, model.StrategyNormalized, nil},
		{"alias", "일반암진단급여금", "L01", catalogtest.CancerGeneral, model.StrategyAlias, nil},
		{"normalized alias", "일반암진단 급여금", "L01", catalogtest.CancerGeneral, model.StrategyNormalizedAlias, nil},
		{"occurrence limit", "질병수술비(최초1회한)", "L01", catalogtest.Surgery, model.StrategySuffix, []string{ClassOccurrenceLimit}},
		{"duration range", "질병입원일당(1-180일)", "L01", catalogtest.HospDaily, model.StrategySuffix, []string{ClassDurationRange}},
		{"renewal on alias", "질병입원급여금[갱신형]", "L02", catalogtest.HospDaily, model.StrategySuffix, []string{ClassRenewal}},
		{
			"stacked suffixes stripped one class at a time",
			"일반암진단비(유사암제외)(갱신형)", "L01", catalogtest.CancerGeneral, model.StrategySuffix,
			[]string{ClassRenewal, ClassNamedCondition},
		},
		{
			"stops at the more specific catalog name",
			"질병입원일당(갱신형)(1-180일)", "L01", catalogtest.HospDailyRenew, model.StrategySuffix,
			[]string{ClassDurationRange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.raw, tt.issuer)
			require.True(t, res.Matched(), "expected %q to resolve, got %+v", tt.raw, res)
			assert.Equal(t, tt.wantID, res.Canonical())
			assert.Equal(t, tt.wantStrat, res.MatchStrategy)
			assert.Equal(t, tt.stripped, res.StrippedSuffixes)
			assert.Equal(t, tt.raw, res.RawName)
			assert.Empty(t, res.Reason)
		})
	}
}

func TestResolve_Unmatched(t *testing.T) {
	r := New(catalogtest.New(t))

	tests := []struct {
		name   string
		raw    string
		issuer string
		reason string
	}{
		{"empty", "", "L01", model.ReasonEmptyInput},
		{"blank", "   ", "L01", model.ReasonEmptyInput},
		{"punctuation only", "()", "L01", model.ReasonEmptyInput},
		{"unknown coverage", "치아보철치료비", "L01", model.ReasonNoCatalogMatch},
		{"alias of another issuer", "일반암진단급여금", "L02", model.ReasonNoCatalogMatch},
		{"suffix outside the table is kept", "일반암진단비(특약)", "L01", model.ReasonNoCatalogMatch},
		{"suffix alone", "(갱신형)", "L01", model.ReasonNoCatalogMatch},
		{"roman marker is not stripped", "일반암진단비Ⅱ", "L01", model.ReasonNoCatalogMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.raw, tt.issuer)
			assert.False(t, res.Matched())
			assert.Nil(t, res.CanonicalID)
			assert.Equal(t, model.MappingUnmatched, res.MappingStatus)
			assert.Equal(t, model.StrategyNone, res.MatchStrategy)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestResolveEntity_SetsEntityID(t *testing.T) {
	r := New(catalogtest.New(t))
	e := model.Entity{Issuer: "L01", Product: "P1", RawName: "질병수술비"}

	res := r.ResolveEntity(e)
	assert.Equal(t, "L01/P1/질병수술비", res.EntityID)
	assert.Equal(t, catalogtest.Surgery, res.Canonical())
}

func TestResolve_MemoReturnsIndependentCopies(t *testing.T) {
	memo := cache.NewMemoryCache()
	r := New(catalogtest.New(t), WithCache(memo))

	first := r.Resolve("일반암진단비(유사암제외)(갱신형)", "L01")
	*first.CanonicalID = "tampered"
	first.StrippedSuffixes[0] = "tampered"

	second := r.Resolve("일반암진단비(유사암제외)(갱신형)", "L01")
	assert.Equal(t, catalogtest.CancerGeneral, second.Canonical())
	assert.Equal(t, []string{ClassRenewal, ClassNamedCondition}, second.StrippedSuffixes)
	assert.Equal(t, 1, memo.Len())
}

func TestResolve_Deterministic(t *testing.T) {
	cat := catalogtest.New(t)
	names := []string{"일반암진단비", "질병입원일당(1-180일)", "치아보철치료비", "", "일반암진단급여금"}

	a := New(cat)
	b := New(cat, WithCache(cache.NewMemoryCache()))
	for _, name := range names {
		assert.Equal(t, a.Resolve(name, "L01"), b.Resolve(name, "L01"))
		assert.Equal(t, b.Resolve(name, "L01"), b.Resolve(name, "L01"))
	}
}

// Resolving a name with recognized suffixes lands on the same canonical id as
// resolving the bare name.
func TestResolve_SuffixStrippingIsIdempotent(t *testing.T) {
	r := New(catalogtest.New(t))

	bases := []string{"일반암진단비", "뇌졸중진단비", "질병수술비", "뇌혈관질환진단비", "일반암진단급여금"}
	suffixes := []string{"(최초1회한)", "(갱신형)", "(1~30일)", "(유사암제외)", "[비갱신형]", "(180일한도)", "(20~80세)", " (소액암 포함)"}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve(base+suffixes) == resolve(base)", prop.ForAll(
		func(base int, picks []int) bool {
			var b strings.Builder
			b.WriteString(bases[base])
			for _, p := range picks {
				b.WriteString(suffixes[p])
			}
			direct := r.Resolve(bases[base], "L01")
			decorated := r.Resolve(b.String(), "L01")
			return direct.Matched() && decorated.Matched() &&
				direct.Canonical() == decorated.Canonical() &&
				len(decorated.StrippedSuffixes) == len(picks)
		},
		gen.IntRange(0, len(bases)-1),
		gen.SliceOfN(3, gen.IntRange(0, len(suffixes)-1)),
	))

	properties.TestingRun(t)
}
