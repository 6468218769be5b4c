package conflict

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/covgate/internal/model"
)

const (
	daily      = "L02/P1/질병입원일당"
	dailyRenew = "L02/P1/질병입원일당(갱신형)"
	surgery    = "L02/P1/질병수술비"
	attr       = "payout_amount"

	dailyID      = "HO_DISEASE_DAILY"
	dailyRenewID = "HO_DISEASE_DAILY_RENEW"
	surgeryID    = "SU_DISEASE_SURGERY"
)

var ref = model.EvidenceRef{Locator: "terms#p3:1", DocumentType: "terms", Page: 3, Excerpt: "질병입원일당 1일당 3만원"}

func fixture() ([]model.Slot, []Claim) {
	slots := []model.Slot{
		model.Found(daily, attr, "30,000원", model.ConfidenceHigh, ref),
		model.Found(dailyRenew, attr, "30,000원", model.ConfidenceHigh, ref),
		model.Found(surgery, attr, "1,000,000원", model.ConfidenceHigh, model.EvidenceRef{Locator: "terms#p5:2"}),
		model.NotFound(surgery, "payout_limit", model.ReasonNoPassage),
	}
	claims := []Claim{
		{Slot: 0, EntityID: daily, CanonicalID: dailyID, DocumentID: "terms", Attribute: attr, Passage: 1, Locator: "terms#p3:1"},
		{Slot: 0, EntityID: daily, CanonicalID: dailyID, DocumentID: "terms", Attribute: attr, Passage: 4, Locator: "terms#p3:4"},
		{Slot: 1, EntityID: dailyRenew, CanonicalID: dailyRenewID, DocumentID: "terms", Attribute: attr, Passage: 1, Locator: "terms#p3:1"},
		{Slot: 2, EntityID: surgery, CanonicalID: surgeryID, DocumentID: "terms", Attribute: attr, Passage: 7, Locator: "terms#p5:2"},
	}
	return slots, claims
}

func records(slots []model.Slot) []model.SlotRecord {
	out := make([]model.SlotRecord, len(slots))
	for i, s := range slots {
		out[i] = s.Record()
	}
	return out
}

func TestResolve_SharedPassageDemotesBoth(t *testing.T) {
	slots, claims := fixture()
	out, contentions := NewResolver(nil).Resolve(slots, claims)

	require.Len(t, out, 4)
	for _, i := range []int{0, 1} {
		assert.Equal(t, model.StatusUnknown, out[i].Status())
		assert.Equal(t, "ambiguous_attribution: shared evidence across 2 entities", out[i].Reason())
		assert.Zero(t, out[i].EvidenceCount())
	}
	assert.Equal(t, model.StatusFound, out[2].Status())
	assert.Equal(t, model.StatusNotFound, out[3].Status())

	want := []model.Contention{{
		DocumentID: "terms",
		Attribute:  attr,
		Locator:    "terms#p3:1",
		Entities:   []string{daily, dailyRenew},
	}}
	if diff := cmp.Diff(want, contentions); diff != "" {
		t.Errorf("contentions mismatch (-want +got):\n%s", diff)
	}

	// input untouched
	assert.Equal(t, model.StatusFound, slots[0].Status())
}

func TestResolve_SameEntityTwiceIsNotContention(t *testing.T) {
	slots, _ := fixture()
	claims := []Claim{
		{Slot: 0, EntityID: daily, CanonicalID: dailyID, DocumentID: "terms", Attribute: attr, Passage: 1, Locator: "terms#p3:1"},
		{Slot: 0, EntityID: daily, CanonicalID: dailyID, DocumentID: "terms", Attribute: attr, Passage: 1, Locator: "terms#p3:1"},
	}
	out, contentions := NewResolver(nil).Resolve(slots, claims)

	assert.Equal(t, model.StatusFound, out[0].Status())
	assert.Empty(t, contentions)
}

func TestResolve_DifferentAttributeIsNotContention(t *testing.T) {
	slots, _ := fixture()
	claims := []Claim{
		{Slot: 0, EntityID: daily, CanonicalID: dailyID, DocumentID: "terms", Attribute: attr, Passage: 1, Locator: "terms#p3:1"},
		{Slot: 3, EntityID: surgery, CanonicalID: surgeryID, DocumentID: "terms", Attribute: "payout_limit", Passage: 1, Locator: "terms#p3:1"},
	}
	out, contentions := NewResolver(nil).Resolve(slots, claims)

	assert.Equal(t, model.StatusFound, out[0].Status())
	assert.Empty(t, contentions)
}

func TestResolve_SameCanonicalAcrossProductsIsNotContention(t *testing.T) {
	const (
		cancerP1 = "L01/P1/일반암진단비"
		cancerP2 = "L01/P2/일반암진단비"
		cancerID = "CI_CANCER_GENERAL"
	)
	shared := model.EvidenceRef{Locator: "brochure#p1:1"}
	slots := []model.Slot{
		model.Found(cancerP1, attr, "30,000,000원", model.ConfidenceHigh, shared),
		model.Found(cancerP2, attr, "30,000,000원", model.ConfidenceHigh, shared),
	}
	claims := []Claim{
		{Slot: 0, EntityID: cancerP1, CanonicalID: cancerID, DocumentID: "brochure", Attribute: attr, Passage: 0, Locator: "brochure#p1:1"},
		{Slot: 1, EntityID: cancerP2, CanonicalID: cancerID, DocumentID: "brochure", Attribute: attr, Passage: 0, Locator: "brochure#p1:1"},
	}
	out, contentions := NewResolver(nil).Resolve(slots, claims)

	assert.Equal(t, model.StatusFound, out[0].Status())
	assert.Equal(t, model.StatusFound, out[1].Status())
	assert.Empty(t, contentions)
}

func TestResolve_RepeatedLocatorOnDistinctPassages(t *testing.T) {
	slots, _ := fixture()
	// Two different passages printed without a sequence number share "terms#p3:0"
	claims := []Claim{
		{Slot: 0, EntityID: daily, CanonicalID: dailyID, DocumentID: "terms", Attribute: attr, Passage: 2, Locator: "terms#p3:0"},
		{Slot: 2, EntityID: surgery, CanonicalID: surgeryID, DocumentID: "terms", Attribute: attr, Passage: 3, Locator: "terms#p3:0"},
	}
	out, contentions := NewResolver(nil).Resolve(slots, claims)

	assert.Equal(t, model.StatusFound, out[0].Status())
	assert.Equal(t, model.StatusFound, out[2].Status())
	assert.Empty(t, contentions)
}

func TestResolve_MaxContenders(t *testing.T) {
	slots, claims := fixture()
	claims = append(claims,
		Claim{Slot: 2, EntityID: surgery, CanonicalID: surgeryID, DocumentID: "terms", Attribute: attr, Passage: 1, Locator: "terms#p3:1"},
	)
	out, contentions := NewResolver(nil).Resolve(slots, claims)

	for _, i := range []int{0, 1, 2} {
		assert.Equal(t, Reason(3), out[i].Reason())
	}
	require.Len(t, contentions, 1)
	assert.Len(t, contentions[0].Entities, 3)
}

func TestResolve_Idempotent(t *testing.T) {
	slots, claims := fixture()
	r := NewResolver(nil)

	once, c1 := r.Resolve(slots, claims)
	twice, c2 := r.Resolve(once, claims)

	if diff := cmp.Diff(records(once), records(twice)); diff != "" {
		t.Errorf("second pass changed slots (-once +twice):\n%s", diff)
	}
	assert.Equal(t, c1, c2)
}

func TestResolve_OrderIndependent(t *testing.T) {
	slots, claims := fixture()
	r := NewResolver(nil)
	wantSlots, wantContentions := r.Resolve(slots, claims)

	properties := gopter.NewProperties(nil)
	properties.Property("claim order does not change the outcome", prop.ForAll(
		func(keys []int) bool {
			shuffled := make([]Claim, len(claims))
			perm := permutation(keys)
			for i, j := range perm {
				shuffled[i] = claims[j]
			}
			gotSlots, gotContentions := r.Resolve(slots, shuffled)
			return cmp.Equal(records(wantSlots), records(gotSlots)) && cmp.Equal(wantContentions, gotContentions)
		},
		gen.SliceOfN(len(claims), gen.IntRange(0, 1000)),
	))
	properties.TestingRun(t)
}

// permutation orders indexes by their keys; ties keep index order
func permutation(keys []int) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && keys[idx[j]] < keys[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	return idx
}
