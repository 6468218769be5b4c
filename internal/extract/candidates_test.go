package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/catalog/catalogtest"
	"github.com/ppiankov/covgate/internal/model"
)

func TestAnchors(t *testing.T) {
	cat := catalogtest.New(t)
	entry, _ := cat.Entry(catalogtest.CancerDiag)

	tests := []struct {
		name   string
		entity model.Entity
		entry  *catalog.Entry
		want   []string
	}{
		{
			name:   "declared anchors win",
			entity: model.Entity{RawName: "암진단Ⅱ", AnchorTerms: []string{"암 진단"}},
			entry:  entry,
			want:   []string{"암 진단"},
		},
		{
			name:   "raw, core and canonical",
			entity: model.Entity{RawName: "암진단Ⅱ(유사암제외)담보"},
			entry:  entry,
			want:   []string{"암진단Ⅱ(유사암제외)담보", "암진단", "암진단비"},
		},
		{
			name:   "duplicates collapse",
			entity: model.Entity{RawName: "암진단비"},
			entry:  entry,
			want:   []string{"암진단비"},
		},
		{
			name:   "no entry",
			entity: model.Entity{RawName: "질병수술비(1-5종)"},
			want:   []string{"질병수술비(1-5종)", "질병수술비"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Anchors(tt.entity, tt.entry))
		})
	}
}

func TestIndex_Candidates(t *testing.T) {
	passages := Normalize([]model.Passage{
		{Issuer: "L01", Product: "P1", DocumentID: "a", Page: 1, Seq: 1, Excerpt: "일반암 진단비 가입금액 3,000만원"},
		{Issuer: "L01", Product: "P2", DocumentID: "b", Page: 1, Seq: 1, Excerpt: "일반암진단비 가입금액 1,000만원"},
		{Issuer: "L01", DocumentID: "c", Page: 2, Seq: 1, Excerpt: "일반암진단비 공통 약관"},
		{Issuer: "L02", Product: "P1", DocumentID: "d", Page: 1, Seq: 1, Excerpt: "일반암진단비"},
		{Issuer: "L01", Product: "P1", DocumentID: "a", Page: 1, Seq: 2, Excerpt: "가입금액 안내"},
		{Issuer: "L01", Product: "P1", DocumentID: "a", Page: 1, Seq: 3, Excerpt: "해지환급금 예시"},
	})
	idx := NewIndex(passages)
	require.Equal(t, 6, idx.Len())

	entity := model.Entity{Issuer: "L01", Product: "P1", RawName: "일반암진단비"}
	anchors := catalog.MustMatcher("일반암진단비")
	required := catalog.MustMatcher("가입금액")

	got := idx.Candidates(entity, anchors, required)
	var locators []string
	for _, p := range got {
		locators = append(locators, p.Locator())
	}
	assert.Equal(t, []string{"a#p1:1", "c#p2:1", "a#p1:2"}, locators)

	assert.Empty(t, idx.Candidates(model.Entity{Issuer: "L09", RawName: "x"}, anchors))
	assert.Len(t, idx.Candidates(entity, anchors), 2)
}

func TestNormalize_KeepsOriginal(t *testing.T) {
	raw := []model.Passage{{Excerpt: "암　진단비Ⅱ"}, {Excerpt: "B"}}
	out := Normalize(raw)

	require.Len(t, out, 2)
	assert.Equal(t, "암　진단비Ⅱ", out[0].Excerpt)
	assert.Equal(t, "암 진단비ii", out[0].Text)
	assert.Equal(t, "암진단비ii", out[0].Compact)
	assert.Equal(t, 1, out[1].Order)
	assert.Equal(t, "암　진단비Ⅱ", raw[0].Excerpt)
}
