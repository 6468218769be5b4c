// Package catalogtest provides a small reference catalog for tests.
package catalogtest

import (
	"testing"

	"github.com/ppiankov/covgate/internal/catalog"
)

// Version of the fixture catalog
const Version = "1.2.0"

// Attribute keys declared by the fixture
const (
	AttrAmount        = "payout_amount"
	AttrWaitingPeriod = "waiting_period"
	AttrReduction     = "reduction"
	AttrPayoutLimit   = "payout_limit"
	AttrRenewal       = "renewal"
	AttrSubtype       = "subtype_coverage"
)

// Canonical ids of the fixture entries
const (
	CancerGeneral  = "CI_CANCER_GENERAL"
	CancerDiag     = "CI_CANCER_DIAG"
	HospDaily      = "HO_DISEASE_DAILY"
	HospDailyRenew = "HO_DISEASE_DAILY_RENEW"
	Stroke         = "CI_STROKE_DIAG"
	Cerebro        = "CI_CEREBROVASCULAR_DIAG"
	Surgery        = "SU_DISEASE_SURGERY"
)

// Raw returns a fresh copy of the fixture document
func Raw() *catalog.Raw {
	return &catalog.Raw{
		Version: Version,
		AsOf:    "2026-10-01",
		HardNegatives: []string{
			"해지환급금",
			"적립부분",
			`re:만기\s*환급`,
		},
		SectionNegatives: []string{
			"보험료 납입면제",
			"납입을 면제",
			"보험계약대출",
		},
		SlotNegatives: map[string][]string{
			AttrAmount:  {`re:(?:월|연)\s*보험료\s*[0-9,]+\s*원`},
			AttrSubtype: {"납입면제", "면책기간"},
		},
		Attributes: []catalog.RawAttribute{
			{Key: AttrAmount, Rule: catalog.RuleAmount},
			{Key: AttrWaitingPeriod, Rule: catalog.RuleWaitingPeriod},
			{Key: AttrReduction, Rule: catalog.RuleReduction},
			{Key: AttrPayoutLimit, Rule: catalog.RulePayoutLimit},
			{Key: AttrRenewal, Rule: catalog.RuleRenewal},
			{Key: AttrSubtype, Rule: catalog.RuleSubtype},
		},
		Entries: []catalog.RawEntry{
			{
				ID:   CancerGeneral,
				Name: "일반암진단비",
				Aliases: map[string][]string{
					"L01": {"일반암 진단비", "일반암진단급여금"},
				},
				RequiredTerms: map[string][]string{
					AttrAmount: {"가입금액", "지급"},
				},
				TriggerTerms:    []string{"진단", "확정"},
				SubtypeKeywords: []string{"갑상선암", "기타피부암", "제자리암", "경계성종양"},
				Attributes:      []string{AttrAmount, AttrWaitingPeriod, AttrReduction, AttrPayoutLimit, AttrSubtype},
			},
			{
				ID:           CancerDiag,
				Name:         "암진단비",
				TriggerTerms: []string{"진단"},
				Attributes:   []string{AttrAmount, AttrWaitingPeriod},
			},
			{
				ID:   HospDaily,
				Name: "질병입원일당",
				Aliases: map[string][]string{
					"L02": {"질병입원급여금"},
				},
				RequiredTerms: map[string][]string{
					AttrAmount: {"1일당", "입원일당"},
				},
				TriggerTerms: []string{"입원"},
				Attributes:   []string{AttrAmount, AttrRenewal},
			},
			{
				ID:   HospDailyRenew,
				Name: "질병입원일당(갱신형)",
				RequiredTerms: map[string][]string{
					AttrAmount: {"1일당", "입원일당"},
				},
				TriggerTerms: []string{"입원"},
				Attributes:   []string{AttrAmount, AttrRenewal},
			},
			{
				ID:           Stroke,
				Name:         "뇌졸중진단비",
				TriggerTerms: []string{"진단"},
				Attributes:   []string{AttrAmount},
			},
			{
				ID:           Cerebro,
				Name:         "뇌혈관질환진단비",
				TriggerTerms: []string{"진단"},
				Attributes:   []string{AttrAmount},
			},
			{
				ID:           Surgery,
				Name:         "질병수술비",
				TriggerTerms: []string{"수술"},
				Attributes:   []string{AttrAmount, AttrPayoutLimit},
			},
		},
	}
}

// New builds the fixture catalog and fails the test on error
func New(tb testing.TB) *catalog.Catalog {
	tb.Helper()
	cat, err := catalog.Build(Raw())
	if err != nil {
		tb.Fatalf("build fixture catalog: %v", err)
	}
	return cat
}
