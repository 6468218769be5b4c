package extract

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/model"
)

// Value is a value read from one passage
type Value struct {
	Text       string
	Confidence model.Confidence
	Pattern    string // Name of the pattern that produced it
}

// pattern is one regular expression and the formatter for its submatches
type pattern struct {
	name   string
	re     *regexp.Regexp
	format func(m []string) (string, bool)
}

// valueRule holds exact patterns (HIGH) and looser fallbacks (MEDIUM)
type valueRule struct {
	exact    []pattern
	fallback []pattern
}

const amountUnits = `(억원|천만원|백만원|만원|천원|원)`

var unitScale = map[string]int64{
	"원":   1,
	"천원":  1_000,
	"만원":  10_000,
	"백만원": 1_000_000,
	"천만원": 10_000_000,
	"억원":  100_000_000,
}

var rules = map[catalog.Rule]valueRule{
	catalog.RuleAmount: {
		exact: []pattern{
			{"amount_labelled", regexp.MustCompile(`(?:보험가입금액|가입금액|1일당|입원일당|보험금액)\s*(?:은|는|:|：)?\s*([0-9][0-9,]*)\s*` + amountUnits), formatAmount},
		},
		fallback: []pattern{
			{"amount_bare", regexp.MustCompile(`([0-9][0-9,]*)\s*(억원|천만원|백만원|만원|천원)`), formatAmount},
		},
	},
	catalog.RuleWaitingPeriod: {
		exact: []pattern{
			{"waiting_labelled", regexp.MustCompile(`(?:면책기간|대기기간|부담보기간)\s*(?:은|는|:|：)?\s*([0-9]+)\s*(일|개월|년)`), formatPeriod},
			{"waiting_elapsed", regexp.MustCompile(`([0-9]+)\s*(일|개월|년)\s*(?:이|가)?\s*(?:지난|경과한)`), formatPeriod},
		},
		fallback: []pattern{
			{"waiting_bare", regexp.MustCompile(`([0-9]+)\s*(일|개월)\s*(?:면책|이내)`), formatPeriod},
		},
	},
	catalog.RuleReduction: {
		exact: []pattern{
			{"reduction_period", regexp.MustCompile(`([0-9]+)\s*(년|개월)\s*(?:이내|미만)[^0-9%]{0,24}?([0-9]+)\s*%`), formatReduction},
		},
		fallback: []pattern{
			{"reduction_bare", regexp.MustCompile(`([0-9]+)\s*%\s*(?:감액|만\s*지급)`), formatPercent},
		},
	},
	catalog.RulePayoutLimit: {
		exact: []pattern{
			{"limit_count", regexp.MustCompile(`(최초|연간|매년|연)?\s*([0-9]+)\s*회\s*(?:한도|한)`), formatCount},
			{"limit_days", regexp.MustCompile(`([0-9]+)\s*일\s*한도`), formatDays},
		},
		fallback: []pattern{
			{"limit_bare", regexp.MustCompile(`()([0-9]+)\s*회`), formatCount},
		},
	},
	catalog.RuleRenewal: {
		exact: []pattern{
			{"renewal_cycle", regexp.MustCompile(`([0-9]+)\s*년\s*(?:마다\s*)?갱신`), formatCycle},
			{"renewal_type", regexp.MustCompile(`(비갱신형|갱신형)`), formatLiteral},
		},
		fallback: []pattern{
			{"renewal_bare", regexp.MustCompile(`(갱신)`), formatLiteral},
		},
	},
	catalog.RuleAgeRange: {
		exact: []pattern{
			{"age_range", regexp.MustCompile(`([0-9]+)\s*세\s*[~\-]\s*([0-9]+)\s*세`), formatAgeRange},
		},
		fallback: []pattern{
			{"age_bound", regexp.MustCompile(`([0-9]+)\s*세\s*(이상|이하|까지)`), formatAgeBound},
		},
	},
}

// ExtractValue applies the rule to a passage. Exact patterns are tried first;
// the first match wins. Subtype coverage reads the entry's keyword list.
func ExtractValue(rule catalog.Rule, p *model.NormalizedPassage, entry *catalog.Entry) (Value, bool) {
	if rule == catalog.RuleSubtype {
		return extractSubtype(p, entry)
	}

	vr, ok := rules[rule]
	if !ok {
		return Value{}, false
	}
	if v, ok := apply(vr.exact, p.Text, model.ConfidenceHigh); ok {
		return v, true
	}
	return apply(vr.fallback, p.Text, model.ConfidenceMedium)
}

// HasRule reports whether values can be extracted for rule
func HasRule(rule catalog.Rule) bool {
	if rule == catalog.RuleSubtype {
		return true
	}
	_, ok := rules[rule]
	return ok
}

func apply(patterns []pattern, text string, conf model.Confidence) (Value, bool) {
	for _, pt := range patterns {
		for _, m := range pt.re.FindAllStringSubmatch(text, -1) {
			if v, ok := pt.format(m); ok {
				return Value{Text: v, Confidence: conf, Pattern: pt.name}, true
			}
		}
	}
	return Value{}, false
}

func extractSubtype(p *model.NormalizedPassage, entry *catalog.Entry) (Value, bool) {
	if entry == nil {
		return Value{}, false
	}
	found := entry.SubtypeTerms().MatchAll(p.Text, p.Compact)
	if len(found) == 0 {
		return Value{}, false
	}
	sort.Strings(found)
	return Value{Text: strings.Join(found, ","), Confidence: model.ConfidenceHigh, Pattern: "subtype_keywords"}, true
}

func formatAmount(m []string) (string, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	scale, ok := unitScale[m[2]]
	if err != nil || n <= 0 || !ok {
		return "", false
	}
	// Amounts past int64 are unreadable, not wrapped
	if n > math.MaxInt64/scale {
		return "", false
	}
	return humanize.Comma(n*scale) + "원", true
}

func formatPeriod(m []string) (string, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	return fmt.Sprintf("%d%s", n, m[2]), true
}

func formatReduction(m []string) (string, bool) {
	pct, err := strconv.Atoi(m[3])
	if err != nil || pct <= 0 || pct > 100 {
		return "", false
	}
	return fmt.Sprintf("%s%s:%d%%", m[1], m[2], pct), true
}

func formatPercent(m []string) (string, bool) {
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct <= 0 || pct > 100 {
		return "", false
	}
	return fmt.Sprintf("%d%%", pct), true
}

func formatCount(m []string) (string, bool) {
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return "", false
	}
	prefix := m[1]
	if prefix == "연" || prefix == "매년" {
		prefix = "연간"
	}
	return fmt.Sprintf("%s%d회", prefix, n), true
}

func formatDays(m []string) (string, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	return fmt.Sprintf("%d일", n), true
}

func formatCycle(m []string) (string, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	return fmt.Sprintf("%d년갱신", n), true
}

func formatLiteral(m []string) (string, bool) {
	return m[1], m[1] != ""
}

func formatAgeRange(m []string) (string, bool) {
	lo, err1 := strconv.Atoi(m[1])
	hi, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || lo > hi {
		return "", false
	}
	return fmt.Sprintf("%d~%d세", lo, hi), true
}

func formatAgeBound(m []string) (string, bool) {
	return m[1] + "세" + m[2], true
}
