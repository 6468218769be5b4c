package resolve

import (
	"regexp"
	"strings"
)

// SuffixTableVersion identifies the suffix pattern table below. Bump it whenever a
// class is added or a pattern changes; it is recorded in every run manifest.
const SuffixTableVersion = "2026.10.1"

// SuffixClass is one family of trailing qualifiers that carry metadata, not identity
type SuffixClass struct {
	Name    string
	pattern *regexp.Regexp
}

// Strip removes one trailing occurrence of the class from name
func (c SuffixClass) Strip(name string) (string, bool) {
	loc := c.pattern.FindStringIndex(name)
	if loc == nil {
		return name, false
	}
	stripped := strings.TrimSpace(name[:loc[0]])
	if stripped == "" {
		return name, false
	}
	return stripped, true
}

// Matches reports whether name ends with a qualifier of this class
func (c SuffixClass) Matches(name string) bool {
	return c.pattern.MatchString(name)
}

const (
	suffixOpen  = `\s*[(（\[]\s*`
	suffixClose = `\s*[)）\]]\s*$`
)

// Suffix class names
const (
	ClassOccurrenceLimit = "occurrence_limit"
	ClassRenewal         = "renewal"
	ClassDurationRange   = "duration_range"
	ClassNamedCondition  = "named_condition"
)

// SuffixClasses is the ordered stripping table
var SuffixClasses = []SuffixClass{
	{
		// (최초1회한), (연간3회), (1회), (180일한도)
		Name: ClassOccurrenceLimit,
		pattern: regexp.MustCompile(suffixOpen +
			`(?:(?:최초|연간|연|매년)?\s*\d+\s*회\s*(?:한도|한)?|\d+\s*일\s*한도)` + suffixClose),
	},
	{
		// (갱신형), (비갱신형), [갱신형], (20년갱신), (100세만기갱신형)
		Name: ClassRenewal,
		pattern: regexp.MustCompile(suffixOpen +
			`(?:비갱신형|갱신형|갱신|\d+\s*년\s*갱신형?|\d+\s*세\s*만기\s*갱신형?)` + suffixClose),
	},
	{
		// (4-180일), (1~30일), (91일이상), (20~80세)
		Name: ClassDurationRange,
		pattern: regexp.MustCompile(suffixOpen +
			`(?:\d+\s*(?:일|세|년|개월)?\s*[-~～]\s*\d+\s*(?:일|세|년|개월)|\d+\s*(?:일|세|년|개월)\s*(?:이상|이하|초과|미만))` + suffixClose),
	},
	{
		// (유사암제외), (소액암포함), (갑상선암한정)
		Name: ClassNamedCondition,
		pattern: regexp.MustCompile(suffixOpen +
			`[^()（）\[\]]*?(?:미포함|제외|포함|한정)` + suffixClose),
	},
}

// SuffixClassByName finds a class in the table
func SuffixClassByName(name string) (SuffixClass, bool) {
	for _, c := range SuffixClasses {
		if c.Name == name {
			return c, true
		}
	}
	return SuffixClass{}, false
}
