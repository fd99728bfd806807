// internal/scoring/criteria/mapper.go
package criteria

import (
	"sort"
	"strings"
)

// Internal criterion keys. These form the fixed evidentiary taxonomy stored on
// a talent's profile; the external provider is free to label its breakdown
// however it likes.
const (
	Awards               = "awards"
	Publications         = "publications"
	Press                = "press"
	Judging              = "judging"
	OriginalContribution = "original_contribution"
	CriticalRole         = "critical_role"
	HighRemuneration     = "high_remuneration"
	Membership           = "membership"
	Exhibitions          = "exhibitions"
)

// Rated is one entry of the provider's per-criterion breakdown.
type Rated struct {
	Label  string
	Rating string
	Score  float64
}

// mappingRule maps a label substring to an internal criterion key. Rules are
// ordered; the first match wins, so the more specific provider phrasings come
// before generic ones ("award" before "paper" keeps "Best Paper Award" under
// awards).
type mappingRule struct {
	substring string
	key       string
}

var mappingRules = []mappingRule{
	{"award", Awards},
	{"prize", Awards},
	{"medal", Awards},
	{"press", Press},
	{"media coverage", Press},
	{"news", Press},
	{"judg", Judging},
	{"peer review", Judging},
	{"referee", Judging},
	{"publication", Publications},
	{"paper", Publications},
	{"journal", Publications},
	{"research", Publications},
	{"membership", Membership},
	{"member", Membership},
	{"association", Membership},
	{"society", Membership},
	{"critical role", CriticalRole},
	{"leading role", CriticalRole},
	{"leadership", CriticalRole},
	{"salary", HighRemuneration},
	{"remuneration", HighRemuneration},
	{"compensation", HighRemuneration},
	{"original contribution", OriginalContribution},
	{"patent", OriginalContribution},
	{"innovation", OriginalContribution},
	{"contribution", OriginalContribution},
	{"exhibition", Exhibitions},
	{"showcase", Exhibitions},
}

const qualifyingScore = 50

// MapToCriteria translates the provider's free-form breakdown into the set of
// internal criterion keys the talent has met. Pure and deterministic: the same
// input always yields the same sorted key set, and malformed entries are
// silently dropped rather than raised.
func MapToCriteria(scores []Rated) []string {
	met := make(map[string]bool)

	for _, s := range scores {
		if !qualifies(s) {
			continue
		}
		if key, ok := matchLabel(s.Label); ok {
			met[key] = true
		}
	}

	keys := make([]string, 0, len(met))
	for k := range met {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// qualifies applies the inclusion rule: a strong or moderate rating, or a
// numeric score at or above the threshold. Missing rating and zero score are
// both non-qualifying.
func qualifies(s Rated) bool {
	switch strings.ToLower(strings.TrimSpace(s.Rating)) {
	case "strong", "moderate":
		return true
	}
	return s.Score >= qualifyingScore
}

func matchLabel(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	lower := strings.ToLower(label)
	for _, rule := range mappingRules {
		if strings.Contains(lower, rule.substring) {
			return rule.key, true
		}
	}
	return "", false
}
