package keywords

import (
	"regexp"
	"strings"

	"github.com/newspulse/sentinel/internal/monitor"
)

// FilterRules is a display-side filter over keyword counts. Applying it
// never touches ingestion state.
type FilterRules struct {
	// Blacklist drops any word matching one of these patterns.
	Blacklist []string `json:"blacklist,omitempty"`
	// Whitelist, when non-empty, keeps only words matching one of these
	// patterns.
	Whitelist []string `json:"whitelist,omitempty"`
	// MinLength drops words shorter than this many runes.
	MinLength int `json:"min_length,omitempty"`
	// Pattern, when set, keeps only words matching this regular expression.
	Pattern string `json:"pattern,omitempty"`
}

// ApplyRules filters keyword counts without reordering or recounting them.
// An invalid Pattern disables the regex criterion rather than failing the
// whole filter.
func ApplyRules(rules FilterRules, counts []monitor.KeywordCount) []monitor.KeywordCount {
	var re *regexp.Regexp
	if rules.Pattern != "" {
		re, _ = regexp.Compile(rules.Pattern)
	}

	out := make([]monitor.KeywordCount, 0, len(counts))
	for _, kc := range counts {
		if len([]rune(kc.Word)) < rules.MinLength {
			continue
		}
		if matchesAny(kc.Word, rules.Blacklist) {
			continue
		}
		if len(rules.Whitelist) > 0 && !matchesAny(kc.Word, rules.Whitelist) {
			continue
		}
		if re != nil && !re.MatchString(kc.Word) {
			continue
		}
		out = append(out, kc)
	}
	return out
}

func matchesAny(word string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?") {
			if MatchPattern(word, p) {
				return true
			}
			continue
		}
		if strings.EqualFold(word, p) {
			return true
		}
	}
	return false
}
