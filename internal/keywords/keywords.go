// Package keywords tokenizes ingested content into weighted trending counts
// and provides the wildcard matcher used by alert rules.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/newspulse/sentinel/internal/monitor"
)

// Source weights bias the trend score toward wire services; unlisted sources
// get weight 1.
var sourceWeights = map[string]float64{
	"xinhua":       1.5,
	"peoples":      1.5,
	"cctv":         1.4,
	"cls":          1.3,
	"wallstreetcn": 1.2,
	"jin10":        1.1,
}

// Aggregator turns recent content into ordered keyword counts.
type Aggregator struct {
	stopWords map[string]struct{}
}

// NewAggregator builds an Aggregator with the default stop word list.
func NewAggregator() *Aggregator {
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[w] = struct{}{}
	}
	return &Aggregator{stopWords: stop}
}

// Aggregate tokenizes titles and bodies of the given items into keyword
// counts. Output is deterministic for the same input: descending count,
// with ties broken by first-seen order. Score is a supplementary
// time-and-source-weighted signal and does not affect ordering. A zero limit
// means no cap.
func (a *Aggregator) Aggregate(items []monitor.ContentItem, now time.Time, limit int) []monitor.KeywordCount {
	type stat struct {
		count     int
		score     float64
		sources   map[string]struct{}
		firstSeen int
	}
	stats := make(map[string]*stat)
	order := 0

	for _, item := range items {
		weight := timeWeight(item, now) * sourceWeight(item.SourceID)
		sourceName := item.SourceName
		if sourceName == "" {
			sourceName = item.SourceID
		}

		for _, word := range a.tokenize(item.Title + " " + item.Body) {
			s, ok := stats[word]
			if !ok {
				s = &stat{sources: make(map[string]struct{}), firstSeen: order}
				stats[word] = s
				order++
			}
			s.count++
			s.score += weight
			s.sources[sourceName] = struct{}{}
		}
	}

	out := make([]monitor.KeywordCount, 0, len(stats))
	for word, s := range stats {
		sources := make([]string, 0, len(s.sources))
		for name := range s.sources {
			sources = append(sources, name)
		}
		sort.Strings(sources)
		out = append(out, monitor.KeywordCount{
			Word:    word,
			Count:   s.count,
			Score:   s.score,
			Sources: sources,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return stats[out[i].Word].firstSeen < stats[out[j].Word].firstSeen
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// tokenize splits text into Han words of 2 to 4 runes and ASCII words of at
// least 3 letters, folded to lower case, with stop words removed.
func (a *Aggregator) tokenize(text string) []string {
	var words []string
	emit := func(w string) {
		if _, stopped := a.stopWords[w]; !stopped {
			words = append(words, w)
		}
	}

	var han []rune
	var ascii []rune
	flushHan := func() {
		// Greedy chunks of up to 4 runes; a trailing single rune is dropped.
		for len(han) >= 2 {
			n := len(han)
			if n > 4 {
				n = 4
			}
			emit(string(han[:n]))
			han = han[n:]
		}
		han = han[:0]
	}
	flushASCII := func() {
		if len(ascii) >= 3 {
			emit(strings.ToLower(string(ascii)))
		}
		ascii = ascii[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushASCII()
			han = append(han, r)
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			flushHan()
			ascii = append(ascii, r)
		default:
			flushHan()
			flushASCII()
		}
	}
	flushHan()
	flushASCII()
	return words
}

// timeWeight decays linearly over one week, floored at 0.1. Items carrying a
// publish time use it; otherwise the collection time stands in.
func timeWeight(item monitor.ContentItem, now time.Time) float64 {
	at := item.CollectedAt
	if item.PublishedAt != nil {
		at = *item.PublishedAt
	}
	ageHours := now.Sub(at).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	w := 1.0 - ageHours/168
	if w < 0.1 {
		w = 0.1
	}
	return w
}

func sourceWeight(sourceID string) float64 {
	if w, ok := sourceWeights[sourceID]; ok {
		return w
	}
	return 1.0
}

// MatchPattern reports whether text matches the keyword pattern. Patterns
// containing * or ? are wildcards (* any run, ? any rune); anything else is
// a case-insensitive substring match.
func MatchPattern(text, pattern string) bool {
	if pattern == "" {
		return false
	}
	if strings.ContainsAny(pattern, "*?") {
		expr := regexp.QuoteMeta(pattern)
		expr = strings.ReplaceAll(expr, `\*`, ".*")
		expr = strings.ReplaceAll(expr, `\?`, ".")
		re, err := regexp.Compile("(?is)" + expr)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(pattern))
}
