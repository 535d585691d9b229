package keywords

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse/sentinel/internal/monitor"
)

func contentItem(sourceID, sourceName, title string, collectedAt time.Time) monitor.ContentItem {
	return monitor.ContentItem{
		Fingerprint: sourceID + "-" + title,
		SourceID:    sourceID,
		SourceName:  sourceName,
		Title:       title,
		CollectedAt: collectedAt,
	}
}

func TestAggregateOrdersByCountThenFirstSeen(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()

	items := []monitor.ContentItem{
		contentItem("src-a", "Source A", "earthquake strikes coastal city", now),
		contentItem("src-b", "Source B", "earthquake response teams deployed", now),
		contentItem("src-c", "Source C", "coastal flooding warning issued", now),
	}

	counts := agg.Aggregate(items, now, 0)
	require.NotEmpty(t, counts)

	// "earthquake" and "coastal" both appear twice; first-seen order breaks
	// the tie, then the singletons follow in first-seen order.
	assert.Equal(t, "earthquake", counts[0].Word)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, []string{"Source A", "Source B"}, counts[0].Sources)
	assert.Equal(t, "coastal", counts[1].Word)
	assert.Equal(t, 2, counts[1].Count)
	assert.Equal(t, "strikes", counts[2].Word)
	assert.Equal(t, 1, counts[2].Count)
}

func TestAggregateIsDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()
	items := []monitor.ContentItem{
		contentItem("src-a", "Source A", "markets rally as rates hold steady", now),
		contentItem("src-b", "Source B", "rates decision lifts markets again", now),
	}

	first := agg.Aggregate(items, now, 10)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, agg.Aggregate(items, now, 10))
	}
}

func TestAggregateTokenization(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()

	items := []monitor.ContentItem{
		contentItem("src-a", "Source A", "地震预警系统启动 AI models GPU up", now),
	}
	counts := agg.Aggregate(items, now, 0)

	words := make(map[string]int)
	for _, kc := range counts {
		words[kc.Word] = kc.Count
	}

	// Han runs chunk into words of up to four runes.
	assert.Contains(t, words, "地震预警")
	assert.Contains(t, words, "系统启动")
	// ASCII words fold to lower case; short tokens like "AI" and "up" drop.
	assert.Contains(t, words, "models")
	assert.Contains(t, words, "gpu")
	assert.NotContains(t, words, "ai")
	assert.NotContains(t, words, "up")
}

func TestAggregateFiltersStopWords(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()
	items := []monitor.ContentItem{
		contentItem("src-a", "Source A", "the new rally and the big rally", now),
	}
	counts := agg.Aggregate(items, now, 0)

	for _, kc := range counts {
		assert.NotEqual(t, "the", kc.Word)
		assert.NotEqual(t, "and", kc.Word)
	}
}

func TestAggregateScoreWeighsSourcesAndAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()

	fresh := agg.Aggregate([]monitor.ContentItem{
		contentItem("xinhua", "Xinhua", "tsunami warning", now),
	}, now, 0)
	stale := agg.Aggregate([]monitor.ContentItem{
		contentItem("src-x", "Source X", "tsunami warning", now.Add(-300*time.Hour)),
	}, now, 0)

	require.NotEmpty(t, fresh)
	require.NotEmpty(t, stale)
	assert.Equal(t, fresh[0].Count, stale[0].Count)
	assert.Greater(t, fresh[0].Score, stale[0].Score)
}

func TestAggregateLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()
	items := []monitor.ContentItem{
		contentItem("src-a", "Source A", "alpha bravo charlie delta echo foxtrot", now),
	}

	counts := agg.Aggregate(items, now, 3)
	assert.Len(t, counts, 3)
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		text    string
		pattern string
		want    bool
	}{
		{"substring", "major earthquake reported", "earthquake", true},
		{"case insensitive", "Earthquake Reported", "earthquake", true},
		{"no match", "markets rally", "earthquake", false},
		{"star wildcard", "bitcoin price crashes", "bit*crash", true},
		{"question wildcard", "tier1 outage", "tier? outage", true},
		{"wildcard no match", "tier10 outage", "tier? outage", false},
		{"empty pattern", "anything", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MatchPattern(tc.text, tc.pattern))
		})
	}
}

func TestApplyRules(t *testing.T) {
	t.Parallel()

	counts := []monitor.KeywordCount{
		{Word: "earthquake", Count: 9},
		{Word: "rally", Count: 7},
		{Word: "gpu", Count: 5},
		{Word: "flood", Count: 3},
	}

	t.Run("blacklist", func(t *testing.T) {
		t.Parallel()
		got := ApplyRules(FilterRules{Blacklist: []string{"rally"}}, counts)
		require.Len(t, got, 3)
		assert.Equal(t, "earthquake", got[0].Word)
	})

	t.Run("whitelist with wildcard", func(t *testing.T) {
		t.Parallel()
		got := ApplyRules(FilterRules{Whitelist: []string{"*qua*", "flood"}}, counts)
		require.Len(t, got, 2)
		assert.Equal(t, "earthquake", got[0].Word)
		assert.Equal(t, "flood", got[1].Word)
	})

	t.Run("min length", func(t *testing.T) {
		t.Parallel()
		got := ApplyRules(FilterRules{MinLength: 5}, counts)
		require.Len(t, got, 3)
	})

	t.Run("regex", func(t *testing.T) {
		t.Parallel()
		got := ApplyRules(FilterRules{Pattern: "^f"}, counts)
		require.Len(t, got, 1)
		assert.Equal(t, "flood", got[0].Word)
	})

	t.Run("invalid regex keeps everything", func(t *testing.T) {
		t.Parallel()
		got := ApplyRules(FilterRules{Pattern: "("}, counts)
		assert.Len(t, got, 4)
	})
}
