package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

var testSource = monitor.Source{
	ID:       "wallstreetcn",
	Name:     "WallStreetCN",
	Category: monitor.CategoryFinance,
	Priority: monitor.PriorityHigh,
}

func TestNormalizeShapes(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		raw        string
		wantTitles []string
	}{
		{
			name:       "data envelope",
			raw:        `{"status":"ok","data":[{"title":"Rate cut expected","url":"https://a/1"},{"title":"Bond rally"}]}`,
			wantTitles: []string{"Rate cut expected", "Bond rally"},
		},
		{
			name:       "items envelope",
			raw:        `{"items":[{"title":"Chip shortage easing"}]}`,
			wantTitles: []string{"Chip shortage easing"},
		},
		{
			name:       "data object",
			raw:        `{"status":"ok","data":{"title":"Single story","url":"https://a/9"}}`,
			wantTitles: []string{"Single story"},
		},
		{
			name:       "bare array",
			raw:        `[{"title":"First"},{"title":"Second"}]`,
			wantTitles: []string{"First", "Second"},
		},
		{
			name:       "single object",
			raw:        `{"title":"Lone story","content":"body text"}`,
			wantTitles: []string{"Lone story"},
		},
		{
			name:       "html list",
			raw:        `<html><body><ul><li><a href="https://x/1">Headline one</a></li><li><a href="/rel">Headline two</a></li></ul></body></html>`,
			wantTitles: []string{"Headline one", "Headline two"},
		},
	}

	n := New(zap.NewNop())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			items, err := n.Normalize(testSource, []byte(tc.raw), now)
			require.NoError(t, err)
			require.Len(t, items, len(tc.wantTitles))
			for i, item := range items {
				assert.Equal(t, tc.wantTitles[i], item.Title)
				assert.Equal(t, testSource.ID, item.SourceID)
				assert.Equal(t, testSource.Category, item.Category)
				assert.Equal(t, testSource.Priority, item.Priority)
				assert.Equal(t, now, item.CollectedAt)
				assert.NotEmpty(t, item.Fingerprint)
			}
		})
	}
}

func TestNormalizeSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	raw := `{"data":[{"title":"good"},{"notitle":true},{"title":""},{"title":"also good"}]}`
	items, err := n.Normalize(testSource, []byte(raw), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "good", items[0].Title)
	assert.Equal(t, "also good", items[1].Title)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	for _, raw := range []string{"", "   ", "not json at all"} {
		_, err := n.Normalize(testSource, []byte(raw), time.Now().UTC())
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestNormalizeParsesPublishTime(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	now := time.Now().UTC()

	items, err := n.Normalize(testSource,
		[]byte(`[{"title":"a","published_at":"2026-08-29T10:00:00Z"},{"title":"b","time":1787000000},{"title":"c"}]`), now)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), *items[0].PublishedAt)
	require.NotNil(t, items[1].PublishedAt)
	assert.Equal(t, int64(1787000000), items[1].PublishedAt.Unix())
	assert.Nil(t, items[2].PublishedAt)
}

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())

	a, err := n.Fingerprint("src", "Big  Story", "https://X/Path")
	require.NoError(t, err)
	b, err := n.Fingerprint("src", "big story", "https://x/path")
	require.NoError(t, err)
	assert.Equal(t, a, b, "normalization should make case/whitespace irrelevant")

	c, err := n.Fingerprint("other", "big story", "https://x/path")
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different sources must not collide")

	d, err := n.Fingerprint("src", "big story", "")
	require.NoError(t, err)
	assert.NotEqual(t, a, d, "url participates in the key")
}
