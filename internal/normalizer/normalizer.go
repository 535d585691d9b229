// Package normalizer converts raw source responses into canonical content
// items and computes the dedup fingerprint.
package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/hash/sha256"
	"github.com/newspulse/sentinel/internal/monitor"
)

// Normalizer implements monitor.Normalizer over the known response shapes.
type Normalizer struct {
	hasher *sha256.Hasher
	logger *zap.Logger
}

// New builds a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{hasher: sha256.New(), logger: logger}
}

// Normalize parses a raw response into content items. Sources disagree on
// envelope shape, so the parser tries, in order: JSON object with a "data"
// list, JSON object with an "items" list, a bare JSON array, a single JSON
// object, and finally an HTML anchor list. Entries that cannot yield a title
// are skipped; zero parseable items is not an error here, the collector
// records it as a soft per-source failure.
func (n *Normalizer) Normalize(src monitor.Source, raw []byte, collectedAt time.Time) ([]monitor.ContentItem, error) {
	entries, err := decodeEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", src.ID, err)
	}

	items := make([]monitor.ContentItem, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.title())
		if title == "" {
			n.logger.Debug("skipping entry without title", zap.String("source_id", src.ID))
			continue
		}
		url := strings.TrimSpace(e.url())
		fp, err := n.Fingerprint(src.ID, title, url)
		if err != nil {
			n.logger.Warn("fingerprint failed, skipping entry",
				zap.String("source_id", src.ID), zap.Error(err))
			continue
		}
		items = append(items, monitor.ContentItem{
			Fingerprint: fp,
			SourceID:    src.ID,
			SourceName:  src.Name,
			Category:    src.Category,
			Priority:    src.Priority,
			Title:       title,
			Body:        strings.TrimSpace(e.body()),
			URL:         url,
			PublishedAt: e.publishedAt(),
			CollectedAt: collectedAt,
		})
	}
	return items, nil
}

// Fingerprint derives the dedup key from source id plus normalized title and
// URL. The same logical item fetched twice, including via overlapping tiers,
// must map to the same key.
func (n *Normalizer) Fingerprint(sourceID, title, url string) (string, error) {
	fp, err := n.hasher.HashFields(sourceID, normalizeText(title), normalizeText(url))
	if err != nil {
		return "", fmt.Errorf("hash fingerprint fields: %w", err)
	}
	return fp, nil
}

// normalizeText lowercases, trims, and collapses internal whitespace so
// cosmetic whitespace or case changes upstream do not break dedup.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func decodeEntries(raw []byte) ([]entry, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("empty response")
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return decodeJSONEntries([]byte(trimmed))
	}
	if strings.HasPrefix(trimmed, "<") {
		return decodeHTMLEntries([]byte(trimmed))
	}
	return nil, fmt.Errorf("unrecognized response shape")
}

func decodeJSONEntries(raw []byte) ([]entry, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, key := range []string{"data", "items"} {
			inner, ok := envelope[key]
			if !ok {
				continue
			}
			if entries, err := decodeJSONList(inner); err == nil {
				return entries, nil
			}
			// The key can hold a single object instead of a list; the inner
			// object is the item then, not the envelope.
			var single entry
			if err := json.Unmarshal(inner, &single.fields); err == nil {
				return []entry{single}, nil
			}
			// A scalar value under the key means the envelope is itself the
			// item.
			break
		}
		var single entry
		if err := json.Unmarshal(raw, &single.fields); err != nil {
			return nil, fmt.Errorf("decode object entry: %w", err)
		}
		return []entry{single}, nil
	}

	entries, err := decodeJSONList(raw)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return entries, nil
}

func decodeJSONList(raw []byte) ([]entry, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		var e entry
		if err := json.Unmarshal(row, &e.fields); err != nil {
			// Malformed single entries are skipped, not fatal.
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// entry is one raw feed record with duck-typed fields. Title is the only
// required capability; url, body, and publish time are optional.
type entry struct {
	fields map[string]any
}

func (e entry) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := e.fields[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func (e entry) title() string {
	return e.str("title", "name", "headline")
}

func (e entry) url() string {
	return e.str("url", "link", "mobileUrl")
}

func (e entry) body() string {
	return e.str("content", "description", "body", "summary", "extra")
}

func (e entry) publishedAt() *time.Time {
	v, ok := e.fields["published_at"]
	if !ok {
		if v, ok = e.fields["pubDate"]; !ok {
			if v, ok = e.fields["time"]; !ok {
				return nil
			}
		}
	}
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339, time.RFC1123Z, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
	case float64:
		// Epoch seconds or milliseconds, depending on the source.
		secs := int64(t)
		if secs > 1e12 {
			secs /= 1000
		}
		parsed := time.Unix(secs, 0).UTC()
		return &parsed
	}
	return nil
}
