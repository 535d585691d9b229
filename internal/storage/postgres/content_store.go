package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

const contentSchema = `
CREATE TABLE IF NOT EXISTS content_items (
	fingerprint  TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	source_name  TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	priority     INT NOT NULL,
	title        TEXT NOT NULL,
	body         TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	collected_at TIMESTAMPTZ NOT NULL,
	keywords     TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS content_items_collected_at_idx ON content_items (collected_at);
CREATE INDEX IF NOT EXISTS content_items_source_id_idx ON content_items (source_id);
`

const upsertContentSQL = `
INSERT INTO content_items
	(fingerprint, source_id, source_name, category, priority, title, body, url, published_at, collected_at, keywords)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (fingerprint) DO UPDATE SET
	source_name  = EXCLUDED.source_name,
	category     = EXCLUDED.category,
	priority     = EXCLUDED.priority,
	title        = EXCLUDED.title,
	body         = EXCLUDED.body,
	url          = EXCLUDED.url,
	published_at = EXCLUDED.published_at,
	collected_at = EXCLUDED.collected_at,
	keywords     = EXCLUDED.keywords
`

var contentColumns = []string{
	"fingerprint", "source_id", "source_name", "category", "priority",
	"title", "body", "url", "published_at", "collected_at", "keywords",
}

// ContentStore persists content items in the content_items table. The table
// has no native TTL; expiry is a query-time filter plus the PruneExpired
// reaper driven by the scheduler.
type ContentStore struct {
	db     Querier
	clock  monitor.Clock
	logger *zap.Logger

	mu        sync.RWMutex
	retention time.Duration
}

// NewContentStore constructs a ContentStore on an open pool or mock.
func NewContentStore(db Querier, clock monitor.Clock, logger *zap.Logger) *ContentStore {
	if clock == nil {
		clock = monitor.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentStore{db: db, clock: clock, logger: logger}
}

// Upsert inserts or replaces the item keyed by fingerprint.
func (s *ContentStore) Upsert(ctx context.Context, item monitor.ContentItem) error {
	_, err := s.db.Exec(ctx, upsertContentSQL,
		item.Fingerprint,
		item.SourceID,
		item.SourceName,
		string(item.Category),
		int(item.Priority),
		item.Title,
		item.Body,
		item.URL,
		item.PublishedAt,
		item.CollectedAt,
		item.Keywords,
	)
	if err != nil {
		return fmt.Errorf("upsert content item %s: %w", item.Fingerprint, err)
	}
	return nil
}

// Recent returns items collected within the trailing window, newest first.
// Items past the retention period are excluded even if the window would
// cover them, so consumers never see rows the reaper has not swept yet.
func (s *ContentStore) Recent(ctx context.Context, window time.Duration) ([]monitor.ContentItem, error) {
	now := s.clock.Now()

	q := sq.Select(contentColumns...).
		From("content_items").
		Where(sq.GtOrEq{"collected_at": now.Add(-window)}).
		OrderBy("collected_at DESC").
		PlaceholderFormat(sq.Dollar)

	s.mu.RLock()
	retention := s.retention
	s.mu.RUnlock()
	if retention > 0 {
		q = q.Where(sq.GtOrEq{"collected_at": now.Add(-retention)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent content: %w", err)
	}
	defer rows.Close()

	var items []monitor.ContentItem
	for rows.Next() {
		var item monitor.ContentItem
		var category string
		var priority int
		if err := rows.Scan(
			&item.Fingerprint, &item.SourceID, &item.SourceName, &category, &priority,
			&item.Title, &item.Body, &item.URL, &item.PublishedAt, &item.CollectedAt, &item.Keywords,
		); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		item.Category = monitor.Category(category)
		item.Priority = monitor.Priority(priority)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content rows: %w", err)
	}
	return items, nil
}

// EnsureTTL creates the schema if needed and records the retention period
// applied by Recent and PruneExpired.
func (s *ContentStore) EnsureTTL(ctx context.Context, retention time.Duration) error {
	if _, err := s.db.Exec(ctx, contentSchema); err != nil {
		return fmt.Errorf("ensure content schema: %w", err)
	}
	s.mu.Lock()
	s.retention = retention
	s.mu.Unlock()
	s.logger.Info("content retention configured", zap.Duration("retention", retention))
	return nil
}

// PruneExpired deletes rows older than the retention period and reports how
// many were removed.
func (s *ContentStore) PruneExpired(ctx context.Context) (int64, error) {
	s.mu.RLock()
	retention := s.retention
	s.mu.RUnlock()
	if retention <= 0 {
		return 0, nil
	}

	cutoff := s.clock.Now().Add(-retention)
	tag, err := s.db.Exec(ctx, "DELETE FROM content_items WHERE collected_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune expired content: %w", err)
	}
	pruned := tag.RowsAffected()
	if pruned > 0 {
		s.logger.Info("pruned expired content", zap.Int64("count", pruned))
	}
	return pruned, nil
}
