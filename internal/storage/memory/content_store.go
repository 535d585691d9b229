// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/newspulse/sentinel/internal/monitor"
)

// ContentStore keeps content items in a mutex-guarded map keyed by
// fingerprint. TTL is enforced as a query-time filter plus PruneExpired.
type ContentStore struct {
	mu        sync.RWMutex
	items     map[string]monitor.ContentItem
	retention time.Duration
	clock     monitor.Clock
}

// NewContentStore constructs a ContentStore.
func NewContentStore(clock monitor.Clock) *ContentStore {
	if clock == nil {
		clock = monitor.SystemClock{}
	}
	return &ContentStore{
		items: make(map[string]monitor.ContentItem),
		clock: clock,
	}
}

// Upsert inserts or replaces the item keyed by fingerprint. Last write wins
// on collected_at; concurrent upserts to different fingerprints never block
// each other beyond the map lock.
func (s *ContentStore) Upsert(_ context.Context, item monitor.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.Fingerprint] = item
	return nil
}

// Recent returns items collected within the trailing window, newest first.
// Items older than the retention period never surface, even when the caller
// asks for a wider window.
func (s *ContentStore) Recent(_ context.Context, window time.Duration) ([]monitor.ContentItem, error) {
	now := s.clock.Now()
	cutoff := now.Add(-window)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []monitor.ContentItem
	for _, item := range s.items {
		if item.CollectedAt.Before(cutoff) {
			continue
		}
		if s.retention > 0 && item.CollectedAt.Before(now.Add(-s.retention)) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CollectedAt.Equal(out[j].CollectedAt) {
			return out[i].Fingerprint < out[j].Fingerprint
		}
		return out[i].CollectedAt.After(out[j].CollectedAt)
	})
	return out, nil
}

// EnsureTTL records the retention period used by Recent and PruneExpired.
func (s *ContentStore) EnsureTTL(_ context.Context, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retention = retention
	return nil
}

// PruneExpired drops items older than the retention period.
func (s *ContentStore) PruneExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-s.retention)
	var pruned int64
	for fp, item := range s.items {
		if item.CollectedAt.Before(cutoff) {
			delete(s.items, fp)
			pruned++
		}
	}
	return pruned, nil
}

// Len reports the number of stored items.
func (s *ContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
