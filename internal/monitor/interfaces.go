package monitor

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across store implementations.
var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("not found")
	// ErrTierBusy reports a standing trigger that was skipped because the
	// previous run for the tier is still in flight.
	ErrTierBusy = errors.New("tier run already in flight")
)

// Fetcher performs one bounded fetch of a source endpoint. Implementations
// must not mutate shared state; failover across endpoints is the fetcher's
// only retry.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) ([]byte, error)
}

// Normalizer converts a raw source response into canonical content items.
// Malformed entries are skipped, not fatal.
type Normalizer interface {
	Normalize(src Source, raw []byte, collectedAt time.Time) ([]ContentItem, error)
}

// ContentStore persists content items. Upsert is keyed by fingerprint and
// must be safe for concurrent calls; expiry is delegated to the TTL
// mechanism, the engine never deletes items directly.
type ContentStore interface {
	Upsert(ctx context.Context, item ContentItem) error
	Recent(ctx context.Context, window time.Duration) ([]ContentItem, error)
	EnsureTTL(ctx context.Context, retention time.Duration) error
}

// Maintainer is optionally implemented by stores whose TTL is enforced by a
// reaper rather than by the backend itself. The scheduler's daily maintenance
// job invokes it when present.
type Maintainer interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// AlertStore persists rules and alerts. Rules are written by an external
// management surface; the engine reads them each pass.
type AlertStore interface {
	EnabledRules(ctx context.Context) ([]AlertRule, error)
	PutRule(ctx context.Context, rule AlertRule) error
	CountRules(ctx context.Context) (int, error)
	AlertByRule(ctx context.Context, ruleID string) (Alert, error)
	PutAlert(ctx context.Context, alert Alert) error
	ListAlerts(ctx context.Context, status AlertStatus, limit int) ([]Alert, error)
	GetAlert(ctx context.Context, alertID string) (Alert, error)
	ResolveAlert(ctx context.Context, alertID string, at time.Time) error
}

// Archiver stores raw source payloads and returns a URI.
type Archiver interface {
	Archive(ctx context.Context, path string, data []byte) (string, error)
}

// Publisher pushes engine events (alert transitions, run completions) to an
// external topic, fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

// Clock returns the current time; injected so tests control it.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run and alert IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
