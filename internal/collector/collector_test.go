package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse/sentinel/internal/metrics"
	"github.com/newspulse/sentinel/internal/monitor"
	"github.com/newspulse/sentinel/internal/normalizer"
	"github.com/newspulse/sentinel/internal/storage/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type stubFetcher struct {
	mu       sync.Mutex
	inflight int32
	maxSeen  int32

	delay   time.Duration
	failIDs map[string]bool
	payload func(src monitor.Source) []byte
}

func (f *stubFetcher) Fetch(ctx context.Context, src monitor.Source) ([]byte, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failIDs[src.ID] {
		return nil, errors.New("connection timed out")
	}
	if f.payload != nil {
		return f.payload(src), nil
	}
	return fmt.Appendf(nil, `{"items":[{"title":"item from %s","url":"https://example.com/%s"}]}`, src.ID, src.ID), nil
}

type stubIDs struct {
	n int32
}

func (g *stubIDs) NewID() (string, error) {
	return fmt.Sprintf("run-%d", atomic.AddInt32(&g.n, 1)), nil
}

func sources(n int) []monitor.Source {
	out := make([]monitor.Source, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("src-%c", 'a'+i)
		out = append(out, monitor.Source{
			ID:         id,
			Name:       "Source " + id,
			Category:   monitor.CategoryNews,
			Priority:   monitor.PriorityHigh,
			PrimaryURL: "https://example.com/" + id,
		})
	}
	return out
}

func newTestCollector(cfg Config, f monitor.Fetcher, store monitor.ContentStore) *Collector {
	return New(cfg, f, normalizer.New(nil), store, nil, nil, &stubIDs{}, nil)
}

func TestRunContainsSourceFailure(t *testing.T) {
	t.Parallel()

	store := memory.NewContentStore(nil)
	fetcher := &stubFetcher{failIDs: map[string]bool{"src-a": true}}
	col := newTestCollector(Config{Concurrency: 2}, fetcher, store)

	run := col.Run(context.Background(), monitor.TierHigh, sources(3))

	assert.Equal(t, monitor.RunStatusSucceeded, run.Status)
	assert.Equal(t, 2, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Outcomes, 3)
	assert.False(t, run.Outcomes["src-a"].Success)
	assert.Contains(t, run.Outcomes["src-a"].Error, "timed out")
	assert.True(t, run.Outcomes["src-b"].Success)
	assert.True(t, run.Outcomes["src-c"].Success)
	assert.Equal(t, 2, run.TotalItems)
	assert.Equal(t, 2, store.Len())
}

func TestRunHonorsConcurrencyBound(t *testing.T) {
	t.Parallel()

	store := memory.NewContentStore(nil)
	fetcher := &stubFetcher{delay: 30 * time.Millisecond}
	col := newTestCollector(Config{Concurrency: 2}, fetcher, store)

	run := col.Run(context.Background(), monitor.TierFull, sources(6))

	assert.Equal(t, monitor.RunStatusSucceeded, run.Status)
	assert.Equal(t, 6, run.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.maxSeen), int32(2))
}

func TestRunAllSourcesFail(t *testing.T) {
	t.Parallel()

	store := memory.NewContentStore(nil)
	fetcher := &stubFetcher{failIDs: map[string]bool{"src-a": true, "src-b": true}}
	col := newTestCollector(Config{}, fetcher, store)

	run := col.Run(context.Background(), monitor.TierHigh, sources(2))

	assert.Equal(t, monitor.RunStatusFailed, run.Status)
	assert.Equal(t, 2, run.Failed)
	assert.Zero(t, run.TotalItems)
}

func TestRunEmptySourceSet(t *testing.T) {
	t.Parallel()

	col := newTestCollector(Config{}, &stubFetcher{}, memory.NewContentStore(nil))
	run := col.Run(context.Background(), monitor.TierLow, nil)

	assert.Equal(t, monitor.RunStatusSucceeded, run.Status)
	assert.Empty(t, run.Outcomes)
}

func TestRunCanceledMidFlight(t *testing.T) {
	t.Parallel()

	store := memory.NewContentStore(nil)
	fetcher := &stubFetcher{delay: 200 * time.Millisecond}
	col := newTestCollector(Config{Concurrency: 1}, fetcher, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	run := col.Run(ctx, monitor.TierFull, sources(5))

	assert.Equal(t, monitor.RunStatusCanceled, run.Status)
	assert.Less(t, len(run.Outcomes), 5)
	assert.NotZero(t, run.FinishedAt)
}

func TestRunSkipsMalformedEntriesButKeepsSource(t *testing.T) {
	t.Parallel()

	store := memory.NewContentStore(nil)
	fetcher := &stubFetcher{payload: func(monitor.Source) []byte {
		return []byte(`{"items":[{"title":"good","url":"https://example.com/1"},{"url":"https://example.com/no-title"}]}`)
	}}
	col := newTestCollector(Config{}, fetcher, store)

	run := col.Run(context.Background(), monitor.TierHigh, sources(1))

	assert.Equal(t, monitor.RunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.TotalItems)
	assert.Equal(t, 1, store.Len())
}

func TestRunDeduplicatesAcrossRuns(t *testing.T) {
	t.Parallel()

	store := memory.NewContentStore(nil)
	fetcher := &stubFetcher{}
	col := newTestCollector(Config{}, fetcher, store)

	srcs := sources(1)
	first := col.Run(context.Background(), monitor.TierHigh, srcs)
	second := col.Run(context.Background(), monitor.TierHigh, srcs)

	assert.Equal(t, 1, first.TotalItems)
	assert.Equal(t, 1, second.TotalItems)
	// Same title and URL from the same source hashes to the same
	// fingerprint, so the second run upserts instead of duplicating.
	assert.Equal(t, 1, store.Len())
}
