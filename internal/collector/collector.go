// Package collector fans out over a set of sources, fetching, normalizing,
// and persisting each one under a shared concurrency bound.
package collector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/metrics"
	"github.com/newspulse/sentinel/internal/monitor"
)

const defaultConcurrency = 10

// Config captures the collector's tunables.
type Config struct {
	// Concurrency bounds how many sources are fetched at once across the
	// whole run. Zero means the default of 10.
	Concurrency int
}

// Collector executes collection runs. A run always produces a
// CollectionRun record, even when every source fails or the context is
// canceled mid-flight.
type Collector struct {
	fetcher    monitor.Fetcher
	normalizer monitor.Normalizer
	store      monitor.ContentStore
	archiver   monitor.Archiver
	clock      monitor.Clock
	ids        monitor.IDGenerator
	logger     *zap.Logger

	concurrency int
}

// New constructs a Collector. The archiver is optional; when nil, raw
// payloads are not retained.
func New(
	cfg Config,
	fetcher monitor.Fetcher,
	normalizer monitor.Normalizer,
	store monitor.ContentStore,
	archiver monitor.Archiver,
	clock monitor.Clock,
	ids monitor.IDGenerator,
	logger *zap.Logger,
) *Collector {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if clock == nil {
		clock = monitor.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		fetcher:     fetcher,
		normalizer:  normalizer,
		store:       store,
		archiver:    archiver,
		clock:       clock,
		ids:         ids,
		logger:      logger,
		concurrency: cfg.Concurrency,
	}
}

// Run collects every source in the slice, at most Concurrency at a time.
// A failing source never aborts the run; its error lands in the per-source
// outcome and the remaining sources proceed. Cancellation stops new work
// but still returns the partial record.
func (c *Collector) Run(ctx context.Context, tier monitor.Tier, sources []monitor.Source) monitor.CollectionRun {
	runID, err := c.ids.NewID()
	if err != nil {
		// ID generation failing is effectively impossible, but the run
		// record must still exist.
		runID = fmt.Sprintf("run-%d", c.clock.Now().UnixNano())
		c.logger.Warn("run id generation failed", zap.Error(err))
	}

	run := monitor.CollectionRun{
		RunID:     runID,
		Tier:      tier,
		Status:    monitor.RunStatusRunning,
		StartedAt: c.clock.Now(),
		Outcomes:  make(map[string]monitor.SourceOutcome, len(sources)),
	}

	c.logger.Info("collection run started",
		zap.String("run_id", runID),
		zap.String("tier", string(tier)),
		zap.Int("sources", len(sources)),
	)

	sema := make(chan struct{}, c.concurrency)
	results := make(chan monitor.SourceOutcome, len(sources))
	var wg sync.WaitGroup

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		select {
		case sema <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(src monitor.Source) {
			defer wg.Done()
			defer func() { <-sema }()
			results <- c.collectSource(ctx, runID, src)
		}(src)
	}

	wg.Wait()
	close(results)

	for outcome := range results {
		run.Outcomes[outcome.SourceID] = outcome
		if outcome.Success {
			run.Succeeded++
			run.TotalItems += outcome.ItemCount
		} else {
			run.Failed++
		}
	}

	run.FinishedAt = c.clock.Now()
	switch {
	case ctx.Err() != nil && len(run.Outcomes) < len(sources):
		run.Status = monitor.RunStatusCanceled
	case len(sources) > 0 && run.Succeeded == 0:
		run.Status = monitor.RunStatusFailed
	default:
		run.Status = monitor.RunStatusSucceeded
	}

	duration := run.FinishedAt.Sub(run.StartedAt)
	metrics.ObserveRun(string(tier), string(run.Status), duration)
	c.logger.Info("collection run finished",
		zap.String("run_id", runID),
		zap.String("tier", string(tier)),
		zap.String("status", string(run.Status)),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.Int("items", run.TotalItems),
		zap.Duration("duration", duration),
	)
	return run
}

func (c *Collector) collectSource(ctx context.Context, runID string, src monitor.Source) monitor.SourceOutcome {
	outcome := monitor.SourceOutcome{SourceID: src.ID}

	metrics.IncInflightFetches()
	defer metrics.DecInflightFetches()

	fetchStart := c.clock.Now()
	raw, err := c.fetcher.Fetch(ctx, src)
	metrics.ObserveFetch(string(src.Category), err == nil, c.clock.Now().Sub(fetchStart))
	if err != nil {
		outcome.Error = err.Error()
		c.logger.Warn("source fetch failed",
			zap.String("run_id", runID),
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return outcome
	}

	collectedAt := c.clock.Now()

	if c.archiver != nil {
		path := fmt.Sprintf("%s/%s/%s.raw", src.ID, collectedAt.Format("2006-01-02"), runID)
		if _, archiveErr := c.archiver.Archive(ctx, path, raw); archiveErr != nil {
			// Archival is best effort; losing the raw payload does not
			// fail the source.
			c.logger.Warn("payload archive failed",
				zap.String("source_id", src.ID),
				zap.Error(archiveErr),
			)
		}
	}

	items, err := c.normalizer.Normalize(src, raw, collectedAt)
	if err != nil {
		outcome.Error = err.Error()
		c.logger.Warn("source normalize failed",
			zap.String("run_id", runID),
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return outcome
	}

	for _, item := range items {
		if err := c.store.Upsert(ctx, item); err != nil {
			outcome.Error = err.Error()
			c.logger.Warn("content upsert failed",
				zap.String("run_id", runID),
				zap.String("source_id", src.ID),
				zap.String("fingerprint", item.Fingerprint),
				zap.Error(err),
			)
			return outcome
		}
		outcome.ItemCount++
	}

	metrics.ObserveUpserts(string(src.Category), outcome.ItemCount)
	outcome.Success = true
	return outcome
}
