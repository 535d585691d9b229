// Package scheduler drives standing collection runs per priority tier, the
// rule evaluation pass, and daily store maintenance.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/alerts"
	"github.com/newspulse/sentinel/internal/collector"
	"github.com/newspulse/sentinel/internal/metrics"
	"github.com/newspulse/sentinel/internal/monitor"
	"github.com/newspulse/sentinel/internal/registry"
)

// Config sets the standing cadences.
type Config struct {
	HighInterval        time.Duration
	MediumInterval      time.Duration
	LowInterval         time.Duration
	FullInterval        time.Duration
	EvaluationInterval  time.Duration
	MaintenanceInterval time.Duration
}

// TierState is a snapshot of one tier's schedule, returned by State().
type TierState struct {
	Tier      monitor.Tier           `json:"tier"`
	Running   bool                   `json:"running"`
	NextRunAt time.Time              `json:"next_run_at"`
	Skips     int64                  `json:"skips"`
	LastRun   *monitor.CollectionRun `json:"last_run,omitempty"`
}

type tierState struct {
	running   bool
	nextRunAt time.Time
	skips     int64
	lastRun   *monitor.CollectionRun
}

// Scheduler owns the standing timers. Each tier's timer is an independent
// logical clock; the single-flight rule per tier is the only mutual
// exclusion it enforces.
type Scheduler struct {
	cfg       Config
	collector *collector.Collector
	registry  *registry.Registry
	store     monitor.ContentStore
	alerts    monitor.AlertStore
	engine    *alerts.Engine
	clock     monitor.Clock
	logger    *zap.Logger

	mu     sync.Mutex
	tiers  map[monitor.Tier]*tierState
	lastEv time.Time
}

// New constructs a Scheduler.
func New(
	cfg Config,
	col *collector.Collector,
	reg *registry.Registry,
	store monitor.ContentStore,
	alertStore monitor.AlertStore,
	engine *alerts.Engine,
	clock monitor.Clock,
	logger *zap.Logger,
) *Scheduler {
	if clock == nil {
		clock = monitor.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		collector: col,
		registry:  reg,
		store:     store,
		alerts:    alertStore,
		engine:    engine,
		clock:     clock,
		logger:    logger,
		tiers: map[monitor.Tier]*tierState{
			monitor.TierHigh:   {},
			monitor.TierMedium: {},
			monitor.TierLow:    {},
			monitor.TierFull:   {},
		},
	}
}

// Start launches the standing timers and blocks until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup

	jobs := []struct {
		tier     monitor.Tier
		interval time.Duration
	}{
		{monitor.TierHigh, s.cfg.HighInterval},
		{monitor.TierMedium, s.cfg.MediumInterval},
		{monitor.TierLow, s.cfg.LowInterval},
		{monitor.TierFull, s.cfg.FullInterval},
	}
	for _, job := range jobs {
		if job.interval <= 0 {
			continue
		}
		s.setNextRun(job.tier, s.clock.Now().Add(job.interval))
		wg.Add(1)
		go func(tier monitor.Tier, interval time.Duration) {
			defer wg.Done()
			s.tickLoop(ctx, interval, func(tickCtx context.Context) {
				s.standingTick(tickCtx, tier, interval)
			})
		}(job.tier, job.interval)
	}

	if s.cfg.EvaluationInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tickLoop(ctx, s.cfg.EvaluationInterval, s.evaluate)
		}()
	}
	if s.cfg.MaintenanceInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tickLoop(ctx, s.cfg.MaintenanceInterval, s.maintain)
		}()
	}

	s.logger.Info("scheduler started",
		zap.Duration("high", s.cfg.HighInterval),
		zap.Duration("medium", s.cfg.MediumInterval),
		zap.Duration("low", s.cfg.LowInterval),
		zap.Duration("full", s.cfg.FullInterval),
	)
	wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// standingTick handles one ticker firing for a tier. The ticker keeps its
// fixed cadence no matter how long a run takes, so the next firing is one
// interval from the tick, not from the run's end.
func (s *Scheduler) standingTick(ctx context.Context, tier monitor.Tier, interval time.Duration) {
	s.setNextRun(tier, s.clock.Now().Add(interval))
	_, _ = s.RunStanding(ctx, tier)
}

// RunStanding executes one standing run for a tier. If the previous standing
// run for the tier is still in flight it returns ErrTierBusy: the firing is
// skipped, never queued.
func (s *Scheduler) RunStanding(ctx context.Context, tier monitor.Tier) (monitor.CollectionRun, error) {
	if !s.tryAcquire(tier) {
		metrics.ObserveRunSkip(string(tier))
		s.logger.Info("standing run skipped, previous run still in flight",
			zap.String("tier", string(tier)))
		return monitor.CollectionRun{}, fmt.Errorf("tier %s: %w", tier, monitor.ErrTierBusy)
	}
	defer s.release(tier)

	run := s.collector.Run(ctx, tier, s.sourcesFor(tier))
	s.recordRun(tier, run)
	return run, nil
}

// RunTier triggers an immediate run for one tier. Manual triggers bypass the
// single-flight rule and do not disturb the standing schedule.
func (s *Scheduler) RunTier(ctx context.Context, tier monitor.Tier) (monitor.CollectionRun, error) {
	switch tier {
	case monitor.TierHigh, monitor.TierMedium, monitor.TierLow:
	default:
		return monitor.CollectionRun{}, fmt.Errorf("unknown tier %q", tier)
	}
	return s.collector.Run(ctx, tier, s.sourcesFor(tier)), nil
}

// RunFull triggers an immediate sweep of every source.
func (s *Scheduler) RunFull(ctx context.Context) monitor.CollectionRun {
	return s.collector.Run(ctx, monitor.TierFull, s.registry.All())
}

// RunCategory triggers an immediate run over every source in one category.
func (s *Scheduler) RunCategory(ctx context.Context, category monitor.Category) (monitor.CollectionRun, error) {
	if !category.Valid() {
		return monitor.CollectionRun{}, fmt.Errorf("unknown category %q", category)
	}
	return s.collector.Run(ctx, monitor.TierManual, s.registry.ByCategory(category)), nil
}

// RunSource triggers an immediate run for a single source.
func (s *Scheduler) RunSource(ctx context.Context, sourceID string) (monitor.CollectionRun, error) {
	src, err := s.registry.Get(sourceID)
	if err != nil {
		return monitor.CollectionRun{}, err
	}
	return s.collector.Run(ctx, monitor.TierManual, []monitor.Source{src}), nil
}

// Evaluate runs one keyword-rule evaluation pass immediately.
func (s *Scheduler) Evaluate(ctx context.Context) ([]monitor.AlertTransition, error) {
	rules, err := s.alerts.EnabledRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	window := time.Duration(0)
	for _, rule := range rules {
		w := time.Duration(rule.Conditions.TimeWindowMinutes) * time.Minute
		if w <= 0 {
			w = time.Hour
		}
		if w > window {
			window = w
		}
	}

	recent, err := s.store.Recent(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("load recent content: %w", err)
	}

	now := s.clock.Now()
	transitions := s.engine.Evaluate(ctx, rules, recent, now)

	s.mu.Lock()
	s.lastEv = now
	s.mu.Unlock()
	return transitions, nil
}

func (s *Scheduler) evaluate(ctx context.Context) {
	transitions, err := s.Evaluate(ctx)
	if err != nil {
		s.logger.Warn("evaluation pass failed", zap.Error(err))
		return
	}
	if len(transitions) > 0 {
		s.logger.Info("evaluation pass produced transitions",
			zap.Int("count", len(transitions)))
	}
}

func (s *Scheduler) maintain(ctx context.Context) {
	maintainer, ok := s.store.(monitor.Maintainer)
	if !ok {
		return
	}
	pruned, err := maintainer.PruneExpired(ctx)
	if err != nil {
		s.logger.Warn("maintenance pass failed", zap.Error(err))
		return
	}
	metrics.ObservePruned(pruned)
	s.logger.Info("maintenance pass finished", zap.Int64("pruned", pruned))
}

// State returns a snapshot of every tier's schedule plus the time of the
// last evaluation pass.
func (s *Scheduler) State() ([]TierState, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TierState, 0, len(s.tiers))
	for _, tier := range []monitor.Tier{monitor.TierHigh, monitor.TierMedium, monitor.TierLow, monitor.TierFull} {
		st := s.tiers[tier]
		out = append(out, TierState{
			Tier:      tier,
			Running:   st.running,
			NextRunAt: st.nextRunAt,
			Skips:     st.skips,
			LastRun:   st.lastRun,
		})
	}
	return out, s.lastEv
}

func (s *Scheduler) sourcesFor(tier monitor.Tier) []monitor.Source {
	switch tier {
	case monitor.TierHigh:
		return s.registry.ByPriority(monitor.PriorityHigh)
	case monitor.TierMedium:
		return s.registry.ByPriority(monitor.PriorityMedium)
	case monitor.TierLow:
		return s.registry.ByPriority(monitor.PriorityLow)
	default:
		return s.registry.All()
	}
}

func (s *Scheduler) tryAcquire(tier monitor.Tier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.tiers[tier]
	if st.running {
		st.skips++
		return false
	}
	st.running = true
	return true
}

func (s *Scheduler) release(tier monitor.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[tier].running = false
}

func (s *Scheduler) recordRun(tier monitor.Tier, run monitor.CollectionRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[tier].lastRun = &run
}

func (s *Scheduler) setNextRun(tier monitor.Tier, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[tier].nextRunAt = at
}
