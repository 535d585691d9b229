// Package alerts evaluates configured rules against recently ingested
// content and maintains the alert lifecycle.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/keywords"
	"github.com/newspulse/sentinel/internal/metrics"
	"github.com/newspulse/sentinel/internal/monitor"
)

const defaultTimeWindowMinutes = 60

// Engine runs rule evaluation passes. It escalates automatically but never
// resolves: resolution is an explicit external action, which keeps alerts
// from flapping when a count hovers around its threshold.
type Engine struct {
	store     monitor.AlertStore
	publisher monitor.Publisher
	ids       monitor.IDGenerator
	logger    *zap.Logger
}

// New constructs an Engine. The publisher is optional.
func New(store monitor.AlertStore, publisher monitor.Publisher, ids monitor.IDGenerator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, publisher: publisher, ids: ids, logger: logger}
}

// Evaluate checks every rule against the recent items and returns the state
// transitions it performed. A malformed rule or a store failure skips only
// that rule; the others still evaluate.
func (e *Engine) Evaluate(ctx context.Context, rules []monitor.AlertRule, recent []monitor.ContentItem, now time.Time) []monitor.AlertTransition {
	var transitions []monitor.AlertTransition
	for _, rule := range rules {
		if !rule.Enabled || rule.Type != monitor.AlertTypeKeyword {
			continue
		}
		transition, err := e.evaluateKeywordRule(ctx, rule, recent, now)
		if err != nil {
			e.logger.Warn("rule evaluation failed",
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.Error(err),
			)
			continue
		}
		if transition == nil {
			continue
		}
		transitions = append(transitions, *transition)
		metrics.ObserveAlertTransition(string(transition.Kind), string(transition.Alert.Level))
		e.publish(ctx, *transition)
	}
	return transitions
}

func (e *Engine) evaluateKeywordRule(ctx context.Context, rule monitor.AlertRule, recent []monitor.ContentItem, now time.Time) (*monitor.AlertTransition, error) {
	if len(rule.Conditions.Keywords) == 0 {
		return nil, fmt.Errorf("rule has no keywords")
	}
	if rule.Conditions.Threshold <= 0 {
		return nil, fmt.Errorf("rule threshold must be > 0, got %d", rule.Conditions.Threshold)
	}
	windowMinutes := rule.Conditions.TimeWindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = defaultTimeWindowMinutes
	}
	cutoff := now.Add(-time.Duration(windowMinutes) * time.Minute)

	matches := 0
	for _, item := range recent {
		at := item.CollectedAt
		if item.PublishedAt != nil {
			at = *item.PublishedAt
		}
		if at.Before(cutoff) {
			continue
		}
		if itemMatches(item, rule.Conditions.Keywords) {
			matches++
		}
	}
	if matches < rule.Conditions.Threshold {
		return nil, nil
	}

	message := fmt.Sprintf("%d items matched rule keywords within %dm (threshold %d)",
		matches, windowMinutes, rule.Conditions.Threshold)

	existing, err := e.store.AlertByRule(ctx, rule.ID)
	switch {
	case err == nil && existing.Status == monitor.AlertStatusActive:
		// Re-trigger while active refreshes the alert; no duplicate, no
		// reactivation increment.
		existing.MatchCount = matches
		existing.Message = message
		existing.LastUpdated = now
		if err := e.store.PutAlert(ctx, existing); err != nil {
			return nil, fmt.Errorf("refresh alert: %w", err)
		}
		return &monitor.AlertTransition{Kind: monitor.TransitionUpdated, Alert: existing}, nil

	case err == nil && existing.Status == monitor.AlertStatusResolved:
		existing.Status = monitor.AlertStatusActive
		existing.ResolvedAt = nil
		existing.ReactivationCount++
		existing.MatchCount = matches
		existing.Message = message
		existing.TriggeredAt = now
		existing.LastUpdated = now
		if err := e.store.PutAlert(ctx, existing); err != nil {
			return nil, fmt.Errorf("reactivate alert: %w", err)
		}
		return &monitor.AlertTransition{Kind: monitor.TransitionReactivated, Alert: existing}, nil

	case err != nil && !isNotFound(err):
		return nil, fmt.Errorf("load alert: %w", err)
	}

	id, err := e.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate alert id: %w", err)
	}
	alert := monitor.Alert{
		ID:          id,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Type:        rule.Type,
		Level:       rule.Level,
		Status:      monitor.AlertStatusActive,
		Title:       fmt.Sprintf("%s triggered", rule.Name),
		Message:     message,
		MatchCount:  matches,
		TriggeredAt: now,
		LastUpdated: now,
	}
	if err := e.store.PutAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return &monitor.AlertTransition{Kind: monitor.TransitionCreated, Alert: alert}, nil
}

func (e *Engine) publish(ctx context.Context, transition monitor.AlertTransition) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, transition); err != nil {
		e.logger.Warn("alert transition publish failed",
			zap.String("alert_id", transition.Alert.ID),
			zap.Error(err),
		)
	}
}

// itemMatches reports whether any rule keyword occurs in the item's title or
// body. Keywords containing * or ? are wildcards.
func itemMatches(item monitor.ContentItem, ruleKeywords []string) bool {
	text := item.Title + " " + item.Body
	for _, kw := range ruleKeywords {
		if keywords.MatchPattern(text, kw) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, monitor.ErrNotFound)
}
