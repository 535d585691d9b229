package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newspulse/sentinel/internal/monitor"
)

// AlertStore keeps rules and alerts in memory. The engine enforces the
// one-active-alert-per-rule invariant; this store just persists state.
type AlertStore struct {
	mu     sync.RWMutex
	rules  map[string]monitor.AlertRule
	alerts map[string]monitor.Alert
	byRule map[string]string // rule id -> latest alert id
}

// NewAlertStore constructs an AlertStore.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		rules:  make(map[string]monitor.AlertRule),
		alerts: make(map[string]monitor.Alert),
		byRule: make(map[string]string),
	}
}

// EnabledRules returns enabled rules sorted by ID for deterministic passes.
func (s *AlertStore) EnabledRules(_ context.Context) ([]monitor.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []monitor.AlertRule
	for _, rule := range s.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutRule inserts or replaces a rule.
func (s *AlertStore) PutRule(_ context.Context, rule monitor.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return nil
}

// CountRules reports the number of stored rules, enabled or not.
func (s *AlertStore) CountRules(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules), nil
}

// AlertByRule returns the latest alert for a rule.
func (s *AlertStore) AlertByRule(_ context.Context, ruleID string) (monitor.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alertID, ok := s.byRule[ruleID]
	if !ok {
		return monitor.Alert{}, fmt.Errorf("alert for rule %q: %w", ruleID, monitor.ErrNotFound)
	}
	return s.alerts[alertID], nil
}

// PutAlert inserts or replaces an alert and tracks it as the rule's latest.
func (s *AlertStore) PutAlert(_ context.Context, alert monitor.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = alert
	s.byRule[alert.RuleID] = alert.ID
	return nil
}

// ListAlerts returns alerts newest first, optionally filtered by status.
func (s *AlertStore) ListAlerts(_ context.Context, status monitor.AlertStatus, limit int) ([]monitor.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []monitor.Alert
	for _, alert := range s.alerts {
		if status != "" && alert.Status != status {
			continue
		}
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.After(out[j].TriggeredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetAlert returns one alert by ID.
func (s *AlertStore) GetAlert(_ context.Context, alertID string) (monitor.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[alertID]
	if !ok {
		return monitor.Alert{}, fmt.Errorf("alert %q: %w", alertID, monitor.ErrNotFound)
	}
	return alert, nil
}

// ResolveAlert marks an alert resolved. Resolution is always explicit and
// external; the engine never calls this.
func (s *AlertStore) ResolveAlert(_ context.Context, alertID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[alertID]
	if !ok {
		return fmt.Errorf("alert %q: %w", alertID, monitor.ErrNotFound)
	}
	alert.Status = monitor.AlertStatusResolved
	alert.ResolvedAt = &at
	alert.LastUpdated = at
	s.alerts[alertID] = alert
	return nil
}
