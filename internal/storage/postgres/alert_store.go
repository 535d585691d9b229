package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

const alertSchema = `
CREATE TABLE IF NOT EXISTS alert_rules (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	level       TEXT NOT NULL,
	enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	conditions  JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS alerts (
	id                 TEXT PRIMARY KEY,
	rule_id            TEXT NOT NULL,
	rule_name          TEXT NOT NULL DEFAULT '',
	type               TEXT NOT NULL,
	level              TEXT NOT NULL,
	status             TEXT NOT NULL,
	title              TEXT NOT NULL,
	message            TEXT NOT NULL DEFAULT '',
	match_count        INT NOT NULL DEFAULT 0,
	triggered_at       TIMESTAMPTZ NOT NULL,
	resolved_at        TIMESTAMPTZ,
	reactivation_count INT NOT NULL DEFAULT 0,
	last_updated       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS alerts_rule_id_idx ON alerts (rule_id, triggered_at DESC);
CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts (status);
`

const upsertRuleSQL = `
INSERT INTO alert_rules (id, name, description, type, level, enabled, conditions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	name        = EXCLUDED.name,
	description = EXCLUDED.description,
	type        = EXCLUDED.type,
	level       = EXCLUDED.level,
	enabled     = EXCLUDED.enabled,
	conditions  = EXCLUDED.conditions,
	updated_at  = EXCLUDED.updated_at
`

const upsertAlertSQL = `
INSERT INTO alerts
	(id, rule_id, rule_name, type, level, status, title, message, match_count, triggered_at, resolved_at, reactivation_count, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	status             = EXCLUDED.status,
	title              = EXCLUDED.title,
	message            = EXCLUDED.message,
	match_count        = EXCLUDED.match_count,
	triggered_at       = EXCLUDED.triggered_at,
	resolved_at        = EXCLUDED.resolved_at,
	reactivation_count = EXCLUDED.reactivation_count,
	last_updated       = EXCLUDED.last_updated
`

var (
	ruleColumns = []string{
		"id", "name", "description", "type", "level", "enabled",
		"conditions", "created_at", "updated_at",
	}
	alertColumns = []string{
		"id", "rule_id", "rule_name", "type", "level", "status", "title",
		"message", "match_count", "triggered_at", "resolved_at",
		"reactivation_count", "last_updated",
	}
)

// AlertStore persists rules and alerts in the alert_rules and alerts tables.
type AlertStore struct {
	db     Querier
	logger *zap.Logger
}

// NewAlertStore constructs an AlertStore.
func NewAlertStore(db Querier, logger *zap.Logger) *AlertStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertStore{db: db, logger: logger}
}

// EnsureSchema creates the alert tables if they do not exist.
func (s *AlertStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, alertSchema); err != nil {
		return fmt.Errorf("ensure alert schema: %w", err)
	}
	return nil
}

// EnabledRules returns enabled rules ordered by ID.
func (s *AlertStore) EnabledRules(ctx context.Context) ([]monitor.AlertRule, error) {
	sql, args, err := sq.Select(ruleColumns...).
		From("alert_rules").
		Where(sq.Eq{"enabled": true}).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rules query: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query enabled rules: %w", err)
	}
	defer rows.Close()

	var rules []monitor.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}
	return rules, nil
}

// PutRule inserts or replaces a rule.
func (s *AlertStore) PutRule(ctx context.Context, rule monitor.AlertRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal rule conditions: %w", err)
	}
	_, err = s.db.Exec(ctx, upsertRuleSQL,
		rule.ID, rule.Name, rule.Description, string(rule.Type), string(rule.Level),
		rule.Enabled, conditions, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert rule %s: %w", rule.ID, err)
	}
	return nil
}

// CountRules reports the number of stored rules.
func (s *AlertStore) CountRules(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM alert_rules").Scan(&count); err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	return count, nil
}

// AlertByRule returns the latest alert for a rule.
func (s *AlertStore) AlertByRule(ctx context.Context, ruleID string) (monitor.Alert, error) {
	sql, args, err := sq.Select(alertColumns...).
		From("alerts").
		Where(sq.Eq{"rule_id": ruleID}).
		OrderBy("triggered_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return monitor.Alert{}, fmt.Errorf("build alert query: %w", err)
	}

	alert, err := scanAlert(s.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return monitor.Alert{}, fmt.Errorf("alert for rule %q: %w", ruleID, monitor.ErrNotFound)
	}
	if err != nil {
		return monitor.Alert{}, err
	}
	return alert, nil
}

// PutAlert inserts or replaces an alert.
func (s *AlertStore) PutAlert(ctx context.Context, alert monitor.Alert) error {
	_, err := s.db.Exec(ctx, upsertAlertSQL,
		alert.ID, alert.RuleID, alert.RuleName, string(alert.Type), string(alert.Level),
		string(alert.Status), alert.Title, alert.Message, alert.MatchCount,
		alert.TriggeredAt, alert.ResolvedAt, alert.ReactivationCount, alert.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert alert %s: %w", alert.ID, err)
	}
	return nil
}

// ListAlerts returns alerts newest first, optionally filtered by status.
func (s *AlertStore) ListAlerts(ctx context.Context, status monitor.AlertStatus, limit int) ([]monitor.Alert, error) {
	q := sq.Select(alertColumns...).
		From("alerts").
		OrderBy("triggered_at DESC").
		PlaceholderFormat(sq.Dollar)
	if status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build alerts query: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []monitor.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return alerts, nil
}

// GetAlert returns one alert by ID.
func (s *AlertStore) GetAlert(ctx context.Context, alertID string) (monitor.Alert, error) {
	sql, args, err := sq.Select(alertColumns...).
		From("alerts").
		Where(sq.Eq{"id": alertID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return monitor.Alert{}, fmt.Errorf("build alert query: %w", err)
	}

	alert, err := scanAlert(s.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return monitor.Alert{}, fmt.Errorf("alert %q: %w", alertID, monitor.ErrNotFound)
	}
	if err != nil {
		return monitor.Alert{}, err
	}
	return alert, nil
}

// ResolveAlert marks an alert resolved.
func (s *AlertStore) ResolveAlert(ctx context.Context, alertID string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE alerts SET status = $1, resolved_at = $2, last_updated = $2 WHERE id = $3",
		string(monitor.AlertStatusResolved), at, alertID,
	)
	if err != nil {
		return fmt.Errorf("resolve alert %s: %w", alertID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %q: %w", alertID, monitor.ErrNotFound)
	}
	return nil
}

func scanRule(row pgx.Row) (monitor.AlertRule, error) {
	var rule monitor.AlertRule
	var ruleType, level string
	var conditions []byte
	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &ruleType, &level,
		&rule.Enabled, &conditions, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return monitor.AlertRule{}, fmt.Errorf("scan rule row: %w", err)
	}
	rule.Type = monitor.AlertType(ruleType)
	rule.Level = monitor.AlertLevel(level)
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return monitor.AlertRule{}, fmt.Errorf("unmarshal rule conditions: %w", err)
		}
	}
	return rule, nil
}

func scanAlert(row pgx.Row) (monitor.Alert, error) {
	var alert monitor.Alert
	var alertType, level, status string
	if err := row.Scan(
		&alert.ID, &alert.RuleID, &alert.RuleName, &alertType, &level, &status,
		&alert.Title, &alert.Message, &alert.MatchCount, &alert.TriggeredAt,
		&alert.ResolvedAt, &alert.ReactivationCount, &alert.LastUpdated,
	); err != nil {
		return monitor.Alert{}, err
	}
	alert.Type = monitor.AlertType(alertType)
	alert.Level = monitor.AlertLevel(level)
	alert.Status = monitor.AlertStatus(status)
	return alert, nil
}
