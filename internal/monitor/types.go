package monitor

import "time"

// Category groups sources by the kind of content they carry.
type Category string

// Known source categories.
const (
	CategoryFinance       Category = "finance"
	CategoryTech          Category = "tech"
	CategoryNews          Category = "news"
	CategorySocial        Category = "social"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFinance, CategoryTech, CategoryNews, CategorySocial,
		CategoryEntertainment, CategorySports:
		return true
	}
	return false
}

// Priority orders sources into scheduling tiers. Lower is more urgent.
type Priority int

// Priority tiers and their standing cadences.
const (
	PriorityHigh   Priority = 1 // collected every 5 minutes
	PriorityMedium Priority = 2 // collected every 15 minutes
	PriorityLow    Priority = 3 // collected every 30 minutes
)

// Source is one external feed endpoint. Sources are loaded once at startup
// and are read-only for the process lifetime.
type Source struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Category   Category `json:"category" yaml:"category"`
	Priority   Priority `json:"priority" yaml:"priority"`
	PrimaryURL string   `json:"primary_url" yaml:"primary_url"`
	BackupURL  string   `json:"backup_url,omitempty" yaml:"backup_url,omitempty"`
}

// ContentItem is one normalized piece of ingested content. Fingerprint is the
// dedup key: re-ingesting the same logical item upserts instead of
// duplicating.
type ContentItem struct {
	Fingerprint string     `json:"fingerprint"`
	SourceID    string     `json:"source_id"`
	SourceName  string     `json:"source_name,omitempty"`
	Category    Category   `json:"category"`
	Priority    Priority   `json:"priority"`
	Title       string     `json:"title"`
	Body        string     `json:"body,omitempty"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CollectedAt time.Time  `json:"collected_at"`
	Keywords    []string   `json:"keywords,omitempty"`
}

// RunStatus is the lifecycle state of a collection run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Tier identifies which source set a run covers.
type Tier string

// Tier values. TierFull sweeps every source regardless of priority.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierFull   Tier = "full"
	TierManual Tier = "manual"
)

// TierForPriority maps a priority to its standing tier.
func TierForPriority(p Priority) Tier {
	switch p {
	case PriorityHigh:
		return TierHigh
	case PriorityMedium:
		return TierMedium
	case PriorityLow:
		return TierLow
	default:
		return TierManual
	}
}

// SourceOutcome records how a single source fared within a run.
type SourceOutcome struct {
	SourceID  string `json:"source_id"`
	Success   bool   `json:"success"`
	ItemCount int    `json:"item_count"`
	Error     string `json:"error,omitempty"`
}

// CollectionRun is the aggregate record of one collector invocation. It is
// always produced, even when every source fails or the run is canceled
// mid-flight.
type CollectionRun struct {
	RunID      string                   `json:"run_id"`
	Tier       Tier                     `json:"tier"`
	Status     RunStatus                `json:"status"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Outcomes   map[string]SourceOutcome `json:"per_source_outcome"`
	Succeeded  int                      `json:"success_count"`
	Failed     int                      `json:"error_count"`
	TotalItems int                      `json:"total_items"`
}

// AlertType discriminates rule condition shapes.
type AlertType string

// Rule types. Only keyword rules carry evaluation logic in the engine today;
// the remaining types are recognized so externally managed rules round-trip.
const (
	AlertTypeKeyword   AlertType = "keyword"
	AlertTypeSentiment AlertType = "sentiment"
	AlertTypeVolume    AlertType = "volume"
	AlertTypeSource    AlertType = "source"
)

// AlertLevel ranks alert severity.
type AlertLevel string

// Severity levels.
const (
	AlertLevelLow      AlertLevel = "low"
	AlertLevelMedium   AlertLevel = "medium"
	AlertLevelHigh     AlertLevel = "high"
	AlertLevelCritical AlertLevel = "critical"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

// Alert lifecycle states. Resolution is always an explicit external action;
// the engine never resolves automatically.
const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

// RuleConditions holds the type-specific trigger parameters of a rule.
type RuleConditions struct {
	Keywords          []string `json:"keywords,omitempty"`
	Threshold         int      `json:"threshold,omitempty"`
	TimeWindowMinutes int      `json:"time_window_minutes,omitempty"`
}

// AlertRule is a configured trigger condition, supplied by an external
// management surface and evaluated read-only by the engine.
type AlertRule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        AlertType      `json:"type"`
	Level       AlertLevel     `json:"level"`
	Enabled     bool           `json:"enabled"`
	Conditions  RuleConditions `json:"conditions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Alert is one triggered rule instance. At most one active alert exists per
// rule; re-triggers while active refresh LastUpdated, re-triggers after
// resolution reactivate the alert and bump ReactivationCount.
type Alert struct {
	ID                string      `json:"id"`
	RuleID            string      `json:"rule_id"`
	RuleName          string      `json:"rule_name,omitempty"`
	Type              AlertType   `json:"type"`
	Level             AlertLevel  `json:"level"`
	Status            AlertStatus `json:"status"`
	Title             string      `json:"title"`
	Message           string      `json:"message"`
	MatchCount        int         `json:"match_count"`
	TriggeredAt       time.Time   `json:"triggered_at"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty"`
	ReactivationCount int         `json:"reactivation_count"`
	LastUpdated       time.Time   `json:"last_updated"`
}

// TransitionKind labels what the engine did to an alert during one pass.
type TransitionKind string

// Transition kinds emitted by the alert engine.
const (
	TransitionCreated     TransitionKind = "created"
	TransitionUpdated     TransitionKind = "updated"
	TransitionReactivated TransitionKind = "reactivated"
)

// AlertTransition is one state change produced by an evaluation pass.
type AlertTransition struct {
	Kind  TransitionKind `json:"kind"`
	Alert Alert          `json:"alert"`
}

// KeywordCount is one entry of the trending keyword aggregation, ordered by
// descending count with first-seen order breaking ties.
type KeywordCount struct {
	Word    string   `json:"word"`
	Count   int      `json:"count"`
	Score   float64  `json:"score"`
	Sources []string `json:"sources,omitempty"`
}
