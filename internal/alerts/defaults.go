package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

// defaultRules are seeded on first startup when the store holds no rules at
// all. Thresholds reflect observed keyword frequencies in a day of feed
// traffic; time windows shrink as urgency rises.
func defaultRules(now time.Time) []monitor.AlertRule {
	return []monitor.AlertRule{
		{
			ID:          "security-incidents",
			Name:        "Security incident watch",
			Description: "Surges in breach, ransomware, and attack coverage",
			Type:        monitor.AlertTypeKeyword,
			Level:       monitor.AlertLevelHigh,
			Enabled:     true,
			Conditions: monitor.RuleConditions{
				Keywords:          []string{"breach", "ransomware", "hacker", "malware", "cyberattack", "data leak"},
				Threshold:         15,
				TimeWindowMinutes: 60,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "data-platform",
			Name:        "Data platform watch",
			Description: "Surges in data infrastructure and outage coverage",
			Type:        monitor.AlertTypeKeyword,
			Level:       monitor.AlertLevelMedium,
			Enabled:     true,
			Conditions: monitor.RuleConditions{
				Keywords:          []string{"database", "data center", "outage", "data loss", "downtime"},
				Threshold:         20,
				TimeWindowMinutes: 60,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "tech-trends",
			Name:        "Technology trend watch",
			Description: "AI and emerging-technology coverage spikes",
			Type:        monitor.AlertTypeKeyword,
			Level:       monitor.AlertLevelMedium,
			Enabled:     true,
			Conditions: monitor.RuleConditions{
				Keywords:          []string{"artificial intelligence", "machine learning", "blockchain", "cloud computing", "quantum"},
				Threshold:         10,
				TimeWindowMinutes: 120,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "market-moves",
			Name:        "Market movement watch",
			Description: "Unusual volume of market and monetary policy coverage",
			Type:        monitor.AlertTypeKeyword,
			Level:       monitor.AlertLevelMedium,
			Enabled:     true,
			Conditions: monitor.RuleConditions{
				Keywords:          []string{"stock market", "inflation", "interest rate", "recession", "central bank", "sell-off"},
				Threshold:         12,
				TimeWindowMinutes: 90,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "breaking-events",
			Name:        "Breaking event watch",
			Description: "Disasters and emergencies breaking across sources",
			Type:        monitor.AlertTypeKeyword,
			Level:       monitor.AlertLevelCritical,
			Enabled:     true,
			Conditions: monitor.RuleConditions{
				Keywords:          []string{"earthquake", "explosion", "wildfire", "casualties", "emergency", "evacuation"},
				Threshold:         3,
				TimeWindowMinutes: 30,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// SeedDefaults loads the default rule set when the store is empty. Restarts
// against a populated store are a no-op, so operator edits survive.
func SeedDefaults(ctx context.Context, store monitor.AlertStore, clock monitor.Clock, logger *zap.Logger) error {
	if clock == nil {
		clock = monitor.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	count, err := store.CountRules(ctx)
	if err != nil {
		return fmt.Errorf("count alert rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	rules := defaultRules(clock.Now())
	for _, rule := range rules {
		if err := store.PutRule(ctx, rule); err != nil {
			return fmt.Errorf("seed rule %s: %w", rule.ID, err)
		}
	}
	logger.Info("seeded default alert rules", zap.Int("count", len(rules)))
	return nil
}
