package engine

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// RuleStore is the durable source of classification rules.
type RuleStore interface {
	GetActiveRules(ctx context.Context, tenantID string) ([]model.Rule, error)
	GetAllActiveRules(ctx context.Context) ([]model.Rule, error)
}

// RuleWriter changes stored rules.
type RuleWriter interface {
	ReplaceTenantRules(ctx context.Context, tenantID string, rules []model.Rule) error
	SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool) error
}

// TransactionStore persists classification outcomes.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, records []model.Record) error
	GetUnassignedTransactions(ctx context.Context, limit int) ([]model.Record, error)
	AssignTransactions(ctx context.Context, assignments []model.Assignment) error
}

// ProgressReporter receives progress updates while a batch runs.
type ProgressReporter interface {
	Start(total int)
	Advance(processed int)
	Finish()
}

// MetricsRecorder observes engine activity.
type MetricsRecorder interface {
	ObserveClassification(result model.Result)
	ObserveBatch(duration time.Duration, total int)
	ObserveCacheLookup(hit bool)
}
