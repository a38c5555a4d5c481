// Package engine implements the rule-based classification engine for bank transactions.
package engine

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Engine ties the rule cache, classifier and batch runner together.
// One Engine is meant to live as long as the hosting process.
type Engine struct {
	cache        *RuleCache
	classifier   *Classifier
	transactions TransactionStore
	progress     ProgressReporter
	metrics      MetricsRecorder
	now          func() time.Time
	config       Config
}

// Config holds configuration options for the classification engine.
type Config struct {
	Progress         ProgressReporter
	Metrics          MetricsRecorder
	Retry            common.RetryOptions
	CacheTTL         time.Duration
	GroupSize        int
	ProgressInterval int
	ReclassifyLimit  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CacheTTL:         DefaultCacheTTL,
		GroupSize:        100,
		ProgressInterval: 25,
		ReclassifyLimit:  1000,
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		},
	}
}

// New creates a new engine with the default configuration.
// transactions may be nil when only in-memory classification is needed.
func New(rules RuleStore, transactions TransactionStore) *Engine {
	return NewWithConfig(rules, transactions, DefaultConfig())
}

// NewWithConfig creates a new engine with custom configuration.
func NewWithConfig(rules RuleStore, transactions TransactionStore, config Config) *Engine {
	defaults := DefaultConfig()
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.GroupSize <= 0 {
		config.GroupSize = defaults.GroupSize
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = defaults.ProgressInterval
	}
	if config.ReclassifyLimit <= 0 {
		config.ReclassifyLimit = defaults.ReclassifyLimit
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	progress := config.Progress
	if progress == nil {
		progress = LogProgress{}
	}

	cache := NewRuleCache(rules, config.CacheTTL)
	cache.metrics = metrics

	return &Engine{
		cache:        cache,
		classifier:   NewClassifier(cache),
		transactions: transactions,
		progress:     progress,
		metrics:      metrics,
		now:          time.Now,
		config:       config,
	}
}

// Cache returns the engine's rule cache.
func (e *Engine) Cache() *RuleCache {
	return e.cache
}

// Classify evaluates a single transaction.
func (e *Engine) Classify(ctx context.Context, req Request) model.Result {
	result := e.classifier.Classify(ctx, req)
	e.metrics.ObserveClassification(result)
	return result
}
