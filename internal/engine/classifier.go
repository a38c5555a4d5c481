package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/model"
)

// Request describes one transaction to classify on behalf of a tenant.
// Privileged requests consider the rules of every tenant.
type Request struct {
	TenantID    string
	Transaction model.Transaction
	Privileged  bool
}

// Classifier evaluates single transactions against cached rules.
type Classifier struct {
	cache *RuleCache
}

// NewClassifier creates a classifier reading rules through cache.
func NewClassifier(cache *RuleCache) *Classifier {
	return &Classifier{cache: cache}
}

// Classify returns the verdict for one transaction. It never fails:
// problems are reported through the result's Reason.
func (c *Classifier) Classify(ctx context.Context, req Request) (result model.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Classification panicked",
				"tenant_id", req.TenantID,
				"panic", r)
			result = model.Unclassified(model.ReasonClassificationError)
		}
	}()

	rules, err := c.loadRules(ctx, req.TenantID, req.Privileged)
	if err != nil {
		slog.Error("Failed to load rules",
			"tenant_id", req.TenantID,
			"privileged", req.Privileged,
			"error", err)
		return model.Unclassified(model.ReasonClassificationError)
	}

	return Evaluate(req.Transaction, rules)
}

// loadRules picks the candidate rule set for a caller.
func (c *Classifier) loadRules(ctx context.Context, tenantID string, privileged bool) ([]model.Rule, error) {
	if privileged {
		return c.cache.GetAllRules(ctx)
	}
	return c.cache.GetRules(ctx, tenantID)
}

// Evaluate classifies txn against an already loaded rule set.
func Evaluate(txn model.Transaction, rules []model.Rule) model.Result {
	candidates := make([]model.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		return model.Unclassified(model.ReasonNoActiveRules)
	}

	var matched []model.Rule
	for _, rule := range candidates {
		if Matches(txn, rule) {
			matched = append(matched, rule)
		}
	}

	selected, ok := SelectRule(matched)
	if !ok {
		return model.Unclassified(model.ReasonNoMatchingRule)
	}

	return model.Classified(selected, MatchedKeywords(txn.Description, selected))
}

// safeEvaluate is Evaluate with panics turned into errors.
func safeEvaluate(txn model.Transaction, rules []model.Rule) (result model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
			result = model.Unclassified(model.ReasonClassificationError)
		}
	}()

	return Evaluate(txn, rules), nil
}
