package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/ruleset"
)

// RuleManager writes rule changes and keeps the cache in step with them.
type RuleManager struct {
	writer RuleWriter
	cache  *RuleCache
}

// NewRuleManager creates a rule manager invalidating cache on every change.
func NewRuleManager(writer RuleWriter, cache *RuleCache) *RuleManager {
	return &RuleManager{writer: writer, cache: cache}
}

// Import replaces each tenant's rules with the ones in doc.
// It returns the number of rules stored.
func (m *RuleManager) Import(ctx context.Context, doc *ruleset.Document) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}

	stored := 0
	for _, tenant := range doc.Tenants {
		tenantID := strings.TrimSpace(tenant.TenantID)
		rules := tenant.Rules()

		if err := m.writer.ReplaceTenantRules(ctx, tenantID, rules); err != nil {
			return stored, fmt.Errorf("failed to store rules for tenant %q: %w", tenantID, err)
		}
		m.invalidate(tenantID)
		stored += len(rules)

		slog.Info("Imported rules", "tenant_id", tenantID, "count", len(rules))
	}

	return stored, nil
}

// SetActive enables or disables one rule of a tenant.
func (m *RuleManager) SetActive(ctx context.Context, tenantID, ruleID string, active bool) error {
	if err := m.writer.SetRuleActive(ctx, tenantID, ruleID, active); err != nil {
		return fmt.Errorf("failed to update rule %s: %w", ruleID, err)
	}
	m.invalidate(tenantID)
	return nil
}

// invalidate drops the tenant's entry and the all-tenants entry, which
// contains the tenant's rules too.
func (m *RuleManager) invalidate(tenantID string) {
	m.cache.Invalidate(tenantID)
	m.cache.Invalidate(AllTenantsKey)
}
