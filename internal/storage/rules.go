package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const ruleColumns = `
	r.id, r.tenant_id, r.category_id, c.name, r.min_amount, r.max_amount,
	r.transaction_type, r.priority, r.is_active, r.created_at, r.updated_at`

// ReplaceTenantRules atomically swaps a tenant's rule set for rules.
// Rule and category ids are written back into the slice.
func (s *SQLiteStorage) ReplaceTenantRules(ctx context.Context, tenantID string, rules []model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateRules(tenantID, rules); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM rules WHERE tenant_id = ?", tenantID); err != nil {
			return fmt.Errorf("failed to delete existing rules: %w", err)
		}

		now := time.Now()
		for i := range rules {
			rule := &rules[i]

			categoryID, err := categoryIDTx(ctx, tx, tenantID, rule.CategoryName)
			if err != nil {
				return err
			}

			rule.ID = uuid.NewString()
			rule.CategoryID = categoryID
			rule.CreatedAt = now
			rule.UpdatedAt = now

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rules (
					id, tenant_id, category_id, position, min_amount, max_amount,
					transaction_type, priority, is_active, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rule.ID, tenantID, categoryID, i,
				nullDecimal(rule.MinAmount), nullDecimal(rule.MaxAmount),
				string(rule.TransactionType), rule.Priority, rule.IsActive, now, now,
			); err != nil {
				return fmt.Errorf("failed to insert rule for category %q: %w", rule.CategoryName, err)
			}

			for pos, kw := range rule.Keywords {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO rule_keywords (rule_id, position, keyword, kind) VALUES (?, ?, ?, ?)",
					rule.ID, pos, kw.Text, string(kw.Kind),
				); err != nil {
					return fmt.Errorf("failed to insert keyword %q: %w", kw.Text, err)
				}
			}
		}
		return nil
	})
}

// GetActiveRules returns the active rules of one tenant ordered by priority
// and then by their position in the imported document.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context, tenantID string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, "r.tenant_id = ? AND r.is_active = 1", "r.priority, r.position", tenantID)
}

// GetAllActiveRules returns the active rules of every tenant.
func (s *SQLiteStorage) GetAllActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, "r.is_active = 1", "r.priority, r.tenant_id, r.position")
}

// ListRules returns every rule of a tenant, active or not. An empty tenantID lists all tenants.
func (s *SQLiteStorage) ListRules(ctx context.Context, tenantID string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if tenantID == "" {
		return s.queryRules(ctx, "1 = 1", "r.tenant_id, r.priority, r.position")
	}
	return s.queryRules(ctx, "r.tenant_id = ?", "r.priority, r.position", tenantID)
}

// SetRuleActive enables or disables a rule owned by tenantID.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE rules SET is_active = ?, updated_at = ? WHERE id = ? AND tenant_id = ?",
		active, time.Now(), ruleID, tenantID)
	if err != nil {
		return classifyError(fmt.Errorf("failed to update rule: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s for tenant %q: %w", ruleID, tenantID, common.ErrNotFound)
	}
	return nil
}

// queryRules loads rules matching where, then attaches their keywords in order.
func (s *SQLiteStorage) queryRules(ctx context.Context, where, orderBy string, args ...any) ([]model.Rule, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM rules r
		JOIN categories c ON c.id = r.category_id
		WHERE %s
		ORDER BY %s
	`, ruleColumns, where, orderBy)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	index := make(map[string]int)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		index[rule.ID] = len(rules)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	if err := s.attachKeywords(ctx, rules, index); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *SQLiteStorage) attachKeywords(ctx context.Context, rules []model.Rule, index map[string]int) error {
	ids := make([]any, 0, len(rules))
	for _, rule := range rules {
		ids = append(ids, rule.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT rule_id, keyword, kind
		FROM rule_keywords
		WHERE rule_id IN (%s)
		ORDER BY rule_id, position
	`, placeholders), ids...)
	if err != nil {
		return fmt.Errorf("failed to query rule keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ruleID, text, kind string
		if err := rows.Scan(&ruleID, &text, &kind); err != nil {
			return fmt.Errorf("failed to scan rule keyword: %w", err)
		}
		if i, ok := index[ruleID]; ok {
			rules[i].Keywords = append(rules[i].Keywords, model.Keyword{Text: text, Kind: model.KeywordKind(kind)})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rule keywords: %w", err)
	}
	return nil
}

func scanRule(rows *sql.Rows) (model.Rule, error) {
	var (
		rule      model.Rule
		txnType   string
		minAmount decimal.NullDecimal
		maxAmount decimal.NullDecimal
	)
	err := rows.Scan(
		&rule.ID, &rule.TenantID, &rule.CategoryID, &rule.CategoryName,
		&minAmount, &maxAmount, &txnType, &rule.Priority, &rule.IsActive,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return model.Rule{}, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.TransactionType = model.TransactionType(txnType)
	rule.MinAmount = decimalPtr(minAmount)
	rule.MaxAmount = decimalPtr(maxAmount)
	return rule, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
