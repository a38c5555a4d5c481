package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrEmptySlice   = errors.New("slice cannot be empty")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRules checks rules about to be stored for one tenant.
func validateRules(tenantID string, rules []model.Rule) error {
	for i, rule := range rules {
		if err := validateRule(&rule); err != nil {
			return fmt.Errorf("rule at index %d: %w", i, err)
		}
		if rule.TenantID != tenantID {
			return fmt.Errorf("rule at index %d: %w: tenant %q does not match %q",
				i, common.ErrInvalidRule, rule.TenantID, tenantID)
		}
	}
	return nil
}

// validateRule validates a single rule.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.CategoryName) == "" {
		return fmt.Errorf("%w: missing category name", common.ErrInvalidRule)
	}
	if !rule.TransactionType.IsValid() {
		return fmt.Errorf("%w: transaction type %q", common.ErrInvalidRule, rule.TransactionType)
	}
	if rule.Priority < 1 {
		return fmt.Errorf("%w: priority %d", common.ErrInvalidRule, rule.Priority)
	}
	if rule.MinAmount != nil && rule.MaxAmount != nil && rule.MinAmount.GreaterThan(*rule.MaxAmount) {
		return fmt.Errorf("%w: min amount %s exceeds max amount %s", common.ErrInvalidRule, rule.MinAmount, rule.MaxAmount)
	}
	for _, kw := range rule.Keywords {
		if kw.Kind != model.KeywordInclude && kw.Kind != model.KeywordExclude {
			return fmt.Errorf("%w: keyword kind %q", common.ErrInvalidRule, kw.Kind)
		}
	}
	return nil
}

// validateRecords validates a group of records about to be saved.
func validateRecords(records []model.Record) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}

	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
	}
	return nil
}

// validateRecord checks that a record is either fully assigned or fully unassigned.
func validateRecord(record *model.Record) error {
	if record.ID == "" {
		return fmt.Errorf("%w: missing ID", common.ErrInvalidTransaction)
	}
	if record.Transaction.Date.IsZero() {
		return fmt.Errorf("%w: missing date", common.ErrInvalidTransaction)
	}

	switch record.Status {
	case model.StatusClassified:
		if record.TenantID == nil || record.CategoryID == nil {
			return fmt.Errorf("%w: classified record without tenant or category", common.ErrInvalidTransaction)
		}
	case model.StatusUnclassified:
		if record.TenantID != nil || record.CategoryID != nil {
			return fmt.Errorf("%w: unclassified record carries an assignment", common.ErrInvalidTransaction)
		}
	default:
		return fmt.Errorf("%w: status %q", common.ErrInvalidTransaction, record.Status)
	}
	return nil
}
