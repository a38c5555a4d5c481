package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// ErrNoTransactionStore is returned by persisting operations on an engine built without one.
var ErrNoTransactionStore = errors.New("no transaction store configured")

// SaveAndClassify classifies transactions in groups and persists each group
// before moving on. A persistence failure stops the run; groups saved before
// it stay saved and are reflected in the returned counts.
func (e *Engine) SaveAndClassify(ctx context.Context, req BatchRequest) (model.BatchResult, error) {
	result := model.BatchResult{Errors: []string{}}
	if e.transactions == nil {
		return result, ErrNoTransactionStore
	}

	total := len(req.Transactions)
	if total > 0 {
		e.progress.Start(total)
		defer e.progress.Finish()
	}

	groupSize := e.config.GroupSize
	for start := 0; start < len(req.Transactions); start += groupSize {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("processing stopped after %d transactions: %w", result.TotalProcessed, err)
		}

		end := min(start+groupSize, len(req.Transactions))
		group := req.Transactions[start:end]

		outcome, errs := e.runBatch(ctx, BatchRequest{
			TenantID:     req.TenantID,
			Transactions: group,
			Privileged:   req.Privileged,
		}, nopProgress{})

		records := make([]model.Record, len(group))
		for i, txn := range group {
			records[i] = e.newRecord(req.TenantID, txn, outcome.Results[i])
		}

		err := common.WithRetry(ctx, func() error {
			return e.transactions.SaveTransactions(ctx, records)
		}, e.config.Retry)
		if err != nil {
			return result, fmt.Errorf("%w: group starting at transaction %d: %w", common.ErrPersistence, start, err)
		}

		result.TotalProcessed += outcome.Stats.Total
		result.ClassifiedCount += outcome.Stats.Classified
		result.UnclassifiedCount += outcome.Stats.Unclassified
		for i, err := range errs {
			if err != nil {
				result.Errors = append(result.Errors, describeFailure(start+i, group[i], err))
			}
		}

		e.progress.Advance(end)

		slog.Info("Saved transaction group",
			"tenant_id", req.TenantID,
			"group_start", start,
			"group_size", len(group),
			"classified", outcome.Stats.Classified)
	}

	return result, nil
}

// newRecord builds the persisted form of one verdict. Only classified
// transactions get a tenant and category; the tenant is the winning rule's
// owner, which differs from the requester in privileged runs.
func (e *Engine) newRecord(requestedTenantID string, txn model.Transaction, result model.Result) model.Record {
	record := model.Record{
		ID:                uuid.NewString(),
		RequestedTenantID: requestedTenantID,
		Transaction:       txn,
		Status:            model.StatusUnclassified,
		TenantID:          nil,
		CategoryID:        nil,
		RuleID:            nil,
	}
	if !result.IsClassified {
		return record
	}

	classifiedAt := e.now()
	tenantID := result.TenantID
	categoryID := result.CategoryID
	ruleID := result.RuleID

	record.Status = model.StatusClassified
	record.TenantID = &tenantID
	record.CategoryID = &categoryID
	record.RuleID = &ruleID
	record.MatchedKeywords = result.MatchedKeywords
	record.ClassifiedAt = &classifiedAt
	return record
}

// Reclassify runs previously unassigned transactions against one tenant's
// rules and persists the ones that now match. limit bounds how many are
// loaded; zero or less uses the configured default.
func (e *Engine) Reclassify(ctx context.Context, tenantID string, limit int) (model.BatchResult, error) {
	result := model.BatchResult{Errors: []string{}}
	if e.transactions == nil {
		return result, ErrNoTransactionStore
	}
	if limit <= 0 {
		limit = e.config.ReclassifyLimit
	}

	records, err := e.transactions.GetUnassignedTransactions(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("failed to load unassigned transactions: %w", err)
	}
	if len(records) == 0 {
		slog.Info("No unassigned transactions to reclassify", "tenant_id", tenantID)
		return result, nil
	}

	txns := make([]model.Transaction, len(records))
	for i, record := range records {
		txns[i] = record.Transaction
	}

	outcome, errs := e.runBatch(ctx, BatchRequest{TenantID: tenantID, Transactions: txns}, e.progress)

	classifiedAt := e.now()
	var assignments []model.Assignment
	for i, verdict := range outcome.Results {
		if errs[i] != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("transaction %s: %v", records[i].ID, errs[i]))
		}
		if !verdict.IsClassified {
			continue
		}
		assignments = append(assignments, model.Assignment{
			TransactionID:   records[i].ID,
			TenantID:        verdict.TenantID,
			CategoryID:      verdict.CategoryID,
			RuleID:          verdict.RuleID,
			MatchedKeywords: verdict.MatchedKeywords,
			ClassifiedAt:    classifiedAt,
		})
	}

	if len(assignments) > 0 {
		err := common.WithRetry(ctx, func() error {
			return e.transactions.AssignTransactions(ctx, assignments)
		}, e.config.Retry)
		if err != nil {
			return result, fmt.Errorf("%w: reclassified assignments: %w", common.ErrPersistence, err)
		}
	}

	result.TotalProcessed = outcome.Stats.Total
	result.ClassifiedCount = outcome.Stats.Classified
	result.UnclassifiedCount = outcome.Stats.Unclassified

	slog.Info("Reclassification complete",
		"tenant_id", tenantID,
		"processed", result.TotalProcessed,
		"newly_classified", result.ClassifiedCount)

	return result, nil
}
