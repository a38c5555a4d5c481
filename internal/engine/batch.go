package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/tally/internal/model"
)

// BatchRequest describes a list of transactions to classify for one tenant.
type BatchRequest struct {
	TenantID     string
	Transactions []model.Transaction
	Privileged   bool
}

// BatchStats contains statistics about one batch run.
// Classified+Unclassified always equals Total, and the ByCategory counts sum to Classified.
type BatchStats struct {
	ByCategory   map[string]int
	Total        int
	Classified   int
	Unclassified int
	Duration     time.Duration
}

// BatchOutcome holds one result per input transaction, in input order.
type BatchOutcome struct {
	Results []model.Result
	Errors  []string
	Stats   BatchStats
}

// ClassifyBatch classifies transactions sequentially, loading the rule set once.
func (e *Engine) ClassifyBatch(ctx context.Context, req BatchRequest) BatchOutcome {
	outcome, errs := e.runBatch(ctx, req, e.progress)
	for i, err := range errs {
		if err != nil {
			outcome.Errors = append(outcome.Errors, describeFailure(i, req.Transactions[i], err))
		}
	}
	return outcome
}

// runBatch does the work of ClassifyBatch and returns per-transaction errors
// aligned with the results so callers can label them.
func (e *Engine) runBatch(ctx context.Context, req BatchRequest, progress ProgressReporter) (BatchOutcome, []error) {
	outcome := BatchOutcome{
		Results: make([]model.Result, 0, len(req.Transactions)),
		Errors:  []string{},
		Stats:   BatchStats{ByCategory: make(map[string]int)},
	}
	if len(req.Transactions) == 0 {
		return outcome, nil
	}

	startTime := e.now()
	total := len(req.Transactions)
	errs := make([]error, total)

	slog.Info("Starting batch classification",
		"tenant_id", req.TenantID,
		"privileged", req.Privileged,
		"transactions", total)

	rules, loadErr := e.classifier.loadRules(ctx, req.TenantID, req.Privileged)
	if loadErr != nil {
		slog.Error("Failed to load rules for batch",
			"tenant_id", req.TenantID,
			"error", loadErr)
	}

	progress.Start(total)
	for i, txn := range req.Transactions {
		var result model.Result
		if loadErr != nil {
			result = model.Unclassified(model.ReasonClassificationError)
			errs[i] = loadErr
		} else {
			var err error
			result, err = safeEvaluate(txn, rules)
			if err != nil {
				slog.Warn("Failed to classify transaction", "index", i, "error", err)
				errs[i] = err
			}
		}

		outcome.Results = append(outcome.Results, result)
		outcome.Stats.record(result)
		e.metrics.ObserveClassification(result)

		if processed := i + 1; processed%e.config.ProgressInterval == 0 && processed < total {
			progress.Advance(processed)
		}
	}
	progress.Advance(total)
	progress.Finish()

	outcome.Stats.Duration = e.now().Sub(startTime)
	e.metrics.ObserveBatch(outcome.Stats.Duration, total)

	slog.Info("Batch classification complete",
		"tenant_id", req.TenantID,
		"total", outcome.Stats.Total,
		"classified", outcome.Stats.Classified,
		"unclassified", outcome.Stats.Unclassified,
		"duration", outcome.Stats.Duration)

	return outcome, errs
}

func (s *BatchStats) record(result model.Result) {
	s.Total++
	if result.IsClassified {
		s.Classified++
		s.ByCategory[result.CategoryID]++
		return
	}
	s.Unclassified++
}

// Rate returns the classified share of the batch in percent.
func (s BatchStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Classified) / float64(s.Total) * 100
}

// describeFailure labels a per-transaction error with its index and a
// short piece of the description.
func describeFailure(index int, txn model.Transaction, err error) string {
	return fmt.Sprintf("transaction %d (%s): %v", index, fragment(txn.Description, 20), err)
}

func fragment(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
