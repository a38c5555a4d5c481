package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/Veraticus/tally/internal/model"
)

// CategoryCount is one row of a category breakdown.
type CategoryCount struct {
	Name  string
	Count int
}

// RenderRules writes rules as a table.
func RenderRules(w io.Writer, rules []model.Rule) {
	table := newTable(w, []string{"Tenant", "Rule ID", "Category", "Type", "Priority", "Amount", "Keywords", "Active"})
	for _, rule := range rules {
		table.Append([]string{
			rule.TenantID,
			rule.ID,
			rule.CategoryName,
			string(rule.TransactionType),
			strconv.Itoa(rule.Priority),
			formatRange(rule),
			formatKeywords(rule),
			formatBool(rule.IsActive),
		})
	}
	table.Render()
}

// RenderResults writes one row per classified transaction.
func RenderResults(w io.Writer, txns []model.Transaction, results []model.Result) {
	table := newTable(w, []string{"Date", "Description", "Amount", "Category", "Tenant", "Keywords / Reason"})
	for i, result := range results {
		txn := txns[i]

		amount := txn.DepositAmount.StringFixed(0)
		if txn.IsWithdrawal() {
			amount = "-" + txn.WithdrawalAmount.StringFixed(0)
		}

		detail := result.Reason
		if result.IsClassified {
			detail = strings.Join(result.MatchedKeywords, ", ")
		}

		table.Append([]string{
			txn.Date.Format("2006-01-02"),
			txn.Description,
			amount,
			result.CategoryName,
			result.TenantID,
			detail,
		})
	}
	table.Render()
}

// RenderStats writes a tenant's classification statistics and, when present,
// its per-category counts.
func RenderStats(w io.Writer, stats *model.ClassificationStats, categories []CategoryCount) {
	table := newTable(w, []string{"Tenant", "Total", "Classified", "Unclassified", "Rate"})
	table.Append([]string{
		stats.TenantID,
		strconv.Itoa(stats.TotalTransactions),
		strconv.Itoa(stats.ClassifiedCount),
		strconv.Itoa(stats.UnclassifiedCount),
		fmt.Sprintf("%.2f%%", stats.ClassificationRate),
	})
	table.Render()

	if len(categories) == 0 {
		return
	}

	breakdown := newTable(w, []string{"Category", "Transactions"})
	for _, c := range categories {
		breakdown.Append([]string{c.Name, strconv.Itoa(c.Count)})
	}
	breakdown.Render()
}

// RenderBatchResult writes the summary of a persisted run.
func RenderBatchResult(w io.Writer, result model.BatchResult) {
	table := newTable(w, []string{"Processed", "Classified", "Unclassified", "Errors"})
	table.Append([]string{
		strconv.Itoa(result.TotalProcessed),
		strconv.Itoa(result.ClassifiedCount),
		strconv.Itoa(result.UnclassifiedCount),
		strconv.Itoa(len(result.Errors)),
	})
	table.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func formatRange(rule model.Rule) string {
	switch {
	case rule.MinAmount == nil && rule.MaxAmount == nil:
		return "any"
	case rule.MaxAmount == nil:
		return ">= " + rule.MinAmount.String()
	case rule.MinAmount == nil:
		return "<= " + rule.MaxAmount.String()
	}
	return rule.MinAmount.String() + " - " + rule.MaxAmount.String()
}

func formatKeywords(rule model.Rule) string {
	parts := rule.IncludeKeywords()
	for _, kw := range rule.ExcludeKeywords() {
		parts = append(parts, "!"+kw)
	}
	return strings.Join(parts, ", ")
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
