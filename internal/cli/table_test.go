package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/tally/internal/model"
)

func TestRenderRules(t *testing.T) {
	minAmount := decimal.NewFromInt(1000)
	rules := []model.Rule{
		{
			ID:              "rule-1",
			TenantID:        "acme",
			CategoryName:    "Coffee",
			TransactionType: model.TypeWithdrawal,
			Priority:        1,
			MinAmount:       &minAmount,
			IsActive:        true,
			Keywords: []model.Keyword{
				{Text: "starbucks", Kind: model.KeywordInclude},
				{Text: "refund", Kind: model.KeywordExclude},
			},
		},
	}

	var buf bytes.Buffer
	RenderRules(&buf, rules)

	out := buf.String()
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, ">= 1000")
	assert.Contains(t, out, "starbucks, !refund")
	assert.Contains(t, out, "yes")
}

func TestRenderResults(t *testing.T) {
	txns := []model.Transaction{
		{
			Date:             time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Description:      "Starbucks Gangnam",
			WithdrawalAmount: decimal.NewFromInt(4500),
		},
		{
			Date:          time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			Description:   "Unknown",
			DepositAmount: decimal.NewFromInt(10),
		},
	}
	results := []model.Result{
		{IsClassified: true, CategoryName: "Coffee", TenantID: "acme", MatchedKeywords: []string{"starbucks"}},
		model.Unclassified(model.ReasonNoMatchingRule),
	}

	var buf bytes.Buffer
	RenderResults(&buf, txns, results)

	out := buf.String()
	assert.Contains(t, out, "-4500")
	assert.Contains(t, out, "starbucks")
	assert.Contains(t, out, model.ReasonNoMatchingRule)
}

func TestRenderStats(t *testing.T) {
	stats := &model.ClassificationStats{
		TenantID:           "acme",
		TotalTransactions:  4,
		ClassifiedCount:    3,
		UnclassifiedCount:  1,
		ClassificationRate: 75,
	}

	var buf bytes.Buffer
	RenderStats(&buf, stats, []CategoryCount{{Name: "Coffee", Count: 3}})

	out := buf.String()
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "Coffee")
}

func TestFormatRange(t *testing.T) {
	lo := decimal.NewFromInt(10)
	hi := decimal.NewFromInt(20)

	assert.Equal(t, "any", formatRange(model.Rule{}))
	assert.Equal(t, "<= 20", formatRange(model.Rule{MaxAmount: &hi}))
	assert.Equal(t, "10 - 20", formatRange(model.Rule{MinAmount: &lo, MaxAmount: &hi}))
}
