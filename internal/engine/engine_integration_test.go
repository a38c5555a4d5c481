package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/ruleset"
	"github.com/Veraticus/tally/internal/testutil"
)

func TestEngineWithSQLite(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.SeedRules(testutil.SampleRules)

	eng := engine.New(db.Storage, db.Storage)

	txns := []model.Transaction{
		testutil.Withdrawal("STARBUCKS 강남점", 5600),
		testutil.Deposit("1월 급여", 3_000_000),
		testutil.Deposit("급여 정산", 500),
		testutil.Withdrawal("쿠팡 주문", 32000),
		testutil.Withdrawal("GS25 편의점", 2400),
	}

	result, err := eng.SaveAndClassify(ctx, engine.BatchRequest{TenantID: "acme", Transactions: txns})
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 3, result.ClassifiedCount)
	assert.Equal(t, 2, result.UnclassifiedCount)

	stats, err := db.Storage.GetClassificationStats(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalTransactions)
	assert.Equal(t, 3, stats.ClassifiedCount)
	assert.InDelta(t, 60.0, stats.ClassificationRate, 0.001)

	manager := engine.NewRuleManager(db.Storage, eng.Cache())
	doc, err := ruleset.Parse(strings.NewReader(testutil.SampleRules + `
      - name: Convenience
        keywords: [편의점]
        priority: 1
`))
	require.NoError(t, err)
	_, err = manager.Import(ctx, doc)
	require.NoError(t, err)

	reclassified, err := eng.Reclassify(ctx, "globex", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reclassified.TotalProcessed)
	assert.Equal(t, 1, reclassified.ClassifiedCount)

	unassigned, err := db.Storage.GetUnassignedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "급여 정산", unassigned[0].Transaction.Description)

	globex, err := db.Storage.GetClassificationStats(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, 1, globex.ClassifiedCount)
}

func TestEngineWithSQLite_Privileged(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.SeedRules(testutil.SampleRules)

	eng := engine.New(db.Storage, db.Storage)

	outcome := eng.ClassifyBatch(ctx, engine.BatchRequest{
		TenantID: "acme",
		Transactions: []model.Transaction{
			testutil.Withdrawal("STARBUCKS", 5600),
			testutil.Withdrawal("한식 식당", 9000),
			testutil.Withdrawal("스타벅스 환불 starbucks", 5600),
		},
		Privileged: true,
	})

	require.Len(t, outcome.Results, 3)
	assert.Equal(t, "acme", outcome.Results[0].TenantID, "equal priority ties go to the first tenant in store order")
	assert.Equal(t, "Coffee", outcome.Results[0].CategoryName)
	assert.Equal(t, "globex", outcome.Results[1].TenantID)
	assert.Equal(t, "Meals", outcome.Results[2].CategoryName, "an exclude keyword only vetoes its own rule")
}
