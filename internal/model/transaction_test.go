package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionDirection(t *testing.T) {
	tests := []struct {
		name           string
		txn            Transaction
		wantAmount     int64
		wantDeposit    bool
		wantWithdrawal bool
	}{
		{
			name:        "deposit",
			txn:         Transaction{DepositAmount: decimal.NewFromInt(3000)},
			wantAmount:  3000,
			wantDeposit: true,
		},
		{
			name:           "withdrawal",
			txn:            Transaction{WithdrawalAmount: decimal.NewFromInt(4500)},
			wantAmount:     4500,
			wantWithdrawal: true,
		},
		{
			name: "zero",
			txn:  Transaction{},
		},
		{
			name:       "both set",
			txn:        Transaction{DepositAmount: decimal.NewFromInt(10), WithdrawalAmount: decimal.NewFromInt(20)},
			wantAmount: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.NewFromInt(tt.wantAmount).Equal(tt.txn.Amount()))
			assert.Equal(t, tt.wantDeposit, tt.txn.IsDeposit())
			assert.Equal(t, tt.wantWithdrawal, tt.txn.IsWithdrawal())
		})
	}
}

func TestRecordIsAssigned(t *testing.T) {
	tenant, category := "acme", "cat"

	assert.False(t, Record{Status: StatusUnclassified}.IsAssigned())
	assert.False(t, Record{Status: StatusClassified, TenantID: &tenant}.IsAssigned())
	assert.True(t, Record{Status: StatusClassified, TenantID: &tenant, CategoryID: &category}.IsAssigned())
}

func TestRuleKeywords(t *testing.T) {
	rule := Rule{Keywords: []Keyword{
		{Text: "starbucks", Kind: KeywordInclude},
		{Text: "환불", Kind: KeywordExclude},
		{Text: "커피", Kind: KeywordInclude},
	}}

	assert.Equal(t, []string{"starbucks", "커피"}, rule.IncludeKeywords())
	assert.Equal(t, []string{"환불"}, rule.ExcludeKeywords())
	assert.Nil(t, Rule{}.IncludeKeywords())
}

func TestTransactionTypeIsValid(t *testing.T) {
	assert.True(t, TypeDeposit.IsValid())
	assert.True(t, TypeAll.IsValid())
	assert.False(t, TransactionType("").IsValid())
	assert.False(t, TransactionType("TRANSFER").IsValid())
}
