package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

// SampleRules covers two tenants with overlapping keywords.
const SampleRules = `
tenants:
  - tenant_id: acme
    categories:
      - name: Coffee
        keywords: [starbucks, 커피]
        exclude_keywords: [환불]
        transaction_type: WITHDRAWAL
        priority: 1
      - name: Payroll
        keywords: [급여, payroll]
        transaction_type: DEPOSIT
        amount_range: {min: 1000000}
        priority: 1
      - name: Shopping
        keywords: [쿠팡, coupang]
        priority: 2
  - tenant_id: globex
    categories:
      - name: Meals
        keywords: [starbucks, 식당]
        priority: 1
`

// BaseDate is the date every fixture transaction is posted on.
var BaseDate = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// Withdrawal builds a withdrawal of amount with the given description.
func Withdrawal(description string, amount int64) model.Transaction {
	return model.Transaction{
		Date:             BaseDate,
		Description:      description,
		WithdrawalAmount: decimal.NewFromInt(amount),
	}
}

// Deposit builds a deposit of amount with the given description.
func Deposit(description string, amount int64) model.Transaction {
	return model.Transaction{
		Date:          BaseDate,
		Description:   description,
		DepositAmount: decimal.NewFromInt(amount),
	}
}
