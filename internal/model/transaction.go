package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a parsed bank record with plaintext fields, ready to classify.
// At most one of DepositAmount and WithdrawalAmount is non-zero.
type Transaction struct {
	Date             time.Time
	DepositAmount    decimal.Decimal
	WithdrawalAmount decimal.Decimal
	Balance          decimal.Decimal
	Description      string
	Branch           string
}

// Amount returns the magnitude of the transaction.
func (t Transaction) Amount() decimal.Decimal {
	return decimal.Max(t.DepositAmount, t.WithdrawalAmount)
}

// IsDeposit reports whether money came in and nothing went out.
func (t Transaction) IsDeposit() bool {
	return t.DepositAmount.IsPositive() && t.WithdrawalAmount.IsZero()
}

// IsWithdrawal reports whether money went out and nothing came in.
func (t Transaction) IsWithdrawal() bool {
	return t.WithdrawalAmount.IsPositive() && t.DepositAmount.IsZero()
}

// Record is a transaction as persisted after a classification pass.
// TenantID and CategoryID are nil when the transaction is unassigned.
type Record struct {
	ClassifiedAt      *time.Time
	TenantID          *string
	CategoryID        *string
	RuleID            *string
	ID                string
	RequestedTenantID string
	Status            ClassificationStatus
	MatchedKeywords   []string
	Transaction       Transaction
}

// IsAssigned reports whether the record carries a tenant and category.
func (r Record) IsAssigned() bool {
	return r.Status == StatusClassified && r.TenantID != nil && r.CategoryID != nil
}

// Assignment is a successful reclassification to persist for an existing record.
type Assignment struct {
	ClassifiedAt    time.Time
	TransactionID   string
	TenantID        string
	CategoryID      string
	RuleID          string
	MatchedKeywords []string
}
