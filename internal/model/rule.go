// Package model defines the core data structures for the tally application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType restricts a rule to deposits, withdrawals, or both.
type TransactionType string

// Transaction type constants.
const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeAll        TransactionType = "ALL"
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeAll:
		return true
	}
	return false
}

// KeywordKind marks a keyword as required or forbidden.
type KeywordKind string

// Keyword kind constants.
const (
	KeywordInclude KeywordKind = "INCLUDE"
	KeywordExclude KeywordKind = "EXCLUDE"
)

// Keyword is a single piece of text a rule looks for in a description.
type Keyword struct {
	Text string      `json:"text"`
	Kind KeywordKind `json:"kind"`
}

// Rule maps transactions of one tenant to a category.
// Lower Priority values win when several rules match.
type Rule struct {
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	MinAmount       *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	ID              string           `json:"id"`
	TenantID        string           `json:"tenant_id"`
	CategoryID      string           `json:"category_id"`
	CategoryName    string           `json:"category_name"`
	TransactionType TransactionType  `json:"transaction_type"`
	Keywords        []Keyword        `json:"keywords"`
	Priority        int              `json:"priority"`
	IsActive        bool             `json:"is_active"`
}

// IncludeKeywords returns the rule's INCLUDE keywords in order.
func (r Rule) IncludeKeywords() []string {
	return r.keywordsOfKind(KeywordInclude)
}

// ExcludeKeywords returns the rule's EXCLUDE keywords in order.
func (r Rule) ExcludeKeywords() []string {
	return r.keywordsOfKind(KeywordExclude)
}

func (r Rule) keywordsOfKind(kind KeywordKind) []string {
	var out []string
	for _, kw := range r.Keywords {
		if kw.Kind == kind {
			out = append(out, kw.Text)
		}
	}
	return out
}
