package engine

import (
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

// Matches reports whether txn satisfies every condition of rule:
// the transaction type filter, the inclusive amount range, and the keyword filter.
func Matches(txn model.Transaction, rule model.Rule) bool {
	if !matchesType(txn, rule.TransactionType) {
		return false
	}

	if !matchesAmount(txn, rule) {
		return false
	}

	return matchesKeywords(newDescription(txn.Description), rule)
}

// MatchedKeywords returns the INCLUDE keywords of rule found in description,
// in rule order and with their original spelling.
func MatchedKeywords(description string, rule model.Rule) []string {
	desc := newDescription(description)

	matched := []string{}
	for _, kw := range rule.IncludeKeywords() {
		if desc.contains(kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// matchesType applies the DEPOSIT / WITHDRAWAL / ALL filter.
// An unset type behaves like ALL.
func matchesType(txn model.Transaction, t model.TransactionType) bool {
	switch t {
	case model.TypeAll, "":
		return true
	case model.TypeDeposit:
		return txn.IsDeposit()
	case model.TypeWithdrawal:
		return txn.IsWithdrawal()
	}
	return false
}

// matchesAmount checks the inclusive bounds against the larger of the two amounts.
func matchesAmount(txn model.Transaction, rule model.Rule) bool {
	amount := txn.Amount()

	if rule.MinAmount != nil && amount.LessThan(*rule.MinAmount) {
		return false
	}
	if rule.MaxAmount != nil && amount.GreaterThan(*rule.MaxAmount) {
		return false
	}
	return true
}

// matchesKeywords vetoes on any EXCLUDE keyword, then requires one INCLUDE
// keyword if the rule has any.
func matchesKeywords(desc description, rule model.Rule) bool {
	for _, kw := range rule.ExcludeKeywords() {
		if desc.contains(kw) {
			return false
		}
	}

	includes := rule.IncludeKeywords()
	if len(includes) == 0 {
		return true
	}

	for _, kw := range includes {
		if desc.contains(kw) {
			return true
		}
	}
	return false
}

// description is a normalized transaction description.
type description struct {
	text  string
	words []string
}

func newDescription(raw string) description {
	text := strings.ToLower(strings.TrimSpace(raw))
	return description{
		text:  text,
		words: strings.Fields(text),
	}
}

// contains matches keyword as a whole word or as a substring.
// Substrings count too, so "카페" also matches inside longer words.
// Blank keywords never match.
func (d description) contains(keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}

	for _, word := range d.words {
		if word == kw {
			return true
		}
	}
	return strings.Contains(d.text, kw)
}
