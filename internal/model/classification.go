package model

// ClassificationStatus is the persisted state of a transaction.
type ClassificationStatus string

// Classification status constants.
const (
	StatusClassified   ClassificationStatus = "CLASSIFIED"
	StatusUnclassified ClassificationStatus = "UNCLASSIFIED"
)

// Reasons reported on an unclassified result.
const (
	ReasonNoActiveRules       = "No active rules found"
	ReasonNoMatchingRule      = "No matching rules found"
	ReasonClassificationError = "Classification error"
)

// Result is the verdict for one transaction.
type Result struct {
	CategoryID      string   `json:"category_id,omitempty"`
	CategoryName    string   `json:"category_name,omitempty"`
	RuleID          string   `json:"rule_id,omitempty"`
	TenantID        string   `json:"tenant_id,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	IsClassified    bool     `json:"is_classified"`
}

// Unclassified builds a failed verdict with the given reason.
func Unclassified(reason string) Result {
	return Result{Reason: reason}
}

// Classified builds a successful verdict for rule.
func Classified(rule Rule, matchedKeywords []string) Result {
	return Result{
		IsClassified:    true,
		CategoryID:      rule.CategoryID,
		CategoryName:    rule.CategoryName,
		RuleID:          rule.ID,
		TenantID:        rule.TenantID,
		MatchedKeywords: matchedKeywords,
	}
}

// BatchResult summarizes a persisted classification run.
type BatchResult struct {
	Errors            []string `json:"errors"`
	TotalProcessed    int      `json:"total_processed"`
	ClassifiedCount   int      `json:"classified_count"`
	UnclassifiedCount int      `json:"unclassified_count"`
}

// ClassificationStats describes the persisted classification state of a tenant.
type ClassificationStats struct {
	TenantID           string  `json:"tenant_id"`
	TotalTransactions  int     `json:"total_transactions"`
	ClassifiedCount    int     `json:"classified_count"`
	UnclassifiedCount  int     `json:"unclassified_count"`
	ClassificationRate float64 `json:"classification_rate"`
}
