// Package ruleset reads and validates the rule documents tenants upload.
//
// A document lists, per tenant, the categories to classify into together with
// their keywords and filters:
//
//	tenants:
//	  - tenant_id: acme
//	    categories:
//	      - name: 식비
//	        keywords: [스타벅스]
//	        exclude_keywords: [환불]
//	        amount_range: {min: 1000, max: 50000}
//	        transaction_type: WITHDRAWAL
//	        priority: 1
//
// JSON documents with the same keys are accepted as well.
package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// DefaultPriority is used when a category does not set one.
const DefaultPriority = 1

// reservedTenantPrefix starts the engine's internal cache keys, so tenant ids
// may not use it.
const reservedTenantPrefix = "__"

// Document is a parsed rule document.
type Document struct {
	Tenants []TenantRules `yaml:"tenants" json:"tenants"`
}

// TenantRules holds the categories of one tenant.
type TenantRules struct {
	TenantID   string         `yaml:"tenant_id" json:"tenant_id"`
	Categories []CategoryRule `yaml:"categories" json:"categories"`
}

// CategoryRule describes how transactions end up in one category.
type CategoryRule struct {
	AmountRange     *AmountRange `yaml:"amount_range,omitempty" json:"amount_range,omitempty"`
	Priority        *int         `yaml:"priority,omitempty" json:"priority,omitempty"`
	Name            string       `yaml:"name" json:"name"`
	TransactionType string       `yaml:"transaction_type,omitempty" json:"transaction_type,omitempty"`
	Keywords        []string     `yaml:"keywords" json:"keywords"`
	ExcludeKeywords []string     `yaml:"exclude_keywords,omitempty" json:"exclude_keywords,omitempty"`
}

// AmountRange bounds the transaction amount; either side may be omitted.
type AmountRange struct {
	Min *decimal.Decimal `yaml:"min,omitempty" json:"min,omitempty"`
	Max *decimal.Decimal `yaml:"max,omitempty" json:"max,omitempty"`
}

// Load reads a rule document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule document: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes and validates a rule document.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty rule document", common.ErrInvalidRule)
		}
		return nil, fmt.Errorf("%w: parsing rule document: %v", common.ErrInvalidRule, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document for the mistakes the engine cannot tolerate.
func (d *Document) Validate() error {
	if len(d.Tenants) == 0 {
		return fmt.Errorf("%w: document has no tenants", common.ErrInvalidRule)
	}

	seenTenants := make(map[string]bool, len(d.Tenants))
	for i, tenant := range d.Tenants {
		id := strings.TrimSpace(tenant.TenantID)
		if id == "" {
			return fmt.Errorf("%w: tenants[%d]: missing tenant_id", common.ErrInvalidRule, i)
		}
		if strings.HasPrefix(id, reservedTenantPrefix) {
			return fmt.Errorf("%w: tenants[%d]: tenant_id %q uses a reserved prefix", common.ErrInvalidRule, i, id)
		}
		if seenTenants[id] {
			return fmt.Errorf("%w: tenant %q listed twice", common.ErrInvalidRule, id)
		}
		seenTenants[id] = true

		if err := tenant.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t TenantRules) validate() error {
	seen := make(map[string]bool, len(t.Categories))
	for i, cat := range t.Categories {
		path := fmt.Sprintf("tenant %q categories[%d]", t.TenantID, i)

		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return fmt.Errorf("%w: %s: missing name", common.ErrInvalidRule, path)
		}
		if seen[name] {
			return fmt.Errorf("%w: %s: duplicate category %q", common.ErrInvalidRule, path, name)
		}
		seen[name] = true

		if err := cat.validate(); err != nil {
			return fmt.Errorf("%w: %s (%s): %v", common.ErrInvalidRule, path, name, err)
		}
	}
	return nil
}

func (c CategoryRule) validate() error {
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return errors.New("blank keyword")
		}
	}
	for _, kw := range c.ExcludeKeywords {
		if strings.TrimSpace(kw) == "" {
			return errors.New("blank exclude keyword")
		}
	}

	if _, err := c.transactionType(); err != nil {
		return err
	}

	if c.Priority != nil && *c.Priority < 1 {
		return fmt.Errorf("priority must be at least 1, got %d", *c.Priority)
	}

	if r := c.AmountRange; r != nil {
		if r.Min != nil && r.Min.IsNegative() {
			return errors.New("amount_range.min must not be negative")
		}
		if r.Max != nil && r.Max.IsNegative() {
			return errors.New("amount_range.max must not be negative")
		}
		if r.Min != nil && r.Max != nil && r.Min.GreaterThan(*r.Max) {
			return fmt.Errorf("amount_range.min %s is greater than max %s", r.Min, r.Max)
		}
	}
	return nil
}

func (c CategoryRule) transactionType() (model.TransactionType, error) {
	raw := strings.ToUpper(strings.TrimSpace(c.TransactionType))
	if raw == "" {
		return model.TypeAll, nil
	}
	t := model.TransactionType(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown transaction_type %q", c.TransactionType)
	}
	return t, nil
}

// Rules converts one tenant's categories to rules, one per category.
// IDs are left for the rule store to assign.
func (t TenantRules) Rules() []model.Rule {
	rules := make([]model.Rule, 0, len(t.Categories))
	for _, cat := range t.Categories {
		txnType, _ := cat.transactionType()

		priority := DefaultPriority
		if cat.Priority != nil {
			priority = *cat.Priority
		}

		keywords := make([]model.Keyword, 0, len(cat.Keywords)+len(cat.ExcludeKeywords))
		for _, kw := range cat.Keywords {
			keywords = append(keywords, model.Keyword{Text: strings.TrimSpace(kw), Kind: model.KeywordInclude})
		}
		for _, kw := range cat.ExcludeKeywords {
			keywords = append(keywords, model.Keyword{Text: strings.TrimSpace(kw), Kind: model.KeywordExclude})
		}

		rule := model.Rule{
			TenantID:        strings.TrimSpace(t.TenantID),
			CategoryName:    strings.TrimSpace(cat.Name),
			TransactionType: txnType,
			Priority:        priority,
			IsActive:        true,
			Keywords:        keywords,
		}
		if cat.AmountRange != nil {
			rule.MinAmount = cat.AmountRange.Min
			rule.MaxAmount = cat.AmountRange.Max
		}
		rules = append(rules, rule)
	}
	return rules
}
