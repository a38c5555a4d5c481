package engine

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

var errStoreDown = errors.New("store unavailable")

// fakeRuleStore serves rules from memory and counts fetches.
type fakeRuleStore struct {
	err       error
	onFetch   func()
	rules     map[string][]model.Rule
	gate      chan struct{}
	calls     map[string]int
	mu        sync.Mutex
	panicking bool
}

func newFakeRuleStore(rules ...model.Rule) *fakeRuleStore {
	s := &fakeRuleStore{
		rules: make(map[string][]model.Rule),
		calls: make(map[string]int),
	}
	for _, r := range rules {
		s.rules[r.TenantID] = append(s.rules[r.TenantID], r)
	}
	return s
}

func (s *fakeRuleStore) GetActiveRules(_ context.Context, tenantID string) ([]model.Rule, error) {
	if err := s.fetch(tenantID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Rule(nil), s.rules[tenantID]...), nil
}

func (s *fakeRuleStore) GetAllActiveRules(_ context.Context) ([]model.Rule, error) {
	if err := s.fetch(AllTenantsKey); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []model.Rule
	for _, tenant := range slices.Sorted(maps.Keys(s.rules)) {
		all = append(all, s.rules[tenant]...)
	}
	return all, nil
}

func (s *fakeRuleStore) fetch(key string) error {
	s.mu.Lock()
	s.calls[key]++
	gate, hook, err, panicking := s.gate, s.onFetch, s.err, s.panicking
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if hook != nil {
		hook()
	}
	if panicking {
		panic("rule store exploded")
	}
	return err
}

func (s *fakeRuleStore) callCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *fakeRuleStore) setRules(tenantID string, rules ...model.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[tenantID] = rules
}

// ReplaceTenantRules and SetRuleActive make the fake a RuleWriter too.
func (s *fakeRuleStore) ReplaceTenantRules(_ context.Context, tenantID string, rules []model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for i := range rules {
		rules[i].ID = tenantID + "-" + rules[i].CategoryName
		rules[i].CategoryID = "cat-" + rules[i].CategoryName
	}
	s.rules[tenantID] = append([]model.Rule(nil), rules...)
	return nil
}

func (s *fakeRuleStore) SetRuleActive(_ context.Context, tenantID, ruleID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for i, r := range s.rules[tenantID] {
		if r.ID == ruleID {
			s.rules[tenantID][i].IsActive = active
			return nil
		}
	}
	return errors.New("rule not found")
}

// fakeTransactionStore records saved groups and can fail on chosen calls.
type fakeTransactionStore struct {
	saveErrs    map[int]error
	assignErr   error
	unassigned  []model.Record
	saved       [][]model.Record
	assigned    []model.Assignment
	saveCalls   int
	loadedLimit int
	mu          sync.Mutex
}

func (s *fakeTransactionStore) SaveTransactions(_ context.Context, records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveCalls++
	if err := s.saveErrs[s.saveCalls]; err != nil {
		return err
	}
	s.saved = append(s.saved, append([]model.Record(nil), records...))
	return nil
}

func (s *fakeTransactionStore) GetUnassignedTransactions(_ context.Context, limit int) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadedLimit = limit
	if len(s.unassigned) > limit {
		return s.unassigned[:limit], nil
	}
	return s.unassigned, nil
}

func (s *fakeTransactionStore) AssignTransactions(_ context.Context, assignments []model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assignErr != nil {
		return s.assignErr
	}
	s.assigned = append(s.assigned, assignments...)
	return nil
}

func (s *fakeTransactionStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, group := range s.saved {
		n += len(group)
	}
	return n
}

// recordingProgress keeps every progress call in order.
type recordingProgress struct {
	events []string
	mu     sync.Mutex
}

func (p *recordingProgress) Start(total int)       { p.add("start", total) }
func (p *recordingProgress) Advance(processed int) { p.add("advance", processed) }
func (p *recordingProgress) Finish()               { p.add("finish", -1) }

func (p *recordingProgress) add(kind string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n >= 0 {
		kind = kind + ":" + strconv.Itoa(n)
	}
	p.events = append(p.events, kind)
}

// recordingMetrics counts observations.
type recordingMetrics struct {
	classified   int
	unclassified int
	batches      []int
	hits         int
	misses       int
	mu           sync.Mutex
}

func (m *recordingMetrics) ObserveClassification(result model.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.IsClassified {
		m.classified++
	} else {
		m.unclassified++
	}
}

func (m *recordingMetrics) ObserveBatch(_ time.Duration, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, total)
}

func (m *recordingMetrics) ObserveCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newRule builds an active ALL rule with INCLUDE keywords.
func newRule(id, tenantID, category string, priority int, include ...string) model.Rule {
	rule := model.Rule{
		ID:              id,
		TenantID:        tenantID,
		CategoryID:      "cat-" + category,
		CategoryName:    category,
		TransactionType: model.TypeAll,
		Priority:        priority,
		IsActive:        true,
	}
	for _, kw := range include {
		rule.Keywords = append(rule.Keywords, model.Keyword{Text: kw, Kind: model.KeywordInclude})
	}
	return rule
}

func withExclude(rule model.Rule, exclude ...string) model.Rule {
	for _, kw := range exclude {
		rule.Keywords = append(rule.Keywords, model.Keyword{Text: kw, Kind: model.KeywordExclude})
	}
	return rule
}

func withRange(rule model.Rule, minAmount, maxAmount *int64) model.Rule {
	if minAmount != nil {
		d := decimal.NewFromInt(*minAmount)
		rule.MinAmount = &d
	}
	if maxAmount != nil {
		d := decimal.NewFromInt(*maxAmount)
		rule.MaxAmount = &d
	}
	return rule
}

func ptr[T any](v T) *T { return &v }

func withdrawal(description string, amount int64) model.Transaction {
	return model.Transaction{
		Date:             time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Description:      description,
		WithdrawalAmount: decimal.NewFromInt(amount),
	}
}

func deposit(description string, amount int64) model.Transaction {
	return model.Transaction{
		Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Description:   description,
		DepositAmount: decimal.NewFromInt(amount),
	}
}
