package store

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paisa/internal/models"
	"paisa/internal/validator"
)

// Summary holds the income/expense totals for a single calendar date.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Count   int             `json:"count"`
}

// CategoryTotal holds spending totals for one category over a date range.
type CategoryTotal struct {
	Category string          `json:"category"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Count    int             `json:"count"`
}

// Aggregator computes derived views from the store's current snapshot.
// Results are cached between mutations; every store mutation invalidates the
// cache, so no separately maintained counters can drift.
type Aggregator struct {
	store *Store

	mu        sync.Mutex
	summaries map[string]Summary
	balance   *decimal.Decimal
}

// NewAggregator creates an Aggregator bound to the store's mutation hook.
func NewAggregator(s *Store) *Aggregator {
	a := &Aggregator{store: s, summaries: make(map[string]Summary)}
	s.OnMutate(a.invalidate)
	return a
}

func (a *Aggregator) invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = make(map[string]Summary)
	a.balance = nil
}

// aggregable excludes tombstoned rows and quarantined rows from sums.
func aggregable(t models.Transaction) bool {
	return !t.Deleted && t.SyncStatus != models.SyncStatusConflict
}

// TodaySummary returns income/expense/count for the current local calendar date.
func (a *Aggregator) TodaySummary() (*Summary, error) {
	return a.SummaryFor(time.Now().Format(validator.DateLayout))
}

// SummaryFor returns income/expense/count for the given canonical date.
func (a *Aggregator) SummaryFor(date string) (*Summary, error) {
	a.mu.Lock()
	if cached, ok := a.summaries[date]; ok {
		a.mu.Unlock()
		return &cached, nil
	}
	a.mu.Unlock()

	transactions, err := a.store.GetAll(Filter{FromDate: &date, ToDate: &date})
	if err != nil {
		return nil, err
	}

	summary := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range transactions {
		if !aggregable(t) {
			continue
		}
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.Income = summary.Income.Add(t.Amount)
		case models.TransactionTypeExpense:
			summary.Expense = summary.Expense.Add(t.Amount)
		}
		summary.Count++
	}

	a.mu.Lock()
	a.summaries[date] = summary
	a.mu.Unlock()
	return &summary, nil
}

// Balance returns the signed running total over all non-deleted,
// non-quarantined transactions: income additive, expense subtractive.
func (a *Aggregator) Balance() (decimal.Decimal, error) {
	a.mu.Lock()
	if a.balance != nil {
		cached := *a.balance
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	transactions, err := a.store.GetAll(Filter{})
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, t := range transactions {
		if !aggregable(t) {
			continue
		}
		switch t.Type {
		case models.TransactionTypeIncome:
			balance = balance.Add(t.Amount)
		case models.TransactionTypeExpense:
			balance = balance.Sub(t.Amount)
		}
	}

	a.mu.Lock()
	a.balance = &balance
	a.mu.Unlock()
	return balance, nil
}

// CategoryTotals groups non-deleted, non-quarantined transactions in
// [fromDate, toDate] by category. Uncategorized rows group under "".
func (a *Aggregator) CategoryTotals(fromDate, toDate string) ([]CategoryTotal, error) {
	filter := Filter{}
	if fromDate != "" {
		filter.FromDate = &fromDate
	}
	if toDate != "" {
		filter.ToDate = &toDate
	}
	transactions, err := a.store.GetAll(filter)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*CategoryTotal)
	var order []string
	for _, t := range transactions {
		if !aggregable(t) {
			continue
		}
		ct, ok := totals[t.Category]
		if !ok {
			ct = &CategoryTotal{Category: t.Category, Income: decimal.Zero, Expense: decimal.Zero}
			totals[t.Category] = ct
			order = append(order, t.Category)
		}
		switch t.Type {
		case models.TransactionTypeIncome:
			ct.Income = ct.Income.Add(t.Amount)
		case models.TransactionTypeExpense:
			ct.Expense = ct.Expense.Add(t.Amount)
		}
		ct.Count++
	}

	result := make([]CategoryTotal, 0, len(order))
	for _, category := range order {
		result = append(result, *totals[category])
	}
	return result, nil
}
