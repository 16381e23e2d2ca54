package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

// Record is the persisted shape of an expense. Unlike core.Expense its
// title may be nil, as it can be for rows imported from older databases.
type Record struct {
	ID          string
	Title       *string
	Amount      *core.Money
	Category    *string
	Description *string
	CreatedAt   time.Time
}

// Store is an in-memory ExpenseStore used for local runs and tests.
type Store struct {
	mu    sync.RWMutex
	items []Record
	now   func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithRecords creates a store preloaded with records.
func NewWithRecords(records []Record) *Store {
	s := New()
	s.items = append(s.items, records...)
	return s
}

// WithClock replaces the time source used for createdAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (r Record) toExpense() core.Expense {
	e := core.Expense{
		ID:          r.ID,
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
	if r.Title != nil {
		e.Title = *r.Title
	} else {
		e.Title = core.RepairedTitle(r.ID)
	}
	return e
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// List implements storage.ExpenseReader
func (s *Store) List(_ context.Context, q core.ListQuery) (core.ExpensePage, error) {
	less, err := comparator(q)
	if err != nil {
		return core.ExpensePage{}, err
	}

	s.mu.RLock()
	matched := make([]Record, 0, len(s.items))
	for _, r := range s.items {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)

	items := make([]core.Expense, 0, end-start)
	for _, r := range matched[start:end] {
		items = append(items, r.toExpense())
	}
	return core.ExpensePage{Items: items, Total: total}, nil
}

func matches(r Record, q core.ListQuery) bool {
	if q.Title != "" {
		if r.Title == nil || !strings.Contains(strings.ToLower(*r.Title), strings.ToLower(q.Title)) {
			return false
		}
	}
	if q.Category != "" && (r.Category == nil || *r.Category != q.Category) {
		return false
	}
	if q.MinCents != nil && (r.Amount == nil || r.Amount.Cents < *q.MinCents) {
		return false
	}
	if q.MaxCents != nil && (r.Amount == nil || r.Amount.Cents > *q.MaxCents) {
		return false
	}
	if q.From != nil && r.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && r.CreatedAt.After(*q.To) {
		return false
	}
	return true
}

// comparator mirrors the SQL ordering: nulls sort lowest, ties broken by id ascending.
func comparator(q core.ListQuery) (func(a, b Record) bool, error) {
	var cmp func(a, b Record) int
	switch q.OrderBy {
	case core.SortByTitle:
		cmp = func(a, b Record) int { return compareStrings(a.Title, b.Title) }
	case core.SortByCategory:
		cmp = func(a, b Record) int { return compareStrings(a.Category, b.Category) }
	case core.SortByAmount:
		cmp = func(a, b Record) int {
			switch {
			case a.Amount == nil && b.Amount == nil:
				return 0
			case a.Amount == nil:
				return -1
			case b.Amount == nil:
				return 1
			}
			return compareInt64(a.Amount.Cents, b.Amount.Cents)
		}
	case core.SortByCreatedAt:
		cmp = func(a, b Record) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return nil, &core.InvalidArgumentError{Field: "orderBy", Message: "Invalid orderBy field: " + string(q.OrderBy)}
	}

	return func(a, b Record) bool {
		c := cmp(a, b)
		if q.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	}, nil
}

func compareStrings(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Get implements storage.ExpenseReader
func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	return s.items[i].toExpense(), nil
}

// Statistics implements storage.ExpenseReader
func (s *Store) Statistics(_ context.Context) (core.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total core.Money
	byCategory := map[string]*core.CategoryBreakdown{}
	for _, r := range s.items {
		if r.Amount != nil {
			total = total.Add(*r.Amount)
		}
		if r.Category == nil {
			continue
		}
		cb, ok := byCategory[*r.Category]
		if !ok {
			cb = &core.CategoryBreakdown{Category: *r.Category}
			byCategory[*r.Category] = cb
		}
		cb.Count++
		if r.Amount != nil {
			cb.TotalAmount = cb.TotalAmount.Add(*r.Amount)
		}
	}

	breakdown := make([]core.CategoryBreakdown, 0, len(byCategory))
	for _, cb := range byCategory {
		breakdown = append(breakdown, *cb)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Category < breakdown[j].Category })

	return core.NewStatistics(len(s.items), total, breakdown), nil
}

// Create implements storage.ExpenseWriter
func (s *Store) Create(_ context.Context, ne core.NewExpense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.newRecord(ne, 0)
	s.items = append(s.items, r)
	return r.toExpense(), nil
}

func (s *Store) newRecord(ne core.NewExpense, offset time.Duration) Record {
	title := ne.Title
	amount := ne.Amount
	return Record{
		ID:          uuid.NewString(),
		Title:       &title,
		Amount:      &amount,
		Category:    copyString(ne.Category),
		Description: copyString(ne.Description),
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond).Add(offset),
	}
}

// Update implements storage.ExpenseWriter
func (s *Store) Update(_ context.Context, id string, p core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	r := &s.items[i]
	if p.Title != nil {
		r.Title = copyString(p.Title)
	}
	if p.Amount != nil {
		amount := *p.Amount
		r.Amount = &amount
	}
	if p.Category != nil {
		r.Category = copyString(p.Category)
	} else if p.ClearCategory {
		r.Category = nil
	}
	if p.Description != nil {
		r.Description = copyString(p.Description)
	} else if p.ClearDescription {
		r.Description = nil
	}
	return r.toExpense(), nil
}

// Delete implements storage.ExpenseWriter
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false, &core.NotFoundError{ID: id}
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

// Count implements storage.Maintainer
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// InsertMany implements storage.Maintainer
func (s *Store) InsertMany(_ context.Context, expenses []core.NewExpense) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ne := range expenses {
		s.items = append(s.items, s.newRecord(ne, time.Duration(i)*time.Microsecond))
	}
	return len(expenses), nil
}

// NullTitleIDs implements storage.Maintainer
func (s *Store) NullTitleIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, r := range s.items {
		if r.Title == nil {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SetTitle implements storage.Maintainer
func (s *Store) SetTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return &core.NotFoundError{ID: id}
	}
	s.items[i].Title = &title
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
