package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	// Deterministic clock: every call advances one minute.
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return repo
}

func mustCreate(t *testing.T, repo *Repository, title string, cents int64, category string) core.Expense {
	t.Helper()
	ne := core.NewExpense{Title: title, Amount: core.Money{Cents: cents}}
	if category != "" {
		ne.Category = core.StringPtr(category)
	}
	e, err := repo.Create(context.Background(), ne)
	if err != nil {
		t.Fatalf("create %s: %v", title, err)
	}
	return e
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, core.NewExpense{
		Title:       "Grocery Shopping",
		Amount:      core.Money{Cents: 12550},
		Category:    core.StringPtr("Food"),
		Description: core.StringPtr("Weekly groceries"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := core.ValidateID(created.ID); err != nil {
		t.Fatalf("generated id is not a uuid v4: %v", err)
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Grocery Shopping" || got.Amount.Cents != 12550 ||
		core.StringValue(got.Category) != "Food" || core.StringValue(got.Description) != "Weekly groceries" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt round trip: got %v want %v", got.CreatedAt, created.CreatedAt)
	}

	_, err = repo.Get(ctx, "2b1f7a52-0c4e-4d7a-9f3b-6e5d4c3b2a19")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryListFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	coffee := mustCreate(t, repo, "Morning Coffee", 350, "Food")
	mustCreate(t, repo, "Electricity Bill", 9520, "Utilities")
	dinner := mustCreate(t, repo, "Restaurant Dinner", 8675, "Food")
	mustCreate(t, repo, "Gym", 5000, "")

	cases := []struct {
		name  string
		query func(q *core.ListQuery)
		total int
	}{
		{"all", func(q *core.ListQuery) {}, 4},
		{"title substring case-insensitive", func(q *core.ListQuery) { q.Title = "COFFEE" }, 1},
		{"category", func(q *core.ListQuery) { q.Category = "Food" }, 2},
		{"min inclusive", func(q *core.ListQuery) { c := int64(8675); q.MinCents = &c }, 2},
		{"max inclusive", func(q *core.ListQuery) { c := int64(5000); q.MaxCents = &c }, 2},
		{"created range", func(q *core.ListQuery) { from, to := coffee.CreatedAt, dinner.CreatedAt; q.From, q.To = &from, &to }, 3},
		{"like wildcards are literal", func(q *core.ListQuery) { q.Title = "%" }, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := core.DefaultListQuery()
			tc.query(&q)
			page, err := repo.List(ctx, q)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.Total != tc.total || len(page.Items) != tc.total {
				t.Fatalf("total=%d items=%d, want %d", page.Total, len(page.Items), tc.total)
			}
		})
	}
}

func TestRepositoryListOrderAndPaging(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := mustCreate(t, repo, "B", 300, "x")
	second := mustCreate(t, repo, "A", 100, "y")
	third := mustCreate(t, repo, "C", 200, "z")

	page, err := repo.List(ctx, core.DefaultListQuery())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Items[0].ID != third.ID || page.Items[2].ID != first.ID {
		t.Fatalf("default order should be newest first")
	}

	q := core.DefaultListQuery()
	q.OrderBy = core.SortByAmount
	q.Descending = false
	q.Limit = 2
	page, err = repo.List(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != second.ID || page.Items[1].ID != third.ID {
		t.Fatalf("unexpected amount order: %s %s", page.Items[0].Title, page.Items[1].Title)
	}

	q.Offset = 2
	page, err = repo.List(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].ID != first.ID {
		t.Fatalf("unexpected last page: %+v", page)
	}

	q.Offset = 10
	page, err = repo.List(ctx, q)
	if err != nil || page.Total != 3 || len(page.Items) != 0 {
		t.Fatalf("offset past end: %+v %v", page, err)
	}

	q = core.DefaultListQuery()
	q.OrderBy = "price"
	if _, err := repo.List(ctx, q); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	e := mustCreate(t, repo, "Gas", 4530, "Transportation")

	amount := core.Money{Cents: 5000}
	updated, err := repo.Update(ctx, e.ID, core.ExpensePatch{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 5000 || updated.Title != "Gas" || core.StringValue(updated.Category) != "Transportation" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if !updated.CreatedAt.Equal(e.CreatedAt) || updated.ID != e.ID {
		t.Fatalf("id/createdAt changed")
	}

	same, err := repo.Update(ctx, e.ID, core.ExpensePatch{})
	if err != nil || same.Amount.Cents != 5000 {
		t.Fatalf("empty patch: %+v %v", same, err)
	}

	_, err = repo.Update(ctx, "2b1f7a52-0c4e-4d7a-9f3b-6e5d4c3b2a19", core.ExpensePatch{Amount: &amount})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	e := mustCreate(t, repo, "Netflix", 1499, "Entertainment")

	ok, err := repo.Delete(ctx, e.ID)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := repo.Get(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := repo.Delete(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryStatistics(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	stats, err := repo.Statistics(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalCount != 0 || stats.TotalAmount.Cents != 0 || !stats.AvgAmount.IsZero() || len(stats.CategoryBreakdown) != 0 {
		t.Fatalf("empty statistics: %+v", stats)
	}

	mustCreate(t, repo, "A", 1000, "Food")
	mustCreate(t, repo, "B", 2000, "Food")
	mustCreate(t, repo, "C", 3000, "Bills")
	mustCreate(t, repo, "D", 4000, "")

	stats, err = repo.Statistics(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalCount != 4 || stats.TotalAmount.Cents != 10000 {
		t.Fatalf("totals: %+v", stats)
	}
	if stats.AvgAmount.StringFixed(2) != "25.00" {
		t.Fatalf("avg = %s", stats.AvgAmount)
	}
	if len(stats.CategoryBreakdown) != 2 {
		t.Fatalf("breakdown should exclude null categories: %+v", stats.CategoryBreakdown)
	}
	bills, food := stats.CategoryBreakdown[0], stats.CategoryBreakdown[1]
	if bills.Category != "Bills" || bills.Count != 1 || bills.TotalAmount.Cents != 3000 {
		t.Fatalf("bills = %+v", bills)
	}
	if food.Category != "Food" || food.Count != 2 || food.TotalAmount.Cents != 3000 {
		t.Fatalf("food = %+v", food)
	}
}

func TestRepositoryMaintenance(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	n, err := repo.InsertMany(ctx, []core.NewExpense{
		{Title: "One", Amount: core.Money{Cents: 100}},
		{Title: "Two", Amount: core.Money{Cents: 200}},
	})
	if err != nil || n != 2 {
		t.Fatalf("insert many: %d %v", n, err)
	}

	legacyID := "0f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
	_, err = repo.db.ExecContext(ctx,
		"INSERT INTO expenses (id, title, amount_cents, created_at) VALUES (?, NULL, NULL, ?)",
		legacyID, sqliteDialect.timeArg(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 3 {
		t.Fatalf("count: %d %v", count, err)
	}

	legacy, err := repo.Get(ctx, legacyID)
	if err != nil {
		t.Fatalf("get legacy: %v", err)
	}
	if legacy.Title != "Untitled Expense (ID: 0f8e7d6c)" || legacy.Amount != nil {
		t.Fatalf("legacy row: %+v", legacy)
	}

	ids, err := repo.NullTitleIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != legacyID {
		t.Fatalf("null title ids: %v %v", ids, err)
	}
	if err := repo.SetTitle(ctx, legacyID, core.RepairedTitle(legacyID)); err != nil {
		t.Fatalf("set title: %v", err)
	}
	ids, err = repo.NullTitleIDs(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("null titles after repair: %v %v", ids, err)
	}

	stats, err := repo.Statistics(ctx)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalCount != 3 || stats.TotalAmount.Cents != 300 {
		t.Fatalf("null amounts count toward totalCount only: %+v", stats)
	}

	if err := repo.SetTitle(ctx, "2b1f7a52-0c4e-4d7a-9f3b-6e5d4c3b2a19", "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, err := repo.Create(context.Background(), core.NewExpense{Title: "Persisted", Amount: core.Money{Cents: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if _, err := repo.Get(context.Background(), e.ID); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}
