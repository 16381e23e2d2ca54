package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

// storeFactories runs the same service behaviour against every store.
var storeFactories = []struct {
	name string
	open func(t *testing.T) storage.ExpenseStore
}{
	{"memory", func(t *testing.T) storage.ExpenseStore { return memory.New() }},
	{"sqlite", func(t *testing.T) storage.ExpenseStore {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"), nil)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return repo
	}},
}

func TestExpenseServiceAmountRange(t *testing.T) {
	for _, sf := range storeFactories {
		t.Run(sf.name, func(t *testing.T) {
			svc := NewExpenseService(sf.open(t), nil, nil, nil)
			t.Cleanup(func() { svc.Close() })
			ctx := context.Background()

			for _, amount := range []float64{1e18, 9.3e16, 100000000} {
				_, err := svc.CreateExpense(ctx, core.CreateExpenseInput{Title: "Big", Amount: floatPtr(amount)})
				var verr *core.ValidationError
				if !errors.As(err, &verr) || len(verr.Violations) != 1 || verr.Violations[0].Field != "amount" {
					t.Fatalf("amount %v: expected amount violation, got %v", amount, err)
				}
				if verr.Violations[0].Message != "Amount must be at most 99999999.99" {
					t.Errorf("amount %v: message = %q", amount, verr.Violations[0].Message)
				}
			}

			largest, err := svc.CreateExpense(ctx, core.CreateExpenseInput{Title: "Largest", Amount: floatPtr(99999999.99)})
			if err != nil || largest.Amount.Cents != core.MaxAmount.Cents {
				t.Fatalf("largest amount: %+v %v", largest, err)
			}
			if _, err := svc.CreateExpense(ctx, core.CreateExpenseInput{Title: "Lunch", Amount: floatPtr(12)}); err != nil {
				t.Fatalf("create: %v", err)
			}

			page, err := svc.ListExpenses(ctx, core.Filter{MaxAmount: floatPtr(9.3e16)})
			if err != nil || page.Total != 2 {
				t.Fatalf("huge maxAmount: total = %d, err = %v, want 2", page.Total, err)
			}
			page, err = svc.ListExpenses(ctx, core.Filter{MinAmount: floatPtr(9.3e16)})
			if err != nil || page.Total != 0 {
				t.Fatalf("huge minAmount: total = %d, err = %v, want 0", page.Total, err)
			}
			page, err = svc.ListExpenses(ctx, core.Filter{MinAmount: floatPtr(12), MaxAmount: floatPtr(1e300)})
			if err != nil || page.Total != 2 {
				t.Fatalf("open-ended range: total = %d, err = %v, want 2", page.Total, err)
			}
		})
	}
}

func TestExpenseServiceUpdateClearsOptionalFields(t *testing.T) {
	for _, sf := range storeFactories {
		t.Run(sf.name, func(t *testing.T) {
			svc := NewExpenseService(sf.open(t), nil, nil, nil)
			t.Cleanup(func() { svc.Close() })
			ctx := context.Background()

			created, err := svc.CreateExpense(ctx, core.CreateExpenseInput{
				Title:       "Dinner",
				Amount:      floatPtr(30),
				Category:    core.StringPtr("Food"),
				Description: core.StringPtr("d"),
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			// Omitted fields stay as they are.
			kept, err := svc.UpdateExpense(ctx, core.UpdateExpenseInput{ID: created.ID, Title: core.StringPtr("Late dinner")})
			if err != nil || core.StringValue(kept.Category) != "Food" || core.StringValue(kept.Description) != "d" {
				t.Fatalf("title update touched optional fields: %+v %v", kept, err)
			}

			cleared, err := svc.UpdateExpense(ctx, core.UpdateExpenseInput{
				ID:          created.ID,
				Category:    core.StringPtr(""),
				Description: core.StringPtr("   "),
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if cleared.Category != nil || cleared.Description != nil {
				t.Fatalf("category = %v, description = %v, want both nil", cleared.Category, cleared.Description)
			}

			got, err := svc.GetExpense(ctx, created.ID)
			if err != nil || got.Category != nil || got.Description != nil || got.Title != "Late dinner" {
				t.Fatalf("stored record = %+v %v", got, err)
			}

			stats, err := svc.Statistics(ctx)
			if err != nil || len(stats.CategoryBreakdown) != 0 {
				t.Fatalf("cleared category still in breakdown: %+v %v", stats, err)
			}
		})
	}
}

func TestExpenseServiceTitleSearch(t *testing.T) {
	for _, sf := range storeFactories {
		t.Run(sf.name, func(t *testing.T) {
			svc := NewExpenseService(sf.open(t), nil, nil, nil)
			t.Cleanup(func() { svc.Close() })
			ctx := context.Background()

			for _, title := range []string{"Billing", "Electric Bill", "Café Über"} {
				if _, err := svc.CreateExpense(ctx, core.CreateExpenseInput{Title: title, Amount: floatPtr(5)}); err != nil {
					t.Fatalf("create %s: %v", title, err)
				}
			}

			tests := []struct {
				title string
				want  int
			}{
				{"bill", 2},
				{" Bill", 1},
				{"   ", 3},
				{"über", 1},
				{"CAFÉ", 1},
			}
			for _, tt := range tests {
				page, err := svc.ListExpenses(ctx, core.Filter{Title: tt.title})
				if err != nil || page.Total != tt.want {
					t.Errorf("title %q: total = %d, err = %v, want %d", tt.title, page.Total, err, tt.want)
				}
			}
		})
	}
}
