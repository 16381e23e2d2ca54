package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/storage/memory"
)

func TestLoadSeedExpensesEmbedded(t *testing.T) {
	expenses, err := LoadSeedExpenses("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(expenses) != 12 {
		t.Fatalf("expected 12 sample expenses, got %d", len(expenses))
	}
	first := expenses[0]
	if first.Title != "Grocery Shopping" || first.Amount.Cents != 12550 || core.StringValue(first.Category) != "Food" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if core.StringValue(expenses[7].Category) != "Health & Fitness" {
		t.Fatalf("category with ampersand: %q", core.StringValue(expenses[7].Category))
	}
}

func TestLoadSeedExpensesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := "expenses:\n  - title: Rent\n    amount: \"900\"\n    category: Housing\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	expenses, err := LoadSeedExpenses(path)
	if err != nil || len(expenses) != 1 || expenses[0].Amount.Cents != 90000 || expenses[0].Description != nil {
		t.Fatalf("load: %+v %v", expenses, err)
	}

	if _, err := LoadSeedExpenses(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseSeedExpensesRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad amount":  "expenses:\n  - title: X\n    amount: abc\n",
		"zero amount": "expenses:\n  - title: X\n    amount: \"0\"\n",
		"no title":    "expenses:\n  - amount: \"1\"\n",
		"bad yaml":    "expenses: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSeedExpenses([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSeedIfEmpty(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	expenses, _ := LoadSeedExpenses("")

	n, err := SeedIfEmpty(ctx, store, expenses, nil)
	if err != nil || n != 12 {
		t.Fatalf("seed: %d %v", n, err)
	}

	n, err = SeedIfEmpty(ctx, store, expenses, nil)
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op: %d %v", n, err)
	}
	if c, _ := store.Count(ctx); c != 12 {
		t.Fatalf("count = %d", c)
	}
}

func TestRunStartupMaintenance(t *testing.T) {
	legacyID := "0f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
	store := memory.NewWithRecords([]memory.Record{{ID: legacyID, CreatedAt: time.Now()}})
	ctx := context.Background()

	RunStartupMaintenance(ctx, store, MaintenanceOptions{Seed: true}, nil)

	// The store was not empty, so nothing is seeded, but the title is repaired.
	if c, _ := store.Count(ctx); c != 1 {
		t.Fatalf("count = %d", c)
	}
	if ids, _ := store.NullTitleIDs(ctx); len(ids) != 0 {
		t.Fatalf("untitled rows left: %v", ids)
	}
	e, err := store.Get(ctx, legacyID)
	if err != nil || e.Title != "Untitled Expense (ID: 0f8e7d6c)" {
		t.Fatalf("repaired title: %+v %v", e, err)
	}

	// Idempotent.
	n, err := RepairNullTitles(ctx, store, nil)
	if err != nil || n != 0 {
		t.Fatalf("second repair: %d %v", n, err)
	}
}

func TestRunStartupMaintenanceSeedsEmptyStore(t *testing.T) {
	store := memory.New()
	RunStartupMaintenance(context.Background(), store, MaintenanceOptions{Seed: true}, nil)
	if c, _ := store.Count(context.Background()); c != 12 {
		t.Fatalf("count = %d", c)
	}

	disabled := memory.New()
	RunStartupMaintenance(context.Background(), disabled, MaintenanceOptions{Seed: false}, nil)
	if c, _ := disabled.Count(context.Background()); c != 0 {
		t.Fatalf("seeding disabled but count = %d", c)
	}

	broken := memory.New()
	RunStartupMaintenance(context.Background(), broken, MaintenanceOptions{Seed: true, SeedFile: "/nonexistent/seed.yaml"}, nil)
	if c, _ := broken.Count(context.Background()); c != 0 {
		t.Fatalf("unreadable seed file must not insert rows")
	}
}
