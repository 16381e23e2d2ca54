package services

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

//go:embed seed/expenses.yaml
var defaultSeed []byte

type seedFile struct {
	Expenses []seedExpense `yaml:"expenses"`
}

type seedExpense struct {
	Title       string `yaml:"title"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

// LoadSeedExpenses reads sample expenses from path, or the embedded set when
// path is empty. Every entry goes through the same validation as a create.
func LoadSeedExpenses(path string) ([]core.NewExpense, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}
	return ParseSeedExpenses(data)
}

// ParseSeedExpenses decodes a YAML seed document.
func ParseSeedExpenses(data []byte) ([]core.NewExpense, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	out := make([]core.NewExpense, 0, len(f.Expenses))
	for i, se := range f.Expenses {
		amount, err := core.ParseMoney(se.Amount)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, se.Title, err)
		}
		value := amount.Float64()
		ne, err := core.ValidateCreate(core.CreateExpenseInput{
			Title:       se.Title,
			Amount:      &value,
			Category:    &se.Category,
			Description: &se.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, se.Title, err)
		}
		out = append(out, ne)
	}
	return out, nil
}

// SeedIfEmpty inserts expenses only when the store has no rows. It returns
// the number of inserted rows.
func SeedIfEmpty(ctx context.Context, store storage.Maintainer, expenses []core.NewExpense, logger *applog.Logger) (int, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	if count > 0 {
		logger.DebugContext(ctx, "Store already has data, skipping seed", applog.FieldCount, count)
		return 0, nil
	}

	n, err := store.InsertMany(ctx, expenses)
	if err != nil {
		return 0, fmt.Errorf("seed expenses: %w", err)
	}
	logger.InfoContext(ctx, "Seeded sample expenses", applog.FieldOperation, applog.OpSeed, applog.FieldCount, n)
	return n, nil
}

// RepairNullTitles gives every row without a title a placeholder derived
// from its id. It returns the number of repaired rows.
func RepairNullTitles(ctx context.Context, store storage.Maintainer, logger *applog.Logger) (int, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	ids, err := store.NullTitleIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("find untitled expenses: %w", err)
	}

	repaired := 0
	for _, id := range ids {
		if err := store.SetTitle(ctx, id, core.RepairedTitle(id)); err != nil {
			return repaired, fmt.Errorf("repair title of %s: %w", id, err)
		}
		repaired++
	}
	if repaired > 0 {
		logger.InfoContext(ctx, "Repaired expenses without title", applog.FieldOperation, applog.OpRepair, applog.FieldCount, repaired)
	}
	return repaired, nil
}

// MaintenanceOptions controls startup maintenance.
type MaintenanceOptions struct {
	Seed     bool
	SeedFile string
}

// RunStartupMaintenance seeds an empty store and repairs untitled rows.
// Failures are logged and never abort startup.
func RunStartupMaintenance(ctx context.Context, store storage.Maintainer, opts MaintenanceOptions, logger *applog.Logger) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentMaintenance)

	if opts.Seed {
		expenses, err := LoadSeedExpenses(opts.SeedFile)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load seed data", applog.FieldError, err, "seed_file", opts.SeedFile)
		} else if _, err := SeedIfEmpty(ctx, store, expenses, logger); err != nil {
			logger.ErrorContext(ctx, "Failed to seed database", applog.FieldError, err)
		}
	}

	if _, err := RepairNullTitles(ctx, store, logger); err != nil {
		logger.ErrorContext(ctx, "Failed to repair expense titles", applog.FieldError, err)
	}
}
