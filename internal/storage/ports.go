package storage

import (
	"context"

	"expensetracker/internal/core"
)

// Ports implemented by every expense store.
type (
	// ExpenseReader serves listings, single records and aggregates.
	ExpenseReader interface {
		List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error)
		Get(ctx context.Context, id string) (core.Expense, error)
		Statistics(ctx context.Context) (core.Statistics, error)
	}

	// ExpenseWriter mutates expenses. Update and Delete return a
	// *core.NotFoundError when id does not exist.
	ExpenseWriter interface {
		Create(ctx context.Context, e core.NewExpense) (core.Expense, error)
		Update(ctx context.Context, id string, p core.ExpensePatch) (core.Expense, error)
		Delete(ctx context.Context, id string) (bool, error)
	}

	// Maintainer is used by the startup seeder and title repair.
	Maintainer interface {
		Count(ctx context.Context) (int, error)
		InsertMany(ctx context.Context, expenses []core.NewExpense) (int, error)
		NullTitleIDs(ctx context.Context) ([]string, error)
		SetTitle(ctx context.Context, id, title string) error
	}

	// ExpenseStore is the full persistence port.
	ExpenseStore interface {
		ExpenseReader
		ExpenseWriter
		Maintainer
		Ping(ctx context.Context) error
		Close() error
	}
)
