package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/events"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

const (
	statisticsKey  = "statistics"
	publishTimeout = 5 * time.Second
)

// ExpenseService validates requests, applies them to the store, keeps the
// statistics cache coherent and publishes change events.
type ExpenseService struct {
	store      storage.ExpenseStore
	publisher  events.Publisher
	statsCache *cache.LRUCache[core.Statistics]
	logger     *applog.Logger
}

// NewExpenseService wires the service. publisher and statsCache may be nil.
func NewExpenseService(store storage.ExpenseStore, publisher events.Publisher, statsCache *cache.LRUCache[core.Statistics], logger *applog.Logger) *ExpenseService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExpenseService{
		store:      store,
		publisher:  publisher,
		statsCache: statsCache,
		logger:     logger.WithComponent(applog.ComponentExpense),
	}
}

// ListExpenses returns one page of expenses matching filter.
func (s *ExpenseService) ListExpenses(ctx context.Context, filter core.Filter) (core.ExpensePage, error) {
	q, err := core.ValidateFilter(filter)
	if err != nil {
		return core.ExpensePage{}, err
	}
	page, err := s.store.List(ctx, q)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	return page, nil
}

// GetExpense returns a single expense.
func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// CreateExpense validates and stores a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error) {
	ne, err := core.ValidateCreate(in)
	if err != nil {
		s.logValidation(ctx, applog.OpCreate, err)
		return core.Expense{}, err
	}

	e, err := s.store.Create(ctx, ne)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.invalidateStatistics()
	s.publish(ctx, events.New(events.ExpenseCreated, e))
	return e, nil
}

// UpdateExpense applies a partial update and returns the full record.
func (s *ExpenseService) UpdateExpense(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error) {
	patch, err := core.ValidateUpdate(in)
	if err != nil {
		s.logValidation(ctx, applog.OpUpdate, err)
		return core.Expense{}, err
	}

	e, err := s.store.Update(ctx, in.ID, patch)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.invalidateStatistics()
	s.publish(ctx, events.New(events.ExpenseUpdated, e))
	return e, nil
}

// RemoveExpense hard deletes an expense.
func (s *ExpenseService) RemoveExpense(ctx context.Context, id string) (bool, error) {
	if err := core.ValidateID(id); err != nil {
		return false, err
	}

	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}

	s.invalidateStatistics()
	s.publish(ctx, events.Deleted(id))
	return ok, nil
}

// Statistics returns aggregates over all expenses, served from cache when fresh.
func (s *ExpenseService) Statistics(ctx context.Context) (core.Statistics, error) {
	var gen uint64
	if s.statsCache != nil {
		if stats, ok := s.statsCache.Get(statisticsKey); ok {
			return stats, nil
		}
		gen = s.statsCache.Generation()
	}

	stats, err := s.store.Statistics(ctx)
	if err != nil {
		return core.Statistics{}, fmt.Errorf("compute statistics: %w", err)
	}

	if s.statsCache != nil {
		s.statsCache.SetIfGeneration(statisticsKey, stats, gen)
	}
	return stats, nil
}

// Ping reports whether the store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ExpenseService) invalidateStatistics() {
	if s.statsCache != nil {
		s.statsCache.Purge()
	}
}

// publish delivers e on a detached context so a finished request does not
// cancel delivery; failures are logged only.
func (s *ExpenseService) publish(ctx context.Context, e events.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish expense event",
			applog.NewFields().
				WithOperation(applog.OpPublish).
				WithExpense(e.ID, "", "", "").
				WithError(err, applog.ErrorTypeNetwork).
				ToSlice()...)
	}
}

func (s *ExpenseService) logValidation(ctx context.Context, op string, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		s.logger.LogFields(ctx, slog.LevelDebug, "Rejected invalid expense input",
			applog.NewFields().
				WithOperation(op).
				WithError(err, applog.ErrorTypeValidation))
	}
}

// Close releases the store and the publisher.
func (s *ExpenseService) Close() error {
	var result *multierror.Error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("publisher: %w", err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("store: %w", err))
		}
	}

	return result.ErrorOrNil()
}
