package gql

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

type resolver struct {
	api        ExpenseAPI
	production bool
	logger     *applog.Logger
	now        func() time.Time
}

func newResolver(api ExpenseAPI, opts Options) *resolver {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &resolver{
		api:        api,
		production: opts.Production,
		logger:     logger.WithComponent(applog.ComponentGraphQL),
		now:        now,
	}
}

// fail converts err for the client and logs it; internal errors at error
// level, client mistakes at debug.
func (r *resolver) fail(ctx context.Context, op string, err error) error {
	out := present(err, r.production, r.now())

	logger := applog.FromContextOr(ctx, r.logger).WithComponent(applog.ComponentGraphQL)
	fields := applog.NewFields().WithOperation(op)
	switch out.code {
	case CodeInternal:
		logger.ErrorContext(ctx, "Resolver failed", fields.WithError(err, applog.ErrorTypeInternal).ToSlice()...)
	case CodeNotFound:
		logger.DebugContext(ctx, "Expense not found", fields.WithError(err, applog.ErrorTypeNotFound).ToSlice()...)
	default:
		logger.DebugContext(ctx, "Rejected request", fields.WithError(err, applog.ErrorTypeValidation).ToSlice()...)
	}
	return out
}

func (r *resolver) expenses(p graphql.ResolveParams) (interface{}, error) {
	filter, _ := p.Args["filter"].(map[string]interface{})
	page, err := r.api.ListExpenses(p.Context, filterFromArgs(filter))
	if err != nil {
		return nil, r.fail(p.Context, applog.OpList, err)
	}
	return page, nil
}

func (r *resolver) expense(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	e, err := r.api.GetExpense(p.Context, id)
	if err != nil {
		return nil, r.fail(p.Context, applog.OpRead, err)
	}
	return e, nil
}

func (r *resolver) statistics(p graphql.ResolveParams) (interface{}, error) {
	stats, err := r.api.Statistics(p.Context)
	if err != nil {
		return nil, r.fail(p.Context, applog.OpStatistics, err)
	}
	return stats, nil
}

func (r *resolver) createExpense(p graphql.ResolveParams) (interface{}, error) {
	in, _ := p.Args["createExpenseInput"].(map[string]interface{})
	e, err := r.api.CreateExpense(p.Context, core.CreateExpenseInput{
		Title:       stringValue(in, "title"),
		Amount:      floatArg(in, "amount"),
		Category:    stringArg(in, "category"),
		Description: stringArg(in, "description"),
	})
	if err != nil {
		return nil, r.fail(p.Context, applog.OpCreate, err)
	}
	return e, nil
}

func (r *resolver) updateExpense(p graphql.ResolveParams) (interface{}, error) {
	in, _ := p.Args["updateExpenseInput"].(map[string]interface{})
	e, err := r.api.UpdateExpense(p.Context, core.UpdateExpenseInput{
		ID:          stringValue(in, "id"),
		Title:       stringArg(in, "title"),
		Amount:      floatArg(in, "amount"),
		Category:    clearableStringArg(in, "category"),
		Description: clearableStringArg(in, "description"),
	})
	if err != nil {
		return nil, r.fail(p.Context, applog.OpUpdate, err)
	}
	return e, nil
}

func (r *resolver) removeExpense(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	ok, err := r.api.RemoveExpense(p.Context, id)
	if err != nil {
		return nil, r.fail(p.Context, applog.OpDelete, err)
	}
	return ok, nil
}

func filterFromArgs(m map[string]interface{}) core.Filter {
	return core.Filter{
		Title:     stringValue(m, "title"),
		Category:  stringValue(m, "category"),
		MinAmount: floatArg(m, "minAmount"),
		MaxAmount: floatArg(m, "maxAmount"),
		StartDate: stringValue(m, "startDate"),
		EndDate:   stringValue(m, "endDate"),
		OrderBy:   stringValue(m, "orderBy"),
		Order:     stringValue(m, "order"),
		Limit:     intArg(m, "limit"),
		Offset:    intArg(m, "offset"),
	}
}

func stringArg(m map[string]interface{}, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

// clearableStringArg maps an explicit null to the empty string, which an
// update reads as "clear this field". An absent key stays nil.
func clearableStringArg(m map[string]interface{}, key string) *string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if v == nil {
		return core.StringPtr("")
	}
	return stringArg(m, key)
}

func stringValue(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatArg(m map[string]interface{}, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func intArg(m map[string]interface{}, key string) *int {
	switch v := m[key].(type) {
	case int:
		return &v
	case float64:
		i := int(v)
		return &i
	}
	return nil
}
