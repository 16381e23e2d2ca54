// Package gql exposes the expense service as a GraphQL API.
package gql

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// ExpenseAPI is the application surface the resolvers call.
type ExpenseAPI interface {
	ListExpenses(ctx context.Context, filter core.Filter) (core.ExpensePage, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error)
	RemoveExpense(ctx context.Context, id string) (bool, error)
	Statistics(ctx context.Context) (core.Statistics, error)
}

// Options tunes error presentation and logging.
type Options struct {
	Production bool
	Logger     *applog.Logger
	Now        func() time.Time
}

func expenseResolver(fn func(core.Expense) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		e, ok := p.Source.(core.Expense)
		if !ok {
			return nil, nil
		}
		return fn(e), nil
	}
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

var expenseType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Expense",
	Description: "A single recorded expense",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.ID),
			Resolve: expenseResolver(func(e core.Expense) interface{} { return e.ID }),
		},
		"title": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.String),
			Resolve: expenseResolver(func(e core.Expense) interface{} { return e.Title }),
		},
		"amount": &graphql.Field{
			Type: graphql.Float,
			Resolve: expenseResolver(func(e core.Expense) interface{} {
				if e.Amount == nil {
					return nil
				}
				return e.Amount.Float64()
			}),
		},
		"category": &graphql.Field{
			Type:    graphql.String,
			Resolve: expenseResolver(func(e core.Expense) interface{} { return optionalString(e.Category) }),
		},
		"description": &graphql.Field{
			Type:    graphql.String,
			Resolve: expenseResolver(func(e core.Expense) interface{} { return optionalString(e.Description) }),
		},
		"createdAt": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.DateTime),
			Resolve: expenseResolver(func(e core.Expense) interface{} { return e.CreatedAt }),
		},
	},
})

var paginatedExpensesType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PaginatedExpenses",
	Fields: graphql.Fields{
		"expenses": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(expenseType))),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(core.ExpensePage).Items, nil
			},
		},
		"total": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(core.ExpensePage).Total, nil
			},
		},
	},
})

var categoryBreakdownType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CategoryBreakdown",
	Fields: graphql.Fields{
		"category": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(core.CategoryBreakdown).Category, nil
			},
		},
		"count": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(core.CategoryBreakdown).Count, nil
			},
		},
		"totalAmount": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Float),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(core.CategoryBreakdown).TotalAmount.Float64(), nil
			},
		},
	},
})

func statisticsField(t graphql.Output, fn func(core.Statistics) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(t),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return fn(p.Source.(core.Statistics)), nil
		},
	}
}

var statisticsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ExpenseStatistics",
	Fields: graphql.Fields{
		"totalCount": statisticsField(graphql.Int, func(s core.Statistics) interface{} { return s.TotalCount }),
		// Older clients query the count under this name.
		"totalExpenses": statisticsField(graphql.Int, func(s core.Statistics) interface{} { return s.TotalCount }),
		"totalAmount":   statisticsField(graphql.Float, func(s core.Statistics) interface{} { return s.TotalAmount.Float64() }),
		"avgAmount":     statisticsField(graphql.Float, func(s core.Statistics) interface{} { return s.AvgFloat64() }),
		"categoryBreakdown": statisticsField(
			graphql.NewList(graphql.NewNonNull(categoryBreakdownType)),
			func(s core.Statistics) interface{} { return s.CategoryBreakdown },
		),
	},
})

var filterInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ExpenseFilterInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"title":     &graphql.InputObjectFieldConfig{Type: graphql.String, Description: "Case-insensitive substring of the title"},
		"category":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		"minAmount": &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"maxAmount": &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"startDate": &graphql.InputObjectFieldConfig{Type: graphql.String, Description: "RFC 3339 timestamp or YYYY-MM-DD"},
		"endDate":   &graphql.InputObjectFieldConfig{Type: graphql.String, Description: "RFC 3339 timestamp or YYYY-MM-DD (whole day)"},
		"orderBy":   &graphql.InputObjectFieldConfig{Type: graphql.String, DefaultValue: string(core.SortByCreatedAt)},
		"order":     &graphql.InputObjectFieldConfig{Type: graphql.String, DefaultValue: core.OrderDesc},
		"limit":     &graphql.InputObjectFieldConfig{Type: graphql.Int, DefaultValue: core.DefaultLimit},
		"offset":    &graphql.InputObjectFieldConfig{Type: graphql.Int, DefaultValue: 0},
	},
})

var createInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CreateExpenseInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"title":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"amount":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		"category":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var updateInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UpdateExpenseInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"title":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"amount":      &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"category":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

// NewSchema builds the executable schema backed by api.
func NewSchema(api ExpenseAPI, opts Options) (graphql.Schema, error) {
	r := newResolver(api, opts)

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"expenses": &graphql.Field{
				Type:        graphql.NewNonNull(paginatedExpensesType),
				Description: "Filtered, sorted and paginated expenses",
				Args: graphql.FieldConfigArgument{
					"filter": &graphql.ArgumentConfig{Type: filterInputType},
				},
				Resolve: r.expenses,
			},
			"expense": &graphql.Field{
				Type:        graphql.NewNonNull(expenseType),
				Description: "A single expense by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.expense,
			},
			"expenseStatistics": &graphql.Field{
				Type:        graphql.NewNonNull(statisticsType),
				Description: "Totals, average and per-category breakdown",
				Resolve:     r.statistics,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createExpense": &graphql.Field{
				Type: graphql.NewNonNull(expenseType),
				Args: graphql.FieldConfigArgument{
					"createExpenseInput": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createInputType)},
				},
				Resolve: r.createExpense,
			},
			"updateExpense": &graphql.Field{
				Type: graphql.NewNonNull(expenseType),
				Args: graphql.FieldConfigArgument{
					"updateExpenseInput": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updateInputType)},
				},
				Resolve: r.updateExpense,
			},
			"removeExpense": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.removeExpense,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
