package core

import "github.com/shopspring/decimal"

// CategoryBreakdown aggregates the expenses of one category.
type CategoryBreakdown struct {
	Category    string
	Count       int
	TotalAmount Money
}

// Statistics summarizes every stored expense.
type Statistics struct {
	TotalCount        int
	TotalAmount       Money
	AvgAmount         decimal.Decimal
	CategoryBreakdown []CategoryBreakdown
}

// NewStatistics derives the average from count and total; it is 0 when
// there are no rows.
func NewStatistics(count int, total Money, breakdown []CategoryBreakdown) Statistics {
	avg := decimal.Zero
	if count > 0 {
		avg = total.Decimal().Div(decimal.NewFromInt(int64(count)))
	}
	if breakdown == nil {
		breakdown = []CategoryBreakdown{}
	}
	return Statistics{
		TotalCount:        count,
		TotalAmount:       total,
		AvgAmount:         avg,
		CategoryBreakdown: breakdown,
	}
}

// AvgFloat64 returns the average for JSON/GraphQL output.
func (s Statistics) AvgFloat64() float64 {
	return s.AvgAmount.InexactFloat64()
}
