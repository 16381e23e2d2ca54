package core

import (
	"strings"
	"time"
)

// SortField is a column a listing can be ordered by.
type SortField string

const (
	SortByTitle     SortField = "title"
	SortByAmount    SortField = "amount"
	SortByCategory  SortField = "category"
	SortByCreatedAt SortField = "createdAt"
)

// Valid reports whether f is one of the sortable fields.
func (f SortField) Valid() bool {
	switch f {
	case SortByTitle, SortByAmount, SortByCategory, SortByCreatedAt:
		return true
	}
	return false
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
	OrderAsc     = "ASC"
	OrderDesc    = "DESC"
)

// Filter is a listing request as received from a client. Empty strings and
// nil pointers mean "not set".
type Filter struct {
	Title     string
	Category  string
	MinAmount *float64
	MaxAmount *float64
	StartDate string
	EndDate   string
	OrderBy   string
	Order     string
	Limit     *int
	Offset    *int
}

// ListQuery is a validated listing request with every default resolved.
// Amount bounds are in cents; date bounds are inclusive.
type ListQuery struct {
	Title      string
	Category   string
	MinCents   *int64
	MaxCents   *int64
	From       *time.Time
	To         *time.Time
	OrderBy    SortField
	Descending bool
	Limit      int
	Offset     int
}

// DefaultListQuery returns the listing used when no filter is given:
// newest first, first 10 rows.
func DefaultListQuery() ListQuery {
	return ListQuery{
		OrderBy:    SortByCreatedAt,
		Descending: true,
		Limit:      DefaultLimit,
	}
}

// ParseDateBound parses an RFC 3339 timestamp or a YYYY-MM-DD date. A bare
// date used as an upper bound covers the whole day.
func ParseDateBound(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
