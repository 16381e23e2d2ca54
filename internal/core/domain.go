package core

import (
	"strings"
	"time"
)

// DefaultTitle is the storage default for a missing title.
const DefaultTitle = "Untitled Expense"

type (
	// Expense is a stored expense record as seen by API consumers.
	Expense struct {
		ID          string
		Title       string
		Amount      *Money // nil only for legacy rows
		Category    *string
		Description *string
		CreatedAt   time.Time
	}

	// NewExpense is a validated create request. The store assigns ID and CreatedAt.
	NewExpense struct {
		Title       string
		Amount      Money
		Category    *string
		Description *string
	}

	// ExpensePatch is a validated partial update; nil fields stay unchanged.
	// The Clear flags set the matching optional field to null.
	ExpensePatch struct {
		Title            *string
		Amount           *Money
		Category         *string
		Description      *string
		ClearCategory    bool
		ClearDescription bool
	}

	// ExpensePage is one page of a filtered listing plus the unpaginated match count.
	ExpensePage struct {
		Items []Expense
		Total int
	}

	// CreateExpenseInput is the raw create request as received from a client.
	CreateExpenseInput struct {
		Title       string
		Amount      *float64
		Category    *string
		Description *string
	}

	// UpdateExpenseInput is the raw update request as received from a client.
	UpdateExpenseInput struct {
		ID          string
		Title       *string
		Amount      *float64
		Category    *string
		Description *string
	}
)

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.Description == nil &&
		!p.ClearCategory && !p.ClearDescription
}

// Apply returns e with the patch fields replaced.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Amount != nil {
		amount := *p.Amount
		e.Amount = &amount
	}
	if p.Category != nil {
		category := *p.Category
		e.Category = &category
	} else if p.ClearCategory {
		e.Category = nil
	}
	if p.Description != nil {
		description := *p.Description
		e.Description = &description
	} else if p.ClearDescription {
		e.Description = nil
	}
	return e
}

// RepairedTitle is the title given to legacy rows stored without one.
func RepairedTitle(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return DefaultTitle + " (ID: " + short + ")"
}

// StringValue returns *s or "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
