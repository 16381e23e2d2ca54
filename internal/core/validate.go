package core

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// ValidateID checks that id is a version 4 UUID.
func ValidateID(id string) error {
	verr := &ValidationError{}
	checkID(verr, id)
	return verr.orNil()
}

func checkID(verr *ValidationError, id string) {
	if strings.TrimSpace(id) == "" {
		verr.add("id", "ID is required")
		return
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.Version() != 4 {
		verr.add("id", "ID must be a valid UUID")
	}
}

// ValidateCreate checks a create request and returns the normalized expense.
// Every violated rule is reported in the returned *ValidationError.
func ValidateCreate(in CreateExpenseInput) (NewExpense, error) {
	verr := &ValidationError{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		verr.add("title", "Title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		verr.add("title", "Title must be at most 100 characters")
	}

	var amount Money
	if in.Amount == nil {
		verr.add("amount", "Amount is required")
	} else if m, ok := checkAmount(verr, *in.Amount); ok {
		amount = m
	}

	checkDescription(verr, in.Description)

	if err := verr.orNil(); err != nil {
		return NewExpense{}, err
	}
	return NewExpense{
		Title:       title,
		Amount:      amount,
		Category:    blankToNil(in.Category),
		Description: blankToNil(in.Description),
	}, nil
}

// ValidateUpdate checks a partial update and returns the normalized patch.
func ValidateUpdate(in UpdateExpenseInput) (ExpensePatch, error) {
	verr := &ValidationError{}
	checkID(verr, in.ID)

	var patch ExpensePatch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		switch {
		case title == "":
			verr.add("title", "Title must not be empty")
		case utf8.RuneCountInString(title) > MaxTitleLength:
			verr.add("title", "Title must be at most 100 characters")
		default:
			patch.Title = &title
		}
	}
	if in.Amount != nil {
		if m, ok := checkAmount(verr, *in.Amount); ok {
			patch.Amount = &m
		}
	}
	checkDescription(verr, in.Description)
	patch.Category, patch.ClearCategory = optionalText(in.Category)
	patch.Description, patch.ClearDescription = optionalText(in.Description)

	if err := verr.orNil(); err != nil {
		return ExpensePatch{}, err
	}
	return patch, nil
}

// ValidateFilter checks a listing request and resolves its defaults. Range
// violations are reported as *ValidationError; an unknown sort field is an
// *InvalidArgumentError.
func ValidateFilter(f Filter) (ListQuery, error) {
	verr := &ValidationError{}
	q := DefaultListQuery()

	// Whitespace only decides emptiness; the search text is used as given.
	if strings.TrimSpace(f.Title) != "" {
		q.Title = f.Title
	}
	q.Category = strings.TrimSpace(f.Category)

	if f.MinAmount != nil {
		if !isFinite(*f.MinAmount) || *f.MinAmount < 0 {
			verr.add("minAmount", "Minimum amount must be a non-negative number")
		} else {
			c := CentsCeil(*f.MinAmount)
			q.MinCents = &c
		}
	}
	if f.MaxAmount != nil {
		if !isFinite(*f.MaxAmount) || *f.MaxAmount < 0 {
			verr.add("maxAmount", "Maximum amount must be a non-negative number")
		} else {
			c := CentsFloor(*f.MaxAmount)
			q.MaxCents = &c
		}
	}

	if s := strings.TrimSpace(f.StartDate); s != "" {
		if t, err := ParseDateBound(s, false); err != nil {
			verr.add("startDate", "Start date must be a valid ISO 8601 date")
		} else {
			q.From = &t
		}
	}
	if s := strings.TrimSpace(f.EndDate); s != "" {
		if t, err := ParseDateBound(s, true); err != nil {
			verr.add("endDate", "End date must be a valid ISO 8601 date")
		} else {
			q.To = &t
		}
	}

	if f.Order != "" {
		switch strings.ToUpper(f.Order) {
		case OrderAsc:
			q.Descending = false
		case OrderDesc:
			q.Descending = true
		default:
			verr.add("order", "Order must be either ASC or DESC")
		}
	}

	if f.Limit != nil {
		if *f.Limit < 1 || *f.Limit > MaxLimit {
			verr.add("limit", "Limit must be between 1 and 100")
		} else {
			q.Limit = *f.Limit
		}
	}
	if f.Offset != nil {
		if *f.Offset < 0 {
			verr.add("offset", "Offset must be at least 0")
		} else {
			q.Offset = *f.Offset
		}
	}

	if err := verr.orNil(); err != nil {
		return ListQuery{}, err
	}

	if f.OrderBy != "" {
		field := SortField(f.OrderBy)
		if !field.Valid() {
			return ListQuery{}, &InvalidArgumentError{
				Field:   "orderBy",
				Message: "Invalid orderBy field: " + f.OrderBy,
			}
		}
		q.OrderBy = field
	}
	return q, nil
}

func checkAmount(verr *ValidationError, f float64) (Money, bool) {
	if !isFinite(f) {
		verr.add("amount", "Amount must be a valid number")
		return Money{}, false
	}
	if f < 0.01 {
		verr.add("amount", "Amount must be greater than 0")
		return Money{}, false
	}
	m, err := MoneyFromFloat(f)
	if err != nil || m.Cents > MaxAmount.Cents {
		verr.add("amount", "Amount must be at most "+MaxAmount.String())
		return Money{}, false
	}
	if m.Cents < MinAmount.Cents {
		verr.add("amount", "Amount must be greater than 0")
		return Money{}, false
	}
	return m, true
}

func checkDescription(verr *ValidationError, d *string) {
	if d != nil && utf8.RuneCountInString(strings.TrimSpace(*d)) > MaxDescriptionLength {
		verr.add("description", "Description must be at most 500 characters")
	}
}

// blankToNil trims s and maps empty strings to nil.
func blankToNil(s *string) *string {
	t := trimmed(s)
	if t == nil || *t == "" {
		return nil
	}
	return t
}

// optionalText normalizes a supplied optional field of an update. A blank
// value asks for the stored value to be cleared.
func optionalText(s *string) (value *string, clearField bool) {
	t := trimmed(s)
	if t == nil {
		return nil, false
	}
	if *t == "" {
		return nil, true
	}
	return t, false
}
