package core

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

const validID = "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b"

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is(err, ErrValidation)")
	}
	fields := make([]string, len(verr.Violations))
	for i, v := range verr.Violations {
		fields[i] = v.Field
	}
	return fields
}

func TestValidateCreate(t *testing.T) {
	good := CreateExpenseInput{
		Title:       "  Coffee ",
		Amount:      floatPtr(3.5),
		Category:    StringPtr("Food"),
		Description: StringPtr("  "),
	}
	ne, err := ValidateCreate(good)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if ne.Title != "Coffee" || ne.Amount.Cents != 350 || StringValue(ne.Category) != "Food" {
		t.Fatalf("unexpected normalized expense: %+v", ne)
	}
	if ne.Description != nil {
		t.Fatalf("blank description should be nil")
	}

	cases := []struct {
		name string
		in   CreateExpenseInput
		want []string
	}{
		{"empty title", CreateExpenseInput{Title: " ", Amount: floatPtr(1)}, []string{"title"}},
		{"long title", CreateExpenseInput{Title: strings.Repeat("a", 101), Amount: floatPtr(1)}, []string{"title"}},
		{"missing amount", CreateExpenseInput{Title: "a"}, []string{"amount"}},
		{"zero amount", CreateExpenseInput{Title: "a", Amount: floatPtr(0)}, []string{"amount"}},
		{"tiny amount", CreateExpenseInput{Title: "a", Amount: floatPtr(0.005)}, []string{"amount"}},
		{"nan amount", CreateExpenseInput{Title: "a", Amount: floatPtr(math.NaN())}, []string{"amount"}},
		{"inf amount", CreateExpenseInput{Title: "a", Amount: floatPtr(math.Inf(1))}, []string{"amount"}},
		{"amount above column range", CreateExpenseInput{Title: "a", Amount: floatPtr(100000000)}, []string{"amount"}},
		{"amount beyond int64 cents", CreateExpenseInput{Title: "a", Amount: floatPtr(9.3e16)}, []string{"amount"}},
		{"amount far beyond int64 cents", CreateExpenseInput{Title: "a", Amount: floatPtr(1e18)}, []string{"amount"}},
		{"long description", CreateExpenseInput{Title: "a", Amount: floatPtr(1), Description: StringPtr(strings.Repeat("d", 501))}, []string{"description"}},
		{"everything", CreateExpenseInput{Title: "", Amount: floatPtr(-1), Description: StringPtr(strings.Repeat("d", 501))}, []string{"title", "amount", "description"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCreate(tc.in)
			got := violationFields(t, err)
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("violations = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateCreateBoundaries(t *testing.T) {
	if _, err := ValidateCreate(CreateExpenseInput{Title: "a", Amount: floatPtr(0.01)}); err != nil {
		t.Fatalf("0.01 should be accepted: %v", err)
	}
	ne, err := ValidateCreate(CreateExpenseInput{Title: "a", Amount: floatPtr(99999999.99)})
	if err != nil || ne.Amount != MaxAmount {
		t.Fatalf("99999999.99 should be accepted: %+v %v", ne, err)
	}
	_, err = ValidateCreate(CreateExpenseInput{Title: "a", Amount: floatPtr(1e18)})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Violations[0].Message != "Amount must be at most 99999999.99" {
		t.Fatalf("oversized amount error = %v", err)
	}
	// Lengths are counted in characters, not bytes.
	if _, err := ValidateCreate(CreateExpenseInput{Title: strings.Repeat("é", 100), Amount: floatPtr(1)}); err != nil {
		t.Fatalf("100 two-byte characters should be accepted: %v", err)
	}
	if _, err := ValidateCreate(CreateExpenseInput{Title: "a", Amount: floatPtr(1), Description: StringPtr(strings.Repeat("ü", 500))}); err != nil {
		t.Fatalf("500 character description should be accepted: %v", err)
	}
}

func TestValidateUpdate(t *testing.T) {
	patch, err := ValidateUpdate(UpdateExpenseInput{ID: validID, Amount: floatPtr(250)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if patch.Amount == nil || patch.Amount.Cents != 25000 || patch.Title != nil {
		t.Fatalf("unexpected patch: %+v", patch)
	}

	empty, err := ValidateUpdate(UpdateExpenseInput{ID: validID})
	if err != nil || !empty.IsEmpty() {
		t.Fatalf("empty update should validate to an empty patch: %+v %v", empty, err)
	}

	blankFields, err := ValidateUpdate(UpdateExpenseInput{ID: validID, Category: StringPtr(""), Description: StringPtr("  ")})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !blankFields.ClearCategory || !blankFields.ClearDescription || blankFields.Category != nil || blankFields.Description != nil || blankFields.IsEmpty() {
		t.Fatalf("blank optional fields should clear: %+v", blankFields)
	}

	set, err := ValidateUpdate(UpdateExpenseInput{ID: validID, Category: StringPtr(" Travel ")})
	if err != nil || StringValue(set.Category) != "Travel" || set.ClearCategory || set.ClearDescription {
		t.Fatalf("unexpected patch: %+v %v", set, err)
	}

	cases := []struct {
		name string
		in   UpdateExpenseInput
		want []string
	}{
		{"bad id", UpdateExpenseInput{ID: "nope"}, []string{"id"}},
		{"missing id", UpdateExpenseInput{}, []string{"id"}},
		{"uuid v1", UpdateExpenseInput{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, []string{"id"}},
		{"blank title", UpdateExpenseInput{ID: validID, Title: StringPtr("")}, []string{"title"}},
		{"negative amount", UpdateExpenseInput{ID: validID, Amount: floatPtr(-5)}, []string{"amount"}},
		{"oversized amount", UpdateExpenseInput{ID: validID, Amount: floatPtr(1e18)}, []string{"amount"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateUpdate(tc.in)
			got := violationFields(t, err)
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("violations = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID(validID); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateID("123"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateFilterDefaults(t *testing.T) {
	q, err := ValidateFilter(Filter{})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	want := DefaultListQuery()
	if q.OrderBy != want.OrderBy || q.Descending != want.Descending || q.Limit != 10 || q.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", q)
	}
}

func TestValidateFilter(t *testing.T) {
	q, err := ValidateFilter(Filter{
		Title:     " coffee ",
		MinAmount: floatPtr(10.001),
		MaxAmount: floatPtr(20),
		StartDate: "2024-05-01",
		EndDate:   "2024-05-31",
		OrderBy:   "amount",
		Order:     "asc",
		Limit:     intPtr(100),
		Offset:    intPtr(20),
	})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if q.Title != " coffee " || *q.MinCents != 1001 || *q.MaxCents != 2000 {
		t.Fatalf("unexpected bounds: %+v", q)
	}
	if q.OrderBy != SortByAmount || q.Descending || q.Limit != 100 || q.Offset != 20 {
		t.Fatalf("unexpected paging: %+v", q)
	}
	if !q.From.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", q.From)
	}
	if !q.To.Equal(time.Date(2024, 5, 31, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("to = %v", q.To)
	}

	blank, err := ValidateFilter(Filter{Title: "   "})
	if err != nil || blank.Title != "" {
		t.Fatalf("blank title should impose no constraint: %q %v", blank.Title, err)
	}

	huge, err := ValidateFilter(Filter{MinAmount: floatPtr(9.3e16), MaxAmount: floatPtr(9.3e16)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if *huge.MinCents != math.MaxInt64 || *huge.MaxCents != math.MaxInt64 {
		t.Fatalf("huge bounds should saturate: min=%d max=%d", *huge.MinCents, *huge.MaxCents)
	}

	rfc, err := ValidateFilter(Filter{EndDate: "2024-05-31T10:00:00+02:00"})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !rfc.To.Equal(time.Date(2024, 5, 31, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %v", rfc.To)
	}
}

func TestValidateFilterViolations(t *testing.T) {
	cases := []struct {
		name string
		in   Filter
		want []string
	}{
		{"limit zero", Filter{Limit: intPtr(0)}, []string{"limit"}},
		{"limit too big", Filter{Limit: intPtr(101)}, []string{"limit"}},
		{"negative offset", Filter{Offset: intPtr(-1)}, []string{"offset"}},
		{"negative min", Filter{MinAmount: floatPtr(-1)}, []string{"minAmount"}},
		{"negative max", Filter{MaxAmount: floatPtr(-1)}, []string{"maxAmount"}},
		{"bad order", Filter{Order: "UP"}, []string{"order"}},
		{"bad date", Filter{StartDate: "yesterday"}, []string{"startDate"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateFilter(tc.in)
			got := violationFields(t, err)
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("violations = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateFilterUnknownOrderBy(t *testing.T) {
	_, err := ValidateFilter(Filter{OrderBy: "price"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRepairedTitle(t *testing.T) {
	if got := RepairedTitle(validID); got != "Untitled Expense (ID: 3f2b8c1e)" {
		t.Fatalf("RepairedTitle = %q", got)
	}
}

func TestPatchApply(t *testing.T) {
	amount := Money{Cents: 100}
	e := Expense{ID: validID, Title: "Old", Amount: &amount, Category: StringPtr("Food")}
	title := "New"
	got := ExpensePatch{Title: &title}.Apply(e)
	if got.Title != "New" || got.Amount.Cents != 100 || StringValue(got.Category) != "Food" || got.ID != validID {
		t.Fatalf("unexpected result: %+v", got)
	}

	cleared := ExpensePatch{ClearCategory: true}.Apply(e)
	if cleared.Category != nil || cleared.Title != "Old" {
		t.Fatalf("unexpected result: %+v", cleared)
	}
}
