package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestNewEventSnapshot(t *testing.T) {
	amount := core.Money{Cents: 12550}
	e := New(ExpenseCreated, core.Expense{
		ID:        "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b",
		Title:     "Grocery Shopping",
		Amount:    &amount,
		Category:  core.StringPtr("Food"),
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	})

	data, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["type"] != "expense.created" || raw["id"] != "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b" {
		t.Fatalf("unexpected envelope: %v", raw)
	}
	expense, ok := raw["expense"].(map[string]any)
	if !ok {
		t.Fatalf("missing expense snapshot: %v", raw)
	}
	if expense["amount"] != "125.50" || expense["category"] != "Food" || expense["description"] != nil {
		t.Fatalf("unexpected snapshot: %v", expense)
	}

	back, err := FromJSON(data)
	if err != nil || back.Type != ExpenseCreated || back.Expense.Title != "Grocery Shopping" {
		t.Fatalf("round trip: %+v %v", back, err)
	}
}

func TestDeletedEventOmitsExpense(t *testing.T) {
	data, err := Deleted("abc").ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := raw["expense"]; present {
		t.Fatalf("deleted event should omit expense: %s", data)
	}
	if raw["type"] != "expense.deleted" {
		t.Fatalf("type = %v", raw["type"])
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), Deleted("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
