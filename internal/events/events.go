// Package events defines the change notifications emitted after successful
// expense mutations and the publishers that deliver them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// Type identifies the kind of change.
type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

// Event is the JSON payload delivered to subscribers. Expense is omitted for
// deletions.
type Event struct {
	Type      Type      `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Expense   *Snapshot `json:"expense,omitempty"`
}

// Snapshot is the expense state after the change. Amount is a decimal
// string so consumers never see float rounding.
type Snapshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Amount      *string   `json:"amount"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// New builds an event for a created or updated expense.
func New(t Type, e core.Expense) Event {
	snap := &Snapshot{
		ID:          e.ID,
		Title:       e.Title,
		Category:    e.Category,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
	if e.Amount != nil {
		amount := e.Amount.String()
		snap.Amount = &amount
	}
	return Event{Type: t, ID: e.ID, Timestamp: time.Now().UTC(), Expense: snap}
}

// Deleted builds the event for a removed expense.
func Deleted(id string) Event {
	return Event{Type: ExpenseDeleted, ID: id, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Publisher delivers events. Publish failures are reported to the caller,
// which treats delivery as best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
