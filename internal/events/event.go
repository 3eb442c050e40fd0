// Package events describes the ledger change notifications published after a
// unit of work commits, and the broker-neutral interfaces that carry them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type Type string

const (
	WalletCreated   Type = "wallet.created"
	WalletDeposited Type = "wallet.deposited"
	WalletDeleted   Type = "wallet.deleted"
	ExpenseCreated  Type = "expense.created"
	ExpenseUpdated  Type = "expense.updated"
	ExpenseDeleted  Type = "expense.deleted"
	GoalFunded      Type = "goal.funded"
	GoalCompleted   Type = "goal.completed"
)

// Event is a committed change. Consumers re-read state from the store when
// they need more than these fields.
type Event struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	OccurredAt time.Time  `json:"occurred_at"`
	ActorID    string     `json:"actor_id"`
	WalletID   string     `json:"wallet_id,omitempty"`
	ExpenseID  string     `json:"expense_id,omitempty"`
	GoalID     string     `json:"goal_id,omitempty"`
	Amount     core.Money `json:"amount"`
	Category   string     `json:"category,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type, actorID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
	}
}

// ForExpense fills the expense fields of an event.
func ForExpense(t Type, actorID string, e core.Expense) Event {
	ev := New(t, actorID)
	ev.WalletID = e.WalletID
	ev.ExpenseID = e.ID
	ev.Amount = e.Amount
	ev.Category = e.Category
	d := e.Date
	ev.Date = &d
	return ev
}

// Key partitions events by wallet, falling back to the actor.
func (e Event) Key() string {
	if e.WalletID != "" {
		return e.WalletID
	}
	return e.ActorID
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Handler processes one event. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, e Event) error

// Consumer feeds events to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
