// Package notify bridges Settle lifecycle events to a notification backend.
//
// It defines a local Sink interface so the package does not depend on any
// concrete delivery mechanism. Callers inject a SinkFunc adapter that bridges
// to their webhook dispatcher, message queue, or chat client at wiring time.
package notify

import (
	"context"
	"time"
)

// Kind identifies the type of a notification event.
type Kind string

// Kind constants for notification events.
const (
	// Ledger events
	KindExpenseAdded Kind = "expense.added"

	// Settlement events
	KindSettlementPlanned   Kind = "settlement.planned"
	KindSettlementCompleted Kind = "settlement.completed"
	KindSettlementPartial   Kind = "settlement.partial"

	// Transfer events
	KindTransactionConfirmed Kind = "transaction.confirmed"
	KindTransactionFailed    Kind = "transaction.failed"

	// Group events
	KindGroupStatusChanged Kind = "group.status_changed"
)

// Event is a local representation of a notification event. It mirrors the
// payload a webhook dispatcher would send but avoids a module dependency.
type Event struct {
	Kind       Kind           `json:"kind"`
	GroupID    string         `json:"group_id,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Amount     int64          `json:"amount,omitempty"`
	Currency   string         `json:"currency,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Sink is the interface that notification backends must implement.
// This matches the shape of a webhook dispatcher's submit method but is
// defined locally so that the notify package does not import one directly —
// callers inject the concrete backend at wiring time.
type Sink interface {
	Deliver(ctx context.Context, event *Event) error
}

// SinkFunc is an adapter to use a plain function as a Sink.
type SinkFunc func(ctx context.Context, event *Event) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
