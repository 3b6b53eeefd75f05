package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Bridge)(nil)
	_ plugin.OnExpenseAdded         = (*Bridge)(nil)
	_ plugin.OnSettlementPlanned    = (*Bridge)(nil)
	_ plugin.OnTransactionConfirmed = (*Bridge)(nil)
	_ plugin.OnTransactionFailed    = (*Bridge)(nil)
	_ plugin.OnSettlementFinished   = (*Bridge)(nil)
	_ plugin.OnGroupStatusChanged   = (*Bridge)(nil)
)

// Bridge forwards engine lifecycle events to a notification Sink.
// Delivery failures are logged and swallowed: a broken notification backend
// must never fail an expense write or a settlement run.
type Bridge struct {
	sink    Sink
	enabled map[Kind]bool // nil = all enabled
	logger  *slog.Logger
}

// New creates a Bridge that emits notification events through the provided Sink.
func New(s Sink, opts ...Option) *Bridge {
	b := &Bridge{
		sink:   s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements plugin.Plugin.
func (b *Bridge) Name() string { return "notify-bridge" }

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnExpenseAdded implements plugin.OnExpenseAdded.
func (b *Bridge) OnExpenseAdded(ctx context.Context, e *expense.Expense) error {
	return b.send(ctx, &Event{
		Kind:       KindExpenseAdded,
		GroupID:    e.GroupID.String(),
		ResourceID: e.ID.String(),
		Amount:     e.Amount.Amount,
		Currency:   e.Amount.Currency,
	},
		"payer_id", e.PayerID,
		"description", e.Description,
		"participants", len(e.Shares),
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettlementPlanned implements plugin.OnSettlementPlanned.
func (b *Bridge) OnSettlementPlanned(ctx context.Context, p *plan.Plan) error {
	return b.send(ctx, &Event{
		Kind:       KindSettlementPlanned,
		GroupID:    p.GroupID.String(),
		ResourceID: p.ID.String(),
		Amount:     p.Total().Amount,
		Currency:   p.Currency,
	},
		"transfers", len(p.Transactions),
	)
}

// OnTransactionConfirmed implements plugin.OnTransactionConfirmed.
func (b *Bridge) OnTransactionConfirmed(ctx context.Context, txn plan.Transaction, reference string) error {
	return b.send(ctx, &Event{
		Kind:       KindTransactionConfirmed,
		ResourceID: txn.ID.String(),
		Amount:     txn.Amount.Amount,
		Currency:   txn.Amount.Currency,
	},
		"plan_id", txn.PlanID.String(),
		"from", txn.FromID,
		"to", txn.ToID,
		"reference", reference,
	)
}

// OnTransactionFailed implements plugin.OnTransactionFailed.
func (b *Bridge) OnTransactionFailed(ctx context.Context, txn plan.Transaction, reason string) error {
	return b.send(ctx, &Event{
		Kind:       KindTransactionFailed,
		ResourceID: txn.ID.String(),
		Amount:     txn.Amount.Amount,
		Currency:   txn.Amount.Currency,
		Reason:     reason,
	},
		"plan_id", txn.PlanID.String(),
		"from", txn.FromID,
		"to", txn.ToID,
	)
}

// OnSettlementFinished implements plugin.OnSettlementFinished.
func (b *Bridge) OnSettlementFinished(ctx context.Context, run *plan.Run) error {
	kind := KindSettlementCompleted
	if run.Outcome == plan.OutcomePartial {
		kind = KindSettlementPartial
	}

	return b.send(ctx, &Event{
		Kind:       kind,
		GroupID:    run.GroupID.String(),
		ResourceID: run.ID.String(),
	},
		"plan_id", run.PlanID.String(),
		"planned", run.Planned,
		"confirmed", run.Confirmed,
		"failed", run.Failed,
	)
}

// ──────────────────────────────────────────────────
// Group hooks
// ──────────────────────────────────────────────────

// OnGroupStatusChanged implements plugin.OnGroupStatusChanged.
func (b *Bridge) OnGroupStatusChanged(ctx context.Context, g *group.Group, from, to group.Status) error {
	return b.send(ctx, &Event{
		Kind:    KindGroupStatusChanged,
		GroupID: g.ID.String(),
	},
		"from", string(from),
		"to", string(to),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// send stamps and delivers an event if its kind is enabled.
func (b *Bridge) send(ctx context.Context, evt *Event, kvPairs ...any) error {
	if b.enabled != nil && !b.enabled[evt.Kind] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}
	if len(meta) > 0 {
		evt.Metadata = meta
	}
	evt.OccurredAt = time.Now().UTC()

	if err := b.sink.Deliver(ctx, evt); err != nil {
		b.logger.Warn("notify: failed to deliver event",
			"kind", evt.Kind,
			"group_id", evt.GroupID,
			"error", err,
		)
	}
	return nil
}
