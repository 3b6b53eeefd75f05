// Package plugin provides an extensible plugin system for the settlement
// engine. Plugins can hook into lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/plan"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine passes itself
// as an opaque handle.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnExpenseAdded is called after an expense is appended to the ledger.
type OnExpenseAdded interface {
	Plugin
	OnExpenseAdded(ctx context.Context, e *expense.Expense) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettlementPlanned is called after a settlement plan is built, before any
// transfer is submitted.
type OnSettlementPlanned interface {
	Plugin
	OnSettlementPlanned(ctx context.Context, p *plan.Plan) error
}

// OnTransactionConfirmed is called for every transfer the rail confirmed.
type OnTransactionConfirmed interface {
	Plugin
	OnTransactionConfirmed(ctx context.Context, txn plan.Transaction, reference string) error
}

// OnTransactionFailed is called for every transfer that reached a terminal
// failure, retries included.
type OnTransactionFailed interface {
	Plugin
	OnTransactionFailed(ctx context.Context, txn plan.Transaction, reason string) error
}

// OnSettlementFinished is called once per settlement run with the run
// summary.
type OnSettlementFinished interface {
	Plugin
	OnSettlementFinished(ctx context.Context, run *plan.Run) error
}

// ──────────────────────────────────────────────────
// Group hooks
// ──────────────────────────────────────────────────

// OnGroupStatusChanged is called after a group transitions lifecycle state.
type OnGroupStatusChanged interface {
	Plugin
	OnGroupStatusChanged(ctx context.Context, g *group.Group, from, to group.Status) error
}
