// Package observability provides a metrics extension for Settle that records
// lifecycle event counts through a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnExpenseAdded         = (*MetricsExtension)(nil)
	_ plugin.OnSettlementPlanned    = (*MetricsExtension)(nil)
	_ plugin.OnTransactionConfirmed = (*MetricsExtension)(nil)
	_ plugin.OnTransactionFailed    = (*MetricsExtension)(nil)
	_ plugin.OnSettlementFinished   = (*MetricsExtension)(nil)
	_ plugin.OnGroupStatusChanged   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Settle plugin to automatically track settlement metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	ExpensesAdded Counter
	ExpenseAmount Histogram

	// Plan metrics
	SettlementsPlanned Counter
	PlanTransfers      Histogram
	PlanTotal          Histogram

	// Transfer metrics
	TransfersConfirmed Counter
	TransfersFailed    Counter

	// Run metrics
	SettlementsCompleted Counter
	SettlementsPartial   Counter
	SettlementDuration   Histogram

	// Group metrics
	GroupsSettled     Counter
	GroupsReactivated Counter
	GroupsClosed      Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Ledger metrics
		ExpensesAdded: factory.Counter("settle.expense.added"),
		ExpenseAmount: factory.Histogram("settle.expense.amount"),

		// Plan metrics
		SettlementsPlanned: factory.Counter("settle.settlement.planned"),
		PlanTransfers:      factory.Histogram("settle.plan.transfers"),
		PlanTotal:          factory.Histogram("settle.plan.total_amount"),

		// Transfer metrics
		TransfersConfirmed: factory.Counter("settle.transfer.confirmed"),
		TransfersFailed:    factory.Counter("settle.transfer.failed"),

		// Run metrics
		SettlementsCompleted: factory.Counter("settle.settlement.completed"),
		SettlementsPartial:   factory.Counter("settle.settlement.partial"),
		SettlementDuration:   factory.Histogram("settle.settlement.duration_ms"),

		// Group metrics
		GroupsSettled:     factory.Counter("settle.group.settled"),
		GroupsReactivated: factory.Counter("settle.group.reactivated"),
		GroupsClosed:      factory.Counter("settle.group.closed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnExpenseAdded implements plugin.OnExpenseAdded.
func (m *MetricsExtension) OnExpenseAdded(_ context.Context, e *expense.Expense) error {
	m.ExpensesAdded.Inc()
	m.ExpenseAmount.Observe(float64(e.Amount.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Settlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnSettlementPlanned implements plugin.OnSettlementPlanned.
func (m *MetricsExtension) OnSettlementPlanned(_ context.Context, p *plan.Plan) error {
	m.SettlementsPlanned.Inc()
	m.PlanTransfers.Observe(float64(len(p.Transactions)))
	m.PlanTotal.Observe(float64(p.Total().Amount))
	return nil
}

// OnTransactionConfirmed implements plugin.OnTransactionConfirmed.
func (m *MetricsExtension) OnTransactionConfirmed(_ context.Context, _ plan.Transaction, _ string) error {
	m.TransfersConfirmed.Inc()
	return nil
}

// OnTransactionFailed implements plugin.OnTransactionFailed.
func (m *MetricsExtension) OnTransactionFailed(_ context.Context, _ plan.Transaction, _ string) error {
	m.TransfersFailed.Inc()
	return nil
}

// OnSettlementFinished implements plugin.OnSettlementFinished.
func (m *MetricsExtension) OnSettlementFinished(_ context.Context, run *plan.Run) error {
	switch run.Outcome {
	case plan.OutcomePartial:
		m.SettlementsPartial.Inc()
	default:
		m.SettlementsCompleted.Inc()
	}
	m.SettlementDuration.Observe(float64(run.FinishedAt.Sub(run.StartedAt).Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Group lifecycle hooks
// ──────────────────────────────────────────────────

// OnGroupStatusChanged implements plugin.OnGroupStatusChanged.
func (m *MetricsExtension) OnGroupStatusChanged(_ context.Context, _ *group.Group, from, to group.Status) error {
	switch {
	case to == group.StatusSettled:
		m.GroupsSettled.Inc()
	case from == group.StatusSettled && to == group.StatusActive:
		m.GroupsReactivated.Inc()
	case to == group.StatusClosed:
		m.GroupsClosed.Inc()
	}
	return nil
}
