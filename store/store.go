package store

import (
	"context"
	"time"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
)

// Store is the unified storage interface for all Settle entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Group methods
	CreateGroup(ctx context.Context, g *group.Group) error
	GetGroup(ctx context.Context, groupID id.GroupID) (*group.Group, error)
	ListGroups(ctx context.Context, opts group.ListOpts) ([]*group.Group, error)
	UpdateGroup(ctx context.Context, g *group.Group) error

	// Expense methods. Expenses are append-only; the settled flag is the
	// only in-place update.
	AppendExpense(ctx context.Context, e *expense.Expense) error
	GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error)
	ListExpenses(ctx context.Context, groupID id.GroupID, opts expense.ListOpts) ([]*expense.Expense, error)
	ListUnsettledExpenses(ctx context.Context, groupID id.GroupID) ([]*expense.Expense, error)
	MarkExpenseSettled(ctx context.Context, expenseID id.ExpenseID, settledAt time.Time) error

	// Settlement run methods
	CreateRun(ctx context.Context, r *plan.Run) error
	GetRun(ctx context.Context, runID id.RunID) (*plan.Run, error)
	ListRuns(ctx context.Context, groupID id.GroupID, opts plan.ListOpts) ([]*plan.Run, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
