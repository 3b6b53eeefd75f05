package expense

import (
	"context"
	"time"

	"github.com/xraph/settle/id"
)

type Store interface {
	Append(ctx context.Context, e *Expense) error
	Get(ctx context.Context, expenseID id.ExpenseID) (*Expense, error)
	List(ctx context.Context, groupID id.GroupID, opts ListOpts) ([]*Expense, error)
	ListUnsettled(ctx context.Context, groupID id.GroupID) ([]*Expense, error)
	MarkSettled(ctx context.Context, expenseID id.ExpenseID, settledAt time.Time) error
}

type ListOpts struct {
	IncludeSettled bool
	Limit          int
	Offset         int
}
