package plan

import (
	"context"

	"github.com/xraph/settle/id"
)

// Store persists settlement run summaries. Plans themselves are ephemeral;
// only the run outcome is recorded.
type Store interface {
	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)
	ListRuns(ctx context.Context, groupID id.GroupID, opts ListOpts) ([]*Run, error)
}

type ListOpts struct {
	Outcome Outcome
	Limit   int
	Offset  int
}
