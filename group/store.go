package group

import (
	"context"

	"github.com/xraph/settle/id"
)

type Store interface {
	Create(ctx context.Context, g *Group) error
	Get(ctx context.Context, groupID id.GroupID) (*Group, error)
	List(ctx context.Context, opts ListOpts) ([]*Group, error)
	Update(ctx context.Context, g *Group) error
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
