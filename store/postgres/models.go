package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/types"
)

// ==================== Group models ====================

type groupModel struct {
	ID        string
	Name      string
	Currency  string
	AdminID   string
	Members   []byte
	Status    string
	ClosedAt  *time.Time
	Metadata  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func toGroupModel(g *group.Group) *groupModel {
	members, _ := json.Marshal(g.Members) //nolint:errcheck // plain structs
	metadata := metadataJSON(g.Metadata)

	return &groupModel{
		ID:        g.ID.String(),
		Name:      g.Name,
		Currency:  g.Currency,
		AdminID:   g.AdminID,
		Members:   members,
		Status:    string(g.Status),
		ClosedAt:  g.ClosedAt,
		Metadata:  metadata,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromGroupModel(m *groupModel) (*group.Group, error) {
	groupID, err := id.ParseGroupID(m.ID)
	if err != nil {
		return nil, err
	}

	var members []group.Member
	if err := json.Unmarshal(m.Members, &members); err != nil {
		return nil, fmt.Errorf("decode group members: %w", err)
	}

	var metadata map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("decode group metadata: %w", err)
		}
	}

	return &group.Group{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       groupID,
		Name:     m.Name,
		Currency: m.Currency,
		AdminID:  m.AdminID,
		Members:  members,
		Status:   group.Status(m.Status),
		ClosedAt: m.ClosedAt,
		Metadata: metadata,
	}, nil
}

// ==================== Expense models ====================

type expenseModel struct {
	ID          string
	GroupID     string
	PayerID     string
	Amount      int64
	Currency    string
	Description string
	Shares      []byte
	Settled     bool
	SettledAt   *time.Time
	Metadata    []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func toExpenseModel(e *expense.Expense) *expenseModel {
	shares, _ := json.Marshal(e.Shares) //nolint:errcheck // plain structs

	return &expenseModel{
		ID:          e.ID.String(),
		GroupID:     e.GroupID.String(),
		PayerID:     e.PayerID,
		Amount:      e.Amount.Amount,
		Currency:    e.Amount.Currency,
		Description: e.Description,
		Shares:      shares,
		Settled:     e.Settled,
		SettledAt:   e.SettledAt,
		Metadata:    metadataJSON(e.Metadata),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func fromExpenseModel(m *expenseModel) (*expense.Expense, error) {
	expenseID, err := id.ParseExpenseID(m.ID)
	if err != nil {
		return nil, err
	}
	groupID, err := id.ParseGroupID(m.GroupID)
	if err != nil {
		return nil, err
	}

	var shares []expense.Share
	if err := json.Unmarshal(m.Shares, &shares); err != nil {
		return nil, fmt.Errorf("decode expense shares: %w", err)
	}

	var metadata map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("decode expense metadata: %w", err)
		}
	}

	return &expense.Expense{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          expenseID,
		GroupID:     groupID,
		PayerID:     m.PayerID,
		Amount:      types.Money{Amount: m.Amount, Currency: m.Currency},
		Description: m.Description,
		Shares:      shares,
		Settled:     m.Settled,
		SettledAt:   m.SettledAt,
		Metadata:    metadata,
	}, nil
}

// ==================== Run models ====================

type runModel struct {
	ID         string
	GroupID    string
	PlanID     string
	Outcome    string
	Planned    int
	Confirmed  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

func toRunModel(r *plan.Run) *runModel {
	return &runModel{
		ID:         r.ID.String(),
		GroupID:    r.GroupID.String(),
		PlanID:     r.PlanID.String(),
		Outcome:    string(r.Outcome),
		Planned:    r.Planned,
		Confirmed:  r.Confirmed,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func fromRunModel(m *runModel) (*plan.Run, error) {
	runID, err := id.ParseRunID(m.ID)
	if err != nil {
		return nil, err
	}
	groupID, err := id.ParseGroupID(m.GroupID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, err
	}

	return &plan.Run{
		ID:         runID,
		GroupID:    groupID,
		PlanID:     planID,
		Outcome:    plan.Outcome(m.Outcome),
		Planned:    m.Planned,
		Confirmed:  m.Confirmed,
		Failed:     m.Failed,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}, nil
}

// metadataJSON marshals metadata, defaulting nil maps to the empty object so
// the JSONB column never stores SQL NULL.
func metadataJSON(m map[string]string) []byte {
	if m == nil {
		return []byte("{}")
	}
	b, _ := json.Marshal(m) //nolint:errcheck // plain map
	return b
}
