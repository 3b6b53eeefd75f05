package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/types"
)

// Timestamps are stored as integer unix nanoseconds so that append order is
// total and exact. Structured fields (members, shares, metadata) are stored
// as JSON text.

// ==================== Group models ====================

type groupModel struct {
	ID        string
	Name      string
	Currency  string
	AdminID   string
	Members   string
	Status    string
	ClosedAt  sql.NullInt64
	Metadata  string
	CreatedAt int64
	UpdatedAt int64
}

func toGroupModel(g *group.Group) *groupModel {
	members, _ := json.Marshal(g.Members)   //nolint:errcheck // plain structs
	metadata, _ := json.Marshal(g.Metadata) //nolint:errcheck // plain map

	m := &groupModel{
		ID:        g.ID.String(),
		Name:      g.Name,
		Currency:  g.Currency,
		AdminID:   g.AdminID,
		Members:   string(members),
		Status:    string(g.Status),
		Metadata:  string(metadata),
		CreatedAt: g.CreatedAt.UnixNano(),
		UpdatedAt: g.UpdatedAt.UnixNano(),
	}
	if g.ClosedAt != nil {
		m.ClosedAt = sql.NullInt64{Int64: g.ClosedAt.UnixNano(), Valid: true}
	}
	return m
}

func fromGroupModel(m *groupModel) (*group.Group, error) {
	groupID, err := id.ParseGroupID(m.ID)
	if err != nil {
		return nil, err
	}

	var members []group.Member
	if err := json.Unmarshal([]byte(m.Members), &members); err != nil {
		return nil, fmt.Errorf("decode group members: %w", err)
	}

	var metadata map[string]string
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("decode group metadata: %w", err)
		}
	}

	g := &group.Group{
		Entity: types.Entity{
			CreatedAt: time.Unix(0, m.CreatedAt),
			UpdatedAt: time.Unix(0, m.UpdatedAt),
		},
		ID:       groupID,
		Name:     m.Name,
		Currency: m.Currency,
		AdminID:  m.AdminID,
		Members:  members,
		Status:   group.Status(m.Status),
		Metadata: metadata,
	}
	if m.ClosedAt.Valid {
		t := time.Unix(0, m.ClosedAt.Int64)
		g.ClosedAt = &t
	}
	return g, nil
}

// ==================== Expense models ====================

type expenseModel struct {
	ID          string
	GroupID     string
	PayerID     string
	Amount      int64
	Currency    string
	Description string
	Shares      string
	Settled     bool
	SettledAt   sql.NullInt64
	Metadata    string
	CreatedAt   int64
	UpdatedAt   int64
}

func toExpenseModel(e *expense.Expense) *expenseModel {
	shares, _ := json.Marshal(e.Shares)     //nolint:errcheck // plain structs
	metadata, _ := json.Marshal(e.Metadata) //nolint:errcheck // plain map

	m := &expenseModel{
		ID:          e.ID.String(),
		GroupID:     e.GroupID.String(),
		PayerID:     e.PayerID,
		Amount:      e.Amount.Amount,
		Currency:    e.Amount.Currency,
		Description: e.Description,
		Shares:      string(shares),
		Settled:     e.Settled,
		Metadata:    string(metadata),
		CreatedAt:   e.CreatedAt.UnixNano(),
		UpdatedAt:   e.UpdatedAt.UnixNano(),
	}
	if e.SettledAt != nil {
		m.SettledAt = sql.NullInt64{Int64: e.SettledAt.UnixNano(), Valid: true}
	}
	return m
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
	if err := json.Unmarshal([]byte(m.Shares), &shares); err != nil {
		return nil, fmt.Errorf("decode expense shares: %w", err)
	}

	var metadata map[string]string
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("decode expense metadata: %w", err)
		}
	}

	e := &expense.Expense{
		Entity: types.Entity{
			CreatedAt: time.Unix(0, m.CreatedAt),
			UpdatedAt: time.Unix(0, m.UpdatedAt),
		},
		ID:          expenseID,
		GroupID:     groupID,
		PayerID:     m.PayerID,
		Amount:      types.Money{Amount: m.Amount, Currency: m.Currency},
		Description: m.Description,
		Shares:      shares,
		Settled:     m.Settled,
		Metadata:    metadata,
	}
	if m.SettledAt.Valid {
		t := time.Unix(0, m.SettledAt.Int64)
		e.SettledAt = &t
	}
	return e, nil
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
	StartedAt  int64
	FinishedAt int64
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
		StartedAt:  r.StartedAt.UnixNano(),
		FinishedAt: r.FinishedAt.UnixNano(),
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
		StartedAt:  time.Unix(0, m.StartedAt),
		FinishedAt: time.Unix(0, m.FinishedAt),
	}, nil
}
