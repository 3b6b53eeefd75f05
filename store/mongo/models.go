package mongo

import (
	"time"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/types"
)

// ==================== Group models ====================

type groupModel struct {
	ID        string            `bson:"_id"`
	Name      string            `bson:"name"`
	Currency  string            `bson:"currency"`
	AdminID   string            `bson:"admin_id"`
	Members   []memberModel     `bson:"members"`
	Status    string            `bson:"status"`
	ClosedAt  *time.Time        `bson:"closed_at,omitempty"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type memberModel struct {
	ParticipantID string    `bson:"participant_id"`
	Address       string    `bson:"address,omitempty"`
	Role          string    `bson:"role"`
	JoinedAt      time.Time `bson:"joined_at"`
}

func toGroupModel(g *group.Group) *groupModel {
	members := make([]memberModel, len(g.Members))
	for i, m := range g.Members {
		members[i] = memberModel{
			ParticipantID: m.ParticipantID,
			Address:       m.Address,
			Role:          string(m.Role),
			JoinedAt:      m.JoinedAt,
		}
	}

	return &groupModel{
		ID:        g.ID.String(),
		Name:      g.Name,
		Currency:  g.Currency,
		AdminID:   g.AdminID,
		Members:   members,
		Status:    string(g.Status),
		ClosedAt:  g.ClosedAt,
		Metadata:  g.Metadata,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromGroupModel(m *groupModel) (*group.Group, error) {
	groupID, err := id.ParseGroupID(m.ID)
	if err != nil {
		return nil, err
	}

	members := make([]group.Member, len(m.Members))
	for i, mm := range m.Members {
		members[i] = group.Member{
			ParticipantID: mm.ParticipantID,
			Address:       mm.Address,
			Role:          group.Role(mm.Role),
			JoinedAt:      mm.JoinedAt,
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
		Metadata: m.Metadata,
	}, nil
}

// ==================== Expense models ====================

type expenseModel struct {
	ID          string            `bson:"_id"`
	GroupID     string            `bson:"group_id"`
	PayerID     string            `bson:"payer_id"`
	Amount      int64             `bson:"amount"`
	Currency    string            `bson:"currency"`
	Description string            `bson:"description"`
	Shares      []shareModel      `bson:"shares"`
	Settled     bool              `bson:"settled"`
	SettledAt   *time.Time        `bson:"settled_at,omitempty"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

type shareModel struct {
	ParticipantID string `bson:"participant_id"`
	Amount        int64  `bson:"amount"`
}

func toExpenseModel(e *expense.Expense) *expenseModel {
	shares := make([]shareModel, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = shareModel{
			ParticipantID: s.ParticipantID,
			Amount:        s.Amount.Amount,
		}
	}

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
		Metadata:    e.Metadata,
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

	shares := make([]expense.Share, len(m.Shares))
	for i, s := range m.Shares {
		shares[i] = expense.Share{
			ParticipantID: s.ParticipantID,
			Amount:        types.Money{Amount: s.Amount, Currency: m.Currency},
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
		Metadata:    m.Metadata,
	}, nil
}

// ==================== Run models ====================

type runModel struct {
	ID         string    `bson:"_id"`
	GroupID    string    `bson:"group_id"`
	PlanID     string    `bson:"plan_id"`
	Outcome    string    `bson:"outcome"`
	Planned    int       `bson:"planned"`
	Confirmed  int       `bson:"confirmed"`
	Failed     int       `bson:"failed"`
	StartedAt  time.Time `bson:"started_at"`
	FinishedAt time.Time `bson:"finished_at"`
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
