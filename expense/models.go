// Package expense defines the immutable shared-expense record and the exact
// integer split computation.
package expense

import (
	"time"

	"github.com/xraph/settle/id"
	"github.com/xraph/settle/types"
)

// Share is one split participant's portion of an expense.
type Share struct {
	ParticipantID string      `json:"participant_id"`
	Amount        types.Money `json:"amount"`
}

// Expense is an immutable record of one shared payment. Once created it is
// never mutated; only the settled flag and its timestamp may change. Shares
// always sum exactly to Amount.
type Expense struct {
	types.Entity
	ID          id.ExpenseID      `json:"id"`
	GroupID     id.GroupID        `json:"group_id"`
	PayerID     string            `json:"payer_id"`
	Amount      types.Money       `json:"amount"`
	Description string            `json:"description"`
	Shares      []Share           `json:"shares"`
	Settled     bool              `json:"settled"`
	SettledAt   *time.Time        `json:"settled_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// New builds an expense with equal shares over splitAmong. Division is
// integer-exact: each share is floor(amount/n) and the remainder is
// distributed one minor unit each to the first (amount mod n) participants
// in split order. Inputs are assumed validated (amount > 0, splitAmong
// non-empty); New panics on an empty split like Money.Split does.
func New(groupID id.GroupID, payerID string, amount types.Money, description string, splitAmong []string) *Expense {
	parts := amount.Split(len(splitAmong))

	shares := make([]Share, len(splitAmong))
	for i, p := range splitAmong {
		shares[i] = Share{ParticipantID: p, Amount: parts[i]}
	}

	return &Expense{
		Entity:      types.NewEntity(),
		ID:          id.NewExpenseID(),
		GroupID:     groupID,
		PayerID:     payerID,
		Amount:      amount,
		Description: description,
		Shares:      shares,
	}
}

// ShareOf returns the share owed by a participant, zero if not in the split.
func (e *Expense) ShareOf(participantID string) types.Money {
	for _, s := range e.Shares {
		if s.ParticipantID == participantID {
			return s.Amount
		}
	}
	return types.Zero(e.Amount.Currency)
}

// Stakeholders returns the participants with a nonzero monetary stake in
// this expense: split members owing a positive share, and the payer when the
// shares owed by others are positive. A participant whose share rounded to
// zero has nothing to move and is not a stakeholder.
func (e *Expense) Stakeholders() []string {
	var out []string
	othersOwe := int64(0)
	for _, s := range e.Shares {
		if s.ParticipantID == e.PayerID {
			continue
		}
		if s.Amount.IsPositive() {
			out = append(out, s.ParticipantID)
			othersOwe += s.Amount.Amount
		}
	}
	if othersOwe > 0 {
		out = append(out, e.PayerID)
	}
	return out
}

// MarkSettled flips the settled flag. Idempotent: marking an already-settled
// expense keeps the original timestamp.
func (e *Expense) MarkSettled(at time.Time) {
	if e.Settled {
		return
	}
	e.Settled = true
	e.SettledAt = &at
	e.Touch()
}
