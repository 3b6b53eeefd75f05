// Package plan builds settlement plans: the ordered set of point-to-point
// transfers that zeroes every net position in a group.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xraph/settle/id"
	"github.com/xraph/settle/types"
)

// TxnState is the lifecycle state of a single settlement transaction.
type TxnState string

const (
	TxnPlanned   TxnState = "planned"
	TxnSubmitted TxnState = "submitted"
	TxnConfirmed TxnState = "confirmed"
	TxnFailed    TxnState = "failed"
)

// Outcome classifies a finished settlement run. Done means every
// transaction confirmed; Partial means at least one did not.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomePartial Outcome = "partial"
)

// Transaction is one planned transfer from a debtor to a creditor.
// Amount is always positive.
type Transaction struct {
	ID         id.TransactionID `json:"id"`
	PlanID     id.PlanID        `json:"plan_id"`
	FromID     string           `json:"from_id"`
	ToID       string           `json:"to_id"`
	Amount     types.Money      `json:"amount"`
	State      TxnState         `json:"state"`
	FailReason string           `json:"fail_reason,omitempty"`
}

// Key returns the stable idempotency key for this transfer, derived from the
// plan ID and the transfer's semantic identity (from, to, amount). Two
// submissions of the same planned transfer always produce the same key.
func (t *Transaction) Key() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d", t.PlanID, t.FromID, t.ToID, t.Amount.Amount))
	return hex.EncodeToString(sum[:])
}

// Plan is one settlement run's ordered transaction list. Plans are ephemeral:
// they are recomputed from the ledger for every run and never treated as
// authoritative balance state.
type Plan struct {
	ID           id.PlanID     `json:"id"`
	GroupID      id.GroupID    `json:"group_id"`
	Currency     string        `json:"currency"`
	Transactions []Transaction `json:"transactions"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsEmpty reports whether the plan has no transfers to execute.
func (p *Plan) IsEmpty() bool { return len(p.Transactions) == 0 }

// Total returns the sum of all planned transfer amounts.
func (p *Plan) Total() types.Money {
	total := types.Zero(p.Currency)
	for _, t := range p.Transactions {
		total = total.Add(t.Amount)
	}
	return total
}

// Run is the persisted summary of one settlement run. It exists for
// observability and audit; balances are always recomputed from expenses.
type Run struct {
	ID         id.RunID   `json:"id"`
	GroupID    id.GroupID `json:"group_id"`
	PlanID     id.PlanID  `json:"plan_id"`
	Outcome    Outcome    `json:"outcome"`
	Planned    int        `json:"planned"`
	Confirmed  int        `json:"confirmed"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}
