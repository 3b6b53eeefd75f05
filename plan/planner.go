package plan

import (
	"sort"
	"time"

	"github.com/xraph/settle/balance"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/types"
)

type party struct {
	participantID string
	amount        int64 // always positive: owed for creditors, owing for debtors
}

// Build turns net positions into a settlement plan using a greedy
// two-pointer matching: repeatedly settle min(largest debt, largest credit)
// between the current largest debtor and creditor, advancing whichever side
// reaches zero.
//
// The output is deterministic: debtors are sorted by amount owed descending,
// creditors by amount owed to them descending, ties broken by participant ID.
// Participants with a zero position never appear. The plan fully zeroes every
// balance (there is no dust threshold) and emits at most
// nonzero_participants - 1 transactions.
func Build(groupID id.GroupID, currency string, positions balance.Positions) *Plan {
	var debtors, creditors []party
	for participantID, pos := range positions {
		switch {
		case pos < 0:
			debtors = append(debtors, party{participantID: participantID, amount: -pos})
		case pos > 0:
			creditors = append(creditors, party{participantID: participantID, amount: pos})
		}
	}

	sortParties(debtors)
	sortParties(creditors)

	p := &Plan{
		ID:        id.NewPlanID(),
		GroupID:   groupID,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}

	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := min(debtor.amount, creditor.amount)

		txn := Transaction{
			ID:     id.NewTransactionID(),
			PlanID: p.ID,
			FromID: debtor.participantID,
			ToID:   creditor.participantID,
			Amount: types.New(amount, currency),
			State:  TxnPlanned,
		}
		p.Transactions = append(p.Transactions, txn)

		debtor.amount -= amount
		creditor.amount -= amount

		if debtor.amount == 0 {
			i++
		}
		if creditor.amount == 0 {
			j++
		}
	}

	return p
}

// sortParties orders by amount descending, participant ID ascending on ties.
func sortParties(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if parties[a].amount != parties[b].amount {
			return parties[a].amount > parties[b].amount
		}
		return parties[a].participantID < parties[b].participantID
	})
}
