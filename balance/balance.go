// Package balance derives net positions from unsettled expenses.
//
// Everything here is a pure function of its inputs. The store is never
// touched and nothing is cached: balances are recomputed from scratch for
// every settlement run, which keeps the conservation invariant mechanically
// checkable.
package balance

import (
	"fmt"

	"github.com/xraph/settle/expense"
)

// Positions maps a participant ID to their net position in minor units.
// Positive means the participant is owed money, negative means they owe.
type Positions map[string]int64

// Compute folds unsettled expenses into per-participant net positions.
//
// For each expense the payer is credited with the shares owed by the other
// split participants (no self-debt: the payer's own share never counts), and
// every other split participant is debited their share. Runs in
// O(expenses × split size).
func Compute(expenses []*expense.Expense) Positions {
	positions := make(Positions)

	for _, e := range expenses {
		for _, s := range e.Shares {
			if s.ParticipantID == e.PayerID {
				continue
			}
			positions[s.ParticipantID] -= s.Amount.Amount
			positions[e.PayerID] += s.Amount.Amount
		}
	}

	return positions
}

// CheckConservation verifies that positions sum to exactly zero. A nonzero
// sum is a defect in the engine, never something to round away; callers must
// treat the returned error as fatal for the current operation.
func CheckConservation(positions Positions) error {
	var sum int64
	for _, p := range positions {
		sum += p
	}

	if sum != 0 {
		return fmt.Errorf("balance: net positions sum to %d, want 0", sum)
	}

	return nil
}

// Net computes positions and verifies conservation in one step.
func Net(expenses []*expense.Expense) (Positions, error) {
	positions := Compute(expenses)
	if err := CheckConservation(positions); err != nil {
		return nil, err
	}

	return positions, nil
}

// Nonzero returns the count of participants with a nonzero position.
func Nonzero(positions Positions) int {
	n := 0
	for _, p := range positions {
		if p != 0 {
			n++
		}
	}

	return n
}
