package executor

import (
	"time"

	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
)

// TransactionResult records the terminal outcome of one planned transfer.
// The embedded transaction carries the final state and, on failure, the
// reason.
type TransactionResult struct {
	Transaction plan.Transaction `json:"transaction"`
	Reference   string           `json:"reference,omitempty"`
	Attempts    int              `json:"attempts"`
}

// Confirmed reports whether the transfer completed.
func (r *TransactionResult) Confirmed() bool {
	return r.Transaction.State == plan.TxnConfirmed
}

// Report is the outcome of executing one settlement plan. Results appear in
// plan order regardless of the order transfers completed in.
type Report struct {
	PlanID     id.PlanID           `json:"plan_id"`
	Results    []TransactionResult `json:"results"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Confirmed returns the number of confirmed transfers.
func (r *Report) Confirmed() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Confirmed() {
			n++
		}
	}
	return n
}

// Failed returns the number of transfers that did not confirm.
func (r *Report) Failed() int {
	return len(r.Results) - r.Confirmed()
}

// AllConfirmed reports whether every transfer confirmed. An empty plan
// counts as fully confirmed.
func (r *Report) AllConfirmed() bool {
	return r.Failed() == 0
}

// Outcome classifies the run: Done when every transfer confirmed, Partial
// otherwise.
func (r *Report) Outcome() plan.Outcome {
	if r.AllConfirmed() {
		return plan.OutcomeDone
	}
	return plan.OutcomePartial
}

// UncoveredParticipants returns the participants touched by at least one
// unconfirmed transfer. An expense is only settled by this run when none of
// its stakeholders appear in the returned set.
func (r *Report) UncoveredParticipants() map[string]bool {
	uncovered := make(map[string]bool)
	for i := range r.Results {
		if r.Results[i].Confirmed() {
			continue
		}
		uncovered[r.Results[i].Transaction.FromID] = true
		uncovered[r.Results[i].Transaction.ToID] = true
	}
	return uncovered
}

func confirmed(txn plan.Transaction, reference string, attempts int) TransactionResult {
	txn.State = plan.TxnConfirmed
	return TransactionResult{Transaction: txn, Reference: reference, Attempts: attempts}
}

func failed(txn plan.Transaction, attempts int, reason string) TransactionResult {
	txn.State = plan.TxnFailed
	txn.FailReason = reason
	return TransactionResult{Transaction: txn, Attempts: attempts}
}
