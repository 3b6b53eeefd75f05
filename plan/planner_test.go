package plan

import (
	"testing"

	"github.com/xraph/settle/balance"
	"github.com/xraph/settle/id"
)

// applyTransactions plays a plan back onto positions; a correct plan drives
// every balance to exactly zero.
func applyTransactions(positions balance.Positions, p *Plan) balance.Positions {
	out := make(balance.Positions, len(positions))
	for k, v := range positions {
		out[k] = v
	}
	for _, t := range p.Transactions {
		out[t.FromID] += t.Amount.Amount
		out[t.ToID] -= t.Amount.Amount
	}
	return out
}

func TestBuildFourMemberScenario(t *testing.T) {
	// A pays 60 split four ways, B pays 40 split four ways:
	// positions are a:+35 b:+15 c:-25 d:-25.
	positions := balance.Positions{"a": 35, "b": 15, "c": -25, "d": -25}

	p := Build(id.NewGroupID(), "usd", positions)

	want := []struct {
		from, to string
		amount   int64
	}{
		{"c", "a", 25},
		{"d", "a", 10},
		{"d", "b", 15},
	}

	if len(p.Transactions) != len(want) {
		t.Fatalf("transactions: got %d, want %d", len(p.Transactions), len(want))
	}
	for i, w := range want {
		txn := p.Transactions[i]
		if txn.FromID != w.from || txn.ToID != w.to || txn.Amount.Amount != w.amount {
			t.Errorf("txn %d: got %s->%s %d, want %s->%s %d",
				i, txn.FromID, txn.ToID, txn.Amount.Amount, w.from, w.to, w.amount)
		}
		if txn.State != TxnPlanned {
			t.Errorf("txn %d state: got %s, want %s", i, txn.State, TxnPlanned)
		}
		if txn.PlanID != p.ID {
			t.Errorf("txn %d plan id mismatch", i)
		}
	}

	// Bound: at most nonzero members - 1.
	if max := balance.Nonzero(positions) - 1; len(p.Transactions) > max {
		t.Errorf("transaction count %d exceeds bound %d", len(p.Transactions), max)
	}

	// The plan must fully zero all balances.
	after := applyTransactions(positions, p)
	for participant, pos := range after {
		if pos != 0 {
			t.Errorf("residual balance for %s: %d", participant, pos)
		}
	}
}

func TestBuildFullyZeroesBalances(t *testing.T) {
	tests := []struct {
		name      string
		positions balance.Positions
	}{
		{"single pair", balance.Positions{"a": 100, "b": -100}},
		{"one creditor many debtors", balance.Positions{"a": 90, "b": -30, "c": -30, "d": -30}},
		{"one debtor many creditors", balance.Positions{"a": -90, "b": 30, "c": 30, "d": 30}},
		{"uneven amounts", balance.Positions{"a": 7, "b": 13, "c": -5, "d": -15}},
		{"large values", balance.Positions{"a": 1_000_000_01, "b": -1, "c": -1_000_000_00}},
		{"with zeros", balance.Positions{"a": 50, "b": 0, "c": -50, "d": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build(id.NewGroupID(), "usd", tt.positions)

			after := applyTransactions(tt.positions, p)
			for participant, pos := range after {
				if pos != 0 {
					t.Errorf("residual balance for %s: %d", participant, pos)
				}
			}

			if bound := balance.Nonzero(tt.positions) - 1; len(p.Transactions) > bound {
				t.Errorf("transaction count %d exceeds bound %d", len(p.Transactions), bound)
			}

			for i, txn := range p.Transactions {
				if !txn.Amount.IsPositive() {
					t.Errorf("txn %d amount not positive: %d", i, txn.Amount.Amount)
				}
			}
		})
	}
}

func TestBuildSkipsZeroPositions(t *testing.T) {
	positions := balance.Positions{"a": 40, "b": 0, "c": -40}

	p := Build(id.NewGroupID(), "usd", positions)

	for _, txn := range p.Transactions {
		if txn.FromID == "b" || txn.ToID == "b" {
			t.Errorf("zero-position participant appears in plan: %+v", txn)
		}
	}
}

func TestBuildEmptyPositions(t *testing.T) {
	p := Build(id.NewGroupID(), "usd", balance.Positions{})

	if !p.IsEmpty() {
		t.Errorf("expected empty plan, got %d transactions", len(p.Transactions))
	}
}

func TestBuildAllZeroPositions(t *testing.T) {
	p := Build(id.NewGroupID(), "usd", balance.Positions{"a": 0, "b": 0})

	if !p.IsEmpty() {
		t.Errorf("expected empty plan, got %d transactions", len(p.Transactions))
	}
}

func TestBuildDeterministic(t *testing.T) {
	positions := balance.Positions{"e": 10, "a": 25, "d": -5, "b": -15, "c": -15}
	gid := id.NewGroupID()

	first := Build(gid, "usd", positions)
	second := Build(gid, "usd", positions)

	if len(first.Transactions) != len(second.Transactions) {
		t.Fatalf("lengths differ: %d vs %d", len(first.Transactions), len(second.Transactions))
	}
	for i := range first.Transactions {
		a, b := first.Transactions[i], second.Transactions[i]
		if a.FromID != b.FromID || a.ToID != b.ToID || a.Amount.Amount != b.Amount.Amount {
			t.Errorf("txn %d differs: %s->%s %d vs %s->%s %d",
				i, a.FromID, a.ToID, a.Amount.Amount, b.FromID, b.ToID, b.Amount.Amount)
		}
	}
}

func TestBuildTieBreaksByParticipantID(t *testing.T) {
	// Equal debts settle in participant ID order.
	positions := balance.Positions{"z": -10, "m": -10, "a": 20}

	p := Build(id.NewGroupID(), "usd", positions)

	if len(p.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(p.Transactions))
	}
	if p.Transactions[0].FromID != "m" || p.Transactions[1].FromID != "z" {
		t.Errorf("tie break order: got %s then %s, want m then z",
			p.Transactions[0].FromID, p.Transactions[1].FromID)
	}
}

func TestTransactionKeyStable(t *testing.T) {
	positions := balance.Positions{"a": 50, "b": -50}
	p := Build(id.NewGroupID(), "usd", positions)
	txn := &p.Transactions[0]

	if txn.Key() != txn.Key() {
		t.Error("key not stable across calls")
	}

	// A different plan yields different keys for the same transfer shape.
	other := Build(id.NewGroupID(), "usd", positions)
	if txn.Key() == other.Transactions[0].Key() {
		t.Error("keys should differ across plans")
	}
}

func TestPlanTotal(t *testing.T) {
	positions := balance.Positions{"a": 35, "b": 15, "c": -25, "d": -25}
	p := Build(id.NewGroupID(), "usd", positions)

	// Total transferred equals the sum of all debts.
	if got := p.Total().Amount; got != 50 {
		t.Errorf("total: got %d, want 50", got)
	}
}
