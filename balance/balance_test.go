package balance

import (
	"testing"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/types"
)

func TestComputeSingleExpense(t *testing.T) {
	gid := id.NewGroupID()
	e := expense.New(gid, "a", types.USD(6000), "dinner", []string{"a", "b", "c", "d"})

	positions := Compute([]*expense.Expense{e})

	want := map[string]int64{"a": 4500, "b": -1500, "c": -1500, "d": -1500}
	for p, amt := range want {
		if positions[p] != amt {
			t.Errorf("position[%s]: got %d, want %d", p, positions[p], amt)
		}
	}
	if err := CheckConservation(positions); err != nil {
		t.Errorf("conservation: %v", err)
	}
}

func TestComputeTwoExpenses(t *testing.T) {
	// A pays 60 split four ways (15 each), B pays 40 split four ways (10 each).
	// A: +45 - 10 = +35, B: -15 + 30 = +15, C and D: -15 - 10 = -25.
	gid := id.NewGroupID()
	expenses := []*expense.Expense{
		expense.New(gid, "a", types.USD(60), "first", []string{"a", "b", "c", "d"}),
		expense.New(gid, "b", types.USD(40), "second", []string{"a", "b", "c", "d"}),
	}

	positions := Compute(expenses)

	want := map[string]int64{"a": 35, "b": 15, "c": -25, "d": -25}
	if len(positions) != len(want) {
		t.Fatalf("positions: got %v, want %v", positions, want)
	}
	for p, amt := range want {
		if positions[p] != amt {
			t.Errorf("position[%s]: got %d, want %d", p, positions[p], amt)
		}
	}
	if err := CheckConservation(positions); err != nil {
		t.Errorf("conservation: %v", err)
	}
}

func TestComputePayerNotInSplit(t *testing.T) {
	gid := id.NewGroupID()
	e := expense.New(gid, "a", types.USD(100), "gift", []string{"b", "c"})

	positions := Compute([]*expense.Expense{e})

	if positions["a"] != 100 {
		t.Errorf("payer position: got %d, want 100", positions["a"])
	}
	if positions["b"] != -50 || positions["c"] != -50 {
		t.Errorf("split positions: got b=%d c=%d, want -50 each", positions["b"], positions["c"])
	}
}

func TestComputeSelfExpenseIsNeutral(t *testing.T) {
	// Payer is the only split participant: no debt is created.
	gid := id.NewGroupID()
	e := expense.New(gid, "a", types.USD(4900), "solo", []string{"a"})

	positions := Compute([]*expense.Expense{e})

	if positions["a"] != 0 {
		t.Errorf("self expense position: got %d, want 0", positions["a"])
	}
}

func TestComputeRemainderConserves(t *testing.T) {
	// Odd amounts whose shares carry remainders must still net to zero.
	gid := id.NewGroupID()
	expenses := []*expense.Expense{
		expense.New(gid, "a", types.USD(100), "x", []string{"a", "b", "c"}),
		expense.New(gid, "b", types.USD(101), "y", []string{"a", "b", "c"}),
		expense.New(gid, "c", types.USD(7), "z", []string{"a", "b", "c"}),
	}

	positions := Compute(expenses)

	if err := CheckConservation(positions); err != nil {
		t.Fatalf("conservation: %v", err)
	}
}

func TestConservationAtEveryStep(t *testing.T) {
	// The invariant holds after every AddExpense, not just at the end.
	gid := id.NewGroupID()
	payers := []string{"a", "b", "c", "d", "a", "c"}
	amounts := []int64{6000, 4000, 99, 1, 12345, 777}

	var expenses []*expense.Expense
	for i := range payers {
		expenses = append(expenses, expense.New(gid, payers[i], types.USD(amounts[i]), "step", []string{"a", "b", "c", "d"}))

		positions := Compute(expenses)
		if err := CheckConservation(positions); err != nil {
			t.Fatalf("after %d expenses: %v", i+1, err)
		}
	}
}

func TestCheckConservationRejectsDrift(t *testing.T) {
	positions := Positions{"a": 100, "b": -99}
	if err := CheckConservation(positions); err == nil {
		t.Fatal("expected error for nonzero sum")
	}
}

func TestNet(t *testing.T) {
	gid := id.NewGroupID()
	e := expense.New(gid, "a", types.USD(100), "x", []string{"a", "b"})

	positions, err := Net([]*expense.Expense{e})
	if err != nil {
		t.Fatalf("Net: %v", err)
	}
	if positions["a"] != 50 || positions["b"] != -50 {
		t.Errorf("positions: got %v", positions)
	}
}

func TestNonzero(t *testing.T) {
	positions := Positions{"a": 35, "b": 15, "c": -25, "d": -25, "e": 0}
	if got := Nonzero(positions); got != 4 {
		t.Errorf("Nonzero: got %d, want 4", got)
	}
}
