// Package settle provides a composable group debt settlement engine for Go
// applications.
//
// Settle is designed as a library, not a service. Import it directly into
// your Go application (a chat bot, a payments backend, a CLI) and wire your
// own storage and payment rail. It provides:
//
//   - An append-only shared expense ledger with integer-exact splits
//   - Net positions recomputed from unsettled expenses on every read
//   - A greedy settlement planner bounded by nonzero positions minus one
//   - A concurrent transfer executor with retries and idempotency keys
//   - Partial-failure recovery that keeps residual balances settleable
//   - Pluggable stores (memory, SQLite, PostgreSQL, MongoDB)
//   - Plugin hooks for notifications, metrics and audit
//
// # Quick Start
//
// Create an engine with your preferred store and payment rail:
//
//	import (
//	    "github.com/xraph/settle"
//	    "github.com/xraph/settle/rail"
//	    "github.com/xraph/settle/store/memory"
//	)
//
//	eng := settle.New(memory.New(), rail.NewMemory())
//
//	ctx := context.Background()
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Groups collect participants who share expenses in a single currency:
//
//	g, err := eng.CreateGroup(ctx, settle.CreateGroupInput{
//	    Name:     "Ski trip",
//	    Currency: "usd",
//	    AdminID:  "alice",
//	    Members:  []string{"bob", "carol", "dan"},
//	})
//
// Expenses record who paid and who the cost is split across. Division is
// integer-exact: shares always sum back to the amount, with the remainder
// spread one minor unit at a time over the first participants in split
// order:
//
//	exp, err := eng.AddExpense(ctx, settle.AddExpenseInput{
//	    GroupID:     g.ID,
//	    PayerID:     "alice",
//	    Amount:      settle.USD(6000),
//	    Description: "cabin",
//	    SplitAmong:  []string{"alice", "bob", "carol", "dan"},
//	})
//
// Balances are derived, never stored. A positive position means the
// participant is owed money, negative means they owe; positions always sum
// to zero:
//
//	positions, err := eng.GroupBalances(ctx, g.ID)
//
// Settlement plans the fewest transfers that zero every position and
// executes them against the rail. Failed transfers leave their expenses
// unsettled and the group active, so a later run can settle the residue:
//
//	result, err := eng.TriggerSettlement(ctx, g.ID)
//	if result.Report.AllConfirmed() {
//	    // group is settled
//	}
//
// All monetary amounts use integer arithmetic in the smallest currency unit
// (cents for USD, pence for GBP, whole yen for JPY). There is no floating
// point anywhere in the money path.
//
// # Integration
//
// Settle integrates with the Forgery ecosystem:
//
//   - Forge: engine lifecycle and dependency injection via the extension package
//   - Plugins: notifications (notify), metrics (observability), audit
//   - httpapi: a thin JSON HTTP surface for running Settle as a daemon
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	grp_01h2xcejqtf2nbrexx3vqjhp41   // Group ID
//	exp_01h2xcejqtf2nbrexx3vqjhp41   // Expense ID
//	plan_01h455vb4pex5vsknk084sn02q  // Settlement plan ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package settle
