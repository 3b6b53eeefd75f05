package settle_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/settle"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store/memory"
	"github.com/xraph/settle/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine with an in-memory rail
		eng := settle.New(store, rail.NewMemory(),
			settle.WithLogger(slog.Default()),
			settle.WithTransferConcurrency(4),
			settle.WithTransferRetries(3, 250*time.Millisecond),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Create a group
		g, err := eng.CreateGroup(ctx, settle.CreateGroupInput{
			Name:     "Ski trip",
			Currency: "usd",
			AdminID:  "alice",
			Members:  []string{"bob", "carol", "dan"},
		})
		if err != nil {
			t.Fatal(err)
		}

		// Record an expense: alice paid $60.00 split across everyone
		exp, err := eng.AddExpense(ctx, settle.AddExpenseInput{
			GroupID:     g.ID,
			PayerID:     "alice",
			Amount:      settle.USD(6000),
			Description: "cabin",
			SplitAmong:  []string{"alice", "bob", "carol", "dan"},
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("expense recorded: %s\n", exp.Amount.String())

		// Read net positions; they always sum to zero
		positions, err := eng.GroupBalances(ctx, g.ID)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("alice is owed %d minor units\n", positions["alice"])

		// Settle the group
		result, err := eng.TriggerSettlement(ctx, g.ID)
		if err != nil {
			t.Fatal(err)
		}

		if result.Report.AllConfirmed() {
			log.Printf("settled in %d transfers\n", len(result.Plan.Transactions))
		} else {
			log.Printf("partial settlement: %d failed\n", result.Report.Failed())
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(4900)   // $49.00
		_ = types.EUR(9900)   // €99.00
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		_ = m1.Add(m2)      // $3.00
		_ = m2.Subtract(m1) // $1.00
		_ = m1.Negate()     // -$1.00

		// Integer-exact splitting: shares sum back to the amount
		parts := types.USD(100).Split(3) // [$0.34, $0.33, $0.33]
		_ = types.Sum(parts...)

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
