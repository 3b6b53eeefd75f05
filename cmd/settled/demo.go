package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	settle "github.com/xraph/settle"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store/memory"
	"github.com/xraph/settle/types"
)

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run an in-memory settlement walkthrough",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd)
		},
	}
}

func runDemo(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	eng := settle.New(memory.New(), rail.NewMemory(),
		settle.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop() //nolint:errcheck // in-memory teardown

	g, err := eng.CreateGroup(ctx, settle.CreateGroupInput{
		Name:    "Ski Trip",
		AdminID: "alice",
		Members: []string{"bob", "carol", "dave"},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created group %q (%s)\n\n", g.Name, g.ID)

	expenses := []struct {
		payer, description string
		amount             int64
	}{
		{"alice", "cabin rental", 84000},
		{"bob", "groceries", 17250},
		{"carol", "lift tickets", 36000},
	}
	everyone := g.ParticipantIDs()
	for _, e := range expenses {
		exp, err := eng.AddExpense(ctx, settle.AddExpenseInput{
			GroupID:     g.ID,
			PayerID:     e.payer,
			Amount:      types.USD(e.amount),
			Description: e.description,
			SplitAmong:  everyone,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s paid %s for %s, split %d ways\n",
			e.payer, exp.Amount, e.description, len(exp.Shares))
	}

	positions, err := eng.GroupBalances(ctx, g.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nnet positions (minor units):\n")
	for _, pid := range everyone {
		fmt.Fprintf(out, "  %-6s %+d\n", pid, positions[pid])
	}

	result, err := eng.TriggerSettlement(ctx, g.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nsettlement plan (%d transfers):\n", len(result.Plan.Transactions))
	for _, txn := range result.Plan.Transactions {
		fmt.Fprintf(out, "  %s pays %s %s  [%s]\n", txn.FromID, txn.ToID, txn.Amount, txn.State)
	}
	fmt.Fprintf(out, "\ngroup is now %s\n", result.Status)
	return nil
}
