package mongo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xraph/settle"
	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/types"
)

// newTestStore connects to the MongoDB instance named by SETTLE_TEST_MONGO_URL,
// skipping the test when it is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv("SETTLE_TEST_MONGO_URL"))
	if uri == "" {
		t.Skip("SETTLE_TEST_MONGO_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := Connect(ctx, uri, "settle_test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func TestMongoGroupRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	g := &group.Group{
		Entity:   types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:       id.NewGroupID(),
		Name:     "Goa Trip",
		Currency: "INR",
		AdminID:  "alice",
		Members: []group.Member{
			{ParticipantID: "alice", Role: group.RoleAdmin, JoinedAt: now},
			{ParticipantID: "bob", Role: group.RoleMember, JoinedAt: now},
		},
		Status: group.StatusActive,
	}
	if err := store.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	got, err := store.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup() error = %v", err)
	}
	if got.Name != g.Name || got.Currency != g.Currency || len(got.Members) != 2 {
		t.Errorf("GetGroup() = %+v, want round-tripped group", got)
	}
	if got.Members[0].Role != group.RoleAdmin {
		t.Errorf("first member role = %q, want admin", got.Members[0].Role)
	}

	got.Status = group.StatusClosed
	closedAt := now.Add(time.Hour)
	got.ClosedAt = &closedAt
	if err := store.UpdateGroup(ctx, got); err != nil {
		t.Fatalf("UpdateGroup() error = %v", err)
	}

	again, err := store.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup() after update error = %v", err)
	}
	if again.Status != group.StatusClosed || again.ClosedAt == nil {
		t.Errorf("updated group = %+v, want closed with timestamp", again)
	}
}

func TestMongoExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	groupID := id.NewGroupID()
	e := expense.New(groupID, "alice", types.New(10001, "INR"), "Dinner", []string{"alice", "bob"})
	if err := store.AppendExpense(ctx, e); err != nil {
		t.Fatalf("AppendExpense() error = %v", err)
	}

	got, err := store.GetExpense(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Amount.Amount != 10001 || len(got.Shares) != 2 {
		t.Fatalf("GetExpense() = %+v, want round-tripped expense", got)
	}
	if got.Shares[0].Amount.Amount != 5001 || got.Shares[1].Amount.Amount != 5000 {
		t.Errorf("shares = %d/%d, want 5001/5000",
			got.Shares[0].Amount.Amount, got.Shares[1].Amount.Amount)
	}

	unsettled, err := store.ListUnsettledExpenses(ctx, groupID)
	if err != nil {
		t.Fatalf("ListUnsettledExpenses() error = %v", err)
	}
	if len(unsettled) != 1 {
		t.Fatalf("unsettled = %d, want 1", len(unsettled))
	}

	settledAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.MarkExpenseSettled(ctx, e.ID, settledAt); err != nil {
		t.Fatalf("MarkExpenseSettled() error = %v", err)
	}
	if err := store.MarkExpenseSettled(ctx, e.ID, settledAt.Add(time.Hour)); err != nil {
		t.Fatalf("MarkExpenseSettled() second call error = %v", err)
	}

	settled, err := store.GetExpense(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetExpense() after mark error = %v", err)
	}
	if !settled.Settled || settled.SettledAt == nil || !settled.SettledAt.Equal(settledAt) {
		t.Errorf("settled expense = %+v, want original timestamp %v", settled, settledAt)
	}

	unsettled, err = store.ListUnsettledExpenses(ctx, groupID)
	if err != nil {
		t.Fatalf("ListUnsettledExpenses() error = %v", err)
	}
	if len(unsettled) != 0 {
		t.Errorf("unsettled after mark = %d, want 0", len(unsettled))
	}
}

func TestMongoRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	groupID := id.NewGroupID()
	r := &plan.Run{
		ID:         id.NewRunID(),
		GroupID:    groupID,
		PlanID:     id.NewPlanID(),
		Outcome:    plan.OutcomePartial,
		Planned:    3,
		Confirmed:  2,
		Failed:     1,
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
	}
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := store.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Outcome != plan.OutcomePartial || got.Failed != 1 {
		t.Errorf("GetRun() = %+v, want partial with one failure", got)
	}

	partial, err := store.ListRuns(ctx, groupID, plan.ListOpts{Outcome: plan.OutcomePartial})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(partial) != 1 {
		t.Errorf("partial runs = %d, want 1", len(partial))
	}

	done, err := store.ListRuns(ctx, groupID, plan.ListOpts{Outcome: plan.OutcomeDone})
	if err != nil {
		t.Fatalf("ListRuns() done error = %v", err)
	}
	if len(done) != 0 {
		t.Errorf("done runs = %d, want 0", len(done))
	}
}

func TestMongoNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.GetGroup(ctx, id.NewGroupID()); !errors.Is(err, settle.ErrGroupNotFound) {
		t.Errorf("GetGroup() error = %v, want ErrGroupNotFound", err)
	}
	if _, err := store.GetExpense(ctx, id.NewExpenseID()); !errors.Is(err, settle.ErrExpenseNotFound) {
		t.Errorf("GetExpense() error = %v, want ErrExpenseNotFound", err)
	}
	if _, err := store.GetRun(ctx, id.NewRunID()); !errors.Is(err, settle.ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}
