package expense

import (
	"testing"
	"time"

	"github.com/xraph/settle/id"
	"github.com/xraph/settle/types"
)

func TestNewSplitsExactly(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		splitAmong []string
		shares     []int64
	}{
		{"even four way", 6000, []string{"a", "b", "c", "d"}, []int64{1500, 1500, 1500, 1500}},
		{"remainder to first", 100, []string{"a", "b", "c"}, []int64{34, 33, 33}},
		{"two units remainder", 1001, []string{"a", "b", "c"}, []int64{334, 334, 333}},
		{"single participant", 4900, []string{"a"}, []int64{4900}},
		{"amount below count", 2, []string{"a", "b", "c"}, []int64{1, 1, 0}},
	}

	gid := id.NewGroupID()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(gid, "a", types.USD(tt.amount), "dinner", tt.splitAmong)

			if len(e.Shares) != len(tt.shares) {
				t.Fatalf("shares: got %d, want %d", len(e.Shares), len(tt.shares))
			}

			var sum int64
			for i, s := range e.Shares {
				if s.ParticipantID != tt.splitAmong[i] {
					t.Errorf("share %d participant: got %s, want %s", i, s.ParticipantID, tt.splitAmong[i])
				}
				if s.Amount.Amount != tt.shares[i] {
					t.Errorf("share %d: got %d, want %d", i, s.Amount.Amount, tt.shares[i])
				}
				sum += s.Amount.Amount
			}
			if sum != tt.amount {
				t.Errorf("shares sum to %d, want %d", sum, tt.amount)
			}
		})
	}
}

func TestShareOf(t *testing.T) {
	e := New(id.NewGroupID(), "a", types.USD(100), "coffee", []string{"a", "b", "c"})

	if got := e.ShareOf("a"); got.Amount != 34 {
		t.Errorf("ShareOf(a): got %d, want 34", got.Amount)
	}
	if got := e.ShareOf("c"); got.Amount != 33 {
		t.Errorf("ShareOf(c): got %d, want 33", got.Amount)
	}
	if got := e.ShareOf("zz"); !got.IsZero() {
		t.Errorf("ShareOf(unknown): got %d, want 0", got.Amount)
	}
}

func TestStakeholders(t *testing.T) {
	gid := id.NewGroupID()

	tests := []struct {
		name       string
		payer      string
		amount     int64
		splitAmong []string
		want       []string
	}{
		{"payer in split", "a", 6000, []string{"a", "b", "c"}, []string{"b", "c", "a"}},
		{"payer not in split", "a", 100, []string{"b", "c"}, []string{"b", "c", "a"}},
		{"self expense only", "a", 4900, []string{"a"}, nil},
		{"zero share dropped", "a", 2, []string{"a", "b", "c"}, []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(gid, tt.payer, types.USD(tt.amount), "x", tt.splitAmong)
			got := e.Stakeholders()
			if len(got) != len(tt.want) {
				t.Fatalf("stakeholders: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("stakeholder %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMarkSettledIdempotent(t *testing.T) {
	e := New(id.NewGroupID(), "a", types.USD(100), "x", []string{"a", "b"})

	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.MarkSettled(first)
	if !e.Settled || e.SettledAt == nil || !e.SettledAt.Equal(first) {
		t.Fatalf("after first mark: settled=%v at=%v", e.Settled, e.SettledAt)
	}

	e.MarkSettled(first.Add(time.Hour))
	if !e.SettledAt.Equal(first) {
		t.Errorf("second mark moved timestamp to %v", e.SettledAt)
	}
}
