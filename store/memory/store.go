// Package memory provides an in-memory implementation of the store.Store
// interface, suitable for tests, demos and embedded single-process use.
//
// The store is safe for concurrent use. Values are cloned on both write and
// read, so callers never share memory with the store or with each other.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/xraph/settle"
	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	settlestore "github.com/xraph/settle/store"
)

// compile-time interface check
var _ settlestore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Group storage
	groups map[string]*group.Group

	// Expense storage. expenseOrder preserves append order per group so
	// listings replay the ledger in the order it was written.
	expenses     map[string]*expense.Expense
	expenseOrder map[string][]string

	// Settlement run storage
	runs     map[string]*plan.Run
	runOrder map[string][]string
}

func New() *Store {
	return &Store{
		groups:       make(map[string]*group.Group),
		expenses:     make(map[string]*expense.Expense),
		expenseOrder: make(map[string][]string),
		runs:         make(map[string]*plan.Run),
		runOrder:     make(map[string][]string),
	}
}

// Group Store implementation
func (s *Store) CreateGroup(_ context.Context, g *group.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[g.ID.String()]; exists {
		return settle.ErrAlreadyExists
	}
	s.groups[g.ID.String()] = cloneGroup(g)
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID id.GroupID) (*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.groups[groupID.String()]; ok {
		return cloneGroup(g), nil
	}
	return nil, settle.ErrGroupNotFound
}

func (s *Store) ListGroups(_ context.Context, opts group.ListOpts) ([]*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*group.Group, 0)
	for _, g := range s.groups {
		if opts.Status == "" || g.Status == opts.Status {
			result = append(result, cloneGroup(g))
		}
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) UpdateGroup(_ context.Context, g *group.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[g.ID.String()]; !exists {
		return settle.ErrGroupNotFound
	}
	s.groups[g.ID.String()] = cloneGroup(g)
	return nil
}

// Expense Store implementation
func (s *Store) AppendExpense(_ context.Context, e *expense.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[e.ID.String()]; exists {
		return settle.ErrAlreadyExists
	}
	s.expenses[e.ID.String()] = cloneExpense(e)
	s.expenseOrder[e.GroupID.String()] = append(s.expenseOrder[e.GroupID.String()], e.ID.String())
	return nil
}

func (s *Store) GetExpense(_ context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.expenses[expenseID.String()]; ok {
		return cloneExpense(e), nil
	}
	return nil, settle.ErrExpenseNotFound
}

func (s *Store) ListExpenses(_ context.Context, groupID id.GroupID, opts expense.ListOpts) ([]*expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*expense.Expense, 0)
	for _, eid := range s.expenseOrder[groupID.String()] {
		e := s.expenses[eid]
		if !opts.IncludeSettled && e.Settled {
			continue
		}
		result = append(result, cloneExpense(e))
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) ListUnsettledExpenses(_ context.Context, groupID id.GroupID) ([]*expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*expense.Expense, 0)
	for _, eid := range s.expenseOrder[groupID.String()] {
		if e := s.expenses[eid]; !e.Settled {
			result = append(result, cloneExpense(e))
		}
	}
	return result, nil
}

func (s *Store) MarkExpenseSettled(_ context.Context, expenseID id.ExpenseID, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.expenses[expenseID.String()]; ok {
		e.MarkSettled(settledAt)
		return nil
	}
	return settle.ErrExpenseNotFound
}

// Settlement run Store implementation
func (s *Store) CreateRun(_ context.Context, r *plan.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[r.ID.String()]; exists {
		return settle.ErrAlreadyExists
	}
	clone := *r
	s.runs[r.ID.String()] = &clone
	s.runOrder[r.GroupID.String()] = append(s.runOrder[r.GroupID.String()], r.ID.String())
	return nil
}

func (s *Store) GetRun(_ context.Context, runID id.RunID) (*plan.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.runs[runID.String()]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, settle.ErrRunNotFound
}

func (s *Store) ListRuns(_ context.Context, groupID id.GroupID, opts plan.ListOpts) ([]*plan.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*plan.Run, 0)
	for _, rid := range s.runOrder[groupID.String()] {
		r := s.runs[rid]
		if opts.Outcome == "" || r.Outcome == opts.Outcome {
			clone := *r
			result = append(result, &clone)
		}
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

func cloneGroup(g *group.Group) *group.Group {
	clone := *g
	clone.Members = append([]group.Member(nil), g.Members...)
	clone.Metadata = maps.Clone(g.Metadata)
	if g.ClosedAt != nil {
		at := *g.ClosedAt
		clone.ClosedAt = &at
	}
	return &clone
}

func cloneExpense(e *expense.Expense) *expense.Expense {
	clone := *e
	clone.Shares = append([]expense.Share(nil), e.Shares...)
	clone.Metadata = maps.Clone(e.Metadata)
	if e.SettledAt != nil {
		at := *e.SettledAt
		clone.SettledAt = &at
	}
	return &clone
}
