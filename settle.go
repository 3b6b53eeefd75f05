package settle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xraph/settle/balance"
	"github.com/xraph/settle/executor"
	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/idempotency"
	"github.com/xraph/settle/identity"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/plugin"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store"
	"github.com/xraph/settle/types"
)

// Engine is the group debt settlement engine. It records shared expenses,
// derives net positions from them, and on demand plans and executes the
// transfers that zero those positions.
//
// Balances are never stored: they are recomputed from unsettled expenses on
// every read, so the expense log stays the single source of truth.
type Engine struct {
	store    store.Store
	executor *executor.Executor
	plugins  *plugin.Registry
	logger   *slog.Logger

	// Per-group writer lock. Expense appends, membership changes and
	// settlement state transitions for one group never interleave.
	locks groupLocks

	// In-flight settlement runs, keyed by group ID. A second trigger for
	// the same group joins the running one instead of double-executing.
	mu       sync.Mutex
	inflight map[string]*settlementRun
	stopped  bool
	wg       sync.WaitGroup

	execOpts []executor.Option
}

// New creates a new Engine on the given store and payment rail.
func New(s store.Store, r rail.Rail, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		inflight: make(map[string]*settlementRun),
	}

	for _, opt := range opts {
		opt(e)
	}

	execOpts := append([]executor.Option{executor.WithLogger(e.logger)}, e.execOpts...)
	e.executor = executor.New(r, execOpts...)

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			return
		}
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithResolver sets the identity resolver used to turn participant IDs into
// payable addresses at transfer time.
func WithResolver(r identity.Resolver) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, executor.WithResolver(r))
	}
}

// WithIdempotencyRegistry sets the registry consulted before every transfer
// submission so re-running a plan never double-pays.
func WithIdempotencyRegistry(reg idempotency.Registry) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, executor.WithRegistry(reg))
	}
}

// WithTransferConcurrency bounds how many transfers run against the rail at
// once during a settlement run.
func WithTransferConcurrency(n int) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, executor.WithConcurrency(n))
	}
}

// WithTransferTimeout sets the per-attempt transfer timeout.
func WithTransferTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, executor.WithTransferTimeout(d))
	}
}

// WithTransferRetries configures transfer retry parameters.
func WithTransferRetries(maxRetries int, interval time.Duration) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts,
			executor.WithMaxRetries(maxRetries),
			executor.WithRetryInterval(interval),
		)
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("settle engine started", "plugins", e.plugins.Count())
	return nil
}

// Stop shuts down the Engine. It refuses new settlement runs, waits for
// in-flight ones to reach a terminal outcome, then closes the store.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Ping reports whether the backing store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Group Management
// ──────────────────────────────────────────────────

// CreateGroupInput describes a new group. The admin is always a member; IDs
// listed in Members are added with the member role, duplicates ignored.
type CreateGroupInput struct {
	Name     string
	Currency string
	AdminID  string
	Members  []string
	Metadata map[string]string
}

// CreateGroup creates a new expense-sharing group in the active state.
// Currency defaults to usd when empty.
func (e *Engine) CreateGroup(ctx context.Context, in CreateGroupInput) (*group.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	if in.AdminID == "" {
		return nil, ValidationError{Field: "admin_id", Message: "must not be empty"}
	}

	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "usd"
	}

	now := time.Now().UTC()
	members := []group.Member{{ParticipantID: in.AdminID, Role: group.RoleAdmin, JoinedAt: now}}
	seen := map[string]bool{in.AdminID: true}
	for _, pid := range in.Members {
		if pid == "" {
			return nil, ValidationError{Field: "members", Message: "participant id must not be empty"}
		}
		if seen[pid] {
			continue
		}
		seen[pid] = true
		members = append(members, group.Member{ParticipantID: pid, Role: group.RoleMember, JoinedAt: now})
	}

	g := &group.Group{
		Entity:   types.NewEntity(),
		ID:       id.NewGroupID(),
		Name:     name,
		Currency: currency,
		AdminID:  in.AdminID,
		Members:  members,
		Status:   group.StatusActive,
		Metadata: in.Metadata,
	}

	if err := e.store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	e.logger.Debug("group created", "group_id", g.ID, "currency", g.Currency, "members", len(g.Members))
	return g, nil
}

// GetGroup retrieves a group by ID.
func (e *Engine) GetGroup(ctx context.Context, groupID id.GroupID) (*group.Group, error) {
	return e.store.GetGroup(ctx, groupID)
}

// ListGroups lists groups, optionally filtered by status.
func (e *Engine) ListGroups(ctx context.Context, opts group.ListOpts) ([]*group.Group, error) {
	return e.store.ListGroups(ctx, opts)
}

// AddMember appends a participant to a group. Membership is append-only, so
// adding is legal in the active and settled states but not while a
// settlement run is in flight.
func (e *Engine) AddMember(ctx context.Context, groupID id.GroupID, participantID string) (*group.Group, error) {
	if participantID == "" {
		return nil, ValidationError{Field: "participant_id", Message: "must not be empty"}
	}

	lk := e.locks.get(groupID)
	lk.Lock()
	defer lk.Unlock()

	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	switch g.Status {
	case group.StatusClosed:
		return nil, ErrGroupClosed
	case group.StatusSettling:
		return nil, ErrSettlementInProgress
	}

	if g.HasMember(participantID) {
		return nil, ErrMemberExists
	}

	g.Members = append(g.Members, group.Member{
		ParticipantID: participantID,
		Role:          group.RoleMember,
		JoinedAt:      time.Now().UTC(),
	})
	g.Touch()

	if err := e.store.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}

	e.logger.Debug("member added", "group_id", g.ID, "participant_id", participantID)
	return g, nil
}

// RemoveMember removes a participant who was added by mistake. It only works
// while the group has no expenses at all: split math depends on membership,
// so once any expense exists members are append-only.
func (e *Engine) RemoveMember(ctx context.Context, groupID id.GroupID, participantID string) (*group.Group, error) {
	lk := e.locks.get(groupID)
	lk.Lock()
	defer lk.Unlock()

	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	switch g.Status {
	case group.StatusClosed:
		return nil, ErrGroupClosed
	case group.StatusSettling:
		return nil, ErrSettlementInProgress
	}

	if participantID == g.AdminID {
		return nil, ValidationError{Field: "participant_id", Message: "the group admin cannot be removed"}
	}
	if !g.HasMember(participantID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMember, participantID)
	}

	existing, err := e.store.ListExpenses(ctx, groupID, expense.ListOpts{IncludeSettled: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrMemberRemoval
	}

	members := g.Members[:0:0]
	for _, m := range g.Members {
		if m.ParticipantID != participantID {
			members = append(members, m)
		}
	}
	g.Members = members
	g.Touch()

	if err := e.store.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}

	e.logger.Debug("member removed", "group_id", g.ID, "participant_id", participantID)
	return g, nil
}

// ArchiveGroup closes a group permanently. Only the group admin may archive,
// and never while a settlement run is in flight. Closed is terminal.
func (e *Engine) ArchiveGroup(ctx context.Context, groupID id.GroupID, requestedBy string) error {
	lk := e.locks.get(groupID)
	lk.Lock()
	defer lk.Unlock()

	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	switch g.Status {
	case group.StatusClosed:
		return ErrGroupClosed
	case group.StatusSettling:
		return ErrSettlementInProgress
	}

	if requestedBy != g.AdminID {
		return ErrNotAdmin
	}

	from := g.Status
	now := time.Now().UTC()
	g.ClosedAt = &now
	if err := e.transition(ctx, g, group.StatusClosed); err != nil {
		g.ClosedAt = nil
		return err
	}

	e.plugins.EmitGroupStatusChanged(ctx, g, from, group.StatusClosed)
	e.logger.Info("group archived", "group_id", g.ID)
	return nil
}

// ──────────────────────────────────────────────────
// Expense Ledger
// ──────────────────────────────────────────────────

// AddExpenseInput describes one shared payment. Amount currency may be left
// empty to mean the group currency; a different currency is rejected.
type AddExpenseInput struct {
	GroupID     id.GroupID
	PayerID     string
	Amount      types.Money
	Description string
	SplitAmong  []string
	Metadata    map[string]string
}

// AddExpense appends an expense to a group's ledger. The amount is split
// integer-exactly across SplitAmong in order. Adding to a settled group
// reopens it: the group returns to active.
func (e *Engine) AddExpense(ctx context.Context, in AddExpenseInput) (*expense.Expense, error) {
	if in.Amount.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(in.SplitAmong) == 0 {
		return nil, ErrEmptySplit
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, ValidationError{Field: "description", Message: "must not be empty"}
	}

	lk := e.locks.get(in.GroupID)
	lk.Lock()
	defer lk.Unlock()

	g, err := e.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}

	switch g.Status {
	case group.StatusClosed:
		return nil, ErrGroupClosed
	case group.StatusSettling:
		return nil, ErrSettlementInProgress
	}

	amount := in.Amount
	amount.Currency = strings.ToLower(amount.Currency)
	if amount.Currency == "" {
		amount.Currency = g.Currency
	} else if amount.Currency != g.Currency {
		return nil, fmt.Errorf("%w: expense %s, group %s", ErrCurrencyMismatch, amount.Currency, g.Currency)
	}

	if !g.HasMember(in.PayerID) {
		return nil, fmt.Errorf("%w: payer %s", ErrUnknownMember, in.PayerID)
	}
	seen := make(map[string]bool, len(in.SplitAmong))
	for _, pid := range in.SplitAmong {
		if !g.HasMember(pid) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMember, pid)
		}
		if seen[pid] {
			return nil, ValidationError{Field: "split_among", Message: "duplicate participant " + pid}
		}
		seen[pid] = true
	}

	exp := expense.New(in.GroupID, in.PayerID, amount, description, in.SplitAmong)
	exp.Metadata = in.Metadata

	if err := e.store.AppendExpense(ctx, exp); err != nil {
		return nil, err
	}

	// A settled group reopens the moment a new expense arrives.
	if g.Status == group.StatusSettled {
		if err := e.transition(ctx, g, group.StatusActive); err != nil {
			return nil, err
		}
		e.plugins.EmitGroupStatusChanged(ctx, g, group.StatusSettled, group.StatusActive)
	}

	e.logger.Debug("expense added",
		"group_id", g.ID,
		"expense_id", exp.ID,
		"payer_id", exp.PayerID,
		"amount", exp.Amount.Amount,
		"split", len(exp.Shares),
	)

	e.plugins.EmitExpenseAdded(ctx, exp)
	return exp, nil
}

// GetExpense retrieves an expense by ID.
func (e *Engine) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	return e.store.GetExpense(ctx, expenseID)
}

// ListExpenses lists a group's expenses, newest last.
func (e *Engine) ListExpenses(ctx context.Context, groupID id.GroupID, opts expense.ListOpts) ([]*expense.Expense, error) {
	if _, err := e.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return e.store.ListExpenses(ctx, groupID, opts)
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

// GroupBalances recomputes net positions from the group's unsettled expenses.
// Positive means the participant is owed money, negative means they owe.
// A conservation failure (positions not summing to zero) is returned as an
// InvariantViolationError rather than papered over.
func (e *Engine) GroupBalances(ctx context.Context, groupID id.GroupID) (balance.Positions, error) {
	if _, err := e.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	unsettled, err := e.store.ListUnsettledExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	positions := balance.Compute(unsettled)
	if err := balance.CheckConservation(positions); err != nil {
		return nil, InvariantViolationError{Invariant: "conservation", Detail: err.Error()}
	}
	return positions, nil
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// SettlementResult is the outcome of one TriggerSettlement call.
type SettlementResult struct {
	Plan    *plan.Plan       `json:"plan"`
	Report  *executor.Report `json:"report"`
	Run     *plan.Run        `json:"run,omitempty"`
	Settled []id.ExpenseID   `json:"settled_expenses,omitempty"`
	Status  group.Status     `json:"group_status"`
}

// settlementRun is one in-flight settlement run shared by concurrent
// triggers for the same group.
type settlementRun struct {
	done   chan struct{}
	result *SettlementResult
	err    error
}

// TriggerSettlement plans and executes the transfers that zero the group's
// current net positions. Concurrent calls for the same group share a single
// run; a call for a group that is already settled returns an empty plan.
//
// On a partial run only the expenses whose stakeholders were all covered by
// confirmed transfers are marked settled, and the group returns to active so
// residual balances can be settled by a later call.
func (e *Engine) TriggerSettlement(ctx context.Context, groupID id.GroupID) (*SettlementResult, error) {
	key := groupID.String()

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, ErrStoreClosed
	}
	if existing, ok := e.inflight[key]; ok {
		e.mu.Unlock()
		select {
		case <-existing.done:
			return existing.result, existing.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	run := &settlementRun{done: make(chan struct{})}
	e.inflight[key] = run
	e.wg.Add(1)
	e.mu.Unlock()

	result, err := e.settle(ctx, groupID)

	e.mu.Lock()
	delete(e.inflight, key)
	e.mu.Unlock()

	run.result, run.err = result, err
	close(run.done)
	e.wg.Done()

	return result, err
}

// GetRun retrieves a settlement run record by ID.
func (e *Engine) GetRun(ctx context.Context, runID id.RunID) (*plan.Run, error) {
	return e.store.GetRun(ctx, runID)
}

// ListRuns lists a group's settlement run records, oldest first.
func (e *Engine) ListRuns(ctx context.Context, groupID id.GroupID, opts plan.ListOpts) ([]*plan.Run, error) {
	return e.store.ListRuns(ctx, groupID, opts)
}

// settle performs a single settlement run for a group.
func (e *Engine) settle(ctx context.Context, groupID id.GroupID) (*SettlementResult, error) {
	lk := e.locks.get(groupID)

	lk.Lock()
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		lk.Unlock()
		return nil, err
	}

	switch g.Status {
	case group.StatusClosed:
		lk.Unlock()
		return nil, ErrGroupClosed
	case group.StatusSettling:
		// Left behind by an interrupted process; refuse rather than guess.
		lk.Unlock()
		return nil, ErrSettlementInProgress
	}

	unsettled, err := e.store.ListUnsettledExpenses(ctx, groupID)
	if err != nil {
		lk.Unlock()
		return nil, err
	}

	// Nothing outstanding: report an empty plan without a state round-trip.
	if len(unsettled) == 0 {
		status := g.Status
		currency := g.Currency
		lk.Unlock()

		p := plan.Build(groupID, currency, nil)
		return &SettlementResult{
			Plan:   p,
			Report: e.executor.Execute(ctx, p),
			Status: status,
		}, nil
	}

	positions := balance.Compute(unsettled)
	if err := balance.CheckConservation(positions); err != nil {
		lk.Unlock()
		return nil, InvariantViolationError{Invariant: "conservation", Detail: err.Error()}
	}

	from := g.Status
	if err := e.transition(ctx, g, group.StatusSettling); err != nil {
		lk.Unlock()
		return nil, err
	}
	lk.Unlock()
	e.plugins.EmitGroupStatusChanged(ctx, g, from, group.StatusSettling)

	// Nothing submitted yet, so cancellation here has no side effects.
	if ctx.Err() != nil {
		e.reopen(ctx, g)
		return nil, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
	}

	p := plan.Build(groupID, g.Currency, positions)
	if bound := balance.Nonzero(positions) - 1; bound >= 0 && len(p.Transactions) > bound {
		e.reopen(ctx, g)
		return nil, InvariantViolationError{
			Invariant: "transfer bound",
			Detail:    fmt.Sprintf("%d transfers planned for %d nonzero positions", len(p.Transactions), balance.Nonzero(positions)),
		}
	}
	e.plugins.EmitSettlementPlanned(ctx, p)

	report := e.executor.Execute(ctx, p)

	// Money may have moved; finalize even if the caller gave up.
	finCtx := context.WithoutCancel(ctx)
	result, g, err := e.finalize(finCtx, groupID, p, report, unsettled)
	if err != nil {
		return nil, err
	}

	for i := range report.Results {
		res := &report.Results[i]
		if res.Confirmed() {
			e.plugins.EmitTransactionConfirmed(finCtx, res.Transaction, res.Reference)
		} else {
			e.plugins.EmitTransactionFailed(finCtx, res.Transaction, res.Transaction.FailReason)
		}
	}
	e.plugins.EmitGroupStatusChanged(finCtx, g, group.StatusSettling, result.Status)
	e.plugins.EmitSettlementFinished(finCtx, result.Run)

	e.logger.Info("settlement run finished",
		"group_id", groupID,
		"plan_id", p.ID,
		"outcome", result.Run.Outcome,
		"confirmed", result.Run.Confirmed,
		"failed", result.Run.Failed,
		"settled_expenses", len(result.Settled),
	)

	return result, nil
}

// finalize marks fully covered expenses settled, records the run, and moves
// the group out of the settling state. The context must survive caller
// cancellation: by now transfers may have executed.
func (e *Engine) finalize(ctx context.Context, groupID id.GroupID, p *plan.Plan, report *executor.Report, unsettled []*expense.Expense) (*SettlementResult, *group.Group, error) {
	lk := e.locks.get(groupID)
	lk.Lock()
	defer lk.Unlock()

	uncovered := report.UncoveredParticipants()
	now := time.Now().UTC()

	var settledIDs []id.ExpenseID
	for _, exp := range unsettled {
		if !covered(exp, uncovered) {
			continue
		}
		if err := e.store.MarkExpenseSettled(ctx, exp.ID, now); err != nil {
			return nil, nil, e.abandon(ctx, groupID, err)
		}
		settledIDs = append(settledIDs, exp.ID)
	}

	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, e.abandon(ctx, groupID, err)
	}

	next := group.StatusActive
	if len(settledIDs) == len(unsettled) {
		next = group.StatusSettled
	}
	if err := e.transition(ctx, g, next); err != nil {
		return nil, nil, e.abandon(ctx, groupID, err)
	}

	run := &plan.Run{
		ID:         id.NewRunID(),
		GroupID:    groupID,
		PlanID:     p.ID,
		Outcome:    report.Outcome(),
		Planned:    len(p.Transactions),
		Confirmed:  report.Confirmed(),
		Failed:     report.Failed(),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		e.logger.Error("settlement run record not persisted", "group_id", groupID, "run_id", run.ID, "error", err)
	}

	return &SettlementResult{
		Plan:    p,
		Report:  report,
		Run:     run,
		Settled: settledIDs,
		Status:  next,
	}, g, nil
}

// covered reports whether none of the expense's stakeholders were touched by
// a failed transfer.
func covered(exp *expense.Expense, uncovered map[string]bool) bool {
	for _, pid := range exp.Stakeholders() {
		if uncovered[pid] {
			return false
		}
	}
	return true
}

// reopen returns a group from settling to active after a run that made no
// transfers. Best effort: a failure here is logged, not returned.
func (e *Engine) reopen(ctx context.Context, g *group.Group) {
	ctx = context.WithoutCancel(ctx)

	lk := e.locks.get(g.ID)
	lk.Lock()
	err := e.transition(ctx, g, group.StatusActive)
	lk.Unlock()

	if err != nil {
		e.logger.Error("group stuck in settling", "group_id", g.ID, "error", err)
		return
	}
	e.plugins.EmitGroupStatusChanged(ctx, g, group.StatusSettling, group.StatusActive)
}

// abandon tries to move a group back to active after a store failure midway
// through finalizing, so the residual balances stay settleable. The caller
// must hold the group lock. The original error is always returned.
func (e *Engine) abandon(ctx context.Context, groupID id.GroupID, cause error) error {
	g, err := e.store.GetGroup(ctx, groupID)
	if err == nil {
		err = e.transition(ctx, g, group.StatusActive)
	}
	if err != nil {
		e.logger.Error("group stuck in settling", "group_id", groupID, "error", err)
	}
	return cause
}

// transition moves g to the next lifecycle state and persists it. Illegal
// transitions are an invariant violation. The caller must hold the group
// lock.
func (e *Engine) transition(ctx context.Context, g *group.Group, next group.Status) error {
	from := g.Status
	if !from.CanTransition(next) {
		return InvariantViolationError{
			Invariant: "lifecycle",
			Detail:    fmt.Sprintf("group %s cannot move %s -> %s", g.ID, from, next),
		}
	}

	g.Status = next
	g.Touch()
	if err := e.store.UpdateGroup(ctx, g); err != nil {
		g.Status = from
		return err
	}
	return nil
}

// ──────────────────────────────────────────────────
// Internal
// ──────────────────────────────────────────────────

// groupLocks hands out one mutex per group ID.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *groupLocks) get(groupID id.GroupID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	key := groupID.String()
	lk, ok := l.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[key] = lk
	}
	return lk
}
