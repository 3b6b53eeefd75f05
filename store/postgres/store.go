// Package postgres provides a PostgreSQL-backed implementation of the
// store.Store interface via the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver

	"github.com/xraph/settle"
	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	settlestore "github.com/xraph/settle/store"
)

// compile-time interface check
var _ settlestore.Store = (*Store)(nil)

// Store implements store.Store on a PostgreSQL database.
type Store struct {
	db *sql.DB
}

// Open connects to the database at databaseURL and verifies the connection.
// Migrations are not run automatically; call Migrate.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("settle/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Group Store ====================

const groupCols = "id, name, currency, admin_id, members, status, closed_at, metadata, created_at, updated_at"

func (s *Store) CreateGroup(ctx context.Context, g *group.Group) error {
	m := toGroupModel(g)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settle_groups ("+groupCols+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		m.ID, m.Name, m.Currency, m.AdminID, m.Members, m.Status, m.ClosedAt, m.Metadata, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*group.Group, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+groupCols+" FROM settle_groups WHERE id = $1", groupID.String(),
	)
	g, err := scanGroup(row)
	if err != nil {
		if isNoRows(err) {
			return nil, settle.ErrGroupNotFound
		}
		return nil, err
	}
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context, opts group.ListOpts) ([]*group.Group, error) {
	query := "SELECT " + groupCols + " FROM settle_groups"
	var args []any
	if opts.Status != "" {
		query += " WHERE status = $1"
		args = append(args, string(opts.Status))
	}
	query += " ORDER BY created_at ASC, id ASC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*group.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) UpdateGroup(ctx context.Context, g *group.Group) error {
	m := toGroupModel(g)
	res, err := s.db.ExecContext(ctx, `
		UPDATE settle_groups
		SET name = $1, currency = $2, admin_id = $3, members = $4, status = $5, closed_at = $6, metadata = $7, updated_at = NOW()
		WHERE id = $8`,
		m.Name, m.Currency, m.AdminID, m.Members, m.Status, m.ClosedAt, m.Metadata, m.ID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return settle.ErrGroupNotFound
	}
	return nil
}

// ==================== Expense Store ====================

const expenseCols = "id, group_id, payer_id, amount, currency, description, shares, settled, settled_at, metadata, created_at, updated_at"

func (s *Store) AppendExpense(ctx context.Context, e *expense.Expense) error {
	m := toExpenseModel(e)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settle_expenses ("+expenseCols+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		m.ID, m.GroupID, m.PayerID, m.Amount, m.Currency, m.Description, m.Shares, m.Settled, m.SettledAt, m.Metadata, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (s *Store) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+expenseCols+" FROM settle_expenses WHERE id = $1", expenseID.String(),
	)
	e, err := scanExpense(row)
	if err != nil {
		if isNoRows(err) {
			return nil, settle.ErrExpenseNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, groupID id.GroupID, opts expense.ListOpts) ([]*expense.Expense, error) {
	query := "SELECT " + expenseCols + " FROM settle_expenses WHERE group_id = $1"
	args := []any{groupID.String()}
	if !opts.IncludeSettled {
		query += " AND settled = FALSE"
	}
	query += " ORDER BY created_at ASC, id ASC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	return s.queryExpenses(ctx, query, args...)
}

func (s *Store) ListUnsettledExpenses(ctx context.Context, groupID id.GroupID) ([]*expense.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseCols+" FROM settle_expenses WHERE group_id = $1 AND settled = FALSE ORDER BY created_at ASC, id ASC",
		groupID.String(),
	)
}

func (s *Store) MarkExpenseSettled(ctx context.Context, expenseID id.ExpenseID, settledAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settle_expenses SET settled = TRUE, settled_at = $1, updated_at = NOW() WHERE id = $2 AND settled = FALSE",
		settledAt, expenseID.String(),
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	// Zero rows means either the expense is missing or it was already
	// settled; the latter keeps its original timestamp.
	var exists bool
	err = s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM settle_expenses WHERE id = $1)", expenseID.String(),
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return settle.ErrExpenseNotFound
	}
	return nil
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]*expense.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*expense.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ==================== Run Store ====================

const runCols = "id, group_id, plan_id, outcome, planned, confirmed, failed, started_at, finished_at"

func (s *Store) CreateRun(ctx context.Context, r *plan.Run) error {
	m := toRunModel(r)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settle_runs ("+runCols+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		m.ID, m.GroupID, m.PlanID, m.Outcome, m.Planned, m.Confirmed, m.Failed, m.StartedAt, m.FinishedAt,
	)
	return err
}

func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*plan.Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runCols+" FROM settle_runs WHERE id = $1", runID.String(),
	)
	r, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, settle.ErrRunNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *Store) ListRuns(ctx context.Context, groupID id.GroupID, opts plan.ListOpts) ([]*plan.Run, error) {
	query := "SELECT " + runCols + " FROM settle_runs WHERE group_id = $1"
	args := []any{groupID.String()}
	if opts.Outcome != "" {
		query += " AND outcome = $2"
		args = append(args, string(opts.Outcome))
	}
	query += " ORDER BY started_at ASC, id ASC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*plan.Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(r rowScanner) (*group.Group, error) {
	var m groupModel
	err := r.Scan(&m.ID, &m.Name, &m.Currency, &m.AdminID, &m.Members, &m.Status, &m.ClosedAt, &m.Metadata, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return fromGroupModel(&m)
}

func scanExpense(r rowScanner) (*expense.Expense, error) {
	var m expenseModel
	err := r.Scan(&m.ID, &m.GroupID, &m.PayerID, &m.Amount, &m.Currency, &m.Description, &m.Shares, &m.Settled, &m.SettledAt, &m.Metadata, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return fromExpenseModel(&m)
}

func scanRun(r rowScanner) (*plan.Run, error) {
	var m runModel
	err := r.Scan(&m.ID, &m.GroupID, &m.PlanID, &m.Outcome, &m.Planned, &m.Confirmed, &m.Failed, &m.StartedAt, &m.FinishedAt)
	if err != nil {
		return nil, err
	}
	return fromRunModel(&m)
}

// paginate appends LIMIT/OFFSET placeholders. A nil limit argument becomes
// LIMIT NULL, which PostgreSQL treats as no limit.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	return query, append(args, lim, offset)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
