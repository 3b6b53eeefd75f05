// Package mongo provides a MongoDB-backed implementation of the store.Store
// interface using the official driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/settle"
	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	settlestore "github.com/xraph/settle/store"
)

// Collection name constants.
const (
	colGroups   = "settle_groups"
	colExpenses = "settle_expenses"
	colRuns     = "settle_runs"
)

// compile-time interface check
var _ settlestore.Store = (*Store)(nil)

// Store implements store.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client for the given URI, verifies the connection, and
// selects dbName. Migrations are not run automatically; call Migrate.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("settle/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("settle/mongo: ping: %w", err)
	}
	return New(client, dbName), nil
}

// New wraps an existing client.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{
		client: client,
		db:     client.Database(dbName),
	}
}

// Migrate creates indexes for all settle collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("settle/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Group Store ====================

func (s *Store) CreateGroup(ctx context.Context, g *group.Group) error {
	m := toGroupModel(g)
	if _, err := s.db.Collection(colGroups).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settle.ErrAlreadyExists
		}
		return fmt.Errorf("settle/mongo: create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*group.Group, error) {
	var m groupModel
	err := s.db.Collection(colGroups).
		FindOne(ctx, bson.M{"_id": groupID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settle.ErrGroupNotFound
		}
		return nil, fmt.Errorf("settle/mongo: get group: %w", err)
	}
	return fromGroupModel(&m)
}

func (s *Store) ListGroups(ctx context.Context, opts group.ListOpts) ([]*group.Group, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colGroups).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("settle/mongo: list groups: %w", err)
	}
	defer cursor.Close(ctx)

	var models []groupModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("settle/mongo: list groups decode: %w", err)
	}

	result := make([]*group.Group, len(models))
	for i := range models {
		g, err := fromGroupModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = g
	}
	return result, nil
}

func (s *Store) UpdateGroup(ctx context.Context, g *group.Group) error {
	m := toGroupModel(g)
	m.UpdatedAt = now()

	res, err := s.db.Collection(colGroups).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("settle/mongo: update group: %w", err)
	}
	if res.MatchedCount == 0 {
		return settle.ErrGroupNotFound
	}
	return nil
}

// ==================== Expense Store ====================

func (s *Store) AppendExpense(ctx context.Context, e *expense.Expense) error {
	m := toExpenseModel(e)
	if _, err := s.db.Collection(colExpenses).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settle.ErrAlreadyExists
		}
		return fmt.Errorf("settle/mongo: append expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	var m expenseModel
	err := s.db.Collection(colExpenses).
		FindOne(ctx, bson.M{"_id": expenseID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settle.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("settle/mongo: get expense: %w", err)
	}
	return fromExpenseModel(&m)
}

func (s *Store) ListExpenses(ctx context.Context, groupID id.GroupID, opts expense.ListOpts) ([]*expense.Expense, error) {
	filter := bson.M{"group_id": groupID.String()}
	if !opts.IncludeSettled {
		filter["settled"] = false
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	return s.findExpenses(ctx, filter, findOpts)
}

func (s *Store) ListUnsettledExpenses(ctx context.Context, groupID id.GroupID) ([]*expense.Expense, error) {
	filter := bson.M{"group_id": groupID.String(), "settled": false}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.findExpenses(ctx, filter, findOpts)
}

func (s *Store) MarkExpenseSettled(ctx context.Context, expenseID id.ExpenseID, settledAt time.Time) error {
	res, err := s.db.Collection(colExpenses).UpdateOne(ctx,
		bson.M{"_id": expenseID.String(), "settled": false},
		bson.M{"$set": bson.M{
			"settled":    true,
			"settled_at": settledAt,
			"updated_at": now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("settle/mongo: mark expense settled: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Zero matches means either the expense is missing or it was already
	// settled; the latter keeps its original timestamp.
	count, err := s.db.Collection(colExpenses).CountDocuments(ctx, bson.M{"_id": expenseID.String()})
	if err != nil {
		return fmt.Errorf("settle/mongo: mark expense settled: %w", err)
	}
	if count == 0 {
		return settle.ErrExpenseNotFound
	}
	return nil
}

func (s *Store) findExpenses(ctx context.Context, filter bson.M, findOpts *options.FindOptionsBuilder) ([]*expense.Expense, error) {
	cursor, err := s.db.Collection(colExpenses).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("settle/mongo: list expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var models []expenseModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("settle/mongo: list expenses decode: %w", err)
	}

	result := make([]*expense.Expense, len(models))
	for i := range models {
		e, err := fromExpenseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Run Store ====================

func (s *Store) CreateRun(ctx context.Context, r *plan.Run) error {
	m := toRunModel(r)
	if _, err := s.db.Collection(colRuns).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settle.ErrAlreadyExists
		}
		return fmt.Errorf("settle/mongo: create run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*plan.Run, error) {
	var m runModel
	err := s.db.Collection(colRuns).
		FindOne(ctx, bson.M{"_id": runID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settle.ErrRunNotFound
		}
		return nil, fmt.Errorf("settle/mongo: get run: %w", err)
	}
	return fromRunModel(&m)
}

func (s *Store) ListRuns(ctx context.Context, groupID id.GroupID, opts plan.ListOpts) ([]*plan.Run, error) {
	filter := bson.M{"group_id": groupID.String()}
	if opts.Outcome != "" {
		filter["outcome"] = string(opts.Outcome)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colRuns).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("settle/mongo: list runs: %w", err)
	}
	defer cursor.Close(ctx)

	var models []runModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("settle/mongo: list runs decode: %w", err)
	}

	result := make([]*plan.Run, len(models))
	for i := range models {
		r, err := fromRunModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all settle collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colGroups: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colExpenses: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "settled", Value: 1}}},
		},
		colRuns: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "started_at", Value: 1}}},
		},
	}
}
