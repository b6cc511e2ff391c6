// Package mongostore implements store.Store on MongoDB.
//
// Multi-document operations run in session transactions, which need a replica
// set or sharded cluster. Versioned documents are replaced with a filter on
// {_id, version} so concurrent writers cannot silently overwrite each other.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/phillip/campus-pay-go/store"
)

var _ store.Store = (*Store)(nil)

const (
	colUsers         = "users"
	colGroups        = "groups"
	colMessages      = "group_messages"
	colClubs         = "clubs"
	colEvents        = "events"
	colNotifications = "notifications"
	colTransactions  = "transactions"
	colLedger        = "ledger_entries"
	colAccounts      = "accounts"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// WithTx runs fn inside a session transaction. The driver retries fn on
// transient errors such as write conflicts. Nested calls join the outer session.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	caseInsensitive := &options.Collation{Locale: "en", Strength: 2}

	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
		colClubs: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
		colGroups: {
			{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
			{Keys: bson.D{{Key: "creator_id", Value: 1}}},
		},
		colMessages: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colTransactions: {
			{
				Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colLedger: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, idx := range specs {
		if _, err := s.col(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}

// replaceVersioned swaps the document with id at version for doc. doc must already
// carry version+1.
func (s *Store) replaceVersioned(ctx context.Context, col string, id primitive.ObjectID, version int64, doc interface{}) error {
	res, err := s.col(col).ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := s.col(col).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func containsFilter(query string, fields ...string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	or := make(bson.A, len(fields))
	for i, f := range fields {
		or[i] = bson.M{f: pattern}
	}
	return bson.M{"$or": or}
}

func searchOptions(sortField string, dir int) *options.FindOptions {
	return options.Find().SetLimit(store.SearchLimit).SetSort(bson.D{{Key: sortField, Value: dir}})
}
