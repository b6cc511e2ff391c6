package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/campus-pay-go/models"
)

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colTransactions).InsertOne(ctx, tx); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetTransactionByKey(ctx context.Context, senderID primitive.ObjectID, key string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.col(colTransactions).FindOne(ctx, bson.M{"sender_id": senderID, "idempotency_key": key}).Decode(&tx)
	if err != nil {
		return nil, translate(err)
	}
	return &tx, nil
}

func (s *Store) ListTransactionsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	filter := bson.M{"$or": bson.A{bson.M{"sender_id": userID}, bson.M{"receiver_id": userID}}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.col(colTransactions).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	var txs []models.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txs, nil
}

// AppendLedgerEntry bumps the account's sequence document before inserting, so
// two transactions writing the same account conflict and one is retried.
func (s *Store) AppendLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	var acct struct {
		Seq int64 `bson:"seq"`
	}
	err := s.col(colAccounts).FindOneAndUpdate(ctx,
		bson.M{"_id": e.AccountID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&acct)
	if err != nil {
		return fmt.Errorf("failed to advance ledger sequence: %w", err)
	}

	e.Seq = acct.Seq
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colLedger).InsertOne(ctx, e); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, accountID primitive.ObjectID) ([]models.LedgerEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.col(colLedger).Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	var entries []models.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, nil
}
