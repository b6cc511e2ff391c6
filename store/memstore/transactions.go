package memstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	d, unlock := s.write(ctx)
	defer unlock()

	if tx.IdempotencyKey != "" {
		for _, existing := range d.transactions {
			if existing.SenderID == tx.SenderID && existing.IdempotencyKey == tx.IdempotencyKey {
				return store.ErrDuplicate
			}
		}
	}
	ensureID(&tx.ID)
	d.transactions = append(d.transactions, *tx)
	return nil
}

func (s *Store) GetTransactionByKey(ctx context.Context, senderID primitive.ObjectID, key string) (*models.Transaction, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	for _, tx := range d.transactions {
		if tx.SenderID == senderID && tx.IdempotencyKey == key {
			return &tx, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListTransactionsForUser returns transactions the user sent or received, newest first.
func (s *Store) ListTransactionsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var out []models.Transaction
	for i := len(d.transactions) - 1; i >= 0; i-- {
		tx := d.transactions[i]
		if tx.SenderID == userID || tx.ReceiverID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) AppendLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	d, unlock := s.write(ctx)
	defer unlock()

	d.seqs[e.AccountID]++
	e.Seq = d.seqs[e.AccountID]
	ensureID(&e.ID)
	d.ledger = append(d.ledger, *e)
	return nil
}

// ListLedgerEntries returns an account's entries in sequence order.
func (s *Store) ListLedgerEntries(ctx context.Context, accountID primitive.ObjectID) ([]models.LedgerEntry, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var out []models.LedgerEntry
	for _, e := range d.ledger {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}
