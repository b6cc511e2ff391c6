// Package ledger derives account balances from append-only entries.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/phillip/campus-pay-go/models"
)

// Balance folds entries into the account balance. Entries must belong to one
// account and be in sequence order; a gap or repeat is reported as an error.
func Balance(entries []models.LedgerEntry) (decimal.Decimal, error) {
	balance := decimal.Zero
	var last int64
	for i, e := range entries {
		if i > 0 && e.AccountID != entries[0].AccountID {
			return decimal.Zero, fmt.Errorf("entry %s belongs to account %s, want %s", e.ID.Hex(), e.AccountID.Hex(), entries[0].AccountID.Hex())
		}
		if e.Seq != last+1 {
			return decimal.Zero, fmt.Errorf("ledger sequence broken at %d (previous %d)", e.Seq, last)
		}
		last = e.Seq
		balance = balance.Add(e.Amount)
	}
	return balance, nil
}

// Postings returns the debit and credit entries for moving amount from sender to
// receiver. Seq is left for the store to assign.
func Postings(tx *models.Transaction) (debit, credit models.LedgerEntry) {
	id := tx.ID
	debit = models.LedgerEntry{
		AccountID:     tx.SenderID,
		Amount:        tx.Amount.Neg(),
		Kind:          models.EntryDebit,
		TransactionID: &id,
		CreatedAt:     tx.CreatedAt,
	}
	credit = models.LedgerEntry{
		AccountID:     tx.ReceiverID,
		Amount:        tx.Amount,
		Kind:          models.EntryCredit,
		TransactionID: &id,
		CreatedAt:     tx.CreatedAt,
	}
	return debit, credit
}
