package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
)

func TestBalance(t *testing.T) {
	acct := primitive.NewObjectID()
	entries := []models.LedgerEntry{
		{AccountID: acct, Seq: 1, Amount: decimal.RequireFromString("100"), Kind: models.EntryTopUp},
		{AccountID: acct, Seq: 2, Amount: decimal.RequireFromString("-33.34"), Kind: models.EntryDebit},
		{AccountID: acct, Seq: 3, Amount: decimal.RequireFromString("5.01"), Kind: models.EntryCredit},
	}

	got, err := Balance(entries)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("71.67").Equal(got), "got %s", got)

	empty, err := Balance(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestBalanceRejectsBrokenSequence(t *testing.T) {
	acct := primitive.NewObjectID()

	_, err := Balance([]models.LedgerEntry{{AccountID: acct, Seq: 1}, {AccountID: acct, Seq: 3}})
	assert.Error(t, err)

	_, err = Balance([]models.LedgerEntry{{AccountID: acct, Seq: 1}, {AccountID: primitive.NewObjectID(), Seq: 2}})
	assert.Error(t, err)
}

func TestPostingsBalanceOut(t *testing.T) {
	tx := &models.Transaction{
		ID:         primitive.NewObjectID(),
		SenderID:   primitive.NewObjectID(),
		ReceiverID: primitive.NewObjectID(),
		Amount:     decimal.RequireFromString("50"),
		CreatedAt:  time.Now(),
	}

	debit, credit := Postings(tx)
	assert.Equal(t, tx.SenderID, debit.AccountID)
	assert.Equal(t, tx.ReceiverID, credit.AccountID)
	assert.True(t, debit.Amount.Add(credit.Amount).IsZero())
	assert.Equal(t, tx.ID, *debit.TransactionID)
}
