package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TxPending   = "Pending"
	TxCompleted = "Completed"
	TxFailed    = "Failed"
)

const (
	KindTransfer   = "transfer"
	KindRequest    = "request"
	KindSettlement = "settlement"
	KindTicket     = "ticket"
)

type Transaction struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SenderID       primitive.ObjectID  `bson:"sender_id" json:"sender_id"`
	ReceiverID     primitive.ObjectID  `bson:"receiver_id" json:"receiver_id"`
	Amount         decimal.Decimal     `bson:"amount" json:"amount"`
	Description    string              `bson:"description,omitempty" json:"description,omitempty"`
	Status         string              `bson:"status" json:"status"` // Pending, Completed, Failed
	Kind           string              `bson:"kind" json:"kind"`
	IdempotencyKey string              `bson:"idempotency_key,omitempty" json:"-"`
	GroupID        *primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`
	BillID         *primitive.ObjectID `bson:"bill_id,omitempty" json:"bill_id,omitempty"`
	EventID        *primitive.ObjectID `bson:"event_id,omitempty" json:"event_id,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

const (
	EntryDebit  = "debit"
	EntryCredit = "credit"
	EntryTopUp  = "top_up"
)

// LedgerEntry is one append-only line in a user's account. Seq increases by one
// per entry within an account.
type LedgerEntry struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AccountID     primitive.ObjectID  `bson:"account_id" json:"account_id"`
	Seq           int64               `bson:"seq" json:"seq"`
	Amount        decimal.Decimal     `bson:"amount" json:"amount"` // signed
	Kind          string              `bson:"kind" json:"kind"`
	TransactionID *primitive.ObjectID `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
