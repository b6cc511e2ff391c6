package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/ledger"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/split"
	"github.com/phillip/campus-pay-go/store"
)

type PaymentService struct {
	store          store.Store
	notes          *NotificationService
	metrics        *metrics.Metrics
	allowOverdraft bool
}

func NewPaymentService(st store.Store, notes *NotificationService, m *metrics.Metrics, allowOverdraft bool) *PaymentService {
	return &PaymentService{store: st, notes: notes, metrics: m, allowOverdraft: allowOverdraft}
}

type SendInput struct {
	SenderID       primitive.ObjectID
	ReceiverID     primitive.ObjectID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && split.ValidAmount(d)
}

// Send moves money from sender to receiver as one Completed transaction. A
// repeated idempotency key with the same receiver and amount returns the
// original transaction.
func (s *PaymentService) Send(ctx context.Context, in SendInput) (*models.Transaction, error) {
	if !validAmount(in.Amount) {
		return nil, apperr.ErrInvalidAmount
	}
	if in.SenderID == in.ReceiverID {
		return nil, apperr.ErrSelfTransfer
	}
	key := strings.TrimSpace(in.IdempotencyKey)

	var (
		result   *models.Transaction
		replayed bool
		pending  []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		replayed = false
		if key != "" {
			prev, err := s.store.GetTransactionByKey(ctx, in.SenderID, key)
			switch {
			case err == nil:
				if prev.Kind != models.KindTransfer || prev.ReceiverID != in.ReceiverID || !prev.Amount.Equal(in.Amount) {
					return apperr.ErrIdempotencyMismatch
				}
				result, replayed = prev, true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		sender, err := s.store.GetUser(ctx, in.SenderID)
		if err != nil {
			return storeErr(err, "sender")
		}
		if _, err := s.store.GetUser(ctx, in.ReceiverID); err != nil {
			return storeErr(err, "receiver")
		}

		tx := &models.Transaction{
			SenderID:       in.SenderID,
			ReceiverID:     in.ReceiverID,
			Amount:         in.Amount,
			Description:    strings.TrimSpace(in.Description),
			Kind:           models.KindTransfer,
			IdempotencyKey: key,
		}
		if err := s.record(ctx, tx); err != nil {
			return err
		}
		result = tx

		pending = []models.Notification{note(in.ReceiverID, models.NotifyPaymentReceived,
			fmt.Sprintf("%s sent you %s", sender.Name, tx.Amount.StringFixed(split.Scale)), "transaction", tx.ID)}
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		return nil, storeErr(err, "transaction")
	}
	if !replayed {
		s.metrics.Transaction(result.Kind, result.Status)
		s.notes.Deliver(pending)
	}
	return result, nil
}

// record persists a Completed transaction and its two ledger postings. It must
// run inside a store transaction.
func (s *PaymentService) record(ctx context.Context, tx *models.Transaction) error {
	if !s.allowOverdraft {
		balance, err := s.balance(ctx, tx.SenderID)
		if err != nil {
			return err
		}
		if balance.LessThan(tx.Amount) {
			return apperr.ErrInsufficientFunds
		}
	}

	tx.Status = models.TxCompleted
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now()
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.ErrConflict.Wrap(err)
		}
		return err
	}

	debit, credit := ledger.Postings(tx)
	if err := s.store.AppendLedgerEntry(ctx, &debit); err != nil {
		return err
	}
	return s.store.AppendLedgerEntry(ctx, &credit)
}

type RequestInput struct {
	RequesterID primitive.ObjectID
	PayerID     primitive.ObjectID
	Amount      decimal.Decimal
	Description string
}

// Request records a Pending transaction asking payer to pay the requester.
// Nothing moves money and nothing resolves it yet.
func (s *PaymentService) Request(ctx context.Context, in RequestInput) (*models.Transaction, error) {
	if !validAmount(in.Amount) {
		return nil, apperr.ErrInvalidAmount
	}
	if in.RequesterID == in.PayerID {
		return nil, apperr.ErrSelfTransfer
	}

	var (
		tx      *models.Transaction
		pending []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		requester, err := s.store.GetUser(ctx, in.RequesterID)
		if err != nil {
			return storeErr(err, "requester")
		}
		if _, err := s.store.GetUser(ctx, in.PayerID); err != nil {
			return storeErr(err, "payer")
		}

		tx = &models.Transaction{
			SenderID:    in.PayerID,
			ReceiverID:  in.RequesterID,
			Amount:      in.Amount,
			Description: strings.TrimSpace(in.Description),
			Status:      models.TxPending,
			Kind:        models.KindRequest,
			CreatedAt:   now(),
		}
		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			return err
		}

		pending = []models.Notification{note(in.PayerID, models.NotifyPaymentRequest,
			fmt.Sprintf("%s requested %s from you", requester.Name, tx.Amount.StringFixed(split.Scale)), "transaction", tx.ID)}
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		return nil, storeErr(err, "transaction")
	}
	s.metrics.Transaction(tx.Kind, tx.Status)
	s.notes.Deliver(pending)
	return tx, nil
}

// List returns the user's sent and received transactions, newest first.
func (s *PaymentService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	txs, err := s.store.ListTransactionsForUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "transactions")
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (s *PaymentService) Balance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, error) {
	b, err := s.balance(ctx, userID)
	if err != nil {
		return decimal.Zero, storeErr(err, "account")
	}
	return b, nil
}

func (s *PaymentService) balance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, error) {
	entries, err := s.store.ListLedgerEntries(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Balance(entries)
}

// TopUp credits the user's account and returns the new balance.
func (s *PaymentService) TopUp(ctx context.Context, userID primitive.ObjectID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !validAmount(amount) {
		return decimal.Zero, apperr.ErrInvalidAmount
	}
	var balance decimal.Decimal
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return storeErr(err, "user")
		}
		entry := &models.LedgerEntry{
			AccountID: userID,
			Amount:    amount,
			Kind:      models.EntryTopUp,
			CreatedAt: now(),
		}
		if err := s.store.AppendLedgerEntry(ctx, entry); err != nil {
			return err
		}
		var err error
		balance, err = s.balance(ctx, userID)
		return err
	})
	if err != nil {
		return decimal.Zero, storeErr(err, "account")
	}
	return balance, nil
}
