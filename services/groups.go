package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/split"
	"github.com/phillip/campus-pay-go/store"
)

const (
	maxMessageLength    = 2000
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

type GroupService struct {
	store    store.Store
	payments *PaymentService
	notes    *NotificationService
	metrics  *metrics.Metrics
}

func NewGroupService(st store.Store, payments *PaymentService, notes *NotificationService, m *metrics.Metrics) *GroupService {
	return &GroupService{store: st, payments: payments, notes: notes, metrics: m}
}

type CreateGroupInput struct {
	CreatorID      primitive.ObjectID
	Name           string
	Description    string
	ParticipantIDs []primitive.ObjectID
}

// CreateGroup creates a group whose participants are the creator followed by
// the distinct requested users. Every id must belong to an existing user.
func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("group name is required")
	}

	ids := []primitive.ObjectID{in.CreatorID}
	for _, id := range in.ParticipantIDs {
		ids = models.AddID(ids, id)
	}

	var (
		group   *models.Group
		pending []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		users, err := s.store.FindUsers(ctx, ids)
		if err != nil {
			return err
		}
		if len(users) != len(ids) {
			return apperr.ErrParticipantNotFound.Withf("requested %d participants, found %d", len(ids), len(users))
		}
		creatorName := ""
		for _, u := range users {
			if u.ID == in.CreatorID {
				creatorName = u.Name
			}
		}

		at := now()
		group = &models.Group{
			Name:         name,
			CreatorID:    in.CreatorID,
			Description:  strings.TrimSpace(in.Description),
			Participants: make([]models.Participant, len(ids)),
			Bills:        []models.Bill{},
			TotalAmount:  decimal.Zero,
			CreatedAt:    at,
			UpdatedAt:    at,
		}
		for i, id := range ids {
			group.Participants[i] = models.Participant{UserID: id, AmountOwed: decimal.Zero}
		}
		if err := s.store.CreateGroup(ctx, group); err != nil {
			return err
		}

		pending = pending[:0]
		for _, id := range ids[1:] {
			pending = append(pending, note(id, models.NotifyGroupInvite,
				fmt.Sprintf("%s added you to the group %q", creatorName, name), "group", group.ID))
		}
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		return nil, storeErr(err, "group")
	}
	s.notes.Deliver(pending)
	return group, nil
}

type SplitBillInput struct {
	RequesterID primitive.ObjectID
	GroupID     primitive.ObjectID
	Total       decimal.Decimal
	Description string
}

// SplitBill records a new bill paid by the requester and divides it evenly over
// the group's participants. Earlier bills and their settlements are kept.
func (s *GroupService) SplitBill(ctx context.Context, in SplitBillInput) (*models.Group, *models.Bill, error) {
	if in.Total.IsNegative() || !split.ValidAmount(in.Total) {
		return nil, nil, apperr.ErrInvalidAmount
	}

	var (
		group   *models.Group
		bill    models.Bill
		pending []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		g, err := s.store.GetGroup(ctx, in.GroupID)
		if err != nil {
			return storeErr(err, "group")
		}
		if len(g.Participants) == 0 {
			return apperr.ErrEmptyGroup
		}
		if !g.IsParticipant(in.RequesterID) {
			return apperr.Forbidden("only group participants can split bills")
		}

		amounts, err := split.Even(in.Total, len(g.Participants))
		if err != nil {
			if errors.Is(err, split.ErrNoParticipants) {
				return apperr.ErrEmptyGroup
			}
			return apperr.ErrInvalidAmount.Wrap(err)
		}

		at := now()
		bill = models.Bill{
			ID:          primitive.NewObjectID(),
			Description: strings.TrimSpace(in.Description),
			TotalAmount: in.Total,
			PaidBy:      in.RequesterID,
			Shares:      make([]models.Share, len(g.Participants)),
			CreatedAt:   at,
		}
		for i, uid := range g.ParticipantIDs() {
			sh := models.Share{UserID: uid, Amount: amounts[i]}
			if uid == in.RequesterID || amounts[i].IsZero() {
				sh.Paid = true
				sh.PaidAt = &at
			}
			bill.Shares[i] = sh
		}

		g.Bills = append(g.Bills, bill)
		g.Recompute()
		g.UpdatedAt = at
		if err := s.store.UpdateGroup(ctx, g); err != nil {
			return err
		}
		group = g

		label := bill.Description
		if label == "" {
			label = g.Name
		}
		pending = pending[:0]
		for _, sh := range bill.Shares {
			pending = append(pending, note(sh.UserID, models.NotifyBillSplit,
				fmt.Sprintf("A bill of %s for %q was split. Your share is %s",
					in.Total.StringFixed(split.Scale), label, sh.Amount.StringFixed(split.Scale)), "group", g.ID))
		}
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		s.conflict(err)
		return nil, nil, storeErr(err, "group")
	}
	s.metrics.BillSplit()
	s.notes.Deliver(pending)
	return group, &bill, nil
}

type SettleInput struct {
	RequesterID    primitive.ObjectID
	GroupID        primitive.ObjectID
	BillID         primitive.ObjectID
	IdempotencyKey string
}

// SettleShare pays the requester's share of a bill to whoever paid it. The
// payment and the paid flag are committed together. Repeating a successful
// call with the same idempotency key returns the original result.
func (s *GroupService) SettleShare(ctx context.Context, in SettleInput) (*models.Group, *models.Transaction, error) {
	key := strings.TrimSpace(in.IdempotencyKey)

	var (
		group    *models.Group
		tx       *models.Transaction
		replayed bool
		pending  []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		replayed = false
		g, err := s.store.GetGroup(ctx, in.GroupID)
		if err != nil {
			return storeErr(err, "group")
		}
		bill := g.FindBill(in.BillID)
		if bill == nil {
			return apperr.NotFound("bill")
		}
		share := bill.FindShare(in.RequesterID)
		if share == nil {
			return apperr.Forbidden("you have no share in this bill")
		}

		var prev *models.Transaction
		if key != "" {
			prev, err = s.store.GetTransactionByKey(ctx, in.RequesterID, key)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if share.Paid {
			if prev != nil && share.TransactionID != nil && prev.ID == *share.TransactionID {
				group, tx, replayed = g, prev, true
				return nil
			}
			return apperr.ErrAlreadySettled
		}
		if prev != nil {
			return apperr.ErrIdempotencyMismatch
		}

		groupID, billID := g.ID, bill.ID
		tx = &models.Transaction{
			SenderID:       in.RequesterID,
			ReceiverID:     bill.PaidBy,
			Amount:         share.Amount,
			Description:    settlementDescription(g, bill),
			Kind:           models.KindSettlement,
			IdempotencyKey: key,
			GroupID:        &groupID,
			BillID:         &billID,
		}
		if err := s.payments.record(ctx, tx); err != nil {
			return err
		}

		at := now()
		txID := tx.ID
		share.Paid = true
		share.TransactionID = &txID
		share.PaidAt = &at
		g.Recompute()
		g.UpdatedAt = at
		if err := s.store.UpdateGroup(ctx, g); err != nil {
			return err
		}
		group = g

		payer, err := s.store.GetUser(ctx, in.RequesterID)
		if err != nil {
			return storeErr(err, "user")
		}
		pending = []models.Notification{note(bill.PaidBy, models.NotifySettlement,
			fmt.Sprintf("%s settled %s in %q", payer.Name, share.Amount.StringFixed(split.Scale), g.Name), "group", g.ID)}
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		s.conflict(err)
		return nil, nil, storeErr(err, "group")
	}
	if !replayed {
		s.metrics.Settlement()
		s.metrics.Transaction(tx.Kind, tx.Status)
		s.notes.Deliver(pending)
	}
	return group, tx, nil
}

func settlementDescription(g *models.Group, b *models.Bill) string {
	if b.Description != "" {
		return fmt.Sprintf("Settlement for %s (%s)", b.Description, g.Name)
	}
	return "Settlement for " + g.Name
}

// Get returns a group visible to the requester.
func (s *GroupService) Get(ctx context.Context, requesterID, groupID primitive.ObjectID) (*models.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, "group")
	}
	if !g.IsParticipant(requesterID) {
		return nil, apperr.Forbidden("you are not a participant of this group")
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	gs, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "groups")
	}
	if gs == nil {
		gs = []models.Group{}
	}
	return gs, nil
}

func (s *GroupService) PostMessage(ctx context.Context, requesterID, groupID primitive.ObjectID, body string) (*models.GroupMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, apperr.Validation(fmt.Sprintf("message cannot exceed %d characters", maxMessageLength))
	}
	if _, err := s.Get(ctx, requesterID, groupID); err != nil {
		return nil, err
	}

	m := &models.GroupMessage{GroupID: groupID, SenderID: requesterID, Body: body, CreatedAt: now()}
	if err := s.store.CreateGroupMessage(ctx, m); err != nil {
		return nil, storeErr(err, "message")
	}
	return m, nil
}

// ListMessages returns up to limit of the latest messages, oldest first.
func (s *GroupService) ListMessages(ctx context.Context, requesterID, groupID primitive.ObjectID, limit int) ([]models.GroupMessage, error) {
	if _, err := s.Get(ctx, requesterID, groupID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	limit = min(limit, maxMessageLimit)

	ms, err := s.store.ListGroupMessages(ctx, groupID, limit)
	if err != nil {
		return nil, storeErr(err, "messages")
	}
	if ms == nil {
		ms = []models.GroupMessage{}
	}
	return ms, nil
}

func (s *GroupService) conflict(err error) {
	if errors.Is(err, store.ErrConflict) || errors.Is(err, apperr.ErrConflict) {
		s.metrics.Conflict("group")
	}
}
