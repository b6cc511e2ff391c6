package services

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/split"
	"github.com/phillip/campus-pay-go/store"
)

func TestCreateGroupIncludesCreator(t *testing.T) {
	e := newEnv(t)
	a, b, c := e.user(t, "amina"), e.user(t, "brian"), e.user(t, "chloe")

	tests := []struct {
		name         string
		participants []primitive.ObjectID
		want         []primitive.ObjectID
	}{
		{"creator omitted", ids(b, c), ids(a, b, c)},
		{"creator listed", ids(b, a, c), ids(a, b, c)},
		{"duplicates", ids(b, b, c, c), ids(a, b, c)},
		{"alone", nil, ids(a)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Flat", ParticipantIDs: tt.participants})
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.ParticipantIDs())
			assert.Equal(t, a.ID, g.CreatorID)
			assert.True(t, g.TotalAmount.IsZero())
		})
	}
}

func TestCreateGroupUnknownParticipant(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "amina"), e.user(t, "brian")

	_, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{
		CreatorID:      a.ID,
		Name:           "Trip",
		ParticipantIDs: []primitive.ObjectID{b.ID, primitive.NewObjectID()},
	})
	require.ErrorIs(t, err, apperr.ErrParticipantNotFound)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, ae.Message, "requested 3 participants, found 2")

	gs, err := e.store.ListGroupsForUser(e.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, gs, "no group may be persisted")
	assert.Empty(t, e.notifications(t, b.ID))
}

func TestCreateGroupValidationAndInvites(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "amina"), e.user(t, "brian")

	_, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "  "})
	assert.ErrorIs(t, err, apperr.Validation(""))

	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Lunch", ParticipantIDs: ids(b)})
	require.NoError(t, err)

	assert.Empty(t, e.notifications(t, a.ID), "creator is not invited")
	ns := e.notifications(t, b.ID)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotifyGroupInvite, ns[0].Type)
	assert.Equal(t, g.ID, *ns[0].RefID)
}

func TestSplitBillThreeWays(t *testing.T) {
	e := newEnv(t)
	a, b, c := e.user(t, "amina"), e.user(t, "brian"), e.user(t, "chloe")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Dinner", ParticipantIDs: ids(b, c)})
	require.NoError(t, err)

	g, bill, err := e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: d("100"), Description: "pizza"})
	require.NoError(t, err)

	require.Len(t, bill.Shares, 3)
	assert.True(t, d("33.34").Equal(bill.Shares[0].Amount))
	assert.True(t, d("33.33").Equal(bill.Shares[1].Amount))
	assert.True(t, d("33.33").Equal(bill.Shares[2].Amount))
	assert.Equal(t, a.ID, bill.PaidBy)
	assert.True(t, bill.Shares[0].Paid, "payer's own share is settled")
	assert.False(t, bill.Shares[1].Paid)

	assert.True(t, d("100").Equal(g.TotalAmount))
	sum := g.Participants[0].AmountOwed.Add(g.Participants[1].AmountOwed).Add(g.Participants[2].AmountOwed)
	assert.True(t, sum.Equal(g.TotalAmount))

	for _, u := range []*models.User{a, b, c} {
		splits := 0
		for _, n := range e.notifications(t, u.ID) {
			if n.Type == models.NotifyBillSplit {
				splits++
			}
		}
		assert.Equal(t, 1, splits, u.Name)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(e.m.BillsSplit))

	e.svc.Notifications.Wait()
	billMails := 0
	for _, m := range e.mailer.Sent() {
		if m.Subject == subjectFor(models.NotifyBillSplit) {
			billMails++
		}
	}
	assert.Equal(t, 3, billMails)
}

func TestSplitBillAccumulates(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "amina"), e.user(t, "brian")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Rent", ParticipantIDs: ids(b)})
	require.NoError(t, err)

	g, first, err := e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: d("10")})
	require.NoError(t, err)
	_, _, err = e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: first.ID})
	require.NoError(t, err)

	g, _, err = e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: b.ID, GroupID: g.ID, Total: d("7")})
	require.NoError(t, err)

	require.Len(t, g.Bills, 2)
	assert.True(t, g.Bills[0].FindShare(b.ID).Paid, "earlier settlement survives a new split")
	assert.True(t, d("17").Equal(g.TotalAmount))
	assert.True(t, d("8.50").Equal(g.Participants[0].AmountOwed))
	assert.True(t, d("8.50").Equal(g.Participants[1].AmountOwed))
	assert.False(t, g.Participants[0].Paid, "amina owes brian for the second bill")
	assert.True(t, g.Participants[1].Paid)
}

func TestSplitBillProperty(t *testing.T) {
	e := newEnv(t)
	users := []*models.User{e.user(t, "u0")}
	for i := 1; i < 7; i++ {
		users = append(users, e.user(t, fmt.Sprintf("u%d", i)))
	}
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: users[0].ID, Name: "Big", ParticipantIDs: ids(users[1:]...)})
	require.NoError(t, err)

	for _, total := range []string{"0", "0.01", "0.05", "1", "99.99", "1000.07"} {
		_, bill, err := e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: users[0].ID, GroupID: g.ID, Total: d(total)})
		require.NoError(t, err)
		amounts := make([]string, 0, len(bill.Shares))
		sum := d("0")
		for _, s := range bill.Shares {
			sum = sum.Add(s.Amount)
			amounts = append(amounts, s.Amount.String())
			if s.Amount.IsZero() {
				assert.True(t, s.Paid, "zero shares are settled")
			}
		}
		assert.True(t, sum.Equal(d(total)), "%s split into %v", total, amounts)
	}
}

func TestSplitBillRejections(t *testing.T) {
	e := newEnv(t)
	a, outsider := e.user(t, "amina"), e.user(t, "olu")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Solo"})
	require.NoError(t, err)

	_, _, err = e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: outsider.ID, GroupID: g.ID, Total: d("5")})
	assert.ErrorIs(t, err, apperr.Forbidden(""))

	_, _, err = e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: primitive.NewObjectID(), Total: d("5")})
	assert.ErrorIs(t, err, apperr.NotFound(""))

	for _, total := range []string{"-1", "1.001", "1000000000000.01", "100000000000000000000"} {
		_, _, err = e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: d(total)})
		assert.ErrorIs(t, err, apperr.ErrInvalidAmount, total)
	}

	got, err := e.store.GetGroup(e.ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Bills)
	assert.Zero(t, got.Version)
}

func TestSplitBillAtMaxAmount(t *testing.T) {
	e := newEnv(t)
	a, b, c := e.user(t, "amina"), e.user(t, "brian"), e.user(t, "chloe")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Endowment", ParticipantIDs: ids(b, c)})
	require.NoError(t, err)

	g, bill, err := e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: split.MaxAmount})
	require.NoError(t, err)

	owed := d("0")
	for _, p := range g.Participants {
		owed = owed.Add(p.AmountOwed)
	}
	assert.True(t, owed.Equal(split.MaxAmount), "owed %s", owed)
	assert.True(t, g.TotalAmount.Equal(split.MaxAmount))
	assert.Equal(t, "333333333333.34", bill.Shares[0].Amount.StringFixed(split.Scale))
}

func TestSplitBillEmptyGroup(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "amina")
	g := &models.Group{Name: "Ghost town", CreatorID: a.ID}
	require.NoError(t, e.store.CreateGroup(e.ctx, g))

	_, _, err := e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: d("30")})
	require.ErrorIs(t, err, apperr.ErrEmptyGroup)

	got, err := e.store.GetGroup(e.ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Bills)
	assert.True(t, got.TotalAmount.IsZero())
	assert.Zero(t, got.Version)
}

func TestSplitBillVersionConflict(t *testing.T) {
	e := newEnv(t)
	a := e.user(t, "amina")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Race"})
	require.NoError(t, err)

	m := metrics.New()
	notes := NewNotificationService(e.store, nil, m, nil, 0)
	st := staleStore{e.store}
	groups := NewGroupService(st, NewPaymentService(st, notes, m, true), notes, m)

	_, _, err = groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: d("9")})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionConflicts.WithLabelValues("group")))
	assert.Empty(t, e.notifications(t, a.ID), "notifications roll back with the split")
}

func settleSetup(t *testing.T, e *env) (a, b *models.User, g *models.Group, bill *models.Bill) {
	t.Helper()
	a, b = e.user(t, "amina"), e.user(t, "brian")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Taxi", ParticipantIDs: ids(b)})
	require.NoError(t, err)
	g, bill, err = e.svc.Groups.SplitBill(e.ctx, SplitBillInput{RequesterID: a.ID, GroupID: g.ID, Total: d("25.01")})
	require.NoError(t, err)
	return a, b, g, bill
}

func TestSettleShareRecordsPayment(t *testing.T) {
	e := newEnv(t)
	a, b, g, bill := settleSetup(t, e)
	owed := bill.FindShare(b.ID).Amount
	assert.True(t, d("12.50").Equal(owed))

	g, tx, err := e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: bill.ID, IdempotencyKey: "settle-1"})
	require.NoError(t, err)

	assert.Equal(t, models.TxCompleted, tx.Status)
	assert.Equal(t, models.KindSettlement, tx.Kind)
	assert.Equal(t, b.ID, tx.SenderID)
	assert.Equal(t, a.ID, tx.ReceiverID)
	assert.True(t, owed.Equal(tx.Amount))
	assert.Equal(t, bill.ID, *tx.BillID)

	share := g.FindBill(bill.ID).FindShare(b.ID)
	assert.True(t, share.Paid)
	assert.Equal(t, tx.ID, *share.TransactionID)
	assert.True(t, g.Participants[1].Paid)

	assert.True(t, d("-12.50").Equal(e.balance(t, b.ID)))
	assert.True(t, d("12.50").Equal(e.balance(t, a.ID)))

	var settled int
	for _, n := range e.notifications(t, a.ID) {
		if n.Type == models.NotifySettlement {
			settled++
		}
	}
	assert.Equal(t, 1, settled)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.m.Settlements))
}

func TestSettleShareIdempotent(t *testing.T) {
	e := newEnv(t)
	_, b, g, bill := settleSetup(t, e)

	in := SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: bill.ID, IdempotencyKey: "k-42"}
	_, first, err := e.svc.Groups.SettleShare(e.ctx, in)
	require.NoError(t, err)

	_, again, err := e.svc.Groups.SettleShare(e.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, e.transactions(t, b.ID), 1)

	in.IdempotencyKey = "other"
	_, _, err = e.svc.Groups.SettleShare(e.ctx, in)
	assert.ErrorIs(t, err, apperr.ErrAlreadySettled)

	in.IdempotencyKey = ""
	_, _, err = e.svc.Groups.SettleShare(e.ctx, in)
	assert.ErrorIs(t, err, apperr.ErrAlreadySettled)
	assert.Len(t, e.transactions(t, b.ID), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.m.Settlements))
}

func TestSettleShareRejections(t *testing.T) {
	e := newEnv(t)
	a, b, g, bill := settleSetup(t, e)
	outsider := e.user(t, "olu")

	_, _, err := e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: a.ID, GroupID: g.ID, BillID: bill.ID})
	assert.ErrorIs(t, err, apperr.ErrAlreadySettled, "payer's share is paid on split")

	_, _, err = e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: outsider.ID, GroupID: g.ID, BillID: bill.ID})
	assert.ErrorIs(t, err, apperr.Forbidden(""))

	_, _, err = e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, apperr.NotFound(""))

	_, err = e.svc.Payments.Send(e.ctx, SendInput{SenderID: b.ID, ReceiverID: a.ID, Amount: d("1"), IdempotencyKey: "used"})
	require.NoError(t, err)
	_, _, err = e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: bill.ID, IdempotencyKey: "used"})
	assert.ErrorIs(t, err, apperr.ErrIdempotencyMismatch)
}

func TestSettleShareWithoutOverdraft(t *testing.T) {
	e := newEnv(t, withoutOverdraft)
	_, b, g, bill := settleSetup(t, e)

	_, _, err := e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: bill.ID})
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	got, err := e.store.GetGroup(e.ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.FindBill(bill.ID).FindShare(b.ID).Paid)
	assert.Empty(t, e.transactions(t, b.ID))

	_, err = e.svc.Payments.TopUp(e.ctx, b.ID, d("20"))
	require.NoError(t, err)
	_, _, err = e.svc.Groups.SettleShare(e.ctx, SettleInput{RequesterID: b.ID, GroupID: g.ID, BillID: bill.ID})
	require.NoError(t, err)
	assert.True(t, d("7.50").Equal(e.balance(t, b.ID)))
}

func TestGroupReadsAndMessages(t *testing.T) {
	e := newEnv(t)
	a, b, outsider := e.user(t, "amina"), e.user(t, "brian"), e.user(t, "olu")
	g, err := e.svc.Groups.CreateGroup(e.ctx, CreateGroupInput{CreatorID: a.ID, Name: "Study", ParticipantIDs: ids(b)})
	require.NoError(t, err)

	_, err = e.svc.Groups.Get(e.ctx, outsider.ID, g.ID)
	assert.ErrorIs(t, err, apperr.Forbidden(""))

	mine, err := e.svc.Groups.List(e.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	none, err := e.svc.Groups.List(e.ctx, outsider.ID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = e.svc.Groups.PostMessage(e.ctx, a.ID, g.ID, "first")
	require.NoError(t, err)
	_, err = e.svc.Groups.PostMessage(e.ctx, b.ID, g.ID, "second")
	require.NoError(t, err)
	_, err = e.svc.Groups.PostMessage(e.ctx, outsider.ID, g.ID, "spam")
	assert.ErrorIs(t, err, apperr.Forbidden(""))
	_, err = e.svc.Groups.PostMessage(e.ctx, a.ID, g.ID, "   ")
	assert.ErrorIs(t, err, apperr.Validation(""))

	ms, err := e.svc.Groups.ListMessages(e.ctx, b.ID, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "first", ms[0].Body)
	assert.Equal(t, "second", ms[1].Body)

	last, err := e.svc.Groups.ListMessages(e.ctx, b.ID, g.ID, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "second", last[0].Body)
}
