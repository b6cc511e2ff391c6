package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"

	"github.com/phillip/campus-pay-go/auth"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
	"github.com/phillip/campus-pay-go/store/memstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentMail struct {
	To      string
	Subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, to, _, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject})
	return nil
}

func (f *fakeMailer) Sent() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type env struct {
	ctx    context.Context
	store  *memstore.Store
	svc    *Services
	mailer *fakeMailer
	m      *metrics.Metrics
}

type envOption func(*Options)

func withoutOverdraft(o *Options) { o.AllowOverdraft = false }

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	st := memstore.New()
	mailer := &fakeMailer{}
	m := metrics.New()
	o := Options{
		JWT:            auth.NewJWTManager("test-secret", time.Hour),
		Mailer:         mailer,
		Metrics:        m,
		AllowOverdraft: true,
		BcryptCost:     4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	svc := New(st, o)
	t.Cleanup(svc.Notifications.Wait)
	return &env{ctx: context.Background(), store: st, svc: svc, mailer: mailer, m: m}
}

func (e *env) user(t *testing.T, name string, role ...string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@uni.edu", Role: models.RoleStudent}
	if len(role) > 0 {
		u.Role = role[0]
	}
	require.NoError(t, e.store.CreateUser(e.ctx, u))
	return u
}

func (e *env) notifications(t *testing.T, userID primitive.ObjectID) []models.Notification {
	t.Helper()
	ns, err := e.store.ListNotifications(e.ctx, userID)
	require.NoError(t, err)
	return ns
}

func (e *env) balance(t *testing.T, userID primitive.ObjectID) decimal.Decimal {
	t.Helper()
	b, err := e.svc.Payments.Balance(e.ctx, userID)
	require.NoError(t, err)
	return b
}

func (e *env) transactions(t *testing.T, userID primitive.ObjectID) []models.Transaction {
	t.Helper()
	txs, err := e.svc.Payments.List(e.ctx, userID)
	require.NoError(t, err)
	return txs
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ids(us ...*models.User) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(us))
	for i, u := range us {
		out[i] = u.ID
	}
	return out
}

// staleStore reports a version conflict on every versioned update.
type staleStore struct {
	store.Store
}

func (staleStore) UpdateGroup(context.Context, *models.Group) error { return store.ErrConflict }
func (staleStore) UpdateClub(context.Context, *models.Club) error   { return store.ErrConflict }
func (staleStore) UpdateEvent(context.Context, *models.Event) error { return store.ErrConflict }
