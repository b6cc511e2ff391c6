package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

const (
	defaultDeliveryTimeout = 30 * time.Second
	deliveryConcurrency    = 4
)

type NotificationService struct {
	store   store.Store
	mailer  Mailer
	metrics *metrics.Metrics
	log     *slog.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func NewNotificationService(st store.Store, mailer Mailer, m *metrics.Metrics, log *slog.Logger, timeout time.Duration) *NotificationService {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{store: st, mailer: mailer, metrics: m, log: log, timeout: timeout}
}

// note builds an unsaved notification.
func note(userID primitive.ObjectID, typ, message, refType string, refID primitive.ObjectID) models.Notification {
	return models.Notification{
		UserID:  userID,
		Message: message,
		Type:    typ,
		RefType: refType,
		RefID:   &refID,
	}
}

// Emit persists ns. Called inside the caller's transaction so that a rollback
// discards them too. IDs and timestamps are filled in place.
func (s *NotificationService) Emit(ctx context.Context, ns ...models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	at := now()
	for i := range ns {
		ns[i].CreatedAt = at
		ns[i].Read = false
	}
	return s.store.CreateNotifications(ctx, ns)
}

// Deliver emails already-committed notifications in the background. Failures
// are logged and counted, never returned.
func (s *NotificationService) Deliver(ns []models.Notification) {
	if s.mailer == nil || len(ns) == 0 {
		return
	}
	batch := append([]models.Notification(nil), ns...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.deliver(ctx, batch)
	}()
}

func (s *NotificationService) deliver(ctx context.Context, ns []models.Notification) {
	ids := make([]primitive.ObjectID, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.UserID)
	}
	users, err := s.store.FindUsers(ctx, ids)
	if err != nil {
		s.log.Warn("Notification delivery skipped", "error", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(deliveryConcurrency)
	for _, n := range ns {
		u, ok := byID[n.UserID]
		if !ok || u.Email == "" {
			continue
		}
		g.Go(func() error {
			subject := subjectFor(n.Type)
			body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", html.EscapeString(u.Name), html.EscapeString(n.Message))
			if err := s.mailer.Send(ctx, u.Email, u.Name, subject, body); err != nil {
				s.metrics.Email("failed")
				s.log.Warn("Notification email failed", "user_id", u.ID.Hex(), "type", n.Type, "error", err)
				return nil
			}
			s.metrics.Email("sent")
			return nil
		})
	}
	_ = g.Wait()
}

// Wait blocks until background deliveries finish.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	ns, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "notifications")
	}
	if ns == nil {
		ns = []models.Notification{}
	}
	return ns, nil
}

// MarkRead marks one of the user's notifications read. Notifications that belong
// to someone else are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	n, err := s.store.MarkNotificationRead(ctx, id, userID, now())
	if err != nil {
		return nil, storeErr(err, "notification")
	}
	return n, nil
}

func subjectFor(typ string) string {
	switch typ {
	case models.NotifyGroupInvite:
		return "You were added to a group"
	case models.NotifyBillSplit:
		return "New bill split"
	case models.NotifySettlement:
		return "A share was settled"
	case models.NotifyPaymentReceived:
		return "Payment received"
	case models.NotifyPaymentRequest:
		return "Payment requested"
	case models.NotifyClubJoinRequest:
		return "New club join request"
	case models.NotifyClubJoinApproved:
		return "Club request approved"
	case models.NotifyClubJoinDenied:
		return "Club request declined"
	case models.NotifyClubOrganizerAdded:
		return "You are now a club organizer"
	case models.NotifyEventRegistration:
		return "Event registration confirmed"
	default:
		return "Campus Pay notification"
	}
}
