// Package services implements the campus-pay use cases on top of store.Store.
// Every multi-document change runs inside Store.WithTx; notification email
// delivery happens after commit and never fails the request.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/auth"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/store"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, toName, subject, body string) error
}

type Options struct {
	JWT            *auth.JWTManager
	Mailer         Mailer
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AllowOverdraft bool
	BcryptCost     int
	// DeliveryTimeout bounds one batch of notification emails.
	DeliveryTimeout time.Duration
}

// Services bundles every service wired to one store.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Groups        *GroupService
	Payments      *PaymentService
	Clubs         *ClubService
	Events        *EventService
	Notifications *NotificationService
	Search        *SearchService
}

func New(st store.Store, opts Options) *Services {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	notes := NewNotificationService(st, opts.Mailer, opts.Metrics, opts.Logger, opts.DeliveryTimeout)
	payments := NewPaymentService(st, notes, opts.Metrics, opts.AllowOverdraft)
	return &Services{
		Auth:          NewAuthService(st, opts.JWT, opts.BcryptCost),
		Users:         NewUserService(st),
		Groups:        NewGroupService(st, payments, notes, opts.Metrics),
		Payments:      payments,
		Clubs:         NewClubService(st, notes, opts.Metrics),
		Events:        NewEventService(st, payments, notes, opts.Metrics),
		Notifications: notes,
		Search:        NewSearchService(st),
	}
}

// storeErr converts store and context errors into apperr errors. Errors that
// already are apperr errors pass through unchanged.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, store.ErrConflict):
		return apperr.ErrConflict.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.ErrTimeout.Wrap(err)
	default:
		return apperr.Internal(err)
	}
}

func now() time.Time {
	return time.Now().UTC()
}
