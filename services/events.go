package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/split"
	"github.com/phillip/campus-pay-go/store"
)

type EventService struct {
	store    store.Store
	payments *PaymentService
	notes    *NotificationService
	metrics  *metrics.Metrics
}

func NewEventService(st store.Store, payments *PaymentService, notes *NotificationService, m *metrics.Metrics) *EventService {
	return &EventService{store: st, payments: payments, notes: notes, metrics: m}
}

type CreateEventInput struct {
	CreatorID   primitive.ObjectID
	ClubID      *primitive.ObjectID
	Title       string
	Description string
	Date        time.Time
	Location    string
	Capacity    int
	TicketType  string
	TicketPrice decimal.Decimal
	CoverImage  string
}

func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	title := strings.TrimSpace(in.Title)
	ticketType := in.TicketType
	if ticketType == "" {
		ticketType = models.TicketFree
	}

	var details []string
	if title == "" {
		details = append(details, "title is required")
	}
	if in.Date.IsZero() {
		details = append(details, "date is required")
	}
	if in.Capacity < 0 {
		details = append(details, "capacity cannot be negative")
	}
	price := in.TicketPrice
	switch ticketType {
	case models.TicketFree:
		price = decimal.Zero
	case models.TicketPaid:
		if !validAmount(price) {
			details = append(details, "paid events need a positive ticket price with at most 2 decimal places")
		}
	default:
		details = append(details, "ticket type must be Free or Paid")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid event", details...)
	}

	if _, err := s.store.GetUser(ctx, in.CreatorID); err != nil {
		return nil, storeErr(err, "user")
	}
	if in.ClubID != nil {
		club, err := s.store.GetClub(ctx, *in.ClubID)
		if err != nil {
			return nil, storeErr(err, "club")
		}
		if !club.IsOrganizer(in.CreatorID) {
			return nil, apperr.Forbidden("only organizers can create events for this club")
		}
	}

	at := now()
	e := &models.Event{
		CreatorID:   in.CreatorID,
		ClubID:      in.ClubID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date.UTC(),
		Location:    strings.TrimSpace(in.Location),
		Attendees:   []primitive.ObjectID{},
		Capacity:    in.Capacity,
		TicketType:  ticketType,
		TicketPrice: price,
		CoverImage:  in.CoverImage,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, storeErr(err, "event")
	}
	return e, nil
}

func (s *EventService) Get(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	return e, nil
}

// Register adds the user to the attendees. Paid events charge the ticket price
// to the event creator in the same transaction; the creator attends for free.
func (s *EventService) Register(ctx context.Context, userID, eventID primitive.ObjectID, idempotencyKey string) (*models.Event, *models.Transaction, error) {
	key := strings.TrimSpace(idempotencyKey)

	var (
		event   *models.Event
		ticket  *models.Transaction
		pending []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		ticket = nil
		e, err := s.store.GetEvent(ctx, eventID)
		if err != nil {
			return storeErr(err, "event")
		}
		if e.IsAttending(userID) {
			return apperr.ErrAlreadyRegistered
		}
		if e.Full() {
			return apperr.ErrEventFull
		}
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return storeErr(err, "user")
		}

		if e.TicketType == models.TicketPaid && e.TicketPrice.IsPositive() && userID != e.CreatorID {
			id := e.ID
			ticket = &models.Transaction{
				SenderID:       userID,
				ReceiverID:     e.CreatorID,
				Amount:         e.TicketPrice,
				Description:    "Ticket for " + e.Title,
				Kind:           models.KindTicket,
				IdempotencyKey: key,
				EventID:        &id,
			}
			if err := s.payments.record(ctx, ticket); err != nil {
				return err
			}
		}

		e.Attendees = models.AddID(e.Attendees, userID)
		e.UpdatedAt = now()
		if err := s.store.UpdateEvent(ctx, e); err != nil {
			return err
		}
		event = e

		msg := fmt.Sprintf("You are registered for %s on %s", e.Title, e.Date.Format("Mon 2 Jan 2006 15:04"))
		if ticket != nil {
			msg += fmt.Sprintf(". Ticket paid: %s", ticket.Amount.StringFixed(split.Scale))
		}
		pending = []models.Notification{note(userID, models.NotifyEventRegistration, msg, "event", e.ID)}
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.Conflict("event")
		}
		return nil, nil, storeErr(err, "event")
	}
	if ticket != nil {
		s.metrics.Transaction(ticket.Kind, ticket.Status)
	}
	s.notes.Deliver(pending)
	return event, ticket, nil
}

// Calendar lists events dated between start and end inclusive, soonest first.
func (s *EventService) Calendar(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	if start.After(end) {
		return nil, apperr.Validation("startDate must not be after endDate")
	}
	es, err := s.store.ListEventsBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, storeErr(err, "events")
	}
	if es == nil {
		es = []models.Event{}
	}
	return es, nil
}

var timeLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05"}

// ParseTime accepts RFC3339, YYYY-MM-DD and YYYY-MM-DD HH:MM[:SS]. dateOnly is
// set for the bare date form.
func ParseTime(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid time %q, use RFC3339 or YYYY-MM-DD", s)
}

// CalendarRange parses the calendar query bounds. A date-only end covers the
// whole of that day.
func CalendarRange(startStr, endStr string) (start, end time.Time, err error) {
	if strings.TrimSpace(startStr) == "" || strings.TrimSpace(endStr) == "" {
		return start, end, apperr.Validation("startDate and endDate are required")
	}
	start, _, err = ParseTime(startStr)
	if err != nil {
		return start, end, apperr.Validation("invalid startDate", err.Error())
	}
	end, dateOnly, err := ParseTime(endStr)
	if err != nil {
		return start, end, apperr.Validation("invalid endDate", err.Error())
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start, end, nil
}
