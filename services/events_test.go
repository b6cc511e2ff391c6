package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/models"
)

var eventDay = time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC)

func TestCreateEventValidation(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "amina")

	tests := []struct {
		name string
		in   CreateEventInput
	}{
		{"no title", CreateEventInput{CreatorID: u.ID, Date: eventDay}},
		{"no date", CreateEventInput{CreatorID: u.ID, Title: "Gala"}},
		{"negative capacity", CreateEventInput{CreatorID: u.ID, Title: "Gala", Date: eventDay, Capacity: -1}},
		{"paid without price", CreateEventInput{CreatorID: u.ID, Title: "Gala", Date: eventDay, TicketType: models.TicketPaid}},
		{"unknown ticket type", CreateEventInput{CreatorID: u.ID, Title: "Gala", Date: eventDay, TicketType: "VIP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Events.Create(e.ctx, tt.in)
			assert.ErrorIs(t, err, apperr.Validation(""))
		})
	}

	ev, err := e.svc.Events.Create(e.ctx, CreateEventInput{CreatorID: u.ID, Title: "Picnic", Date: eventDay, TicketPrice: d("9")})
	require.NoError(t, err)
	assert.Equal(t, models.TicketFree, ev.TicketType)
	assert.True(t, ev.TicketPrice.IsZero(), "free events carry no price")
}

func TestCreateClubEventRequiresOrganizer(t *testing.T) {
	e := newEnv(t)
	org, club := newClub(t, e)
	student := e.user(t, "sam")

	_, err := e.svc.Events.Create(e.ctx, CreateEventInput{CreatorID: student.ID, ClubID: &club.ID, Title: "Blitz", Date: eventDay})
	assert.ErrorIs(t, err, apperr.Forbidden(""))

	ev, err := e.svc.Events.Create(e.ctx, CreateEventInput{CreatorID: org.ID, ClubID: &club.ID, Title: "Blitz", Date: eventDay})
	require.NoError(t, err)
	assert.Equal(t, club.ID, *ev.ClubID)
}

func TestRegisterCapacity(t *testing.T) {
	e := newEnv(t)
	host, a, b := e.user(t, "host"), e.user(t, "amina"), e.user(t, "brian")

	ev, err := e.svc.Events.Create(e.ctx, CreateEventInput{CreatorID: host.ID, Title: "Workshop", Date: eventDay, Capacity: 1})
	require.NoError(t, err)

	ev, ticket, err := e.svc.Events.Register(e.ctx, a.ID, ev.ID, "")
	require.NoError(t, err)
	assert.Nil(t, ticket)
	assert.True(t, ev.IsAttending(a.ID))

	_, _, err = e.svc.Events.Register(e.ctx, a.ID, ev.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyRegistered)

	_, _, err = e.svc.Events.Register(e.ctx, b.ID, ev.ID, "")
	assert.ErrorIs(t, err, apperr.ErrEventFull)

	ns := e.notifications(t, a.ID)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotifyEventRegistration, ns[0].Type)
	assert.Empty(t, e.notifications(t, b.ID))
}

func TestRegisterPaidEventChargesTicket(t *testing.T) {
	e := newEnv(t, withoutOverdraft)
	host, a := e.user(t, "host"), e.user(t, "amina")

	ev, err := e.svc.Events.Create(e.ctx, CreateEventInput{
		CreatorID: host.ID, Title: "Concert", Date: eventDay,
		TicketType: models.TicketPaid, TicketPrice: d("15"),
	})
	require.NoError(t, err)

	_, _, err = e.svc.Events.Register(e.ctx, a.ID, ev.ID, "")
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	got, err := e.svc.Events.Get(e.ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attendees)

	_, err = e.svc.Payments.TopUp(e.ctx, a.ID, d("20"))
	require.NoError(t, err)

	got, ticket, err := e.svc.Events.Register(e.ctx, a.ID, ev.ID, "")
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, models.KindTicket, ticket.Kind)
	assert.Equal(t, host.ID, ticket.ReceiverID)
	assert.Equal(t, ev.ID, *ticket.EventID)
	assert.True(t, got.IsAttending(a.ID))
	assert.True(t, d("5").Equal(e.balance(t, a.ID)))
	assert.True(t, d("15").Equal(e.balance(t, host.ID)))

	_, hostTicket, err := e.svc.Events.Register(e.ctx, host.ID, ev.ID, "")
	require.NoError(t, err)
	assert.Nil(t, hostTicket, "the creator attends for free")
}

func TestRegisterConflict(t *testing.T) {
	e := newEnv(t)
	host, a := e.user(t, "host"), e.user(t, "amina")
	ev, err := e.svc.Events.Create(e.ctx, CreateEventInput{CreatorID: host.ID, Title: "Talk", Date: eventDay})
	require.NoError(t, err)

	notes := NewNotificationService(e.store, nil, nil, nil, 0)
	st := staleStore{e.store}
	events := NewEventService(st, NewPaymentService(st, notes, nil, true), notes, nil)

	_, _, err = events.Register(e.ctx, a.ID, ev.ID, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCalendar(t *testing.T) {
	e := newEnv(t)
	host := e.user(t, "host")
	for _, at := range []time.Time{
		time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 12, 23, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
	} {
		_, err := e.svc.Events.Create(e.ctx, CreateEventInput{CreatorID: host.ID, Title: "E", Date: at})
		require.NoError(t, err)
	}

	start, end, err := CalendarRange("2026-03-10", "2026-03-12")
	require.NoError(t, err)
	events, err := e.svc.Events.Calendar(e.ctx, start, end)
	require.NoError(t, err)
	require.Len(t, events, 2, "a date-only end covers the whole day")
	assert.Equal(t, 10, events[0].Date.Day())
	assert.Equal(t, 12, events[1].Date.Day())

	_, err = e.svc.Events.Calendar(e.ctx, end, start)
	assert.ErrorIs(t, err, apperr.Validation(""))

	none, err := e.svc.Events.Calendar(e.ctx, start.AddDate(1, 0, 0), end.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.NotNil(t, none)
}

func TestCalendarRange(t *testing.T) {
	_, _, err := CalendarRange("", "2026-01-01")
	assert.ErrorIs(t, err, apperr.Validation(""))
	_, _, err = CalendarRange("yesterday", "2026-01-01")
	assert.ErrorIs(t, err, apperr.Validation(""))

	start, end, err := CalendarRange("2026-01-01T08:00:00Z", "2026-01-02 10:30")
	require.NoError(t, err)
	assert.Equal(t, 8, start.Hour())
	assert.Equal(t, time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC), end)
}

func TestParseTime(t *testing.T) {
	tm, dateOnly, err := ParseTime("2026-05-01")
	require.NoError(t, err)
	assert.True(t, dateOnly)
	assert.Equal(t, time.May, tm.Month())

	_, dateOnly, err = ParseTime("2026-05-01 12:00:05")
	require.NoError(t, err)
	assert.False(t, dateOnly)

	_, _, err = ParseTime("01/05/2026")
	assert.Error(t, err)
}
