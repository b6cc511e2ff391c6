package memstore

import (
	"context"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	d, unlock := s.write(ctx)
	defer unlock()

	ensureID(&e.ID)
	d.events[e.ID] = cloneEvent(*e)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	e, ok := d.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	e = cloneEvent(e)
	return &e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *models.Event) error {
	d, unlock := s.write(ctx)
	defer unlock()

	current, ok := d.events[e.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != e.Version {
		return store.ErrConflict
	}
	e.Version++
	d.events[e.ID] = cloneEvent(*e)
	return nil
}

// ListEventsBetween returns events dated within [start, end], soonest first.
func (s *Store) ListEventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var events []models.Event
	for _, e := range d.events {
		if !e.Date.Before(start) && !e.Date.After(end) {
			events = append(events, cloneEvent(e))
		}
	}
	slices.SortFunc(events, func(a, b models.Event) int { return a.Date.Compare(b.Date) })
	return events, nil
}

func (s *Store) SearchEvents(ctx context.Context, query string) ([]models.Event, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var events []models.Event
	for _, e := range d.events {
		if matches(query, e.Title, e.Description) {
			events = append(events, cloneEvent(e))
		}
	}
	slices.SortFunc(events, func(a, b models.Event) int { return a.Date.Compare(b.Date) })
	if len(events) > store.SearchLimit {
		events = events[:store.SearchLimit]
	}
	return events, nil
}
