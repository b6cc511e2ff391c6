package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/campus-pay-go/models"
)

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colEvents).InsertOne(ctx, e); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.col(colEvents).FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *models.Event) error {
	next := *e
	next.Version = e.Version + 1
	if err := s.replaceVersioned(ctx, colEvents, e.ID, e.Version, next); err != nil {
		return err
	}
	e.Version = next.Version
	return nil
}

func (s *Store) ListEventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	filter := bson.M{"date": bson.M{"$gte": start, "$lte": end}}
	cursor, err := s.col(colEvents).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (s *Store) SearchEvents(ctx context.Context, query string) ([]models.Event, error) {
	cursor, err := s.col(colEvents).Find(ctx, containsFilter(query, "title", "description"), searchOptions("date", 1))
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
