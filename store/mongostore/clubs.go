package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/campus-pay-go/models"
)

func (s *Store) CreateClub(ctx context.Context, c *models.Club) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colClubs).InsertOne(ctx, c); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetClub(ctx context.Context, id primitive.ObjectID) (*models.Club, error) {
	var c models.Club
	if err := s.col(colClubs).FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ListClubs(ctx context.Context) ([]models.Club, error) {
	cursor, err := s.col(colClubs).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	var clubs []models.Club
	if err := cursor.All(ctx, &clubs); err != nil {
		return nil, fmt.Errorf("failed to decode clubs: %w", err)
	}
	return clubs, nil
}

func (s *Store) UpdateClub(ctx context.Context, c *models.Club) error {
	next := *c
	next.Version = c.Version + 1
	if err := s.replaceVersioned(ctx, colClubs, c.ID, c.Version, next); err != nil {
		return err
	}
	c.Version = next.Version
	return nil
}

func (s *Store) SearchClubs(ctx context.Context, query string) ([]models.Club, error) {
	cursor, err := s.col(colClubs).Find(ctx, containsFilter(query, "name", "description"), searchOptions("name", 1))
	if err != nil {
		return nil, fmt.Errorf("failed to search clubs: %w", err)
	}
	var clubs []models.Club
	if err := cursor.All(ctx, &clubs); err != nil {
		return nil, fmt.Errorf("failed to decode clubs: %w", err)
	}
	return clubs, nil
}
