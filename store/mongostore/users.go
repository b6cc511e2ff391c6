package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colUsers).InsertOne(ctx, u); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.col(colUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.col(colUsers).FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.col(colUsers).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *Store) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	cursor, err := s.col(colUsers).Find(ctx, containsFilter(query, "name", "email"), searchOptions("name", 1))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}
