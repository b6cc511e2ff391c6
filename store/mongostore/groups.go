package mongostore

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/campus-pay-go/models"
)

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colGroups).InsertOne(ctx, g); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var g models.Group
	if err := s.col(colGroups).FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"participants.user_id": userID},
		bson.M{"creator_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.col(colGroups).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var groups []models.Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, g *models.Group) error {
	next := *g
	next.Version = g.Version + 1
	if err := s.replaceVersioned(ctx, colGroups, g.ID, g.Version, next); err != nil {
		return err
	}
	g.Version = next.Version
	return nil
}

func (s *Store) CreateGroupMessage(ctx context.Context, m *models.GroupMessage) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := s.col(colMessages).InsertOne(ctx, m); err != nil {
		return translate(err)
	}
	return nil
}

// ListGroupMessages returns the latest limit messages, oldest first.
func (s *Store) ListGroupMessages(ctx context.Context, groupID primitive.ObjectID, limit int) ([]models.GroupMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.col(colMessages).Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	var msgs []models.GroupMessage
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}
