package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/campus-pay-go/models"
)

func (s *Store) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	docs := make([]interface{}, len(ns))
	for i := range ns {
		if ns[i].ID.IsZero() {
			ns[i].ID = primitive.NewObjectID()
		}
		docs[i] = ns[i]
	}
	if _, err := s.col(colNotifications).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.col(colNotifications).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	var ns []models.Notification
	if err := cursor.All(ctx, &ns); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return ns, nil
}

// MarkNotificationRead sets read_at only on the first call.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*models.Notification, error) {
	var n models.Notification
	err := s.col(colNotifications).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err == nil {
		return &n, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	if err := s.col(colNotifications).FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&n); err != nil {
		return nil, translate(err)
	}
	return &n, nil
}
