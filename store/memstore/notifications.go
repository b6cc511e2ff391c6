package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

func (s *Store) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	d, unlock := s.write(ctx)
	defer unlock()

	for i := range ns {
		ensureID(&ns[i].ID)
		d.notifications = append(d.notifications, ns[i])
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var out []models.Notification
	for i := len(d.notifications) - 1; i >= 0; i-- {
		if n := d.notifications[i]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*models.Notification, error) {
	d, unlock := s.write(ctx)
	defer unlock()

	for i := range d.notifications {
		n := &d.notifications[i]
		if n.ID != id || n.UserID != userID {
			continue
		}
		if !n.Read {
			n.Read = true
			n.ReadAt = &at
		}
		cp := *n
		return &cp, nil
	}
	return nil, store.ErrNotFound
}
