package memstore

import (
	"context"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	d, unlock := s.write(ctx)
	defer unlock()

	for _, existing := range d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	ensureID(&u.ID)
	d.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

// FindUsers returns the users that exist among ids, in no particular order.
func (s *Store) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var users []models.User
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *Store) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var users []models.User
	for _, u := range d.users {
		if matches(query, u.Name, u.Email) {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b models.User) int { return strings.Compare(a.Name, b.Name) })
	if len(users) > store.SearchLimit {
		users = users[:store.SearchLimit]
	}
	return users, nil
}
