package memstore

import (
	"context"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

func (s *Store) CreateClub(ctx context.Context, c *models.Club) error {
	d, unlock := s.write(ctx)
	defer unlock()

	for _, existing := range d.clubs {
		if strings.EqualFold(existing.Name, c.Name) {
			return store.ErrDuplicate
		}
	}
	ensureID(&c.ID)
	d.clubs[c.ID] = cloneClub(*c)
	return nil
}

func (s *Store) GetClub(ctx context.Context, id primitive.ObjectID) (*models.Club, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	c, ok := d.clubs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = cloneClub(c)
	return &c, nil
}

func (s *Store) ListClubs(ctx context.Context) ([]models.Club, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	clubs := make([]models.Club, 0, len(d.clubs))
	for _, c := range d.clubs {
		clubs = append(clubs, cloneClub(c))
	}
	slices.SortFunc(clubs, func(a, b models.Club) int { return strings.Compare(a.Name, b.Name) })
	return clubs, nil
}

func (s *Store) UpdateClub(ctx context.Context, c *models.Club) error {
	d, unlock := s.write(ctx)
	defer unlock()

	current, ok := d.clubs[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != c.Version {
		return store.ErrConflict
	}
	c.Version++
	d.clubs[c.ID] = cloneClub(*c)
	return nil
}

func (s *Store) SearchClubs(ctx context.Context, query string) ([]models.Club, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var clubs []models.Club
	for _, c := range d.clubs {
		if matches(query, c.Name, c.Description) {
			clubs = append(clubs, cloneClub(c))
		}
	}
	slices.SortFunc(clubs, func(a, b models.Club) int { return strings.Compare(a.Name, b.Name) })
	if len(clubs) > store.SearchLimit {
		clubs = clubs[:store.SearchLimit]
	}
	return clubs, nil
}
