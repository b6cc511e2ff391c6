package memstore

import (
	"context"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	d, unlock := s.write(ctx)
	defer unlock()

	ensureID(&g.ID)
	d.groups[g.ID] = cloneGroup(*g)
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	g, ok := d.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	g = cloneGroup(g)
	return &g, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var groups []models.Group
	for _, g := range d.groups {
		if g.IsParticipant(userID) || g.CreatorID == userID {
			groups = append(groups, cloneGroup(g))
		}
	}
	slices.SortFunc(groups, func(a, b models.Group) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, g *models.Group) error {
	d, unlock := s.write(ctx)
	defer unlock()

	current, ok := d.groups[g.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != g.Version {
		return store.ErrConflict
	}
	g.Version++
	d.groups[g.ID] = cloneGroup(*g)
	return nil
}

func (s *Store) CreateGroupMessage(ctx context.Context, m *models.GroupMessage) error {
	d, unlock := s.write(ctx)
	defer unlock()

	ensureID(&m.ID)
	d.messages = append(d.messages, *m)
	return nil
}

// ListGroupMessages returns the latest limit messages, oldest first.
func (s *Store) ListGroupMessages(ctx context.Context, groupID primitive.ObjectID, limit int) ([]models.GroupMessage, error) {
	d, unlock := s.read(ctx)
	defer unlock()

	var msgs []models.GroupMessage
	for _, m := range d.messages {
		if m.GroupID == groupID {
			msgs = append(msgs, m)
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
