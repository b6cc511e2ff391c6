package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

type UserService struct {
	store store.Store
}

func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}
