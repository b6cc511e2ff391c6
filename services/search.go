package services

import (
	"context"
	"strings"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

type SearchService struct {
	store store.Store
}

func NewSearchService(st store.Store) *SearchService {
	return &SearchService{store: st}
}

type SearchResults struct {
	Users  []models.UserSummary `json:"users"`
	Clubs  []models.Club        `json:"clubs"`
	Events []models.Event       `json:"events"`
}

// Search matches query case-insensitively against users, clubs and events.
func (s *SearchService) Search(ctx context.Context, query string) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("query is required")
	}

	users, err := s.store.SearchUsers(ctx, query)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	clubs, err := s.store.SearchClubs(ctx, query)
	if err != nil {
		return nil, storeErr(err, "clubs")
	}
	events, err := s.store.SearchEvents(ctx, query)
	if err != nil {
		return nil, storeErr(err, "events")
	}

	res := &SearchResults{
		Users:  make([]models.UserSummary, 0, len(users)),
		Clubs:  clubs,
		Events: events,
	}
	for i := range users {
		res.Users = append(res.Users, users[i].Summary())
	}
	if res.Clubs == nil {
		res.Clubs = []models.Club{}
	}
	if res.Events == nil {
		res.Events = []models.Event{}
	}
	return res, nil
}
