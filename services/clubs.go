package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/split"
	"github.com/phillip/campus-pay-go/store"
)

type ClubService struct {
	store   store.Store
	notes   *NotificationService
	metrics *metrics.Metrics
}

func NewClubService(st store.Store, notes *NotificationService, m *metrics.Metrics) *ClubService {
	return &ClubService{store: st, notes: notes, metrics: m}
}

type CreateClubInput struct {
	CreatorID   primitive.ObjectID
	Name        string
	Description string
	CoverImage  string
	// Subscription is optional; a nil value means the club is free.
	Subscription *models.Subscription
}

func validFrequency(f string) bool {
	switch f {
	case models.FrequencyMonthly, models.FrequencySemester, models.FrequencyYearly:
		return true
	}
	return false
}

// Create registers a club. Only club organizers and admins may create one; the
// creator becomes its first organizer and member.
func (s *ClubService) Create(ctx context.Context, in CreateClubInput) (*models.Club, error) {
	name := strings.TrimSpace(in.Name)
	var details []string
	if name == "" {
		details = append(details, "name is required")
	}
	if sub := in.Subscription; sub != nil {
		if sub.Fee.IsNegative() || !split.ValidAmount(sub.Fee) {
			details = append(details, "subscription fee must be zero or more with at most 2 decimal places")
		}
		if !validFrequency(sub.Frequency) {
			details = append(details, "subscription frequency must be monthly, semester or yearly")
		}
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid club", details...)
	}

	creator, err := s.store.GetUser(ctx, in.CreatorID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if creator.Role != models.RoleClubOrganizer && creator.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only club organizers and admins can create clubs")
	}

	at := now()
	club := &models.Club{
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		CreatorID:       in.CreatorID,
		Members:         []primitive.ObjectID{in.CreatorID},
		Organizers:      []primitive.ObjectID{in.CreatorID},
		PendingRequests: []primitive.ObjectID{},
		CoverImage:      in.CoverImage,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if in.Subscription != nil {
		sub := *in.Subscription
		club.Subscription = &sub
	}
	if err := s.store.CreateClub(ctx, club); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrClubNameTaken
		}
		return nil, storeErr(err, "club")
	}
	return club, nil
}

func (s *ClubService) List(ctx context.Context) ([]models.Club, error) {
	cs, err := s.store.ListClubs(ctx)
	if err != nil {
		return nil, storeErr(err, "clubs")
	}
	if cs == nil {
		cs = []models.Club{}
	}
	return cs, nil
}

func (s *ClubService) Get(ctx context.Context, id primitive.ObjectID) (*models.Club, error) {
	c, err := s.store.GetClub(ctx, id)
	if err != nil {
		return nil, storeErr(err, "club")
	}
	return c, nil
}

// mutate loads the club, applies fn and writes it back with a version check,
// all in one transaction together with the notifications fn returns.
func (s *ClubService) mutate(ctx context.Context, clubID primitive.ObjectID, fn func(ctx context.Context, c *models.Club) ([]models.Notification, error)) (*models.Club, error) {
	var (
		club    *models.Club
		pending []models.Notification
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.store.GetClub(ctx, clubID)
		if err != nil {
			return storeErr(err, "club")
		}
		ns, err := fn(ctx, c)
		if err != nil {
			return err
		}
		c.UpdatedAt = now()
		if err := s.store.UpdateClub(ctx, c); err != nil {
			return err
		}
		club, pending = c, ns
		return s.notes.Emit(ctx, pending...)
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.Conflict("club")
		}
		return nil, storeErr(err, "club")
	}
	s.notes.Deliver(pending)
	return club, nil
}

// RequestJoin puts the user on the club's pending list and tells the organizers.
func (s *ClubService) RequestJoin(ctx context.Context, userID, clubID primitive.ObjectID) (*models.Club, error) {
	return s.mutate(ctx, clubID, func(ctx context.Context, c *models.Club) ([]models.Notification, error) {
		if c.IsMember(userID) || c.IsOrganizer(userID) {
			return nil, apperr.ErrAlreadyMember
		}
		if c.IsPending(userID) {
			return nil, apperr.ErrAlreadyPending
		}
		u, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return nil, storeErr(err, "user")
		}
		c.PendingRequests = models.AddID(c.PendingRequests, userID)

		ns := make([]models.Notification, 0, len(c.Organizers))
		for _, org := range c.Organizers {
			ns = append(ns, note(org, models.NotifyClubJoinRequest,
				fmt.Sprintf("%s asked to join %s", u.Name, c.Name), "club", c.ID))
		}
		return ns, nil
	})
}

func requireOrganizer(c *models.Club, userID primitive.ObjectID) error {
	if !c.IsOrganizer(userID) {
		return apperr.Forbidden("only club organizers can do this")
	}
	return nil
}

// Approve moves a pending user into the members list.
func (s *ClubService) Approve(ctx context.Context, organizerID, clubID, userID primitive.ObjectID) (*models.Club, error) {
	return s.mutate(ctx, clubID, func(_ context.Context, c *models.Club) ([]models.Notification, error) {
		if err := requireOrganizer(c, organizerID); err != nil {
			return nil, err
		}
		if !c.IsPending(userID) {
			return nil, apperr.ErrNotPending
		}
		c.PendingRequests = models.RemoveID(c.PendingRequests, userID)
		c.Members = models.AddID(c.Members, userID)
		return []models.Notification{note(userID, models.NotifyClubJoinApproved,
			fmt.Sprintf("Your request to join %s was approved", c.Name), "club", c.ID)}, nil
	})
}

// Deny drops a pending request.
func (s *ClubService) Deny(ctx context.Context, organizerID, clubID, userID primitive.ObjectID) (*models.Club, error) {
	return s.mutate(ctx, clubID, func(_ context.Context, c *models.Club) ([]models.Notification, error) {
		if err := requireOrganizer(c, organizerID); err != nil {
			return nil, err
		}
		if !c.IsPending(userID) {
			return nil, apperr.ErrNotPending
		}
		c.PendingRequests = models.RemoveID(c.PendingRequests, userID)
		return []models.Notification{note(userID, models.NotifyClubJoinDenied,
			fmt.Sprintf("Your request to join %s was declined", c.Name), "club", c.ID)}, nil
	})
}

// AddOrganizer promotes an existing user to organizer, making them a member if
// they were not one already.
func (s *ClubService) AddOrganizer(ctx context.Context, organizerID, clubID, userID primitive.ObjectID) (*models.Club, error) {
	return s.mutate(ctx, clubID, func(ctx context.Context, c *models.Club) ([]models.Notification, error) {
		if err := requireOrganizer(c, organizerID); err != nil {
			return nil, err
		}
		if c.IsOrganizer(userID) {
			return nil, apperr.ErrAlreadyMember.Withf("user is already an organizer")
		}
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return nil, storeErr(err, "user")
		}
		c.PendingRequests = models.RemoveID(c.PendingRequests, userID)
		c.Members = models.AddID(c.Members, userID)
		c.Organizers = models.AddID(c.Organizers, userID)
		return []models.Notification{note(userID, models.NotifyClubOrganizerAdded,
			fmt.Sprintf("You are now an organizer of %s", c.Name), "club", c.ID)}, nil
	})
}

// ParseSubscription builds a subscription from optional form values. Both empty
// means none.
func ParseSubscription(fee, frequency string) (*models.Subscription, error) {
	fee, frequency = strings.TrimSpace(fee), strings.ToLower(strings.TrimSpace(frequency))
	if fee == "" && frequency == "" {
		return nil, nil
	}
	sub := &models.Subscription{Fee: decimal.Zero, Frequency: frequency}
	if fee != "" {
		d, err := decimal.NewFromString(fee)
		if err != nil {
			return nil, apperr.Validation("subscription fee must be a number")
		}
		sub.Fee = d
	}
	return sub, nil
}
