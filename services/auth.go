package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/auth"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/store"
)

type AuthService struct {
	store      store.Store
	jwt        *auth.JWTManager
	bcryptCost int
}

func NewAuthService(st store.Store, jwt *auth.JWTManager, bcryptCost int) *AuthService {
	return &AuthService{store: st, jwt: jwt, bcryptCost: bcryptCost}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Phone    string
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	var details []string
	if name == "" {
		details = append(details, "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		details = append(details, "email is invalid")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		details = append(details, err.Error())
	}
	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !models.ValidRole(role) {
		details = append(details, "role must be one of Student, Club Organizer, Admin")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid registration", details...)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	at := now()
	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(in.Phone),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrEmailTaken
		}
		return nil, storeErr(err, "user")
	}
	return s.session(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, storeErr(err, "user")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := s.jwt.Generate(u)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Token: token, User: u.Summary()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
