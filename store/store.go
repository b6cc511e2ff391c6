// Package store defines the persistence contract for campus-pay.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrConflict  = errors.New("document version changed")
	ErrDuplicate = errors.New("duplicate key")
)

// SearchLimit caps the results of each Search* call.
const SearchLimit = 20

// Store is the document store used by the services. Implementations must make
// every call made with the context passed to WithTx's callback part of one
// all-or-nothing unit.
//
// Update* methods are compare-and-swap on Version: the stored document must still
// have the version carried by the argument, which is bumped on success.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id primitive.ObjectID) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error)
	UpdateGroup(ctx context.Context, g *models.Group) error
	CreateGroupMessage(ctx context.Context, m *models.GroupMessage) error
	ListGroupMessages(ctx context.Context, groupID primitive.ObjectID, limit int) ([]models.GroupMessage, error)

	CreateClub(ctx context.Context, c *models.Club) error
	GetClub(ctx context.Context, id primitive.ObjectID) (*models.Club, error)
	ListClubs(ctx context.Context) ([]models.Club, error)
	UpdateClub(ctx context.Context, c *models.Club) error
	SearchClubs(ctx context.Context, query string) ([]models.Club, error)

	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	ListEventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error)
	SearchEvents(ctx context.Context, query string) ([]models.Event, error)

	CreateNotifications(ctx context.Context, ns []models.Notification) error
	ListNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*models.Notification, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByKey(ctx context.Context, senderID primitive.ObjectID, key string) (*models.Transaction, error)
	ListTransactionsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error)

	// AppendLedgerEntry assigns e.Seq as the next sequence number of e.AccountID.
	AppendLedgerEntry(ctx context.Context, e *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, accountID primitive.ObjectID) ([]models.LedgerEntry, error)

	Close(ctx context.Context) error
}
