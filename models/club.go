package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscription frequencies for fee-based clubs.
const (
	FrequencyMonthly  = "monthly"
	FrequencySemester = "semester"
	FrequencyYearly   = "yearly"
)

type Subscription struct {
	Fee       decimal.Decimal `bson:"fee" json:"fee"`
	Frequency string          `bson:"frequency" json:"frequency"`
}

// Club membership is tracked by three id lists. A user is in at most one of
// PendingRequests and Members; organizers are always members too.
type Club struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	CreatorID       primitive.ObjectID   `bson:"creator_id" json:"creator_id"`
	Members         []primitive.ObjectID `bson:"members" json:"members"`
	Organizers      []primitive.ObjectID `bson:"organizers" json:"organizers"`
	PendingRequests []primitive.ObjectID `bson:"pending_requests" json:"pending_requests"`
	CoverImage      string               `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	Subscription    *Subscription        `bson:"subscription,omitempty" json:"subscription,omitempty"`
	Version         int64                `bson:"version" json:"version"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

func (c *Club) IsOrganizer(userID primitive.ObjectID) bool {
	return containsID(c.Organizers, userID)
}

func (c *Club) IsMember(userID primitive.ObjectID) bool {
	return containsID(c.Members, userID)
}

func (c *Club) IsPending(userID primitive.ObjectID) bool {
	return containsID(c.PendingRequests, userID)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	return slices.Contains(ids, id)
}

// RemoveID returns ids without id.
func RemoveID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	return slices.DeleteFunc(slices.Clone(ids), func(x primitive.ObjectID) bool { return x == id })
}

// AddID appends id unless it is already present.
func AddID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}
