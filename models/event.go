package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TicketFree = "Free"
	TicketPaid = "Paid"
)

type Event struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	CreatorID   primitive.ObjectID   `bson:"creator_id" json:"creator_id"`
	ClubID      *primitive.ObjectID  `bson:"club_id,omitempty" json:"club_id,omitempty"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Date        time.Time            `bson:"date" json:"date"`
	Location    string               `bson:"location,omitempty" json:"location,omitempty"`
	Attendees   []primitive.ObjectID `bson:"attendees" json:"attendees"`
	Capacity    int                  `bson:"capacity" json:"capacity"` // 0 = unlimited
	TicketType  string               `bson:"ticket_type" json:"ticket_type"`
	TicketPrice decimal.Decimal      `bson:"ticket_price" json:"ticket_price"`
	CoverImage  string               `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	Version     int64                `bson:"version" json:"version"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// IsAttending reports whether userID is registered.
func (e *Event) IsAttending(userID primitive.ObjectID) bool {
	return containsID(e.Attendees, userID)
}

// Full reports whether the event has no seats left.
func (e *Event) Full() bool {
	return e.Capacity > 0 && len(e.Attendees) >= e.Capacity
}
