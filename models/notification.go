package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotifyGroupInvite        = "group_invite"
	NotifyBillSplit          = "bill_split"
	NotifySettlement         = "settlement"
	NotifyPaymentReceived    = "payment_received"
	NotifyPaymentRequest     = "payment_request"
	NotifyClubJoinRequest    = "club_join_request"
	NotifyClubJoinApproved   = "club_join_approved"
	NotifyClubJoinDenied     = "club_join_denied"
	NotifyClubOrganizerAdded = "club_organizer_added"
	NotifyEventRegistration  = "event_registration"
)

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Message   string              `bson:"message" json:"message"`
	Type      string              `bson:"type" json:"type"`
	RefType   string              `bson:"ref_type,omitempty" json:"ref_type,omitempty"` // group, club, event, transaction
	RefID     *primitive.ObjectID `bson:"ref_id,omitempty" json:"ref_id,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	ReadAt    *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
