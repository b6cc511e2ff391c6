package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participant is a user's running position in a group. AmountOwed is the sum of
// the user's shares over every bill; Paid is true once all of them are settled.
type Participant struct {
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	AmountOwed decimal.Decimal    `bson:"amount_owed" json:"amount_owed"`
	Paid       bool               `bson:"paid" json:"paid"`
}

// Share is one participant's part of a single bill.
type Share struct {
	UserID        primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Amount        decimal.Decimal     `bson:"amount" json:"amount"`
	Paid          bool                `bson:"paid" json:"paid"`
	TransactionID *primitive.ObjectID `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PaidAt        *time.Time          `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// Bill is a single split recorded against a group. PaidBy fronted the money and
// receives every settlement.
type Bill struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TotalAmount decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	PaidBy      primitive.ObjectID `bson:"paid_by" json:"paid_by"`
	Shares      []Share            `bson:"shares" json:"shares"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

type Group struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	CreatorID    primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Participants []Participant      `bson:"participants" json:"participants"`
	TotalAmount  decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Bills        []Bill             `bson:"bills" json:"bills"`
	Version      int64              `bson:"version" json:"version"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

func (g *Group) IsParticipant(userID primitive.ObjectID) bool {
	for _, p := range g.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns participant user ids in order.
func (g *Group) ParticipantIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(g.Participants))
	for i, p := range g.Participants {
		ids[i] = p.UserID
	}
	return ids
}

// FindBill returns a pointer into g.Bills, or nil.
func (g *Group) FindBill(billID primitive.ObjectID) *Bill {
	for i := range g.Bills {
		if g.Bills[i].ID == billID {
			return &g.Bills[i]
		}
	}
	return nil
}

// FindShare returns a pointer into b.Shares, or nil.
func (b *Bill) FindShare(userID primitive.ObjectID) *Share {
	for i := range b.Shares {
		if b.Shares[i].UserID == userID {
			return &b.Shares[i]
		}
	}
	return nil
}

// Recompute derives participant totals and the group total from the bills.
// Afterwards the participants' AmountOwed values sum to TotalAmount.
func (g *Group) Recompute() {
	owed := make(map[primitive.ObjectID]decimal.Decimal, len(g.Participants))
	shares := make(map[primitive.ObjectID]int, len(g.Participants))
	unpaid := make(map[primitive.ObjectID]int, len(g.Participants))

	total := decimal.Zero
	for _, b := range g.Bills {
		total = total.Add(b.TotalAmount)
		for _, s := range b.Shares {
			owed[s.UserID] = owed[s.UserID].Add(s.Amount)
			shares[s.UserID]++
			if !s.Paid {
				unpaid[s.UserID]++
			}
		}
	}

	for i := range g.Participants {
		p := &g.Participants[i]
		p.AmountOwed = owed[p.UserID]
		p.Paid = shares[p.UserID] > 0 && unpaid[p.UserID] == 0
	}
	g.TotalAmount = total
}

type GroupMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
