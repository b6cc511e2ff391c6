package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/models"
	"github.com/phillip/campus-pay-go/services"
	"github.com/phillip/campus-pay-go/utils"
)

// ---------------- CREATE ----------------
func CreateClub(svc *services.ClubService, media utils.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}

		// --- Bind form fields ---
		var input struct {
			Name                  string `form:"name" binding:"required"`
			Description           string `form:"description"`
			SubscriptionFee       string `form:"subscription_fee"`
			SubscriptionFrequency string `form:"subscription_frequency"`
		}
		if !bind(c, &input) {
			return
		}
		sub, err := services.ParseSubscription(input.SubscriptionFee, input.SubscriptionFrequency)
		if err != nil {
			fail(c, err)
			return
		}

		// --- Handle cover image ---
		imageURL, err := uploadImage(c, media, "clubs")
		if err != nil {
			fail(c, err)
			return
		}

		club, err := svc.Create(c.Request.Context(), services.CreateClubInput{
			CreatorID:    userID,
			Name:         input.Name,
			Description:  input.Description,
			CoverImage:   imageURL,
			Subscription: sub,
		})
		if err != nil {
			discardImage(media, imageURL)
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, club)
	}
}

// ---------------- LIST ----------------
func ListClubs(svc *services.ClubService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubs, err := svc.List(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, clubs)
	}
}

// ---------------- GET ----------------
func GetClub(svc *services.ClubService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		club, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		writeVersioned(c, club.ID, club.Version, club)
	}
}

// ---------------- JOIN ----------------
func JoinClub(svc *services.ClubService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, clubID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		club, err := svc.RequestJoin(c.Request.Context(), userID, clubID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "join request sent", "club": club})
	}
}

// ---------------- APPROVE / DENY ----------------
type joinDecision func(ctx context.Context, organizerID, clubID, userID primitive.ObjectID) (*models.Club, error)

func ApproveJoinRequest(svc *services.ClubService) gin.HandlerFunc {
	return decideJoin(svc.Approve, "join request approved")
}

func DenyJoinRequest(svc *services.ClubService) gin.HandlerFunc {
	return decideJoin(svc.Deny, "join request denied")
}

func decideJoin(decide joinDecision, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		organizerID, clubID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		userID, err := paramID(c, "userId")
		if err != nil {
			fail(c, err)
			return
		}
		club, err := decide(c.Request.Context(), organizerID, clubID, userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "club": club})
	}
}

// ---------------- ADD ORGANIZER ----------------
func AddOrganizer(svc *services.ClubService) gin.HandlerFunc {
	return func(c *gin.Context) {
		organizerID, clubID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		var input struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if !bind(c, &input) {
			return
		}
		userID, err := parseID(input.UserID, "user_id")
		if err != nil {
			fail(c, err)
			return
		}

		club, err := svc.AddOrganizer(c.Request.Context(), organizerID, clubID, userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "organizer added", "club": club})
	}
}
