package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/services"
	"github.com/phillip/campus-pay-go/utils"
)

// ---------------- CREATE ----------------
func CreateEvent(svc *services.EventService, media utils.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}

		// --- Bind form fields ---
		var input struct {
			Title       string `form:"title" binding:"required"`
			Description string `form:"description"`
			Date        string `form:"date" binding:"required"`
			Location    string `form:"location"`
			Capacity    int    `form:"capacity" binding:"gte=0"`
			TicketType  string `form:"ticket_type"`
			TicketPrice string `form:"ticket_price"`
			ClubID      string `form:"club_id"`
		}
		if !bind(c, &input) {
			return
		}

		// --- Parse date, price and club ---
		date, _, err := services.ParseTime(input.Date)
		if err != nil {
			fail(c, apperr.Validation("invalid date", err.Error()))
			return
		}
		price := decimal.Zero
		if p := strings.TrimSpace(input.TicketPrice); p != "" {
			if price, err = decimal.NewFromString(p); err != nil {
				fail(c, apperr.Validation("ticket_price must be a number"))
				return
			}
		}
		var clubID *primitive.ObjectID
		if input.ClubID != "" {
			id, err := parseID(input.ClubID, "club_id")
			if err != nil {
				fail(c, err)
				return
			}
			clubID = &id
		}

		// --- Handle cover image ---
		imageURL, err := uploadImage(c, media, "events")
		if err != nil {
			fail(c, err)
			return
		}

		event, err := svc.Create(c.Request.Context(), services.CreateEventInput{
			CreatorID:   userID,
			ClubID:      clubID,
			Title:       input.Title,
			Description: input.Description,
			Date:        date,
			Location:    input.Location,
			Capacity:    input.Capacity,
			TicketType:  input.TicketType,
			TicketPrice: price,
			CoverImage:  imageURL,
		})
		if err != nil {
			discardImage(media, imageURL)
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

// ---------------- REGISTER ----------------
func RegisterForEvent(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, eventID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		event, ticket, err := svc.Register(c.Request.Context(), userID, eventID, c.GetHeader(IdempotencyHeader))
		if err != nil {
			fail(c, err)
			return
		}
		resp := gin.H{"message": "registered", "event": event}
		if ticket != nil {
			resp["transaction"] = ticket
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ---------------- CALENDAR ----------------
func EventCalendar(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, end, err := services.CalendarRange(c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			fail(c, err)
			return
		}
		events, err := svc.Calendar(c.Request.Context(), start, end)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// ---------------- GET ----------------
func GetEvent(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		event, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		writeVersioned(c, event.ID, event.Version, event)
	}
}
