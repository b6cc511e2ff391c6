package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/services"
)

// ---------------- CREATE ----------------
func CreateGroup(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var input struct {
			Name         string   `json:"name" binding:"required"`
			Description  string   `json:"description"`
			Participants []string `json:"participants"`
		}
		if !bind(c, &input) {
			return
		}

		ids := make([]primitive.ObjectID, 0, len(input.Participants))
		for _, p := range input.Participants {
			id, err := parseID(p, "participants")
			if err != nil {
				fail(c, err)
				return
			}
			ids = append(ids, id)
		}

		group, err := svc.CreateGroup(c.Request.Context(), services.CreateGroupInput{
			CreatorID:      userID,
			Name:           input.Name,
			Description:    input.Description,
			ParticipantIDs: ids,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, group)
	}
}

// ---------------- LIST ----------------
func ListGroups(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		groups, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

// ---------------- GET ----------------
func GetGroup(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, groupID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		group, err := svc.Get(c.Request.Context(), userID, groupID)
		if err != nil {
			fail(c, err)
			return
		}
		writeVersioned(c, group.ID, group.Version, group)
	}
}

// ---------------- SPLIT BILL ----------------
func SplitBill(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, groupID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		var input struct {
			TotalAmount *decimal.Decimal `json:"total_amount" binding:"required"`
			Description string          `json:"description"`
		}
		if !bind(c, &input) {
			return
		}

		group, bill, err := svc.SplitBill(c.Request.Context(), services.SplitBillInput{
			RequesterID: userID,
			GroupID:     groupID,
			Total:       *input.TotalAmount,
			Description: input.Description,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "bill split", "group": group, "bill": bill})
	}
}

// ---------------- SETTLE ----------------
func SettleShare(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, groupID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		billID, err := paramID(c, "billId")
		if err != nil {
			fail(c, err)
			return
		}

		group, tx, err := svc.SettleShare(c.Request.Context(), services.SettleInput{
			RequesterID:    userID,
			GroupID:        groupID,
			BillID:         billID,
			IdempotencyKey: c.GetHeader(IdempotencyHeader),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "share settled", "group": group, "transaction": tx})
	}
}

// ---------------- MESSAGES ----------------
func PostGroupMessage(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, groupID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		var input struct {
			Body string `json:"body" binding:"required"`
		}
		if !bind(c, &input) {
			return
		}
		msg, err := svc.PostMessage(c.Request.Context(), userID, groupID, input.Body)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func ListGroupMessages(svc *services.GroupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, groupID, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
				fail(c, apperr.Validation("limit must be a non-negative integer"))
				return
			}
		}
		msgs, err := svc.ListMessages(c.Request.Context(), userID, groupID, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}
