package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/services"
	"github.com/phillip/campus-pay-go/split"
)

type transferInput struct {
	UserID      string          `json:"user_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ---------------- SEND ----------------
func SendMoney(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		senderID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var input transferInput
		if !bind(c, &input) {
			return
		}
		receiverID, err := parseID(input.UserID, "user_id")
		if err != nil {
			fail(c, err)
			return
		}

		tx, err := svc.Send(c.Request.Context(), services.SendInput{
			SenderID:       senderID,
			ReceiverID:     receiverID,
			Amount:         input.Amount,
			Description:    input.Description,
			IdempotencyKey: c.GetHeader(IdempotencyHeader),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, tx)
	}
}

// ---------------- REQUEST ----------------
func RequestMoney(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requesterID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var input transferInput
		if !bind(c, &input) {
			return
		}
		payerID, err := parseID(input.UserID, "user_id")
		if err != nil {
			fail(c, err)
			return
		}

		tx, err := svc.Request(c.Request.Context(), services.RequestInput{
			RequesterID: requesterID,
			PayerID:     payerID,
			Amount:      input.Amount,
			Description: input.Description,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, tx)
	}
}

// ---------------- LIST ----------------
func ListTransactions(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		txs, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}

// ---------------- WALLET ----------------
func WalletBalance(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		balance, err := svc.Balance(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance.StringFixed(split.Scale)})
	}
}

func TopUp(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var input struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if !bind(c, &input) {
			return
		}
		balance, err := svc.TopUp(c.Request.Context(), userID, input.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance.StringFixed(split.Scale)})
	}
}
