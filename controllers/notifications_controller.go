package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/services"
)

func ListNotifications(svc *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		ns, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ns)
	}
}

func MarkNotificationRead(svc *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, id, err := callerAnd(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		n, err := svc.MarkRead(c.Request.Context(), userID, id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}
