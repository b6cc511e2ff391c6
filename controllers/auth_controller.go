package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/services"
)

// ---------------- REGISTER ----------------
func Register(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=8"`
			Role     string `json:"role"`
			Phone    string `json:"phone"`
		}
		if !bind(c, &input) {
			return
		}

		sess, err := svc.Register(c.Request.Context(), services.RegisterInput{
			Name:     input.Name,
			Email:    input.Email,
			Password: input.Password,
			Role:     input.Role,
			Phone:    input.Phone,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, sess)
	}
}

// ---------------- LOGIN ----------------
func Login(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bind(c, &input) {
			return
		}

		sess, err := svc.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// ---------------- ME ----------------
func Me(svc *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.UserID(c)
		if err != nil {
			fail(c, err)
			return
		}
		u, err := svc.Get(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// ---------------- GET USER ----------------
func GetUser(svc *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		u, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, u.Summary())
	}
}
