package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/auth"
)

// Context keys set by Auth.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// Auth rejects requests without a valid bearer token and stores the caller's id
// and role on the context.
func Auth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperr.Unauthorized("authorization header required"))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, apperr.Unauthorized("invalid authorization header format"))
			return
		}

		claims, err := jwt.Validate(strings.TrimSpace(token))
		if err != nil {
			abort(c, apperr.Unauthorized("invalid or expired token"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated caller.
func UserID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.GetString(UserIDKey))
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthorized("invalid user id")
	}
	return id, nil
}

func abort(c *gin.Context, e *apperr.Error) {
	c.AbortWithStatusJSON(e.Status(), body(e, false))
}

func body(e *apperr.Error, retryable bool) gin.H {
	details := e.Details
	if details == nil {
		details = []string{}
	}
	h := gin.H{"message": e.Message, "code": e.Code, "errors": details}
	if retryable {
		h["retryable"] = true
	}
	return h
}

