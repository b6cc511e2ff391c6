package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/middleware"
	"github.com/phillip/campus-pay-go/utils"
)

// IdempotencyHeader lets clients retry money-moving writes safely.
const IdempotencyHeader = "Idempotency-Key"

// paramID parses an ObjectID path parameter.
func paramID(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// parseID parses an ObjectID from a request body field.
func parseID(s, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid "+field, field+" must be a valid id")
	}
	return id, nil
}

// callerAnd resolves the authenticated user and one path id.
func callerAnd(c *gin.Context, name string) (userID, id primitive.ObjectID, err error) {
	if userID, err = middleware.UserID(c); err != nil {
		return
	}
	id, err = paramID(c, name)
	return
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		fail(c, middleware.BindingError(err))
		return false
	}
	return true
}

// writeVersioned sends v with an ETag for (id, version), or 304 when the client
// already has it.
func writeVersioned(c *gin.Context, id primitive.ObjectID, version int64, v any) {
	etag := utils.GenerateETag(id, version)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("ETag", etag)
	c.JSON(http.StatusOK, v)
}

// uploadImage stores the optional "image" form file under folder. An absent
// file yields an empty URL.
func uploadImage(c *gin.Context, media utils.Uploader, folder string) (string, error) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", apperr.Validation("invalid form data", err.Error())
	}

	file, err := header.Open()
	if err != nil {
		return "", apperr.Internal(err)
	}
	defer file.Close()

	url, err := media.Upload(c.Request.Context(), file, header, folder)
	if err != nil {
		return "", apperr.Internal(err).Withf("image upload failed")
	}
	return url, nil
}

// discardImage removes an upload whose owning record was never created.
func discardImage(media utils.Uploader, url string) {
	if url == "" {
		return
	}
	if err := media.Delete(context.Background(), url); err != nil {
		slog.Warn("Failed to clean up upload", "url", url, "error", err)
	}
}
