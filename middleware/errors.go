package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/phillip/campus-pay-go/apperr"
)

// ErrorHandler renders the last error attached with c.Error as JSON. Unknown
// errors are logged and reported as a generic 500.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		e := Classify(err)
		if e.Kind == apperr.KindInternal {
			log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		}
		retryable := e.Kind == apperr.KindTimeout && c.Request.Method == http.MethodGet
		c.JSON(e.Status(), body(e, retryable))
	}
}

// Classify turns any error into an *apperr.Error.
func Classify(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return BindingError(verrs)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.ErrTimeout.Wrap(err)
	default:
		return apperr.Internal(err)
	}
}

// BindingError converts a gin binding failure into a validation error with one
// message per failed field.
func BindingError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request body", err.Error())
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return apperr.Validation("invalid request", details...)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

var fieldNamesOnce sync.Once

// UseTagFieldNames makes binding errors report fields by their json or form
// tag instead of the Go field name.
func UseTagFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

// Recovery turns panics into the same generic 500 as unknown errors.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		log.Error("Panic recovered", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", rec)
		abort(c, apperr.Internal(fmt.Errorf("panic: %v", rec)))
	})
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
