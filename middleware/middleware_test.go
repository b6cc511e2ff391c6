package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/campus-pay-go/apperr"
	"github.com/phillip/campus-pay-go/auth"
	"github.com/phillip/campus-pay-go/metrics"
	"github.com/phillip/campus-pay-go/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
	UseTagFieldNames()
}

type errorBody struct {
	Message   string   `json:"message"`
	Code      string   `json:"code"`
	Errors    []string `json:"errors"`
	Retryable bool     `json:"retryable"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var b errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), w.Body.String())
	return b
}

func TestAuth(t *testing.T) {
	jwt := auth.NewJWTManager("mw-secret", time.Hour)
	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	token, err := jwt.Generate(user)
	require.NoError(t, err)
	other, err := auth.NewJWTManager("other", time.Hour).Generate(user)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Auth(jwt), func(c *gin.Context) {
		id, err := UserID(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "role": c.GetString(RoleKey)})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", token, http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + other, http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				b := decode(t, w)
				assert.Equal(t, "unauthorized", b.Code)
				assert.NotEmpty(t, b.Message)
				return
			}
			assert.Contains(t, w.Body.String(), user.ID.Hex())
			assert.Contains(t, w.Body.String(), models.RoleAdmin)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(quiet))
	r.GET("/domain", func(c *gin.Context) { _ = c.Error(apperr.ErrEventFull) })
	r.GET("/unknown", func(c *gin.Context) { _ = c.Error(errors.New("mongo: connection pool exhausted")) })
	r.GET("/timeout", func(c *gin.Context) { _ = c.Error(apperr.ErrTimeout) })
	r.POST("/timeout", func(c *gin.Context) { _ = c.Error(apperr.ErrTimeout) })
	r.POST("/bind", func(c *gin.Context) {
		var in struct {
			Amount string `json:"amount" binding:"required"`
			Email  string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(BindingError(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/domain", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "event_full", decode(t, w).Code)

	w = do(http.MethodGet, "/unknown", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	b := decode(t, w)
	assert.Equal(t, "internal server error", b.Message)
	assert.NotContains(t, w.Body.String(), "mongo")

	w = do(http.MethodGet, "/timeout", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.True(t, decode(t, w).Retryable)

	w = do(http.MethodPost, "/timeout", "")
	assert.False(t, decode(t, w).Retryable, "writes are never flagged retryable")

	w = do(http.MethodPost, "/bind", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	b = decode(t, w)
	assert.Equal(t, "validation_failed", b.Code)
	assert.ElementsMatch(t, []string{"amount is required", "email must be a valid email"}, b.Errors)

	w = do(http.MethodPost, "/bind", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(quiet))
	r.GET("/boom", func(c *gin.Context) { panic("nil map") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "nil map")
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(RequestID(), RequestLogger(quiet), Metrics(m))
	r.GET("/groups/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/groups/abc", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/groups/def", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-123", w.Header().Get(RequestIDHeader))

	count, err := m.Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range count {
		if mf.GetName() == "http_requests_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1, "labelled by route template, not raw path")
			assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
