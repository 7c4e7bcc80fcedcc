package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
)

const secret = "test-secret"

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), Logger(zerolog.Nop()), Recovery(zerolog.Nop()), CORS([]string{"http://panel.test"}))

	exists := func(id int) bool { return id == 1 || id == 2 }
	isAuthor := func(id int) bool { return id == 1 }
	api := engine.Group("/api", Auth(secret, exists), RequireAuthor(isAuthor))
	api.GET("/thing", func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user": id})
	})
	api.POST("/thing", func(c *gin.Context) { c.Status(http.StatusCreated) })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	return engine
}

func bearer(t *testing.T, userID int, tokenType string) string {
	t.Helper()
	tok, err := security.GenerateToken(secret, tokenType, userID, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(engine *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Origin", "http://panel.test")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	engine := newEngine(t)

	rec := serve(engine, http.MethodGet, "/api/thing", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication credentials were not provided.")

	rec = serve(engine, http.MethodGet, "/api/thing", bearer(t, 1, security.TokenTypeRefresh))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_not_valid")

	rec = serve(engine, http.MethodGet, "/api/thing", bearer(t, 9, security.TokenTypeAccess))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(engine, http.MethodGet, "/api/thing", bearer(t, 2, security.TokenTypeAccess))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":2}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "http://panel.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequireAuthor(t *testing.T) {
	engine := newEngine(t)

	rec := serve(engine, http.MethodPost, "/api/thing", bearer(t, 2, security.TokenTypeAccess))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(engine, http.MethodPost, "/api/thing", bearer(t, 1, security.TokenTypeAccess))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRecoveryAndPreflight(t *testing.T) {
	engine := newEngine(t)

	rec := serve(engine, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(engine, http.MethodOptions, "/api/thing", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	engine := newEngine(t)
	req := httptest.NewRequest(http.MethodGet, "/api/thing", nil)
	req.Header.Set("Authorization", bearer(t, 1, security.TokenTypeAccess))
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDReplacesOversizedValue(t *testing.T) {
	engine := newEngine(t)
	req := httptest.NewRequest(http.MethodGet, "/api/thing", nil)
	req.Header.Set("Authorization", bearer(t, 1, security.TokenTypeAccess))
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-Id")
	assert.NotEmpty(t, got)
	assert.Less(t, len(got), 200)
}

func TestCORSOrigins(t *testing.T) {
	engine := newEngine(t)

	rec := serve(engine, http.MethodOptions, "/api/thing", "")
	assert.Equal(t, "http://panel.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req := httptest.NewRequest(http.MethodOptions, "/api/thing", nil)
	req.Header.Set("Origin", "http://elsewhere.test")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
