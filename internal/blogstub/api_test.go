package blogstub

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/middleware"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testConfig() config.StubConfig {
	return config.StubConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewStore(func() time.Time { return fixedNow })
	require.NoError(t, store.Seed([]SeedUser{
		{Username: "author", Password: "author-pass", Email: "author@atom.test", FirstName: "Sara", LastName: "Ahmadi", Author: "Sara A."},
		{Username: "reader", Password: "reader-pass", Email: "reader@atom.test"},
	}))

	engine := gin.New()
	engine.Use(middleware.RequestID())
	New(testConfig(), store, zerolog.Nop()).Register(engine)
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func login(t *testing.T, engine *gin.Engine, username, password string) (string, string) {
	t.Helper()
	rec, body := do(t, engine, http.MethodPost, "/api/token/", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body["access"].(string), body["refresh"].(string)
}

func results(body map[string]any) []map[string]any {
	items, _ := body["results"].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.(map[string]any))
	}
	return out
}

func fieldOf(rows []map[string]any, field string) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[field])
	}
	return out
}

func TestTokenFlow(t *testing.T) {
	engine := newTestEngine(t)

	rec, body := do(t, engine, http.MethodPost, "/api/token/", "", map[string]string{"username": "author", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No active account found with the given credentials", body["detail"])

	rec, body = do(t, engine, http.MethodPost, "/api/token/", "", map[string]string{"username": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body, "username")

	access, refresh := login(t, engine, "author", "author-pass")

	rec, body = do(t, engine, http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["access"])

	rec, body = do(t, engine, http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": access})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_not_valid", body["code"])

	rec, body = do(t, engine, http.MethodGet, "/api/users/users/me/", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "author", body["username"])
	assert.Equal(t, "Sara Ahmadi", body["full_name"])

	rec, _ = do(t, engine, http.MethodGet, "/api/users/users/me/", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPagination(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "author", "author-pass")

	rec, body := do(t, engine, http.MethodGet, "/api/blog/tags/?page_size=2", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])
	assert.Len(t, results(body), 2)
	assert.Nil(t, body["previous"])
	assert.Equal(t, "http://example.com/api/blog/tags/?page=2&page_size=2", body["next"])

	rec, body = do(t, engine, http.MethodGet, "/api/blog/tags/?page_size=2&page=2", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, results(body), 1)
	assert.Nil(t, body["next"])

	rec, body = do(t, engine, http.MethodGet, "/api/blog/tags/?page_size=2&page=3", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid page.", body["detail"])
}

func TestListFiltersAndOrdering(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "author", "author-pass")

	_, body := do(t, engine, http.MethodGet, "/api/blog/posts/?ordering=title", access, nil)
	assert.Equal(t, []any{"RPG roundup", "Spring preview", "Welcome to Atom"}, fieldOf(results(body), "title"))

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/?ordering=-views_count", access, nil)
	assert.Equal(t, "welcome-to-atom", results(body)[0]["slug"])

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/?category=news", access, nil)
	assert.Equal(t, []any{"welcome-to-atom", "spring-preview"}, fieldOf(results(body), "slug"))

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/?tags=rpg&tags=review", access, nil)
	assert.Equal(t, []any{"rpg-roundup"}, fieldOf(results(body), "slug"))

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/?status=published", access, nil)
	assert.Len(t, results(body), 1)

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/?search=ROUNDUP", access, nil)
	assert.Equal(t, []any{"rpg-roundup"}, fieldOf(results(body), "slug"))

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/?published_after=1403/12/01&published_before=2025-03-10", access, nil)
	assert.Equal(t, []any{"welcome-to-atom"}, fieldOf(results(body), "slug"))

	_, body = do(t, engine, http.MethodGet, "/api/blog/comments/?status=pending", access, nil)
	assert.Len(t, results(body), 1)
}

func TestPostWrites(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "author", "author-pass")

	rec, body := do(t, engine, http.MethodPost, "/api/blog/posts/", access, map[string]any{
		"title": "Welcome to Atom", "excerpt": "x", "content": "y", "category_id": 1, "tag_ids": []int{1, 99},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body, "slug")
	assert.Contains(t, body, "tag_ids")

	rec, body = do(t, engine, http.MethodPost, "/api/blog/posts/", access, map[string]any{
		"title": "Boss Rush", "excerpt": "x", "content": "y", "category_id": 2, "tag_ids": []int{1}, "status": "draft",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "boss-rush", body["slug"])
	assert.Equal(t, "Guides", body["category"].(map[string]any)["name"])
	assert.Equal(t, "Sara A.", body["author"].(map[string]any)["display_name"])

	rec, body = do(t, engine, http.MethodPatch, "/api/blog/posts/boss-rush/", access, map[string]any{"slug": "renamed", "title": "Boss Rush 2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "boss-rush", body["slug"])
	assert.Equal(t, "Boss Rush 2", body["title"])

	rec, body = do(t, engine, http.MethodPost, "/api/blog/posts/boss-rush/publish/", access, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "published", body["status"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), body["published_at"])

	rec, _ = do(t, engine, http.MethodDelete, "/api/blog/posts/boss-rush/", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, engine, http.MethodGet, "/api/blog/posts/boss-rush/", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNonAuthorCannotWrite(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "reader", "reader-pass")

	rec, _ := do(t, engine, http.MethodGet, "/api/blog/tags/", access, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, engine, http.MethodGet, "/api/blog/authors/2/", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := do(t, engine, http.MethodPost, "/api/blog/tags/", access, map[string]any{"name": "X", "slug": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to perform this action.", body["detail"])

	_, body = do(t, engine, http.MethodGet, "/api/blog/posts/", access, nil)
	assert.EqualValues(t, 0, body["count"])
}

func TestCategoryAndAuthorRules(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "author", "author-pass")

	rec, body := do(t, engine, http.MethodPost, "/api/blog/categories/", access, map[string]any{"name": "Esports", "parent": 42})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body, "parent")

	rec, body = do(t, engine, http.MethodPost, "/api/blog/categories/", access, map[string]any{"name": "Esports", "parent": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "esports", body["slug"])

	rec, body = do(t, engine, http.MethodPost, "/api/blog/authors/", access, map[string]any{"user": 1, "display_name": "Again"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"author profile with this user already exists."}, body["user"])

	rec, body = do(t, engine, http.MethodPost, "/api/blog/authors/", access, map[string]any{"user": 2, "display_name": "Reader"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 2, body["user"])

	rec, body = do(t, engine, http.MethodPatch, "/api/blog/authors/2/", access, map[string]any{"user": 1, "bio": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["user"])
	assert.Equal(t, "hi", body["bio"])
}

func TestUsersLookup(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "author", "author-pass")

	_, body := do(t, engine, http.MethodGet, "/api/users/users/?email=READER@atom.test", access, nil)
	assert.Equal(t, []any{"reader"}, fieldOf(results(body), "username"))

	_, body = do(t, engine, http.MethodGet, "/api/users/users/?username=author", access, nil)
	assert.Len(t, results(body), 1)

	rec, _ := do(t, engine, http.MethodGet, "/api/users/users/99/", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadMedia(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := login(t, engine, "author", "author-pass")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Banner"))
	part, err := w.CreateFormFile("file", "banner.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/blog/media/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Banner", body["title"])
	assert.Equal(t, "banner.png", body["file"])
	assert.True(t, strings.HasPrefix(body["url"].(string), "/media/"))
	assert.EqualValues(t, 8, body["size"])

	_, list := do(t, engine, http.MethodGet, "/api/blog/media/?page_size=1", access, nil)
	assert.EqualValues(t, 2, list["count"])
}
