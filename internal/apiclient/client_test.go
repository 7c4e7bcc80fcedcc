package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/session"
)

type fakeAPI struct {
	mu           sync.Mutex
	bearers      []string
	targetHits   atomic.Int32
	refreshHits  atomic.Int32
	validAccess  string
	refreshOK    bool
	newAccess    string
	retryStatus  int
	stallRefresh bool
	server       *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{validAccess: "access-new", refreshOK: true, newAccess: "access-new"}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		f.refreshHits.Add(1)
		assert.Empty(t, r.Header.Get("Authorization"))
		if f.stallRefresh {
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !f.refreshOK || body["refresh"] == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"` + f.newAccess + `"}`))
	})
	mux.HandleFunc("/api/blog/posts/", func(w http.ResponseWriter, r *http.Request) {
		f.targetHits.Add(1)
		bearer := r.Header.Get("Authorization")
		f.mu.Lock()
		f.bearers = append(f.bearers, bearer)
		f.mu.Unlock()

		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		if bearer != "Bearer "+f.validAccess {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
			return
		}
		if f.retryStatus != 0 {
			w.WriteHeader(f.retryStatus)
			_, _ = w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":1,"results":[{"id":1,"slug":"a"}]}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) (*Client, *session.Manager) {
	t.Helper()
	sess := session.NewManager(session.NewMemoryStore())
	return New(f.server.URL, sess, opts...), sess
}

func TestDoAttachesBearer(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestClient(t, f)
	require.NoError(t, sess.SaveTokens(context.Background(), "access-new", "refresh-1"))

	resp, err := client.Do(context.Background(), Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer access-new"}, f.bearers)
	assert.Equal(t, int32(0), f.refreshHits.Load())
}

func TestDoKeepsCallerAuthorization(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestClient(t, f)
	require.NoError(t, sess.SaveTokens(context.Background(), "stored", ""))

	resp, err := client.Do(context.Background(), Request{
		Path:   "/api/blog/posts/",
		Header: http.Header{"Authorization": []string{"Bearer access-new"}},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"Bearer access-new"}, f.bearers)
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestClient(t, f)
	ctx := context.Background()
	require.NoError(t, sess.SaveTokens(ctx, "access-old", "refresh-1"))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), f.refreshHits.Load())
	assert.Equal(t, int32(2), f.targetHits.Load())
	assert.Equal(t, []string{"Bearer access-old", "Bearer access-new"}, f.bearers)

	tokens, err := sess.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-new", tokens.Access)
	assert.Equal(t, "refresh-1", tokens.Refresh)
}

func TestDoReturnsRetryResultWhateverItsStatus(t *testing.T) {
	f := newFakeAPI(t)
	f.retryStatus = http.StatusForbidden
	client, sess := newTestClient(t, f)
	ctx := context.Background()
	require.NoError(t, sess.SaveTokens(ctx, "access-old", "refresh-1"))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int32(1), f.refreshHits.Load())
	assert.Equal(t, int32(2), f.targetHits.Load())

	tokens, err := sess.Tokens(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.LoggedIn())
}

func TestDoClearsSessionWhenRefreshFails(t *testing.T) {
	f := newFakeAPI(t)
	f.refreshOK = false

	var reasons []string
	client, sess := newTestClient(t, f, WithSessionExpired(func(reason string) {
		reasons = append(reasons, reason)
	}))
	ctx := context.Background()
	require.NoError(t, sess.SaveTokens(ctx, "access-old", "refresh-1"))
	require.NoError(t, sess.SaveIdentity(ctx, map[string]any{"id": 1}))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, int32(1), f.targetHits.Load())
	assert.Equal(t, int32(1), f.refreshHits.Load())
	assert.Equal(t, []string{ReasonExpired}, reasons)

	for _, key := range session.AllKeys {
		_, err := sess.Store().Get(ctx, key)
		assert.ErrorIs(t, err, session.ErrNotFound, key)
	}
}

func TestDoKeepsSessionWhenContextEndsDuringRefresh(t *testing.T) {
	f := newFakeAPI(t)
	f.stallRefresh = true

	var reasons []string
	client, sess := newTestClient(t, f, WithSessionExpired(func(reason string) {
		reasons = append(reasons, reason)
	}))
	require.NoError(t, sess.SaveTokens(context.Background(), "access-old", "refresh-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, reasons)

	tokens, err := sess.Tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-old", tokens.Access)
	assert.Equal(t, "refresh-1", tokens.Refresh)
}

type refreshReadFailingStore struct {
	*session.MemoryStore
}

func (s refreshReadFailingStore) Get(ctx context.Context, key string) (string, error) {
	if key == session.KeyRefresh {
		return "", errors.New("store unavailable")
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestDoLogsUnreadableRefreshToken(t *testing.T) {
	f := newFakeAPI(t)
	var logs bytes.Buffer
	sess := session.NewManager(refreshReadFailingStore{session.NewMemoryStore()})
	client := New(f.server.URL, sess, WithLogger(zerolog.New(&logs)))
	ctx := context.Background()
	require.NoError(t, sess.Store().Set(ctx, session.KeyAccess, "access-old"))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(0), f.refreshHits.Load())
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "store unavailable")
}

func TestDoWithoutRefreshTokenReturnsResponse(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestClient(t, f)
	ctx := context.Background()
	require.NoError(t, sess.SaveTokens(ctx, "access-old", ""))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(0), f.refreshHits.Load())
	assert.Equal(t, int32(1), f.targetHits.Load())
}

func TestDoPreflightRefreshesExpiredToken(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestClient(t, f)
	ctx := context.Background()

	expired, err := security.GenerateToken("secret", security.TokenTypeAccess, 1, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, sess.SaveTokens(ctx, expired, "refresh-1"))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), f.refreshHits.Load())
	assert.Equal(t, int32(1), f.targetHits.Load())
	assert.Equal(t, []string{"Bearer access-new"}, f.bearers)
}

func TestDoPreflightDisabled(t *testing.T) {
	f := newFakeAPI(t)
	client, sess := newTestClient(t, f, WithPreflightRefresh(false))
	ctx := context.Background()

	expired, err := security.GenerateToken("secret", security.TokenTypeAccess, 1, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, sess.SaveTokens(ctx, expired, "refresh-1"))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	resp.Body.Close()

	// rejected once, refreshed, retried
	assert.Equal(t, int32(1), f.refreshHits.Load())
	assert.Equal(t, int32(2), f.targetHits.Load())
}

func TestDoPreflightFailureTearsDown(t *testing.T) {
	f := newFakeAPI(t)
	f.refreshOK = false
	var reasons []string
	client, sess := newTestClient(t, f, WithSessionExpired(func(reason string) { reasons = append(reasons, reason) }))
	ctx := context.Background()

	expired, err := security.GenerateToken("secret", security.TokenTypeAccess, 1, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, sess.SaveTokens(ctx, expired, "refresh-1"))

	_, err = client.Do(ctx, Request{Path: "/api/blog/posts/"})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), f.targetHits.Load())
	assert.Equal(t, []string{ReasonExpired}, reasons)
}

func TestGetJSONMapsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"slug":["This field must be unique."],"name":["Required.","Too short."]}`)
	}))
	defer server.Close()

	client := New(server.URL, session.NewManager(session.NewMemoryStore()))
	err := client.PostJSON(context.Background(), "/api/blog/tags/", map[string]string{"slug": "x"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "slug: This field must be unique. | name: Required. , Too short.", apiErr.Message)
}

func TestMetricsCountRequestsAndRefreshes(t *testing.T) {
	f := newFakeAPI(t)
	reg := prometheus.NewRegistry()
	client, sess := newTestClient(t, f, WithRegisterer(reg))
	ctx := context.Background()
	require.NoError(t, sess.SaveTokens(ctx, "access-old", "refresh-1"))

	resp, err := client.Do(ctx, Request{Path: "/api/blog/posts/"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.requests.WithLabelValues("GET", "401")))
	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.refresh.WithLabelValues("success")))
}
