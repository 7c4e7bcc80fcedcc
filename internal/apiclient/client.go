package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/session"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerUserAgent     = "User-Agent"
	headerRequestID     = "X-Request-Id"
	contentTypeJSON     = "application/json"
	userAgent           = "authorpanel/1.0"

	ReasonExpired = "expired"
	ReasonMissing = "missing"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	session     *session.Manager
	log         zerolog.Logger
	metrics     *metrics
	onExpired   func(reason string)
	skew        time.Duration
	preflight   bool
	tokenPath   string
	refreshPath string
	mePath      string
	now         func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// WithSessionExpired installs the hook fired after the session was torn
// down. It receives ReasonExpired or ReasonMissing.
func WithSessionExpired(fn func(reason string)) Option {
	return func(c *Client) { c.onExpired = fn }
}

func WithExpirySkew(d time.Duration) Option {
	return func(c *Client) { c.skew = d }
}

func WithPreflightRefresh(enabled bool) Option {
	return func(c *Client) { c.preflight = enabled }
}

func WithPaths(tokenPath, refreshPath, mePath string) Option {
	return func(c *Client) {
		if tokenPath != "" {
			c.tokenPath = tokenPath
		}
		if refreshPath != "" {
			c.refreshPath = refreshPath
		}
		if mePath != "" {
			c.mePath = mePath
		}
	}
}

func New(baseURL string, sess *session.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		session:     sess,
		log:         zerolog.Nop(),
		skew:        30 * time.Second,
		preflight:   true,
		tokenPath:   "/api/token/",
		refreshPath: "/api/token/refresh/",
		mePath:      "/api/users/users/me/",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *session.Manager {
	return c.session
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ExpirySkew() time.Duration {
	return c.skew
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON. Ignored when RawBody is set.
	Body        any
	RawBody     []byte
	ContentType string
	Header      http.Header
	// Anonymous requests carry no bearer token and skip the refresh path.
	Anonymous bool
}

func (c *Client) URL(path string, query url.Values) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	return target
}

// Do sends the request with the stored bearer token. A 401 or 403 with a
// refresh token present triggers one refresh and one re-issue; the re-issued
// response is returned whatever its status. When the refresh fails the
// session is cleared and ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	if req.Anonymous {
		return c.send(ctx, req, body, contentType)
	}

	if c.preflight {
		access, err := c.session.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		if access != "" && security.IsExpired(access, c.skew, c.now()) {
			c.log.Debug().Str("path", req.Path).Msg("access token expired, refreshing before request")
			if _, err := c.Refresh(ctx); err != nil {
				return nil, c.refreshFailed(ctx, err)
			}
		}
	}

	resp, err := c.send(ctx, req, body, contentType)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	refresh, err := c.session.RefreshToken(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("path", req.Path).Msg("read refresh token")
		return resp, nil
	}
	if refresh == "" {
		return resp, nil
	}
	drain(resp)

	c.log.Debug().Int("status", resp.StatusCode).Str("path", req.Path).Msg("authorization rejected, refreshing once")
	if _, err := c.Refresh(ctx); err != nil {
		return nil, c.refreshFailed(ctx, err)
	}
	return c.send(ctx, req, body, contentType)
}

// refreshFailed tears the session down unless the refresh only stopped
// because the caller's context ended; the stored tokens stay usable then.
func (c *Client) refreshFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.log.Debug().Err(err).Msg("refresh interrupted, keeping session")
		return err
	}
	return c.Expire(ctx, err)
}

func (c *Client) send(ctx context.Context, req Request, body []byte, contentType string) (*http.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(req.Path, req.Query), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if !req.Anonymous && httpReq.Header.Get(headerAuthorization) == "" {
		access, err := c.session.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		if access != "" {
			httpReq.Header.Set(headerAuthorization, "Bearer "+access)
		}
	}
	if contentType != "" && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, contentType)
	}
	httpReq.Header.Set(headerAccept, contentTypeJSON)
	httpReq.Header.Set(headerUserAgent, userAgent)
	if httpReq.Header.Get(headerRequestID) == "" {
		httpReq.Header.Set(headerRequestID, uuid.NewString())
	}

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(method, 0)
		c.log.Warn().Err(err).Str("method", method).Str("path", req.Path).Msg("api request failed")
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	c.metrics.observeRequest(method, resp.StatusCode)
	c.log.Debug().
		Str("method", method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")
	return resp, nil
}

// Expire tears the session down and fires the expired hook.
func (c *Client) Expire(ctx context.Context, cause error) error {
	if err := c.session.Clear(ctx); err != nil {
		c.log.Error().Err(err).Msg("clear session failed")
	}
	c.log.Warn().Err(cause).Msg("session expired")
	if c.onExpired != nil {
		c.onExpired(ReasonExpired)
	}
	return ErrSessionExpired
}

// RequireSession fires the missing-session hook when no access token is
// stored.
func (c *Client) RequireSession(ctx context.Context) error {
	access, err := c.session.AccessToken(ctx)
	if err != nil {
		return err
	}
	if access == "" {
		if c.onExpired != nil {
			c.onExpired(ReasonMissing)
		}
		return ErrNotLoggedIn
	}
	return nil
}

func (c *Client) DoJSON(ctx context.Context, req Request, result any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, respBody)
	}
	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, result)
}

func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, result)
}

func (c *Client) PatchJSON(ctx context.Context, path string, body any, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, result)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.DoJSON(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return data, contentTypeJSON, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
