package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username string, password string) error {
	var pair tokenPair
	err := c.DoJSON(ctx, Request{
		Method:    http.MethodPost,
		Path:      c.tokenPath,
		Body:      map[string]string{"username": username, "password": password},
		Anonymous: true,
	}, &pair)
	if err != nil {
		return err
	}
	if pair.Access == "" {
		return errors.New("login response carried no access token")
	}
	if err := c.session.SaveTokens(ctx, pair.Access, pair.Refresh); err != nil {
		return err
	}
	c.log.Info().Str("username", username).Msg("logged in")
	return nil
}

// LoginAuthor logs in and then requires an author profile for the account.
// Accounts without one are logged out again and get ErrNotAuthor.
func (c *Client) LoginAuthor(ctx context.Context, username string, password string) (blog.User, blog.AuthorProfile, error) {
	if err := c.Login(ctx, username, password); err != nil {
		return blog.User{}, blog.AuthorProfile{}, err
	}

	me, err := c.Me(ctx)
	if err != nil {
		_ = c.session.Clear(ctx)
		return blog.User{}, blog.AuthorProfile{}, fmt.Errorf("fetch identity: %w", err)
	}
	if me.ID == 0 {
		_ = c.session.Clear(ctx)
		return blog.User{}, blog.AuthorProfile{}, errors.New("identity response carried no user id")
	}

	var fields map[string]any
	err = c.GetJSON(ctx, blog.Authors.ItemPath(strconv.Itoa(me.ID)), nil, &fields)
	if err != nil {
		_ = c.session.Clear(ctx)
		if IsNotFound(err) {
			return blog.User{}, blog.AuthorProfile{}, ErrNotAuthor
		}
		return blog.User{}, blog.AuthorProfile{}, fmt.Errorf("fetch author profile: %w", err)
	}
	profile, err := blog.Decode[blog.AuthorProfile](fields)
	if err != nil {
		_ = c.session.Clear(ctx)
		return blog.User{}, blog.AuthorProfile{}, err
	}
	if err := c.session.SaveAuthorProfile(ctx, fields); err != nil {
		return blog.User{}, blog.AuthorProfile{}, err
	}
	return me, profile, nil
}

// Refresh exchanges the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	refresh, err := c.session.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		c.metrics.observeRefresh(false)
		return "", ErrNotLoggedIn
	}

	var pair tokenPair
	err = c.DoJSON(ctx, Request{
		Method:    http.MethodPost,
		Path:      c.refreshPath,
		Body:      map[string]string{"refresh": refresh},
		Anonymous: true,
	}, &pair)
	if err != nil {
		c.metrics.observeRefresh(false)
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if pair.Access == "" {
		c.metrics.observeRefresh(false)
		return "", errors.New("refresh response carried no access token")
	}
	if err := c.session.UpdateAccess(ctx, pair.Access); err != nil {
		c.metrics.observeRefresh(false)
		return "", err
	}
	c.metrics.observeRefresh(true)
	c.log.Debug().Msg("access token refreshed")
	return pair.Access, nil
}

// Me fetches the current user and caches it for display.
func (c *Client) Me(ctx context.Context) (blog.User, error) {
	var fields map[string]any
	if err := c.GetJSON(ctx, c.mePath, nil, &fields); err != nil {
		return blog.User{}, err
	}
	user, err := blog.Decode[blog.User](fields)
	if err != nil {
		return blog.User{}, err
	}
	if err := c.session.SaveIdentity(ctx, fields); err != nil {
		c.log.Warn().Err(err).Msg("cache identity failed")
	}
	return user, nil
}

// CachedIdentity returns the identity stored at login without a request.
func (c *Client) CachedIdentity(ctx context.Context) (blog.User, bool, error) {
	var fields map[string]any
	ok, err := c.session.Identity(ctx, &fields)
	if err != nil || !ok {
		return blog.User{}, false, err
	}
	user, err := blog.Decode[blog.User](fields)
	if err != nil {
		return blog.User{}, false, nil
	}
	return user, true, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.session.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.log.Info().Msg("logged out")
	return nil
}
