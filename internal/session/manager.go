package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type Tokens struct {
	Access   string
	Refresh  string
	IssuedAt time.Time
}

func (t Tokens) LoggedIn() bool {
	return t.Access != ""
}

type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) Tokens(ctx context.Context) (Tokens, error) {
	var tokens Tokens
	var err error

	if tokens.Access, err = m.optional(ctx, KeyAccess); err != nil {
		return Tokens{}, err
	}
	if tokens.Refresh, err = m.optional(ctx, KeyRefresh); err != nil {
		return Tokens{}, err
	}
	issued, err := m.optional(ctx, KeyLoggedInAt)
	if err != nil {
		return Tokens{}, err
	}
	tokens.IssuedAt = parseIssuedAt(issued)
	return tokens, nil
}

func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	return m.optional(ctx, KeyAccess)
}

func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	return m.optional(ctx, KeyRefresh)
}

func (m *Manager) SaveTokens(ctx context.Context, access string, refresh string) error {
	if err := m.store.Set(ctx, KeyAccess, access); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if refresh != "" {
		if err := m.store.Set(ctx, KeyRefresh, refresh); err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
	}
	return m.touch(ctx)
}

// UpdateAccess replaces the access token after a refresh exchange. The
// refresh token is left as is.
func (m *Manager) UpdateAccess(ctx context.Context, access string) error {
	if err := m.store.Set(ctx, KeyAccess, access); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return m.touch(ctx)
}

func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Delete(ctx, AllKeys...)
}

func (m *Manager) Identity(ctx context.Context, out any) (bool, error) {
	return m.readJSON(ctx, KeyMe, out)
}

func (m *Manager) SaveIdentity(ctx context.Context, identity any) error {
	return m.writeJSON(ctx, KeyMe, identity)
}

func (m *Manager) AuthorProfile(ctx context.Context, out any) (bool, error) {
	return m.readJSON(ctx, KeyAuthorProfile, out)
}

func (m *Manager) SaveAuthorProfile(ctx context.Context, profile any) error {
	return m.writeJSON(ctx, KeyAuthorProfile, profile)
}

func (m *Manager) touch(ctx context.Context) error {
	stamp := m.now().UTC().Format(time.RFC3339Nano)
	if err := m.store.Set(ctx, KeyLoggedInAt, stamp); err != nil {
		return fmt.Errorf("save login time: %w", err)
	}
	return nil
}

func (m *Manager) optional(ctx context.Context, key string) (string, error) {
	value, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func (m *Manager) readJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := m.optional(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		// the cache is display-only; a corrupt blob is treated as absent
		return false, nil
	}
	return true, nil
}

func (m *Manager) writeJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return m.store.Set(ctx, key, string(data))
}

func parseIssuedAt(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}
