package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session key not found")

const (
	KeyAccess        = "atom_access"
	KeyRefresh       = "atom_refresh"
	KeyLoggedInAt    = "atom_logged_in_at"
	KeyMe            = "atom_me"
	KeyAuthorProfile = "atom_author_profile"
)

// AllKeys lists every key the panel writes. Clear removes all of them.
var AllKeys = []string{KeyAccess, KeyRefresh, KeyLoggedInAt, KeyMe, KeyAuthorProfile}

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
}
