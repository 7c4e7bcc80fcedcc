package panel

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

const userSearchLimit = 20

// SearchUsers looks a user up for author and reaction forms: digits by id,
// anything with @ by email, otherwise by username. Lookup errors give an
// empty result; only a lost session is reported.
func SearchUsers(ctx context.Context, client *apiclient.Client, query string) ([]blog.User, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []blog.User{}, nil
	}

	if isDigits(q) {
		var fields map[string]any
		if err := client.GetJSON(ctx, blog.Users.ItemPath(q), nil, &fields); err != nil {
			return emptyUnlessExpired(err)
		}
		u, err := blog.Decode[blog.User](fields)
		if err != nil {
			return []blog.User{}, nil
		}
		return []blog.User{u}, nil
	}

	params := url.Values{}
	if strings.Contains(q, "@") {
		params.Set("email", q)
	} else {
		params.Set("username", q)
	}
	var body json.RawMessage
	if err := client.GetJSON(ctx, blog.Users.Path, params, &body); err != nil {
		return emptyUnlessExpired(err)
	}
	items, _, err := decodeList(body)
	if err != nil {
		return []blog.User{}, nil
	}
	if len(items) > userSearchLimit {
		items = items[:userSearchLimit]
	}
	users, err := blog.DecodeAll[blog.User](items)
	if err != nil {
		return []blog.User{}, nil
	}
	return users, nil
}

func emptyUnlessExpired(err error) ([]blog.User, error) {
	if errors.Is(err, apiclient.ErrSessionExpired) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	return []blog.User{}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
