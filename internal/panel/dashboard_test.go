package panel

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDashboard(t *testing.T) {
	f := newFakeBlog(t)
	f.mux.HandleFunc("/api/blog/posts/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 5, "results": []map[string]any{
			{"id": 1, "slug": "a", "status": "published", "category": "News", "views_count": 10, "published_at": "2025-03-01T10:00:00Z"},
			{"id": 2, "slug": "b", "status": "published", "category": "Guides", "views_count": 30, "published_at": "2025-03-05T10:00:00Z"},
			{"id": 3, "slug": "c", "status": "draft", "category": "News", "views_count": 20},
			{"id": 4, "slug": "d", "status": "scheduled", "category": map[string]any{"id": 9, "name": "Reviews"}},
			{"id": 5, "slug": "e", "status": "archived"},
		}})
	})
	f.mux.HandleFunc("/api/blog/media/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 17, "results": []any{}})
	})
	f.mux.HandleFunc("/api/blog/comments/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "post": 1, "status": "pending", "created_at": "2025-03-10T08:00:00Z"},
			{"id": 2, "post": 2, "status": "approved", "created_at": "2025-03-09T08:00:00Z"},
			{"id": 3, "post": 99, "status": "pending", "created_at": "2025-03-10T08:00:00Z"},
			{"id": 4, "post": 2, "created_at": "2025-02-01T08:00:00Z"},
		})
	})
	f.mux.HandleFunc("/api/blog/reactions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
	})

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	d, err := BuildDashboard(context.Background(), f.client(t), Options{}, now)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Published)
	assert.Equal(t, 2, d.DraftLike)
	require.NotNil(t, d.PendingComments)
	assert.Equal(t, 2, *d.PendingComments)
	require.NotNil(t, d.MediaTotal)
	assert.Equal(t, 17, *d.MediaTotal)

	require.Len(t, d.Latest, 5)
	assert.Equal(t, "b", d.Latest[0].Slug)
	assert.Equal(t, "a", d.Latest[1].Slug)

	require.Len(t, d.TopCategories, 4)
	assert.Equal(t, CategoryStat{Name: "News", Posts: 2, Views: 30}, d.TopCategories[0])
	assert.Equal(t, CategoryStat{Name: "Guides", Posts: 1, Views: 30}, d.TopCategories[1])

	require.Len(t, d.Interactions, 7)
	assert.Equal(t, "2025-03-04", d.Interactions[0].Day)
	last := d.Interactions[6]
	assert.Equal(t, "2025-03-10", last.Day)
	assert.Equal(t, "1403/12/20", last.Jalali)
	assert.Equal(t, 1, last.Comments)
	assert.Equal(t, 1, d.Interactions[5].Comments)
	assert.Zero(t, last.Reactions)
}

func TestPostStats(t *testing.T) {
	posts := decodePosts(t,
		map[string]any{"slug": "a", "status": "published"},
		map[string]any{"slug": "b", "status": "review"},
		map[string]any{"slug": "c", "status": "review"},
	)
	stats := PostStats(posts)
	assert.Equal(t, 1, stats["published"])
	assert.Equal(t, 2, stats["review"])
	assert.Equal(t, 0, stats["archived"])
}

func TestSearchUsers(t *testing.T) {
	f := newFakeBlog(t)
	f.mux.HandleFunc("/api/users/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/users/7/" {
			writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "sara"})
			return
		}
		if r.URL.Path != "/api/users/users/" {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
			return
		}
		var rows []map[string]any
		for i := 0; i < 30; i++ {
			rows = append(rows, map[string]any{"id": i + 1, "username": "u", "email": r.URL.Query().Get("email")})
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": rows})
	})
	client := f.client(t)
	ctx := context.Background()

	users, err := SearchUsers(ctx, client, " 7 ")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "sara", users[0].Username)

	users, err = SearchUsers(ctx, client, "8")
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = SearchUsers(ctx, client, "sara@atom.test")
	require.NoError(t, err)
	assert.Len(t, users, 20)
	assert.Equal(t, "sara@atom.test", users[0].Email)

	_, err = SearchUsers(ctx, client, "sara")
	require.NoError(t, err)

	reqs := f.recorded()
	assert.Contains(t, reqs[2].Query, "email=sara%40atom.test")
	assert.Equal(t, "username=sara", reqs[3].Query)

	users, err = SearchUsers(ctx, client, "   ")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestTerminalConfirmer(t *testing.T) {
	cases := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false, "yep\n": false}
	for input, want := range cases {
		var out bytes.Buffer
		c := TerminalConfirmer{In: strings.NewReader(input), Out: &out}
		got, err := c.Confirm(context.Background(), "Delete posts hello?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
		assert.Equal(t, "Delete posts hello? [y/N]: ", out.String())
	}
}
