package panel

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

const DefaultWorkers = 6

// RunPool runs fn over items with at most workers goroutines, each pulling
// the next index from a shared counter. Errors from fn are logged and
// dropped; the pool only stops early when ctx is cancelled.
func RunPool[K any](ctx context.Context, items []K, workers int, log zerolog.Logger, fn func(context.Context, K) error) error {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	var next atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1)) - 1
				if i >= len(items) {
					return nil
				}
				if err := fn(ctx, items[i]); err != nil {
					log.Debug().Err(err).Int("index", i).Msg("hydration item failed")
				}
			}
		})
	}
	return g.Wait()
}

// Hydrator resolves ids referenced by list rows into the records they point
// at. Resolved records are kept, so repeated calls only fetch what is new.
// Lookups that fail leave the id unresolved and callers show the raw id.
type Hydrator struct {
	client  *apiclient.Client
	workers int
	log     zerolog.Logger

	mu    sync.RWMutex
	users map[int]blog.User
	posts map[int]blog.Post
	media map[int]blog.Media
}

func NewHydrator(client *apiclient.Client, workers int, log zerolog.Logger) *Hydrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Hydrator{
		client:  client,
		workers: workers,
		log:     log.With().Str("component", "hydrator").Logger(),
		users:   make(map[int]blog.User),
		posts:   make(map[int]blog.Post),
		media:   make(map[int]blog.Media),
	}
}

func (h *Hydrator) User(id int) (blog.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.users[id]
	return u, ok
}

func (h *Hydrator) Post(id int) (blog.Post, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.posts[id]
	return p, ok
}

func (h *Hydrator) Media(id int) (blog.Media, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.media[id]
	return m, ok
}

// Remember seeds the post cache with records fetched elsewhere.
func (h *Hydrator) Remember(posts ...blog.Post) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range posts {
		if p.ID > 0 {
			h.posts[p.ID] = p
		}
	}
}

func (h *Hydrator) EnsureUsers(ctx context.Context, ids []int) error {
	missing := h.missing(ids, func(id int) bool { _, ok := h.users[id]; return ok })
	return RunPool(ctx, missing, h.workers, h.log, func(ctx context.Context, id int) error {
		var fields map[string]any
		if err := h.client.GetJSON(ctx, blog.Users.ItemPath(strconv.Itoa(id)), nil, &fields); err != nil {
			return err
		}
		u, err := blog.Decode[blog.User](fields)
		if err != nil {
			return err
		}
		h.mu.Lock()
		h.users[id] = u
		h.mu.Unlock()
		return nil
	})
}

// EnsurePosts has no by-id endpoint to use, so it searches for the id and
// keeps the result whose id matches.
func (h *Hydrator) EnsurePosts(ctx context.Context, ids []int) error {
	missing := h.missing(ids, func(id int) bool { _, ok := h.posts[id]; return ok })
	return RunPool(ctx, missing, h.workers, h.log, func(ctx context.Context, id int) error {
		query := url.Values{"search": {strconv.Itoa(id)}, "page_size": {"50"}}
		var body json.RawMessage
		if err := h.client.GetJSON(ctx, blog.Posts.Path, query, &body); err != nil {
			return err
		}
		items, _, err := decodeList(body)
		if err != nil {
			return err
		}
		for _, item := range items {
			if got, ok := blog.RefID(item["id"]); !ok || got != id {
				continue
			}
			p, err := blog.Decode[blog.Post](item)
			if err != nil {
				return err
			}
			h.mu.Lock()
			h.posts[id] = p
			h.mu.Unlock()
			return nil
		}
		return nil
	})
}

func (h *Hydrator) EnsureMedia(ctx context.Context, ids []int) error {
	missing := h.missing(ids, func(id int) bool { _, ok := h.media[id]; return ok })
	return RunPool(ctx, missing, h.workers, h.log, func(ctx context.Context, id int) error {
		var fields map[string]any
		if err := h.client.GetJSON(ctx, blog.MediaResource.ItemPath(strconv.Itoa(id)), nil, &fields); err != nil {
			return err
		}
		m, err := blog.Decode[blog.Media](fields)
		if err != nil {
			return err
		}
		h.mu.Lock()
		h.media[id] = m
		h.mu.Unlock()
		return nil
	})
}

// missing returns the distinct positive ids not yet known.
func (h *Hydrator) missing(ids []int, known func(int) bool) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup || known(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CommentTerms adds the hydrated user and post to a comment's search text.
func (h *Hydrator) CommentTerms(c blog.Comment) []string {
	var terms []string
	if u, ok := h.User(c.User); ok {
		terms = append(terms, u.Username, u.Email, u.FirstName, u.LastName)
	}
	if p, ok := h.Post(c.Post); ok {
		terms = append(terms, p.Title, p.Slug)
	}
	return terms
}
