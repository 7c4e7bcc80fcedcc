package panel

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"time"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
)

const (
	latestPostsLimit   = 5
	topCategoriesLimit = 6
	interactionDays    = 7
)

type CategoryStat struct {
	Name  string `json:"name" yaml:"name"`
	Posts int    `json:"posts" yaml:"posts"`
	Views int    `json:"views" yaml:"views"`
}

type DayCount struct {
	Day       string `json:"day" yaml:"day"`
	Jalali    string `json:"jalali" yaml:"jalali"`
	Comments  int    `json:"comments" yaml:"comments"`
	Reactions int    `json:"reactions" yaml:"reactions"`
}

// Dashboard is the author's overview. Counts that could not be loaded are
// nil.
type Dashboard struct {
	Published       int            `json:"published" yaml:"published"`
	DraftLike       int            `json:"draft_like" yaml:"draft_like"`
	PendingComments *int           `json:"pending_comments" yaml:"pending_comments"`
	MediaTotal      *int           `json:"media_total" yaml:"media_total"`
	Latest          []blog.Post    `json:"latest" yaml:"latest"`
	TopCategories   []CategoryStat `json:"top_categories" yaml:"top_categories"`
	Interactions    []DayCount     `json:"interactions" yaml:"interactions"`
}

// BuildDashboard loads posts (required) and then media, comments and
// reactions, each of which may fail without failing the dashboard.
func BuildDashboard(ctx context.Context, client *apiclient.Client, opts Options, now time.Time) (Dashboard, error) {
	opts = opts.withDefaults()
	log := opts.Log.With().Str("component", "dashboard").Logger()

	postsCtl := NewController[blog.Post](client, blog.Posts, opts)
	posts, err := postsCtl.FetchAll(ctx, url.Values{"ordering": {"-published_at"}})
	if err != nil {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return Dashboard{}, err
		}
		posts, err = postsCtl.FetchAll(ctx, nil)
		if err != nil {
			return Dashboard{}, err
		}
	}

	var d Dashboard
	postIDs := make(map[int]struct{}, len(posts))
	for _, p := range posts {
		postIDs[p.ID] = struct{}{}
		switch p.Status {
		case "published":
			d.Published++
		case "draft", "review", "scheduled":
			d.DraftLike++
		}
	}
	d.Latest = latestPosts(posts, latestPostsLimit)
	d.TopCategories = topCategories(posts, topCategoriesLimit)

	mediaCtl := NewController[blog.Media](client, blog.MediaResource, opts)
	if n, ok, err := mediaCtl.Count(ctx, nil); err != nil {
		log.Debug().Err(err).Msg("media count unavailable")
	} else if ok {
		d.MediaTotal = &n
	}

	var comments []blog.Comment
	if all, err := NewController[blog.Comment](client, blog.Comments, opts).FetchAll(ctx, nil); err != nil {
		log.Debug().Err(err).Msg("comments unavailable")
	} else {
		pending := 0
		for _, c := range all {
			if _, own := postIDs[c.Post]; !own {
				continue
			}
			comments = append(comments, c)
			if c.EffectiveStatus() == "pending" {
				pending++
			}
		}
		d.PendingComments = &pending
	}

	var reactions []blog.Reaction
	if all, err := NewController[blog.Reaction](client, blog.Reactions, opts).FetchAll(ctx, nil); err != nil {
		log.Debug().Err(err).Msg("reactions unavailable")
	} else {
		for _, r := range all {
			if _, own := postIDs[r.ObjectID]; own {
				reactions = append(reactions, r)
			}
		}
	}

	d.Interactions = interactions(now, comments, reactions)
	return d, nil
}

func latestPosts(posts []blog.Post, limit int) []blog.Post {
	out := append([]blog.Post(nil), posts...)
	sort.SliceStable(out, func(i, j int) bool {
		return postTime(out[i]) > postTime(out[j])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func postTime(p blog.Post) int64 {
	if t, ok := jalali.ParseTime(p.PublishedAt); ok {
		return t.UnixMilli()
	}
	return 0
}

func topCategories(posts []blog.Post, limit int) []CategoryStat {
	index := make(map[string]int)
	var stats []CategoryStat
	for _, p := range posts {
		name := p.CategoryLabel()
		i, ok := index[name]
		if !ok {
			i = len(stats)
			index[name] = i
			stats = append(stats, CategoryStat{Name: name})
		}
		stats[i].Posts++
		stats[i].Views += p.ViewsCount
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Views != stats[j].Views {
			return stats[i].Views > stats[j].Views
		}
		return stats[i].Posts > stats[j].Posts
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// interactions buckets comments and reactions into the last seven local
// days, oldest first.
func interactions(now time.Time, comments []blog.Comment, reactions []blog.Reaction) []DayCount {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	days := make([]DayCount, interactionDays)
	index := make(map[string]int, interactionDays)
	for i := range days {
		day := today.AddDate(0, 0, i-(interactionDays-1))
		key := day.Format(time.DateOnly)
		days[i] = DayCount{Day: key, Jalali: jalali.FormatJalali(day)}
		index[key] = i
	}

	bucket := func(created string) (int, bool) {
		t, ok := jalali.ParseTime(created)
		if !ok {
			return 0, false
		}
		i, ok := index[t.In(loc).Format(time.DateOnly)]
		return i, ok
	}
	for _, c := range comments {
		if i, ok := bucket(c.CreatedAt); ok {
			days[i].Comments++
		}
	}
	for _, r := range reactions {
		if i, ok := bucket(r.CreatedAt); ok {
			days[i].Reactions++
		}
	}
	return days
}

// PostStats counts posts per status.
func PostStats(posts []blog.Post) map[string]int {
	stats := map[string]int{"published": 0, "draft": 0, "review": 0, "scheduled": 0, "archived": 0}
	for _, p := range posts {
		if p.Status != "" {
			stats[p.Status]++
		}
	}
	return stats
}

