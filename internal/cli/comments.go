package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
)

func newCommentsCmd(a *app) *cobra.Command {
	var h *panel.Hydrator

	return newResourceCmd(a, resourceSpec[blog.Comment]{
		resource: blog.Comments,
		singular: "comment",
		short:    "Moderate comments",
		example: `  authorpanel comments list --status pending
  authorpanel comments list -s someuser
  authorpanel comments edit 12 --set status=approved`,
		payload: func() blog.Payload { return &blog.CommentPayload{} },
		form: func(c blog.Comment) map[string]any {
			parent := any(nil)
			if c.Parent > 0 {
				parent = c.Parent
			}
			return map[string]any{"post": c.Post, "content": c.Content, "status": c.EffectiveStatus(), "parent": parent}
		},
		columns: []string{"ID", "POST", "USER", "STATUS", "CREATED", "CONTENT"},
		row: func(c blog.Comment) []string {
			post, user := idOrDash(c.Post), idOrDash(c.User)
			if h != nil {
				if p, ok := h.Post(c.Post); ok {
					post = truncate(p.Title, 30)
				}
				if u, ok := h.User(c.User); ok {
					user = u.DisplayName()
				}
			}
			return []string{
				fmt.Sprint(c.ID),
				post,
				user,
				c.EffectiveStatus(),
				jalaliOrDash(c.CreatedAt),
				truncate(strings.ReplaceAll(c.Content, "\n", " "), 50),
			}
		},
		listFlags: func(cmd *cobra.Command) {
			cmd.Flags().String("status", "", "pending, approved, spam or removed")
			cmd.Flags().Int("post", 0, "only comments on this post id")
		},
		narrow: func(_ context.Context, cmd *cobra.Command, client *apiclient.Client, opts *panel.ListOptions[blog.Comment]) error {
			h = panel.NewHydrator(client, a.cfg.Panel.Workers, a.log)
			opts.Filter.Extra = h.CommentTerms
			opts.Hydrate = func(ctx context.Context, items []blog.Comment) {
				users := make([]int, 0, len(items))
				posts := make([]int, 0, len(items))
				for _, c := range items {
					users = append(users, c.User)
					posts = append(posts, c.Post)
				}
				_ = h.EnsureUsers(ctx, users)
				_ = h.EnsurePosts(ctx, posts)
			}

			if status, _ := cmd.Flags().GetString("status"); status != "" {
				want := strings.ToLower(strings.TrimSpace(status))
				opts.Filter.Where = append(opts.Filter.Where, func(c blog.Comment) bool { return c.EffectiveStatus() == want })
			}
			if post, _ := cmd.Flags().GetInt("post"); post > 0 {
				opts.Filter.Where = append(opts.Filter.Where, func(c blog.Comment) bool { return c.Post == post })
			}
			return nil
		},
	})
}

func newAuthorsCmd(a *app) *cobra.Command {
	return newResourceCmd(a, resourceSpec[blog.AuthorProfile]{
		resource: blog.Authors,
		singular: "author profile",
		short:    "Manage author profiles",
		example: `  authorpanel users search sara@example.com
  authorpanel authors create --set user=7 --set display_name="Sara K."
  authorpanel authors edit 7 --set bio="Writes about RPGs"`,
		payload: func() blog.Payload { return &blog.AuthorProfilePayload{} },
		form: func(p blog.AuthorProfile) map[string]any {
			return map[string]any{"display_name": p.DisplayName, "bio": p.Bio, "avatar": refOrNil(p.Avatar)}
		},
		columns: []string{"USER", "DISPLAY NAME", "AVATAR", "BIO"},
		row: func(p blog.AuthorProfile) []string {
			avatar := "-"
			if id, ok := p.AvatarID(); ok {
				avatar = idOrDash(id)
			}
			return []string{strconv.Itoa(p.User), p.DisplayName, avatar, orDash(truncate(p.Bio, 50))}
		},
	})
}

func newReactionsCmd(a *app) *cobra.Command {
	var h *panel.Hydrator

	return newResourceCmd(a, resourceSpec[blog.Reaction]{
		resource: blog.Reactions,
		singular: "reaction",
		short:    "Manage reactions",
		example: `  authorpanel reactions list --param object_id=4
  authorpanel reactions create --set user=7 --set reaction=like --set content_type=8 --set object_id=4`,
		payload: func() blog.Payload { return &blog.ReactionPayload{} },
		form: func(r blog.Reaction) map[string]any {
			return map[string]any{"reaction": r.Reaction, "content_type": r.ContentType, "object_id": r.ObjectID}
		},
		columns: []string{"ID", "USER", "REACTION", "OBJECT", "CREATED"},
		row: func(r blog.Reaction) []string {
			user := idOrDash(r.User)
			if h != nil {
				if u, ok := h.User(r.User); ok {
					user = u.DisplayName()
				}
			}
			return []string{
				fmt.Sprint(r.ID),
				user,
				r.Reaction,
				fmt.Sprintf("%d/%d", r.ContentType, r.ObjectID),
				jalaliOrDash(r.CreatedAt),
			}
		},
		narrow: func(_ context.Context, _ *cobra.Command, client *apiclient.Client, opts *panel.ListOptions[blog.Reaction]) error {
			h = panel.NewHydrator(client, a.cfg.Panel.Workers, a.log)
			opts.Filter.Extra = func(r blog.Reaction) []string {
				if u, ok := h.User(r.User); ok {
					return []string{u.Username, u.Email}
				}
				return nil
			}
			opts.Hydrate = func(ctx context.Context, items []blog.Reaction) {
				ids := make([]int, 0, len(items))
				for _, r := range items {
					ids = append(ids, r.User)
				}
				_ = h.EnsureUsers(ctx, ids)
			}
			return nil
		},
	})
}
