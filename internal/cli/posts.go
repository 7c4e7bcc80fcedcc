package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
)

func newPostsCmd(a *app) *cobra.Command {
	cmd := newResourceCmd(a, resourceSpec[blog.Post]{
		resource: blog.Posts,
		singular: "post",
		short:    "Manage your posts",
		example: `  authorpanel posts list --status draft --tag rpg
  authorpanel posts create -F post.yaml
  authorpanel posts create --set title="Patch notes" --set excerpt=... --set content=... --set category_id=1 --set status=scheduled --set scheduled_at="1404/01/15 10:00"
  authorpanel posts edit patch-notes --set tag_ids=[1,2]
  authorpanel posts publish patch-notes`,
		payload: func() blog.Payload { return &blog.PostPayload{} },
		form:    postForm,
		editing: func(current blog.Post, p blog.Payload) {
			if pp, ok := p.(*blog.PostPayload); ok {
				pp.Published = current.Status == "published"
			}
		},
		columns: []string{"SLUG", "TITLE", "STATUS", "CATEGORY", "VIEWS", "PUBLISHED"},
		row: func(p blog.Post) []string {
			return []string{
				p.Slug,
				truncate(p.Title, 40),
				p.Status,
				p.CategoryLabel(),
				fmt.Sprint(p.ViewsCount),
				jalaliOrDash(p.PublishedAt),
			}
		},
		listFlags: func(cmd *cobra.Command) {
			cmd.Flags().String("status", "", "draft, review, scheduled, published or archived")
			cmd.Flags().String("visibility", "", "public, private or unlisted")
			cmd.Flags().String("category", "", "category id, slug or name")
			cmd.Flags().String("tag", "", "tag slug")
			cmd.Flags().Bool("hot", false, "only hot posts")
		},
		narrow: narrowPosts,
	})
	cmd.AddCommand(newPublishCmd(a))
	return cmd
}

func narrowPosts(_ context.Context, cmd *cobra.Command, _ *apiclient.Client, opts *panel.ListOptions[blog.Post]) error {
	f := cmd.Flags()
	if opts.Filter.Equals == nil {
		opts.Filter.Equals = map[string]string{}
	}
	if status, _ := f.GetString("status"); status != "" {
		opts.Filter.Equals["status"] = status
	}
	if visibility, _ := f.GetString("visibility"); visibility != "" {
		opts.Filter.Equals["visibility"] = visibility
	}
	if category, _ := f.GetString("category"); category != "" {
		want := strings.ToLower(strings.TrimSpace(category))
		opts.Filter.Where = append(opts.Filter.Where, func(p blog.Post) bool {
			if id, ok := blog.RefID(p.Category); ok && fmt.Sprint(id) == want {
				return true
			}
			if m, ok := p.Category.(map[string]any); ok {
				if slug, _ := m["slug"].(string); strings.ToLower(slug) == want {
					return true
				}
			}
			return strings.ToLower(p.CategoryLabel()) == want
		})
	}
	if tag, _ := f.GetString("tag"); tag != "" {
		opts.Filter.Where = append(opts.Filter.Where, func(p blog.Post) bool { return p.HasTag(tag) })
	}
	if hot, _ := f.GetBool("hot"); hot {
		opts.Filter.Where = append(opts.Filter.Where, func(p blog.Post) bool { return p.IsHot })
	}
	return nil
}

// postForm is the edit form prefilled from a fetched post.
func postForm(p blog.Post) map[string]any {
	tagIDs := make([]int, 0, len(p.Tags))
	for _, t := range p.Tags {
		if id, ok := blog.RefID(t); ok {
			tagIDs = append(tagIDs, id)
		}
	}
	category, _ := blog.RefID(p.Category)
	return map[string]any{
		"title":           p.Title,
		"excerpt":         p.Excerpt,
		"content":         p.Content,
		"category_id":     category,
		"status":          p.Status,
		"visibility":      p.Visibility,
		"is_hot":          p.IsHot,
		"tag_ids":         tagIDs,
		"series":          refOrNil(p.Series),
		"scheduled_at":    p.ScheduledAt,
		"published_at":    p.PublishedAt,
		"seo_title":       p.SEOTitle,
		"seo_description": p.SEODescription,
		"canonical_url":   p.CanonicalURL,
		"cover_media_id":  refOrNil(p.CoverMedia),
	}
}

func newPublishCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <slug>",
		Short: "Publish a post now",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			ctrl := panel.NewController[blog.Post](client, blog.Posts, a.panelOptions())
			post, done, err := ctrl.Action(ctx, args[0], "publish", a.confirmer(cmd))
			if err != nil {
				return err
			}
			if !done {
				fmt.Fprintln(a.out, "Cancelled")
				return nil
			}
			if ok, err := a.printStructured(post.Fields()); ok {
				return err
			}
			a.printSuccess("Published %s", a.bold(args[0]))
			return nil
		}),
	}
	cmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")
	return cmd
}

func jalaliOrDash(value string) string {
	t, ok := jalali.ParseTime(value)
	if !ok {
		return orDash(value)
	}
	return jalali.FormatJalali(t.Local())
}
