package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return newResourceCmd(a, resourceSpec[blog.Category]{
		resource: blog.Categories,
		singular: "category",
		short:    "Manage blog categories",
		example: `  authorpanel categories list --order name
  authorpanel categories create --set name=Guides --set order=2
  authorpanel categories edit 3 --set parent=1`,
		payload: func() blog.Payload { return &blog.CategoryPayload{} },
		form: func(c blog.Category) map[string]any {
			return map[string]any{
				"name":        c.Name,
				"slug":        c.Slug,
				"description": c.Description,
				"parent":      refOrNil(c.Parent),
				"order":       c.Order,
			}
		},
		columns: []string{"ID", "NAME", "SLUG", "PARENT", "ORDER", "POSTS"},
		row: func(c blog.Category) []string {
			return []string{
				fmt.Sprint(c.ID),
				c.Name,
				c.Slug,
				orDash(blog.RefLabel(c.Parent)),
				fmt.Sprint(c.Order),
				fmt.Sprint(c.PostsCount),
			}
		},
	})
}

func newTagsCmd(a *app) *cobra.Command {
	return newResourceCmd(a, resourceSpec[blog.Tag]{
		resource: blog.Tags,
		singular: "tag",
		short:    "Manage blog tags",
		example: `  authorpanel tags list -s rpg
  authorpanel tags create --set name=Indie --set slug=indie`,
		payload: func() blog.Payload { return &blog.TagPayload{} },
		form: func(t blog.Tag) map[string]any {
			return map[string]any{"slug": t.Slug, "name": t.Name, "description": t.Description}
		},
		columns: []string{"ID", "NAME", "SLUG", "DESCRIPTION"},
		row: func(t blog.Tag) []string {
			return []string{fmt.Sprint(t.ID), t.Name, t.Slug, orDash(truncate(t.Description, 40))}
		},
	})
}

func newSeriesCmd(a *app) *cobra.Command {
	return newResourceCmd(a, resourceSpec[blog.Series]{
		resource: blog.SeriesResource,
		singular: "series",
		short:    "Manage post series",
		example: `  authorpanel series list
  authorpanel series create --set title="Road to 1.0" --set slug=road-to-1 --set order_strategy=by_date`,
		payload: func() blog.Payload { return &blog.SeriesPayload{} },
		form: func(s blog.Series) map[string]any {
			return map[string]any{
				"slug":           s.Slug,
				"title":          s.Title,
				"description":    s.Description,
				"order_strategy": s.OrderStrategy,
			}
		},
		columns: []string{"ID", "TITLE", "SLUG", "ORDER"},
		row: func(s blog.Series) []string {
			return []string{fmt.Sprint(s.ID), s.Title, s.Slug, orDash(s.OrderStrategy)}
		},
	})
}
