package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
)

type dashboardOutput struct {
	Published       int                  `json:"published" yaml:"published"`
	DraftLike       int                  `json:"draft_like" yaml:"draft_like"`
	PendingComments *int                 `json:"pending_comments" yaml:"pending_comments"`
	MediaTotal      *int                 `json:"media_total" yaml:"media_total"`
	Latest          []map[string]any     `json:"latest" yaml:"latest"`
	TopCategories   []panel.CategoryStat `json:"top_categories" yaml:"top_categories"`
	Interactions    []panel.DayCount     `json:"interactions" yaml:"interactions"`
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarise your posts, comments and recent activity",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			d, err := panel.BuildDashboard(ctx, client, a.panelOptions(), a.now())
			if err != nil {
				return err
			}

			if a.structured() {
				out := dashboardOutput{
					Published:       d.Published,
					DraftLike:       d.DraftLike,
					PendingComments: d.PendingComments,
					MediaTotal:      d.MediaTotal,
					Latest:          make([]map[string]any, 0, len(d.Latest)),
					TopCategories:   d.TopCategories,
					Interactions:    d.Interactions,
				}
				for _, p := range d.Latest {
					out.Latest = append(out.Latest, p.Fields())
				}
				_, err := a.printStructured(out)
				return err
			}
			return a.printDashboard(d)
		}),
	}
}

func (a *app) printDashboard(d panel.Dashboard) error {
	w := a.newTable()
	printRow(w, a.bold("published"), fmt.Sprint(d.Published))
	printRow(w, a.bold("drafts"), fmt.Sprint(d.DraftLike))
	printRow(w, a.bold("pending comments"), optionalCount(d.PendingComments))
	printRow(w, a.bold("media"), optionalCount(d.MediaTotal))
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\n"+a.bold("Latest posts"))
	if len(d.Latest) == 0 {
		fmt.Fprintln(a.out, "  none yet")
	} else {
		w = a.newTable()
		for _, p := range d.Latest {
			printRow(w, "  "+truncate(p.Title, 50), p.Status, jalaliOrDash(p.PublishedAt))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, "\n"+a.bold("Top categories"))
	if len(d.TopCategories) == 0 {
		fmt.Fprintln(a.out, "  none yet")
	} else {
		w = a.newTable()
		a.printTableHeader(w, "  CATEGORY", "POSTS", "VIEWS")
		for _, c := range d.TopCategories {
			printRow(w, "  "+c.Name, fmt.Sprint(c.Posts), fmt.Sprint(c.Views))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, "\n"+a.bold("Last 7 days"))
	w = a.newTable()
	a.printTableHeader(w, "  DAY", "COMMENTS", "REACTIONS", "")
	for _, day := range d.Interactions {
		printRow(w, "  "+day.Jalali, fmt.Sprint(day.Comments), fmt.Sprint(day.Reactions), bar(day.Comments+day.Reactions))
	}
	return w.Flush()
}

func optionalCount(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}

func bar(n int) string {
	if n > 40 {
		n = 40
	}
	return strings.Repeat("▇", n)
}
