package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/ids"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/storage"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Save a JSON snapshot of a resource list",
		Long: `Fetch every page of a resource and save it as a JSON snapshot: to stdout,
to a local file with --out, or to the configured S3-compatible bucket with
--s3.

Resources: ` + strings.Join(blog.Names(), ", ") + `

Examples:
  authorpanel export posts --out posts.json
  authorpanel export comments --s3`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: blog.Names(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			resource, ok := blog.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q (want one of %s)", args[0], strings.Join(blog.Names(), ", "))
			}
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}

			params, _ := cmd.Flags().GetStringToString("param")
			query := url.Values{}
			for k, v := range params {
				query.Set(k, v)
			}
			items, err := fetchRaw(ctx, client, resource, a.panelOptions(), query)
			if err != nil {
				return err
			}
			snap := storage.NewSnapshot(ids.New(), resource.Name, client.BaseURL(), items, a.now())

			out, _ := cmd.Flags().GetString("out")
			toS3, _ := cmd.Flags().GetBool("s3")
			switch {
			case toS3:
				store, err := storage.NewObjectStore(a.cfg.Storage)
				if err != nil {
					return err
				}
				if err := store.EnsureBucket(ctx); err != nil {
					return err
				}
				location, err := store.ExportSnapshot(ctx, snap)
				if err != nil {
					return err
				}
				a.printSuccess("Exported %d %s to %s", snap.Count, resource.Name, location)
			case out != "":
				if err := storage.WriteFile(out, snap); err != nil {
					return err
				}
				a.printSuccess("Exported %d %s to %s", snap.Count, resource.Name, out)
			default:
				return storage.Encode(a.out, snap)
			}
			return nil
		}),
	}
	cmd.Flags().StringP("out", "o", "", "write the snapshot to this file")
	cmd.Flags().Bool("s3", false, "upload the snapshot to the configured bucket")
	cmd.Flags().StringToString("param", nil, "query parameters sent to the API")
	cmd.MarkFlagsMutuallyExclusive("out", "s3")
	return cmd
}

// fetchRaw drains a resource without decoding it, so the snapshot keeps
// every field the API sent.
func fetchRaw(ctx context.Context, client *apiclient.Client, resource blog.Resource, opts panel.Options, params url.Values) ([]map[string]any, error) {
	switch resource.Name {
	case blog.Posts.Name:
		return panel.NewController[blog.Post](client, resource, opts).FetchRaw(ctx, params)
	case blog.Categories.Name:
		return panel.NewController[blog.Category](client, resource, opts).FetchRaw(ctx, params)
	case blog.Tags.Name:
		return panel.NewController[blog.Tag](client, resource, opts).FetchRaw(ctx, params)
	case blog.SeriesResource.Name:
		return panel.NewController[blog.Series](client, resource, opts).FetchRaw(ctx, params)
	case blog.Comments.Name:
		return panel.NewController[blog.Comment](client, resource, opts).FetchRaw(ctx, params)
	case blog.Authors.Name:
		return panel.NewController[blog.AuthorProfile](client, resource, opts).FetchRaw(ctx, params)
	case blog.Reactions.Name:
		return panel.NewController[blog.Reaction](client, resource, opts).FetchRaw(ctx, params)
	case blog.MediaResource.Name:
		return panel.NewController[blog.Media](client, resource, opts).FetchRaw(ctx, params)
	case blog.Users.Name:
		return panel.NewController[blog.User](client, resource, opts).FetchRaw(ctx, params)
	}
	return nil, fmt.Errorf("unknown resource %q", resource.Name)
}
