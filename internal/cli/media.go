package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/media"
)

func newMediaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Browse and upload media",
		Long: `Browse and upload media.

Examples:
  authorpanel media list -s cover
  authorpanel media upload ./cover.png --title "Cover" --alt "Game cover art"`,
	}

	spec := resourceSpec[blog.Media]{
		resource: blog.MediaResource,
		singular: "media item",
		columns:  []string{"ID", "TITLE", "TYPE", "CREATED", "LINK"},
		row: func(m blog.Media) []string {
			kind := m.Mime
			if kind == "" {
				kind = m.Type
			}
			return []string{fmt.Sprint(m.ID), orDash(m.Title), orDash(kind), jalaliOrDash(m.CreatedAt), orDash(m.Link())}
		},
	}
	cmd.AddCommand(newListCmd(a, spec), newGetCmd(a, spec), newDeleteCmd(a, spec), newUploadCmd(a))
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image",
		Long: `Upload a jpeg, png, gif, webp, avif or svg image. The file content is
checked against its declared type before anything is sent, and scripts are
stripped from svg files.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			declared, _ := cmd.Flags().GetString("type")
			maxBytes, _ := cmd.Flags().GetInt64("max-bytes")
			file, err := media.Load(args[0], declared, maxBytes)
			if err != nil {
				return err
			}

			title, _ := cmd.Flags().GetString("title")
			alt, _ := cmd.Flags().GetString("alt")
			if title == "" {
				title = filepath.Base(args[0])
			}

			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			item, err := media.NewUploader(client, a.log).Upload(ctx, file, title, alt)
			if err != nil {
				return err
			}
			if ok, err := a.printStructured(item.Fields()); ok {
				return err
			}
			a.printSuccess("Uploaded %s as media #%d (%s)", file.Name, item.ID, orDash(item.Link()))
			return nil
		}),
	}
	cmd.Flags().String("title", "", "media title (default: file name)")
	cmd.Flags().String("alt", "", "alt text")
	cmd.Flags().String("type", "", "declared MIME type (default: from the file extension)")
	cmd.Flags().Int64("max-bytes", media.DefaultMaxBytes, "refuse files larger than this")
	return cmd
}
