package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Look up user accounts",
	}
	search := &cobra.Command{
		Use:   "search <id|email|username>",
		Short: "Find a user to attach an author profile or reaction to",
		Long: `Find users by id (digits), by email (anything with @) or by username.
At most 20 matches are shown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}
			users, err := panel.SearchUsers(ctx, client, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if a.structured() {
				out := make([]map[string]any, 0, len(users))
				for _, u := range users {
					out = append(out, u.Fields())
				}
				_, err := a.printStructured(out)
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(a.out, "No users found")
				return nil
			}
			w := a.newTable()
			a.printTableHeader(w, "ID", "USERNAME", "NAME", "EMAIL")
			for _, u := range users {
				printRow(w, fmt.Sprint(u.ID), orDash(u.Username), u.DisplayName(), orDash(u.Email))
			}
			return w.Flush()
		}),
	}
	cmd.AddCommand(search)
	return cmd
}
