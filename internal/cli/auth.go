package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
)

func newLoginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with an author account",
		Long: `Exchange username and password for a token pair and check that the
account has an author profile. Accounts without one are logged out again.

When --password is omitted it is read from standard input.`,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			username, err := requireFlag(cmd, "username")
			if err != nil {
				return err
			}
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				if password, err = a.readSecret("Password: "); err != nil {
					return err
				}
			}

			client, err := a.apiClient(ctx)
			if err != nil {
				return err
			}
			me, profile, err := client.LoginAuthor(ctx, username, password)
			if errors.Is(err, apiclient.ErrNotAuthor) {
				return errors.New("this account has no author profile; ask an admin to create one")
			}
			if err != nil {
				return err
			}

			if ok, err := a.printStructured(map[string]any{"user": me.Fields(), "author": profile.Fields()}); ok {
				return err
			}
			a.printSuccess("Logged in as %s (%s)", a.bold(profile.DisplayName), me.Username)
			return nil
		}),
	}
	cmd.Flags().StringP("username", "u", "", "account username")
	cmd.Flags().StringP("password", "p", "", "account password")
	return cmd
}

func (a *app) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			client, err := a.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printSuccess("Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Long: `Show the identity cached at login. With --refresh the identity is
fetched again from the API.`,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.authed(ctx)
			if err != nil {
				return err
			}

			refresh, _ := cmd.Flags().GetBool("refresh")
			user, ok, err := client.CachedIdentity(ctx)
			if err != nil {
				return err
			}
			if refresh || !ok {
				if user, err = client.Me(ctx); err != nil {
					return err
				}
			}

			if ok, err := a.printStructured(user.Fields()); ok {
				return err
			}
			w := a.newTable()
			printRow(w, a.bold("id"), fmt.Sprint(user.ID))
			printRow(w, a.bold("name"), user.DisplayName())
			printRow(w, a.bold("username"), orDash(user.Username))
			printRow(w, a.bold("email"), orDash(user.Email))
			printRow(w, a.bold("role"), display(user.Role))
			return w.Flush()
		}),
	}
	cmd.Flags().Bool("refresh", false, "fetch the identity from the API")
	return cmd
}
