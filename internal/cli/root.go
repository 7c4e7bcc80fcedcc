package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/log"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/panel"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/session"
)

// app holds what every command shares. The API client and its session store
// are opened on first use so that offline commands never touch a backend.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	baseURL    string
	jsonOut    bool
	yamlOut    bool
	noColor    bool
	verbose    bool

	cfg      *config.AppConfig
	log      zerolog.Logger
	registry *prometheus.Registry
	client   *apiclient.Client
	closers  []func()
	hooks    []func(reason string)
	now      func() time.Time
}

func Execute() {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the full command tree bound to the given streams.
func NewRootCmd(in io.Reader, out io.Writer, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, log: zerolog.Nop(), now: time.Now}

	root := &cobra.Command{
		Use:   "authorpanel",
		Short: "Author panel for the Atom blog API",
		Long: `Manage posts, taxonomy, comments, media and author profiles on the
Atom blog API from the terminal.

Examples:
  authorpanel login --username author
  authorpanel dashboard
  authorpanel posts list --status draft --order -published_at
  authorpanel posts publish my-post-slug
  authorpanel date to-gregorian 1404/01/15`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./authorpanel.yaml, ./config, ~/.config/authorpanel)")
	flags.StringVar(&a.baseURL, "base-url", "", "blog API base URL (overrides api.baseurl)")
	flags.BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	flags.BoolVar(&a.yamlOut, "yaml", false, "print YAML instead of tables")
	flags.BoolVar(&a.noColor, "no-color", false, "disable coloured output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")
	root.MarkFlagsMutuallyExclusive("json", "yaml")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newSessionCmd(a),
		newDashboardCmd(a),
		newPostsCmd(a),
		newCategoriesCmd(a),
		newTagsCmd(a),
		newSeriesCmd(a),
		newCommentsCmd(a),
		newAuthorsCmd(a),
		newReactionsCmd(a),
		newUsersCmd(a),
		newMediaCmd(a),
		newExportCmd(a),
		newDateCmd(a),
	)

	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root
}

func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		a.printError(err)
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if os.Getenv("NO_COLOR") != "" {
		a.noColor = true
	}

	a.cfg = cfg
	if a.verbose {
		a.log = log.NewWithWriter(a.errOut, cfg.Environment, cfg.Logging.Level)
	}
	return nil
}

// apiClient opens the configured session store and wires the client to it.
func (a *app) apiClient(ctx context.Context) (*apiclient.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	store, closeStore, err := session.Open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	a.registry = prometheus.NewRegistry()
	a.client = apiclient.New(a.cfg.API.BaseURL, session.NewManager(store),
		apiclient.WithTimeout(a.cfg.API.Timeout),
		apiclient.WithLogger(a.log),
		apiclient.WithRegisterer(a.registry),
		apiclient.WithExpirySkew(a.cfg.Session.ExpirySkew),
		apiclient.WithPreflightRefresh(a.cfg.Session.PreflightRefresh),
		apiclient.WithPaths(a.cfg.API.TokenPath, a.cfg.API.RefreshPath, a.cfg.API.MePath),
		apiclient.WithSessionExpired(a.sessionExpired),
	)
	return a.client, nil
}

// authed returns a client that already holds a session.
func (a *app) authed(ctx context.Context) (*apiclient.Client, error) {
	client, err := a.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := client.RequireSession(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (a *app) onExpired(fn func(reason string)) {
	a.hooks = append(a.hooks, fn)
}

func (a *app) sessionExpired(reason string) {
	for _, fn := range a.hooks {
		fn(reason)
	}
	switch reason {
	case apiclient.ReasonMissing:
		fmt.Fprintln(a.errOut, a.colorYellow("Not logged in. Run `authorpanel login` first."))
	default:
		fmt.Fprintln(a.errOut, a.colorYellow("Session expired. Run `authorpanel login` again."))
	}
}

func (a *app) panelOptions() panel.Options {
	return panel.Options{
		FetchPageSize: a.cfg.Panel.FetchPageSize,
		MaxPages:      a.cfg.Panel.MaxPages,
		Log:           a.log,
	}
}

func (a *app) confirmer(cmd *cobra.Command) panel.Confirmer {
	if force, _ := cmd.Flags().GetBool("force"); force {
		return panel.AlwaysConfirm
	}
	return panel.TerminalConfirmer{In: a.in, Out: a.out}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// run wraps a command body so failures are printed once in red.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			a.printError(err)
			return err
		}
		return nil
	}
}

func requireFlag(cmd *cobra.Command, name string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return v, nil
}
