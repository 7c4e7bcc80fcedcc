package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/scheduler"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
)

type sessionStatus struct {
	LoggedIn   bool       `json:"logged_in" yaml:"logged_in"`
	Store      string     `json:"store" yaml:"store"`
	IssuedAt   *time.Time `json:"issued_at,omitempty" yaml:"issued_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired    bool       `json:"expired" yaml:"expired"`
	RefreshAt  *time.Time `json:"refresh_at,omitempty" yaml:"refresh_at,omitempty"`
	HasRefresh bool       `json:"has_refresh" yaml:"has_refresh"`
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or keep alive the stored session",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show token state and when the next refresh is due",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			client, err := a.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.sessionStatus(cmd.Context(), client)
			if err != nil {
				return err
			}
			if ok, err := a.printStructured(st); ok {
				return err
			}
			return a.printSessionStatus(st)
		}),
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the access token before it expires until interrupted",
		Long: `Keep the stored session alive: the access token is refreshed shortly
before its expiry and the cached identity is re-fetched on the configured
schedule. Runs until SIGINT or SIGTERM, or until the session is lost.

With --metrics-addr the client's request and refresh counters are served at
/metrics.`,
		RunE: a.run(a.runSessionWatch),
	}
	watch.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")

	cmd.AddCommand(status, watch)
	return cmd
}

func (a *app) sessionStatus(ctx context.Context, client *apiclient.Client) (sessionStatus, error) {
	tokens, err := client.Session().Tokens(ctx)
	if err != nil {
		return sessionStatus{}, err
	}
	st := sessionStatus{
		LoggedIn:   tokens.LoggedIn(),
		Store:      a.cfg.Session.Store,
		HasRefresh: tokens.Refresh != "",
	}
	if !tokens.IssuedAt.IsZero() {
		issued := tokens.IssuedAt
		st.IssuedAt = &issued
	}
	if exp, ok := security.ExpiresAt(tokens.Access); ok {
		now := a.now()
		runAt := scheduler.RunAt(now, exp, client.ExpirySkew())
		st.ExpiresAt = &exp
		st.RefreshAt = &runAt
		st.Expired = security.IsExpired(tokens.Access, client.ExpirySkew(), now)
	}
	return st, nil
}

func (a *app) printSessionStatus(st sessionStatus) error {
	w := a.newTable()
	state := a.colorRed("logged out")
	if st.LoggedIn {
		state = a.colorGreen("logged in")
	}
	printRow(w, a.bold("state"), state)
	printRow(w, a.bold("store"), st.Store)
	printRow(w, a.bold("issued"), formatWhen(st.IssuedAt))
	expires := formatWhen(st.ExpiresAt)
	if st.Expired {
		expires += " " + a.colorYellow("(expired)")
	}
	printRow(w, a.bold("expires"), expires)
	printRow(w, a.bold("refresh due"), formatWhen(st.RefreshAt))
	printRow(w, a.bold("refresh token"), display(st.HasRefresh))
	return w.Flush()
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "-"
	}
	local := t.Local()
	return fmt.Sprintf("%s (%s)", local.Format(time.RFC3339), jalali.FormatJalali(local))
}

func (a *app) runSessionWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := a.authed(ctx)
	if err != nil {
		return err
	}

	lost := make(chan struct{})
	a.onExpired(func(string) {
		select {
		case <-lost:
		default:
			close(lost)
		}
	})

	logger := a.log.With().Str("component", "session-watch").Logger()
	sched := scheduler.New(client, client.ExpirySkew(), a.cfg.Session.IdentityRefresh, logger)
	a.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "authorpanel_token_refresh_due_seconds",
		Help: "Unix time of the next scheduled token refresh, 0 when none is armed",
	}, func() float64 {
		if at, ok := sched.Next(); ok {
			return float64(at.Unix())
		}
		return 0
	}))

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := a.metricsServer(addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() { <-sched.Stop().Done() }()

	if at, ok := sched.Next(); ok {
		a.printSuccess("Watching session, next refresh at %s", at.Local().Format(time.RFC3339))
	} else {
		fmt.Fprintln(a.out, a.colorYellow("Access token expiry is unreadable; only identity refresh is scheduled."))
	}

	select {
	case <-ctx.Done():
		a.printSuccess("Stopped")
		return nil
	case <-lost:
		return apiclient.ErrSessionExpired
	}
}

func (a *app) metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
