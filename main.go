package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-authgate/admin-session/jar"
	"github.com/go-authgate/admin-session/nav"
	"github.com/go-authgate/admin-session/session"
	"github.com/go-authgate/admin-session/tui"
)

// isTTY reports whether stderr is a character device (interactive terminal).
// We check stderr because the TUI renders to stderr, allowing stdout to be piped.
func isTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if strings.HasPrefix(strings.ToLower(cfg.ServerURL), "http://") {
		fmt.Fprintln(
			os.Stderr,
			"⚠️  WARNING: Using HTTP instead of HTTPS. Tokens will be transmitted in plaintext!",
		)
		fmt.Fprintln(os.Stderr)
	}

	tty := isTTY()

	// Structured logs must not interleave with the TUI frame.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		logOut = f
	} else if tty {
		logOut = io.Discard
	}
	log := newLogger(logOut, cfg.LogLevel)

	if tty {
		m := tui.NewModel()
		// WithInput(nil): disable stdin/keyboard input so BubbleTea skips terminal
		// capability queries. Ctrl+C is handled by signal.NotifyContext.
		p := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithInput(nil))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			}
		}()

		d := tui.NewProgramDisplayer(p)
		d.Banner()
		runErr := run(cfg, d, log)
		p.Quit() // let BubbleTea drain terminal query responses before exiting
		wg.Wait()
		if runErr != nil {
			os.Exit(1)
		}
	} else {
		d := tui.NewPlainDisplayer(os.Stderr)
		d.Banner()
		if err := run(cfg, d, log); err != nil {
			os.Exit(1)
		}
	}
}

func run(cfg *Config, d tui.Displayer, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSession(ctx, cfg, d, log)
}

// runSession boots the session, opens the requested view through the guard,
// loads the view's list endpoint and optionally logs out.
func runSession(ctx context.Context, cfg *Config, d tui.Displayer, log *slog.Logger) error {
	cookies, err := jar.Open(cfg.CookieFile)
	if err != nil {
		d.Fatal(err)
		return err
	}

	registry := prometheus.NewRegistry()
	history := nav.NewHistory()
	client, err := session.New(session.Options{
		ServerURL: cfg.ServerURL,
		Jar:       cookies,
		Navigator: history,
		Observer:  d,
		Logger:    log,
		Metrics:   session.NewMetrics(registry),
	})
	if err != nil {
		d.Fatal(err)
		return err
	}

	defer func() {
		saveCookies(cookies, cfg.CookieFile, d)
		logMetrics(ctx, registry, log)
	}()

	path := cfg.StartPath
	if cfg.Callback {
		client.Callback().Handle(ctx)
		if cur, ok := history.Current(); ok {
			path = cur.String()
		}
		d.CallbackCompleted(path)
	} else {
		// Always bootstrap: a redundant refresh is coalesced with the guard's.
		d.Bootstrapping()
		if client.Bootstrap(ctx) {
			d.SessionRecovered()
		} else {
			d.NoSession()
		}
	}

	router := nav.NewRouter(client.Gate(), client, history)
	d.Navigating(path)
	route, target, err := router.Go(ctx, path)
	if err != nil {
		d.Fatal(err)
		return err
	}

	if route.Path == nav.PathLogin {
		return requireLogin(client, target, d)
	}
	d.Landed(route.Title, target.String())

	if route.Resource != "" {
		d.Loading(route.Resource)
		var body json.RawMessage
		err := client.GetJSON(ctx, route.Resource, &body)
		switch {
		case errors.Is(err, session.ErrAuthenticationFailed):
			// The session could not be healed: back to login, keeping the view.
			d.LoadFailed(err)
			return requireLogin(client, nav.To(nav.PathLogin).With(nav.ParamReturnURL, target.String()), d)
		case err != nil:
			d.LoadFailed(err)
		default:
			d.Loaded(countRecords(body))
		}
	}

	if cfg.Logout {
		if err := client.Logout(ctx); err != nil {
			d.Fatal(err)
			return err
		}
		d.LoggedOut()
		return nil
	}

	tok, _ := client.Token()
	preview := tok
	if len(preview) > 50 {
		preview = preview[:50]
	}
	user := ""
	if claims, err := session.ParseClaims(tok); err == nil {
		user = cmp.Or(claims.UserID, claims.Subject)
	}
	d.Done(preview, user, client.Store().ExpiresIn())
	return nil
}

// requireLogin sends the user to the Google sign-in and reports it.
func requireLogin(client *session.Client, login nav.Target, d tui.Displayer) error {
	client.LoginWithGoogle()
	d.LoginRequired(
		client.Endpoints().Google,
		login.Query.Get(nav.ParamReturnURL),
		nav.LoginNotice(login.Query),
	)
	return nil
}

func saveCookies(cookies *jar.Jar, path string, d tui.Displayer) {
	if path == "" {
		return
	}
	if err := cookies.Save(); err != nil {
		d.CookieSaveFailed(err)
		return
	}
	d.CookiesSaved(path)
}

// logMetrics writes the session counters at debug level.
func logMetrics(ctx context.Context, g prometheus.Gatherer, log *slog.Logger) {
	if !log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	families, err := g.Gather()
	if err != nil {
		log.Debug("failed to gather metrics", slog.Any("err", err))
		return
	}
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		log.Debug("metric", slog.String("name", mf.GetName()), slog.Float64("value", total))
	}
}

// countRecords counts the entries of a list response. Non-array bodies count
// as one record, an empty body as none.
func countRecords(body json.RawMessage) int {
	if len(body) == 0 || string(body) == "null" {
		return 0
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return 1
	}
	return len(items)
}
