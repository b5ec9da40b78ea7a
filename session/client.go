package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"

	"github.com/go-authgate/admin-session/nav"
)

const (
	logoutTimeout  = 10 * time.Second
	requestTimeout = 15 * time.Second
)

// Options configures a Client.
type Options struct {
	// ServerURL is the backend base URL, e.g. http://localhost:3000.
	ServerURL string
	// Base is the transport under both the identity and the API client.
	Base http.RoundTripper
	// Jar holds the refresh cookie. It is attached to the identity client only.
	Jar http.CookieJar
	// Identity overrides the identity client used for refresh and logout.
	Identity  Doer
	Navigator nav.Navigator
	Observer  Observer
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Client is the session contract consumed by the views: it owns the token
// store and wires the coordinator, guard, mediator and callback handler
// around it.
type Client struct {
	base      string
	store     *Store
	endpoints Endpoints
	identity  Doer
	refresher *Refresher
	gate      *Gate
	transport *Transport
	callback  *CallbackHandler
	nav       nav.Navigator
	log       *slog.Logger
	api       *http.Client
}

// NewBaseTransport returns the TLS-hardened transport used by default.
func NewBaseTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New wires a Client.
func New(opts Options) (*Client, error) {
	if opts.ServerURL == "" {
		return nil, errors.New("server URL cannot be empty")
	}
	if opts.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	if opts.Base == nil {
		opts.Base = NewBaseTransport()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}

	log := opts.Logger.With(slog.String("component", "session"))

	identity := opts.Identity
	if identity == nil {
		rc, err := newIdentityClient(opts.Base, opts.Jar, log)
		if err != nil {
			return nil, err
		}
		identity = rc
	}

	endpoints := NewEndpoints(opts.ServerURL)
	store := NewStore()
	refresher := NewRefresher(store, identity, endpoints.Refresh, log, opts.Observer, opts.Metrics)
	transport := NewTransport(opts.Base, store, refresher, endpoints, log, opts.Observer, opts.Metrics)

	return &Client{
		base:      strings.TrimRight(opts.ServerURL, "/"),
		store:     store,
		endpoints: endpoints,
		identity:  identity,
		refresher: refresher,
		gate:      NewGate(store, refresher, log, opts.Metrics),
		transport: transport,
		callback:  NewCallbackHandler(store, refresher, opts.Navigator, log),
		nav:       opts.Navigator,
		log:       log,
		api:       &http.Client{Transport: transport},
	}, nil
}

// newIdentityClient builds the cookie-carrying client for refresh and logout.
// Each call sends exactly one request: a rotated refresh token must never be
// replayed, and status codes are classified by the caller.
func newIdentityClient(base http.RoundTripper, jar http.CookieJar, log *slog.Logger) (*retry.Client, error) {
	rc, err := retry.NewBackgroundClient(
		retry.WithHTTPClient(&http.Client{Transport: base, Jar: jar}),
		retry.WithMaxRetries(0),
		retry.WithRetryableChecker(func(error, *http.Response) bool { return false }),
		retry.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}
	return rc, nil
}

// IsAuthenticated reports whether an access token is held.
func (c *Client) IsAuthenticated() bool { return c.store.IsAuthenticated() }

// Token returns the held access token.
func (c *Client) Token() (string, bool) { return c.store.Token() }

// Store exposes the token store for read access.
func (c *Client) Store() *Store { return c.store }

// Endpoints returns the identity endpoints.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Gate returns the route guard.
func (c *Client) Gate() *Gate { return c.gate }

// Callback returns the Google callback handler.
func (c *Client) Callback() *CallbackHandler { return c.callback }

// HTTPClient returns the client for API calls. It goes through the mediator
// and carries no cookies.
func (c *Client) HTTPClient() *http.Client { return c.api }

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresher.Refresh(ctx)
	return err
}

// Bootstrap tries to recover a session at startup. Having no session yet is
// the expected case, so failure is only reported as false.
func (c *Client) Bootstrap(ctx context.Context) bool {
	if err := c.Refresh(ctx); err != nil {
		c.log.Debug("bootstrap found no session", slog.Any("err", err))
		return false
	}
	return true
}

// LoginWithGoogle leaves the app for the backend-owned Google login URL.
func (c *Client) LoginWithGoogle() {
	c.nav.External(c.endpoints.Google)
}

// Logout invalidates the refresh credential on the backend. Only after the
// backend confirms does the client drop its token and go to the login view.
func (c *Client) Logout(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, logoutTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx, http.MethodPost, c.endpoints.Logout, strings.NewReader("{}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.store.Get(); tok != nil {
		tok.SetAuthHeader(req)
	}

	resp, err := c.identity.DoWithContext(reqCtx, req)
	if err != nil {
		return fmt.Errorf("%w: logout request failed: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return fmt.Errorf("logout failed with status %d: %s", resp.StatusCode, string(body))
	}

	c.store.Clear()
	c.log.Info("logged out")
	c.nav.Navigate(nav.To(nav.PathLogin))
	return nil
}

// GetJSON loads path from the backend through the mediator and decodes the
// JSON body into v. A 401 that survived the refresh-and-retry is reported as
// ErrAuthorizationFailed.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", ErrNetworkFailure, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthorizationFailed, string(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("API call failed with status %d: %s", resp.StatusCode, string(body))
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base + "/" + strings.TrimPrefix(path, "/")
}
