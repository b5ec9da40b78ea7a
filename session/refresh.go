package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	refreshTimeout = 10 * time.Second
	refreshKey     = "refresh"

	// maxBodySize bounds how much of an identity response is read.
	maxBodySize = 1 << 20
)

// Doer sends HTTP requests. *retry.Client from go-httpretry satisfies it.
type Doer interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPDoer adapts a plain *http.Client to Doer.
type HTTPDoer struct {
	Client *http.Client
}

func (d HTTPDoer) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	c := d.Client
	if c == nil {
		c = http.DefaultClient
	}
	return c.Do(req.WithContext(ctx))
}

type refreshResponse struct {
	Token string `json:"token"`
}

// Refresher exchanges the refresh cookie for a new access token. Concurrent
// callers share one in-flight exchange and observe the same outcome.
type Refresher struct {
	store    *Store
	client   Doer
	url      string
	group    singleflight.Group
	mu       sync.Mutex
	inflight bool
	log      *slog.Logger
	obs      Observer
	metrics  *Metrics
}

// NewRefresher creates a coordinator that posts to refreshURL through
// client and writes successful results into store.
func NewRefresher(
	store *Store,
	client Doer,
	refreshURL string,
	log *slog.Logger,
	obs Observer,
	metrics *Metrics,
) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Refresher{
		store:   store,
		client:  client,
		url:     refreshURL,
		log:     log,
		obs:     obs,
		metrics: metrics,
	}
}

// Refresh returns a fresh access token. If a refresh is already in flight
// the caller waits for it instead of starting another one. When ctx ends the
// caller stops waiting, but the exchange itself runs to completion and still
// updates the store.
func (r *Refresher) Refresh(ctx context.Context) (*oauth2.Token, error) {
	r.mu.Lock()
	if r.inflight {
		r.metrics.RefreshWaiters.Inc()
	}
	r.inflight = true
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		defer r.settle()
		return r.exchange(context.WithoutCancel(ctx))
	})
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tok := *res.Val.(*oauth2.Token)
		return &tok, nil
	}
}

// settle ends the current generation. Callers arriving afterwards start a
// new exchange.
func (r *Refresher) settle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight = false
	r.group.Forget(refreshKey)
}

// exchange performs the single network round trip of one refresh generation.
func (r *Refresher) exchange(ctx context.Context) (*oauth2.Token, error) {
	reqCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	log := r.log.With(slog.String("refresh_id", uuid.NewString()))
	r.obs.Refreshing()

	tok, err := r.post(reqCtx)
	if err != nil {
		outcome := outcomeDenied
		if errors.Is(err, ErrNetworkFailure) {
			outcome = outcomeNetwork
		}
		r.metrics.RefreshCalls.WithLabelValues(outcome).Inc()
		log.Debug("refresh failed", slog.String("outcome", outcome), slog.Any("err", err))
		r.obs.RefreshFailed(err)
		return nil, err
	}

	r.store.Set(tok)
	r.metrics.RefreshCalls.WithLabelValues(outcomeSuccess).Inc()
	log.Debug("refresh succeeded", slog.Time("expiry", tok.Expiry))
	r.obs.RefreshOK()
	return tok, nil
}

func (r *Refresher) post(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh request failed: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read refresh response: %w", ErrNetworkFailure, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: refresh rejected with status %d", ErrAuthenticationFailed, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, &oauth2.RetrieveError{
			Response: resp,
			Body:     body,
		})
	}

	var res refreshResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: failed to parse refresh response: %w", ErrAuthenticationFailed, err)
	}
	if err := validateAccessToken(res.Token); err != nil {
		return nil, fmt.Errorf("%w: invalid refresh response: %w", ErrAuthenticationFailed, err)
	}

	return &oauth2.Token{
		AccessToken: res.Token,
		TokenType:   "Bearer",
		Expiry:      expiryOf(res.Token),
	}, nil
}

// validateAccessToken rejects tokens that cannot be a usable bearer credential.
func validateAccessToken(accessToken string) error {
	if accessToken == "" {
		return errors.New("token is empty")
	}
	if len(accessToken) < 10 {
		return fmt.Errorf("token is too short (length: %d)", len(accessToken))
	}
	if strings.ContainsAny(accessToken, " \t\r\n") {
		return errors.New("token contains whitespace")
	}
	return nil
}
