package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

type retriedKey struct{}

// Transport is the outbound request mediator. It attaches the held access
// token to every request except identity-flow ones and heals a 401 with one
// refresh followed by one replay of the original request.
type Transport struct {
	base      http.RoundTripper
	store     *Store
	refresher refresher
	endpoints Endpoints
	log       *slog.Logger
	obs       Observer
	metrics   *Metrics
}

// NewTransport wraps base. A nil base uses http.DefaultTransport.
func NewTransport(
	base http.RoundTripper,
	store *Store,
	r refresher,
	endpoints Endpoints,
	log *slog.Logger,
	obs Observer,
	metrics *Metrics,
) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = slog.Default()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Transport{
		base:      base,
		store:     store,
		refresher: r,
		endpoints: endpoints,
		log:       log,
		obs:       obs,
		metrics:   metrics,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.endpoints.IsIdentityFlow(req.URL) {
		return t.base.RoundTrip(req)
	}

	requestID := req.Header.Get(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp, err := t.base.RoundTrip(t.authorize(req, requestID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	if resp.StatusCode != http.StatusUnauthorized || isRetried(req.Context()) {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		// The body is gone and cannot be replayed.
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()

	log := t.log.With(
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)
	log.Debug("access token rejected, refreshing")
	t.obs.AccessTokenRejected()

	if _, err := t.refresher.Refresh(req.Context()); err != nil {
		return nil, err
	}

	retry := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		retry.Body = body
	}

	t.metrics.Retries.Inc()
	t.obs.TokenRefreshedRetrying()
	log.Debug("retrying request after refresh")

	resp, err = t.base.RoundTrip(t.authorize(retry, requestID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	return resp, nil
}

// authorize returns a copy of req carrying the current bearer token and the
// request id. The caller's request is left untouched.
func (t *Transport) authorize(req *http.Request, requestID string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Del("Authorization")
	if tok := t.store.Get(); tok != nil {
		tok.SetAuthHeader(out)
	}
	out.Header.Set(headerRequestID, requestID)
	return out
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}
