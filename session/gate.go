package session

import (
	"context"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/go-authgate/admin-session/nav"
)

// GateState is the state of one guard evaluation.
type GateState int

const (
	GateUnknown GateState = iota
	GateAllowed
	GateDenied
)

func (s GateState) String() string {
	switch s {
	case GateAllowed:
		return "allowed"
	case GateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

type refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// Gate guards protected views. It holds no state of its own: each
// evaluation starts in GateUnknown and ends in GateAllowed or GateDenied.
type Gate struct {
	store     *Store
	refresher refresher
	log       *slog.Logger
	metrics   *Metrics
}

// NewGate creates a route guard backed by store and refresher.
func NewGate(store *Store, r refresher, log *slog.Logger, metrics *Metrics) *Gate {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Gate{store: store, refresher: r, log: log, metrics: metrics}
}

// Evaluate decides whether navigation to requested may proceed. Without a
// held token it tries one refresh; if that fails navigation is redirected to
// the login view with the requested destination as returnUrl.
func (g *Gate) Evaluate(ctx context.Context, requested nav.Target) nav.Decision {
	state := g.evaluate(ctx)
	g.metrics.GateDecisions.WithLabelValues(state.String()).Inc()
	g.log.Debug("gate evaluated",
		slog.String("path", requested.Path),
		slog.String("state", state.String()),
	)

	if state == GateAllowed {
		return nav.Allow()
	}
	return nav.RedirectTo(nav.To(nav.PathLogin).With(nav.ParamReturnURL, requested.String()))
}

func (g *Gate) evaluate(ctx context.Context) GateState {
	if g.store.IsAuthenticated() {
		return GateAllowed
	}
	if _, err := g.refresher.Refresh(ctx); err != nil {
		return GateDenied
	}
	return GateAllowed
}
