package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-authgate/admin-session/nav"
)

// CallbackHandler completes the Google login redirect. By the time the
// browser lands on the callback route the backend has already set the
// refresh cookie, so a refresh is all that is needed to start the session.
type CallbackHandler struct {
	once      sync.Once
	store     *Store
	refresher refresher
	nav       nav.Navigator
	log       *slog.Logger
}

// NewCallbackHandler creates a handler that navigates through navigator.
func NewCallbackHandler(
	store *Store,
	r refresher,
	navigator nav.Navigator,
	log *slog.Logger,
) *CallbackHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CallbackHandler{store: store, refresher: r, nav: navigator, log: log}
}

// Handle runs the callback. Only the first invocation does anything; later
// ones return false immediately. Both outcomes replace the history entry so
// that back-navigation never returns to the callback route.
func (h *CallbackHandler) Handle(ctx context.Context) bool {
	ran := false
	h.once.Do(func() {
		ran = true
		h.complete(ctx)
	})
	return ran
}

func (h *CallbackHandler) complete(ctx context.Context) {
	if _, err := h.refresher.Refresh(ctx); err != nil {
		h.store.Clear()

		reason := "unauthorized"
		if !errors.Is(err, ErrAuthenticationFailed) {
			reason = "server"
		}
		h.log.Warn("google callback failed", slog.String("reason", reason), slog.Any("err", err))
		h.nav.Replace(nav.To(nav.PathLogin).With(nav.ParamError, reason))
		return
	}

	h.log.Info("google callback completed")
	h.nav.Replace(nav.To(nav.PathHome))
}
