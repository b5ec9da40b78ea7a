// Package nav models in-app navigation for the admin client: targets,
// guard decisions and a history stack that records where the user ended up.
package nav

import (
	"net/url"
	"sync"
)

// Well-known paths.
const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathHome     = "/Inicio"
	PathCallback = "/auth/google/success"
)

// Query parameters understood by the login view.
const (
	ParamReturnURL = "returnUrl"
	ParamError     = "error"
	ParamMsg       = "msg"
)

// Target is a navigation destination inside the app.
type Target struct {
	Path  string
	Query url.Values
}

// To builds a Target for path with no query.
func To(path string) Target {
	return Target{Path: path}
}

// Parse splits a raw in-app URL such as "/Ordenes?page=2" into a Target.
func Parse(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, err
	}
	t := Target{Path: u.Path}
	if u.RawQuery != "" {
		t.Query = u.Query()
	}
	if t.Path == "" {
		t.Path = PathRoot
	}
	return t, nil
}

// With returns a copy of t with key set to value.
func (t Target) With(key, value string) Target {
	q := url.Values{}
	for k, v := range t.Query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(key, value)
	t.Query = q
	return t
}

// String renders the target as path plus encoded query.
func (t Target) String() string {
	if len(t.Query) == 0 {
		return t.Path
	}
	return t.Path + "?" + t.Query.Encode()
}

// Decision is the outcome of a guard evaluation. A nil Redirect means the
// navigation may proceed.
type Decision struct {
	Redirect *Target
}

// Allow is the decision that lets navigation proceed.
func Allow() Decision { return Decision{} }

// RedirectTo is the decision that sends navigation to t instead.
func RedirectTo(t Target) Decision { return Decision{Redirect: &t} }

// Allowed reports whether navigation proceeds.
func (d Decision) Allowed() bool { return d.Redirect == nil }

// Navigator performs navigation. Replace swaps the current history entry so
// that back-navigation skips it; External leaves the app for a full-page URL.
type Navigator interface {
	Navigate(t Target)
	Replace(t Target)
	External(rawURL string)
}

// History is an in-memory Navigator that keeps the visited entries.
type History struct {
	mu       sync.Mutex
	entries  []Target
	external []string
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

func (h *History) Navigate(t Target) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, t)
}

func (h *History) Replace(t Target) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		h.entries = append(h.entries, t)
		return
	}
	h.entries[len(h.entries)-1] = t
}

func (h *History) External(rawURL string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.external = append(h.external, rawURL)
}

// Current returns the latest entry, or false when nothing was visited.
func (h *History) Current() (Target, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Target{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the history stack, oldest first.
func (h *History) Entries() []Target {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Target(nil), h.entries...)
}

// ExternalURLs returns every full-page URL the app navigated away to.
func (h *History) ExternalURLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.external...)
}

// LoginNotice maps the diagnostic query of the login view to a message.
// It returns "" when there is nothing to show.
func LoginNotice(q url.Values) string {
	switch {
	case q.Get(ParamMsg) == "noacceso":
		return "You do not have access to the system"
	case q.Get(ParamError) == "unauthorized":
		return "Your email is not authorized"
	case q.Get(ParamError) == "server":
		return "Server error, please try again later"
	}
	return ""
}
