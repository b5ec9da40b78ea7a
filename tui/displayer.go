package tui

import (
	"fmt"
	"io"
	"time"

	tea "charm.land/bubbletea/v2"
)

// Displayer abstracts all output of the session flow. It also satisfies
// session.Observer so refresh and retry progress shows up as it happens.
type Displayer interface {
	Banner()
	Bootstrapping()
	SessionRecovered()
	NoSession()
	Navigating(path string)
	Landed(title, path string)
	Refreshing()
	RefreshOK()
	RefreshFailed(err error)
	AccessTokenRejected()
	TokenRefreshedRetrying()
	Loading(resource string)
	Loaded(count int)
	LoadFailed(err error)
	LoginRequired(loginURL, returnURL, notice string)
	CallbackCompleted(target string)
	LoggedOut()
	CookiesSaved(path string)
	CookieSaveFailed(err error)
	Done(preview, user string, expiresIn time.Duration)
	Fatal(err error)
}

// PlainDisplayer writes plain text output to w.
// Used when stderr is not a TTY (pipes, CI, SSH without pty).
type PlainDisplayer struct {
	w io.Writer
}

// NewPlainDisplayer creates a PlainDisplayer that writes to w.
func NewPlainDisplayer(w io.Writer) *PlainDisplayer {
	return &PlainDisplayer{w: w}
}

func (p *PlainDisplayer) Banner() {
	fmt.Fprintln(p.w, "=== Admin Session Client ===")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) Bootstrapping() {
	fmt.Fprintln(p.w, "Recovering session from refresh cookie...")
}

func (p *PlainDisplayer) SessionRecovered() {
	fmt.Fprintln(p.w, "Session recovered!")
}

func (p *PlainDisplayer) NoSession() {
	fmt.Fprintln(p.w, "No session yet.")
}

func (p *PlainDisplayer) Navigating(path string) {
	fmt.Fprintf(p.w, "Navigating to %s...\n", path)
}

func (p *PlainDisplayer) Landed(title, path string) {
	fmt.Fprintf(p.w, "Opened %s (%s)\n", title, path)
}

func (p *PlainDisplayer) Refreshing() {
	fmt.Fprintln(p.w, "Refreshing access token...")
}

func (p *PlainDisplayer) RefreshOK() {
	fmt.Fprintln(p.w, "Token refreshed successfully!")
}

func (p *PlainDisplayer) RefreshFailed(err error) {
	fmt.Fprintf(p.w, "Refresh failed: %v\n", err)
}

func (p *PlainDisplayer) AccessTokenRejected() {
	fmt.Fprintln(p.w, "Access token rejected (401), refreshing...")
}

func (p *PlainDisplayer) TokenRefreshedRetrying() {
	fmt.Fprintln(p.w, "Token refreshed, retrying API call...")
}

func (p *PlainDisplayer) Loading(resource string) {
	fmt.Fprintf(p.w, "Loading %s...\n", resource)
}

func (p *PlainDisplayer) Loaded(count int) {
	fmt.Fprintf(p.w, "Loaded %d records.\n", count)
}

func (p *PlainDisplayer) LoadFailed(err error) {
	fmt.Fprintf(p.w, "Loading failed: %v\n", err)
}

func (p *PlainDisplayer) LoginRequired(loginURL, returnURL, notice string) {
	fmt.Fprintln(p.w, "----------------------------------------")
	if notice != "" {
		fmt.Fprintln(p.w, notice)
	}
	fmt.Fprintf(p.w, "Sign in with Google:\n%s\n", loginURL)
	if returnURL != "" {
		fmt.Fprintf(p.w, "\nYou will be returned to: %s\n", returnURL)
	}
	fmt.Fprintln(p.w, "----------------------------------------")
}

func (p *PlainDisplayer) CallbackCompleted(target string) {
	fmt.Fprintf(p.w, "Google sign-in finished, continuing to %s\n", target)
}

func (p *PlainDisplayer) LoggedOut() {
	fmt.Fprintln(p.w, "Logged out.")
}

func (p *PlainDisplayer) CookiesSaved(path string) {
	fmt.Fprintf(p.w, "Cookies saved to %s\n", path)
}

func (p *PlainDisplayer) CookieSaveFailed(err error) {
	fmt.Fprintf(p.w, "Warning: Failed to save cookies: %v\n", err)
}

func (p *PlainDisplayer) Done(preview, user string, expiresIn time.Duration) {
	fmt.Fprintln(p.w, "\n========================================")
	fmt.Fprintln(p.w, "Current Session:")
	fmt.Fprintf(p.w, "Access Token: %s...\n", preview)
	if user != "" {
		fmt.Fprintf(p.w, "User: %s\n", user)
	}
	if expiresIn > 0 {
		fmt.Fprintf(p.w, "Expires In: %s\n", expiresIn.Round(time.Second))
	}
	fmt.Fprintln(p.w, "========================================")
}

func (p *PlainDisplayer) Fatal(err error) {
	fmt.Fprintf(p.w, "Error: %v\n", err)
}

// NoopDisplayer is a no-op implementation used in tests.
type NoopDisplayer struct{}

func (NoopDisplayer) Banner()                           {}
func (NoopDisplayer) Bootstrapping()                    {}
func (NoopDisplayer) SessionRecovered()                 {}
func (NoopDisplayer) NoSession()                        {}
func (NoopDisplayer) Navigating(_ string)               {}
func (NoopDisplayer) Landed(_, _ string)                {}
func (NoopDisplayer) Refreshing()                       {}
func (NoopDisplayer) RefreshOK()                        {}
func (NoopDisplayer) RefreshFailed(_ error)             {}
func (NoopDisplayer) AccessTokenRejected()              {}
func (NoopDisplayer) TokenRefreshedRetrying()           {}
func (NoopDisplayer) Loading(_ string)                  {}
func (NoopDisplayer) Loaded(_ int)                      {}
func (NoopDisplayer) LoadFailed(_ error)                {}
func (NoopDisplayer) LoginRequired(_, _, _ string)      {}
func (NoopDisplayer) CallbackCompleted(_ string)        {}
func (NoopDisplayer) LoggedOut()                        {}
func (NoopDisplayer) CookiesSaved(_ string)             {}
func (NoopDisplayer) CookieSaveFailed(_ error)          {}
func (NoopDisplayer) Done(_, _ string, _ time.Duration) {}
func (NoopDisplayer) Fatal(_ error)                     {}

// ProgramDisplayer sends BubbleTea messages to a running tea.Program.
type ProgramDisplayer struct {
	p *tea.Program
}

// NewProgramDisplayer creates a ProgramDisplayer that sends messages to p.
func NewProgramDisplayer(p *tea.Program) *ProgramDisplayer {
	return &ProgramDisplayer{p: p}
}

func (t *ProgramDisplayer) Banner() {
	t.p.Send(MsgBanner{})
}

func (t *ProgramDisplayer) Bootstrapping() {
	t.p.Send(MsgBootstrapping{})
}

func (t *ProgramDisplayer) SessionRecovered() {
	t.p.Send(MsgSessionRecovered{})
}

func (t *ProgramDisplayer) NoSession() {
	t.p.Send(MsgNoSession{})
}

func (t *ProgramDisplayer) Navigating(path string) {
	t.p.Send(MsgNavigating{Path: path})
}

func (t *ProgramDisplayer) Landed(title, path string) {
	t.p.Send(MsgLanded{Title: title, Path: path})
}

func (t *ProgramDisplayer) Refreshing() {
	t.p.Send(MsgRefreshing{})
}

func (t *ProgramDisplayer) RefreshOK() {
	t.p.Send(MsgRefreshOK{})
}

func (t *ProgramDisplayer) RefreshFailed(err error) {
	t.p.Send(MsgRefreshFailed{Err: err})
}

func (t *ProgramDisplayer) AccessTokenRejected() {
	t.p.Send(MsgAccessTokenRejected{})
}

func (t *ProgramDisplayer) TokenRefreshedRetrying() {
	t.p.Send(MsgTokenRefreshedRetrying{})
}

func (t *ProgramDisplayer) Loading(resource string) {
	t.p.Send(MsgLoading{Resource: resource})
}

func (t *ProgramDisplayer) Loaded(count int) {
	t.p.Send(MsgLoaded{Count: count})
}

func (t *ProgramDisplayer) LoadFailed(err error) {
	t.p.Send(MsgLoadFailed{Err: err})
}

func (t *ProgramDisplayer) LoginRequired(loginURL, returnURL, notice string) {
	t.p.Send(MsgLoginRequired{LoginURL: loginURL, ReturnURL: returnURL, Notice: notice})
}

func (t *ProgramDisplayer) CallbackCompleted(target string) {
	t.p.Send(MsgCallbackCompleted{Target: target})
}

func (t *ProgramDisplayer) LoggedOut() {
	t.p.Send(MsgLoggedOut{})
}

func (t *ProgramDisplayer) CookiesSaved(path string) {
	t.p.Send(MsgCookiesSaved{Path: path})
}

func (t *ProgramDisplayer) CookieSaveFailed(err error) {
	t.p.Send(MsgCookieSaveFailed{Err: err})
}

func (t *ProgramDisplayer) Done(preview, user string, expiresIn time.Duration) {
	t.p.Send(MsgDone{Preview: preview, User: user, ExpiresIn: expiresIn})
}

func (t *ProgramDisplayer) Fatal(err error) {
	t.p.Send(MsgFatal{Err: err})
}
