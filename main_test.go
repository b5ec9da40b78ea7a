package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/go-authgate/admin-session/tui"
)

// recordingDisplayer keeps the outcomes runSession reports.
type recordingDisplayer struct {
	tui.NoopDisplayer

	mu        sync.Mutex
	landed    []string
	loaded    int
	loadErr   error
	loginURL  string
	returnURL string
	notice    string
	callback  string
	loggedOut bool
	user      string
	done      bool
	fatal     error
}

func (d *recordingDisplayer) Landed(_, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.landed = append(d.landed, path)
}

func (d *recordingDisplayer) Loaded(count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = count
}

func (d *recordingDisplayer) LoadFailed(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadErr = err
}

func (d *recordingDisplayer) LoginRequired(loginURL, returnURL, notice string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loginURL, d.returnURL, d.notice = loginURL, returnURL, notice
}

func (d *recordingDisplayer) CallbackCompleted(target string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = target
}

func (d *recordingDisplayer) LoggedOut() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loggedOut = true
}

func (d *recordingDisplayer) Done(_, user string, _ time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done, d.user = true, user
}

func (d *recordingDisplayer) Fatal(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fatal = err
}

// newAdminServer fakes the admin backend: the refresh endpoint answers with a
// signed access token whenever the refresh cookie is present.
func newAdminServer(t *testing.T) *httptest.Server {
	t.Helper()

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u-42",
		"exp": time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	r := chi.NewRouter()
	r.Post("/api/oauth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("refresh_token"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": access})
	})
	r.Post("/api/oauth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/{resource}/index", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"1"},{"_id":"2"},{"_id":"3"}]`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// seedCookieFile writes a cookie file holding a refresh cookie for serverURL,
// as left behind by an earlier Google sign-in.
func seedCookieFile(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	data, err := json.Marshal(map[string]any{
		"cookies": []map[string]any{{
			"url":       serverURL + "/",
			"name":      "refresh_token",
			"value":     "opaque-refresh",
			"path":      "/",
			"expires":   time.Now().Add(24 * time.Hour).UTC(),
			"http_only": true,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func cookieNamesInFile(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read cookie file: %v", err)
	}
	var f struct {
		Cookies []struct {
			Name string `json:"name"`
		} `json:"cookies"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("failed to parse cookie file: %v", err)
	}
	var names []string
	for _, c := range f.Cookies {
		names = append(names, c.Name)
	}
	return names
}

func testConfig(serverURL, cookieFile, path string) *Config {
	return &Config{
		ServerURL:  serverURL,
		CookieFile: cookieFile,
		StartPath:  path,
		LogLevel:   "debug",
	}
}

func TestRunSession_RecoversSessionAndLoadsView(t *testing.T) {
	srv := newAdminServer(t)
	cookieFile := seedCookieFile(t, srv.URL)
	d := &recordingDisplayer{}

	err := runSession(context.Background(), testConfig(srv.URL, cookieFile, "/Ordenes"), d, newLogger(io.Discard, "debug"))
	if err != nil {
		t.Fatalf("runSession() error = %v", err)
	}

	if d.fatal != nil {
		t.Fatalf("unexpected fatal: %v", d.fatal)
	}
	if len(d.landed) != 1 || d.landed[0] != "/Ordenes" {
		t.Errorf("landed = %v, want [/Ordenes]", d.landed)
	}
	if d.loaded != 3 {
		t.Errorf("loaded = %d, want 3", d.loaded)
	}
	if !d.done || d.user != "u-42" {
		t.Errorf("done = %v user = %q, want user u-42", d.done, d.user)
	}
	if d.loginURL != "" {
		t.Errorf("unexpected login redirect to %s", d.loginURL)
	}

	names := cookieNamesInFile(t, cookieFile)
	if len(names) != 1 || names[0] != "refresh_token" {
		t.Errorf("cookie file = %v, want the refresh cookie kept", names)
	}
}

func TestRunSession_WithoutSessionRequiresLogin(t *testing.T) {
	srv := newAdminServer(t)
	cookieFile := filepath.Join(t.TempDir(), "cookies.json")
	d := &recordingDisplayer{}

	err := runSession(context.Background(), testConfig(srv.URL, cookieFile, "/Facturas?page=2"), d, newLogger(io.Discard, "info"))
	if err != nil {
		t.Fatalf("runSession() error = %v", err)
	}

	if d.loginURL != srv.URL+"/api/oauth/google" {
		t.Errorf("loginURL = %q", d.loginURL)
	}
	if d.returnURL != "/Facturas?page=2" {
		t.Errorf("returnURL = %q, want /Facturas?page=2", d.returnURL)
	}
	if d.done || d.loaded != 0 {
		t.Error("a protected view was rendered without a session")
	}
}

func TestRunSession_Logout(t *testing.T) {
	srv := newAdminServer(t)
	cookieFile := seedCookieFile(t, srv.URL)
	cfg := testConfig(srv.URL, cookieFile, "/Inicio")
	cfg.Logout = true
	d := &recordingDisplayer{}

	if err := runSession(context.Background(), cfg, d, newLogger(io.Discard, "info")); err != nil {
		t.Fatalf("runSession() error = %v", err)
	}

	if !d.loggedOut {
		t.Error("expected logout to be reported")
	}
	if names := cookieNamesInFile(t, cookieFile); len(names) != 0 {
		t.Errorf("cookie file still holds %v after logout", names)
	}
}

func TestRunSession_CallbackLandsHome(t *testing.T) {
	srv := newAdminServer(t)
	cookieFile := seedCookieFile(t, srv.URL)
	cfg := testConfig(srv.URL, cookieFile, "/Ordenes")
	cfg.Callback = true
	d := &recordingDisplayer{}

	if err := runSession(context.Background(), cfg, d, newLogger(io.Discard, "info")); err != nil {
		t.Fatalf("runSession() error = %v", err)
	}

	if d.callback != "/Inicio" {
		t.Errorf("callback target = %q, want /Inicio", d.callback)
	}
	if len(d.landed) != 1 || d.landed[0] != "/Inicio" {
		t.Errorf("landed = %v, want [/Inicio]", d.landed)
	}
}

func TestRunSession_CallbackFailureShowsNotice(t *testing.T) {
	srv := newAdminServer(t)
	cfg := testConfig(srv.URL, filepath.Join(t.TempDir(), "cookies.json"), "/Inicio")
	cfg.Callback = true
	d := &recordingDisplayer{}

	if err := runSession(context.Background(), cfg, d, newLogger(io.Discard, "info")); err != nil {
		t.Fatalf("runSession() error = %v", err)
	}

	if d.notice != "Your email is not authorized" {
		t.Errorf("notice = %q", d.notice)
	}
	if d.returnURL != "" {
		t.Errorf("returnURL = %q, want none", d.returnURL)
	}
}

func TestRunSession_InvalidCookieFile(t *testing.T) {
	srv := newAdminServer(t)
	cookieFile := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(cookieFile, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	d := &recordingDisplayer{}

	err := runSession(context.Background(), testConfig(srv.URL, cookieFile, "/Inicio"), d, newLogger(io.Discard, "info"))
	if err == nil {
		t.Fatal("expected an error for a corrupt cookie file")
	}
	if d.fatal == nil {
		t.Error("expected the error to be reported")
	}
}

func TestCountRecords(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`[{"_id":"1"},{"_id":"2"}]`, 2},
		{`[]`, 0},
		{`null`, 0},
		{``, 0},
		{`{"_id":"1"}`, 1},
	}

	for _, tt := range tests {
		if got := countRecords(json.RawMessage(tt.body)); got != tt.want {
			t.Errorf("countRecords(%q) = %d, want %d", tt.body, got, tt.want)
		}
	}
}
