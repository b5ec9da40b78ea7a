package session

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const refreshCookie = "refresh_token"

// fakeBackend is a minimal admin backend: a cookie-based refresh endpoint,
// logout, the Google redirect and a few protected list endpoints.
type fakeBackend struct {
	*httptest.Server

	mu             sync.Mutex
	refreshCalls   int
	refreshStatus  int
	logoutStatus   int
	issued         []string
	next           int
	valid          map[string]bool
	identityAuth   []string // Authorization headers seen by identity endpoints
	apiAuth        []string // Authorization headers seen by API endpoints
	apiCalls       map[string]int
	lastBody       string
	rejectAPI      bool
	apiSawCookie   bool
	refreshArrived chan struct{}
	refreshGate    chan struct{}
}

func newFakeBackend(t *testing.T, tokens ...string) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		refreshStatus: http.StatusOK,
		logoutStatus:  http.StatusOK,
		issued:        tokens,
		valid:         make(map[string]bool),
		apiCalls:      make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/api/oauth/refresh", b.handleRefresh)
	r.Post("/api/oauth/logout", b.handleLogout)
	r.Get("/api/oauth/google", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.identityAuth = append(b.identityAuth, r.Header.Get("Authorization"))
		b.mu.Unlock()
		http.Redirect(w, r, "https://accounts.google.com/o/oauth2/auth", http.StatusFound)
	})
	r.Get("/api/{resource}/index", b.handleList)
	r.Post("/api/{resource}/store/{id}", b.handleStore)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.refreshCalls++
	b.identityAuth = append(b.identityAuth, r.Header.Get("Authorization"))
	arrived, gate := b.refreshArrived, b.refreshGate
	b.mu.Unlock()

	if arrived != nil {
		select {
		case arrived <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}

	if _, err := r.Cookie(refreshCookie); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "no refresh token"})
		return
	}

	b.mu.Lock()
	status := b.refreshStatus
	token := ""
	if status == http.StatusOK && b.next < len(b.issued) {
		token = b.issued[b.next]
		b.next++
		b.valid = map[string]bool{token: true}
	}
	b.mu.Unlock()

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{"message": "refresh rejected"})
		return
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token reused"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (b *fakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	status := b.logoutStatus
	b.mu.Unlock()

	if status == http.StatusOK {
		http.SetCookie(w, &http.Cookie{Name: refreshCookie, Path: "/", MaxAge: -1})
	}
	writeJSON(w, status, map[string]string{"message": "bye"})
}

func (b *fakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]string{{"_id": "1"}, {"_id": "2"}})
}

func (b *fakeBackend) handleStore(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.lastBody = string(body)
	b.mu.Unlock()

	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.apiAuth = append(b.apiAuth, auth)
	b.apiCalls[r.URL.Path]++
	if r.Header.Get("Cookie") != "" {
		b.apiSawCookie = true
	}
	if b.rejectAPI {
		return false
	}

	const prefix = "Bearer "
	return len(auth) > len(prefix) && b.valid[auth[len(prefix):]]
}

// accept marks token as valid for API calls without going through refresh.
func (b *fakeBackend) accept(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid[token] = true
}

// rejectEveryToken makes API endpoints answer 401 regardless of the token.
func (b *fakeBackend) rejectEveryToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectAPI = true
}

func (b *fakeBackend) LastBody() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBody
}

func (b *fakeBackend) APISawCookie() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apiSawCookie
}

func (b *fakeBackend) setRefreshStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshStatus = status
}

func (b *fakeBackend) setLogoutStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutStatus = status
}

func (b *fakeBackend) blockRefresh() (arrived chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshArrived = make(chan struct{}, 1)
	b.refreshGate = make(chan struct{})
	gate := b.refreshGate
	var once sync.Once
	return b.refreshArrived, func() { once.Do(func() { close(gate) }) }
}

func (b *fakeBackend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

func (b *fakeBackend) APICalls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apiCalls[path]
}

func (b *fakeBackend) IdentityAuth() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.identityAuth...)
}

func (b *fakeBackend) APIAuth() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.apiAuth...)
}

// cookieJar returns a jar holding the refresh cookie for the backend, the
// state a browser is in after the Google handshake.
func (b *fakeBackend) cookieJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	u, _ := url.Parse(b.URL)
	jar.SetCookies(u, []*http.Cookie{{Name: refreshCookie, Value: "opaque-refresh", Path: "/", HttpOnly: true}})
	return jar
}

// identity returns an identity client carrying the refresh cookie.
func (b *fakeBackend) identity(t *testing.T) Doer {
	t.Helper()
	return HTTPDoer{Client: &http.Client{Jar: b.cookieJar(t)}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
