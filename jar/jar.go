// Package jar keeps the cookies the backend sets on identity responses,
// most importantly the httpOnly refresh credential, and persists them
// across runs the way a browser profile does. Application code never reads
// cookie values; it only hands the jar to the identity HTTP client.
package jar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// entry is one persisted cookie together with the URL it was set for.
type entry struct {
	URL      string        `json:"url"`
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path,omitempty"`
	Domain   string        `json:"domain,omitempty"`
	Expires  time.Time     `json:"expires"`
	Secure   bool          `json:"secure,omitempty"`
	HttpOnly bool          `json:"http_only,omitempty"`
	SameSite http.SameSite `json:"same_site,omitempty"`
}

func (e entry) key() string {
	u, _ := url.Parse(e.URL)
	host := ""
	if u != nil {
		host = u.Host
	}
	return host + "|" + e.Path + "|" + e.Name
}

func (e entry) host() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// persistent reports whether e outlives the process and has not expired.
func (e entry) persistent(now time.Time) bool {
	return !e.Expires.IsZero() && e.Expires.After(now)
}

type fileFormat struct {
	Cookies []entry `json:"cookies"`
}

// Jar is an http.CookieJar backed by net/http/cookiejar that remembers the
// attributes of every cookie it accepts so persistent ones can be saved.
type Jar struct {
	inner *cookiejar.Jar
	path  string

	mu      sync.Mutex
	entries map[string]entry
	hosts   map[string]bool
}

// Open creates a jar and loads the persistent cookies stored at path.
// A missing file yields an empty jar. An empty path disables persistence.
func Open(path string) (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j := &Jar{
		inner:   inner,
		path:    path,
		entries: make(map[string]entry),
		hosts:   make(map[string]bool),
	}
	if path == "" {
		return j, nil
	}

	stored, err := readFile(path)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, e := range stored {
		if !e.persistent(now) {
			continue
		}
		u, err := url.Parse(e.URL)
		if err != nil {
			continue
		}
		j.SetCookies(u, []*http.Cookie{{
			Name:     e.Name,
			Value:    e.Value,
			Path:     e.Path,
			Domain:   e.Domain,
			Expires:  e.Expires,
			Secure:   e.Secure,
			HttpOnly: e.HttpOnly,
			SameSite: e.SameSite,
		}})
	}
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()

	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
	j.hosts[u.Host] = true
	now := time.Now()
	for _, c := range cookies {
		e := entry{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: c.SameSite,
		}
		switch {
		case c.MaxAge < 0:
			delete(j.entries, e.key())
			continue
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			delete(j.entries, e.key())
			continue
		}
		j.entries[e.key()] = e
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// Len returns how many cookies the jar is tracking, session ones included.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Save writes the persistent cookies to the jar file. Cookies stored for
// hosts this jar never talked to are preserved. Session cookies are dropped.
func (j *Jar) Save() error {
	if j.path == "" {
		return nil
	}

	lock, err := acquireFileLock(j.path)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %v\n", releaseErr)
		}
	}()

	// A corrupt file is replaced rather than blocking the save.
	existing, err := readFile(j.path)
	if err != nil {
		existing = nil
	}

	j.mu.Lock()
	now := time.Now()
	var out fileFormat
	for _, e := range existing {
		if !j.hosts[e.host()] && e.persistent(now) {
			out.Cookies = append(out.Cookies, e)
		}
	}
	for _, e := range j.entries {
		if e.persistent(now) {
			out.Cookies = append(out.Cookies, e)
		}
	}
	j.mu.Unlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	tempFile := j.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, j.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf(
				"failed to rename temp file: %v; additionally failed to remove temp file: %w",
				err,
				removeErr,
			)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func readFile(path string) ([]entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file: %w", err)
	}
	return f.Cookies, nil
}
