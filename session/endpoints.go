package session

import (
	"net/url"
	"strings"
)

// Backend paths of the identity flow.
const (
	refreshPath = "/api/oauth/refresh"
	logoutPath  = "/api/oauth/logout"
	googlePath  = "/api/oauth/google"
)

// Endpoints are the absolute URLs of the identity-flow endpoints.
type Endpoints struct {
	Refresh string
	Logout  string
	Google  string
}

// NewEndpoints derives the identity endpoints from the backend base URL.
func NewEndpoints(serverURL string) Endpoints {
	base := strings.TrimRight(serverURL, "/")
	return Endpoints{
		Refresh: base + refreshPath,
		Logout:  base + logoutPath,
		Google:  base + googlePath,
	}
}

// IsIdentityFlow reports whether u targets the Google login redirect or the
// refresh endpoint. Such requests never carry a bearer token and are never
// retried.
func (e Endpoints) IsIdentityFlow(u *url.URL) bool {
	if u == nil {
		return false
	}
	p := strings.TrimRight(u.Path, "/")
	google := pathOf(e.Google)
	return p == pathOf(e.Refresh) || p == google || strings.HasPrefix(p, google+"/")
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return strings.TrimRight(u.Path, "/")
}
