package nav

import (
	"context"
	"errors"
	"fmt"
)

// Route describes one view of the admin client.
type Route struct {
	Path      string
	Title     string
	Protected bool
	// Resource is the API list endpoint the view loads on entry, if any.
	Resource string
	// RedirectTo sends navigation elsewhere without rendering.
	RedirectTo string
}

// Routes is the application route table.
var Routes = []Route{
	{Path: PathLogin, Title: "Login"},
	{Path: PathCallback, Title: "Signing in with Google"},
	{Path: PathRoot, Protected: true, RedirectTo: PathHome},
	{Path: PathHome, Title: "Inicio", Protected: true},
	{Path: "/Usuarios", Title: "Usuarios", Protected: true, Resource: "/api/usuarios/index"},
	{Path: "/Cotizaciones", Title: "Cotizaciones", Protected: true, Resource: "/api/cotizaciones/index"},
	{Path: "/Ordenes", Title: "Ordenes", Protected: true, Resource: "/api/ordenes/index"},
	{Path: "/Facturas", Title: "Facturas", Protected: true, Resource: "/api/facturas/index"},
	{Path: "/Inventario", Title: "Inventario", Protected: true, Resource: "/api/articulos/index"},
}

// ErrRedirectLoop is returned when redirects do not settle.
var ErrRedirectLoop = errors.New("too many redirects")

const maxRedirects = 8

// Lookup finds the route for path. Unknown paths fall back to the root
// redirect, which mirrors the catch-all entry of the route table.
func Lookup(path string) Route {
	for _, r := range Routes {
		if r.Path == path {
			return r
		}
	}
	return Route{Path: path, RedirectTo: PathRoot}
}

// Guard decides whether a protected navigation may proceed.
type Guard interface {
	Evaluate(ctx context.Context, requested Target) Decision
}

// Session is the read side of the session the router needs for the login
// view rule.
type Session interface {
	IsAuthenticated() bool
}

// Router resolves paths against the route table, runs the guard on
// protected views and records the landing entry.
type Router struct {
	guard   Guard
	session Session
	nav     Navigator
}

// NewRouter creates a router.
func NewRouter(guard Guard, session Session, navigator Navigator) *Router {
	return &Router{guard: guard, session: session, nav: navigator}
}

// Go navigates to raw and returns the route that was finally rendered
// together with the target it was rendered for.
func (r *Router) Go(ctx context.Context, raw string) (Route, Target, error) {
	t, err := Parse(raw)
	if err != nil {
		return Route{}, Target{}, fmt.Errorf("invalid path %q: %w", raw, err)
	}

	for range maxRedirects {
		route := Lookup(t.Path)

		if route.RedirectTo != "" {
			t = Target{Path: route.RedirectTo}
			continue
		}

		if route.Protected {
			if d := r.guard.Evaluate(ctx, t); !d.Allowed() {
				t = *d.Redirect
				continue
			}
		}

		// The login view bounces users that already hold a session.
		if route.Path == PathLogin && r.session.IsAuthenticated() {
			t = Target{Path: PathHome}
			continue
		}

		r.nav.Navigate(t)
		return route, t, nil
	}

	return Route{}, Target{}, fmt.Errorf("%w: last target %s", ErrRedirectLoop, t)
}
