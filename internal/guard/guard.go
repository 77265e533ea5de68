// Package guard decides where a navigation lands given only whether the
// user is authenticated.
package guard

import "strings"

// Routes known to the guard.
const (
	RouteScreensaver = "/"
	RouteLogin       = "/login"
	RouteHome        = "/home"
)

// Route describes one navigable location.
type Route struct {
	Path         string
	RequiresAuth bool
}

var routes = map[string]Route{
	RouteScreensaver: {Path: RouteScreensaver},
	RouteLogin:       {Path: RouteLogin},
	RouteHome:        {Path: RouteHome, RequiresAuth: true},
}

// Lookup returns the route for path. Unknown paths resolve to the screensaver.
func Lookup(path string) (Route, bool) {
	clean := "/" + strings.Trim(path, "/")
	r, ok := routes[clean]
	if !ok {
		return routes[RouteScreensaver], false
	}
	return r, true
}

// Decision is the outcome of a navigation.
type Decision struct {
	// Target is where navigation ends up.
	Target string
	// Redirected is set when Target differs from the requested path.
	Redirected bool
}

// Decide applies the navigation rules to a requested path.
func Decide(path string, authenticated bool) Decision {
	route, known := Lookup(path)
	switch {
	case !known:
		return Decision{Target: RouteScreensaver, Redirected: true}
	case route.RequiresAuth && !authenticated:
		return Decision{Target: RouteLogin, Redirected: true}
	case route.Path == RouteLogin && authenticated:
		return Decision{Target: RouteHome, Redirected: true}
	default:
		return Decision{Target: route.Path}
	}
}
