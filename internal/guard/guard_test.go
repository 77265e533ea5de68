package guard

import "testing"

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		path   string
		authed bool
		want   Decision
	}{
		{"home anonymous", "/home", false, Decision{Target: RouteLogin, Redirected: true}},
		{"home authed", "/home", true, Decision{Target: RouteHome}},
		{"login anonymous", "/login", false, Decision{Target: RouteLogin}},
		{"login authed", "/login", true, Decision{Target: RouteHome, Redirected: true}},
		{"screensaver", "/", false, Decision{Target: RouteScreensaver}},
		{"trailing slash", "/home/", true, Decision{Target: RouteHome}},
		{"unknown", "/admin/panel", true, Decision{Target: RouteScreensaver, Redirected: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Decide(tc.path, tc.authed); got != tc.want {
				t.Fatalf("Decide(%q, %v) = %+v, want %+v", tc.path, tc.authed, got, tc.want)
			}
		})
	}
}
