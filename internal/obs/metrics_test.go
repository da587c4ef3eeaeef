package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/auth/login":               "/auth/login",
		"/auth/users":               "/auth/users",
		"/auth/users/01ABCDEF":      "/auth/users/:id",
		"/auth/users/01ABCDEF/more": "/auth/users/01ABCDEF/more",
		"/auth/users/abc?limit=10":  "/auth/users/:id",
		"/auth/me":                  "/auth/me",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
