package devserver

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTokenIssuer("secret", time.Hour)
	raw, err := issuer.Issue("admin", "ADMIN")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other := newTokenIssuer("other", time.Hour)
	if _, err := other.Verify(raw); !errors.Is(err, errInvalidToken) {
		t.Fatalf("expected invalid token got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	t.Parallel()

	issuer := newTokenIssuer("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	issuer.now = func() time.Time { return issued }
	raw, err := issuer.Issue("admin", "ADMIN")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	issuer.now = time.Now
	if _, err := issuer.Verify(raw); !errors.Is(err, errExpiredToken) {
		t.Fatalf("expected expired token got %v", err)
	}
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		n    int
		want []string
	}{
		{"abcdef", 3, []string{"ab", "cd", "ef"}},
		{"abcdefg", 3, []string{"abc", "def", "g"}},
		{"电力服务", 2, []string{"电力", "服务"}},
		{"ab", 4, []string{"a", "b"}},
		{"whole", 1, []string{"whole"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, splitChunks(tc.text, tc.n)); diff != "" {
			t.Fatalf("splitChunks(%q, %d) mismatch (-want +got):\n%s", tc.text, tc.n, diff)
		}
	}
}
