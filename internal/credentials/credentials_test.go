package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/oremus-labs/ol-power-client/internal/store"
)

func TestSaveAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory())

	if s.IsAuthenticated(ctx) {
		t.Fatalf("fresh store should be unauthenticated")
	}
	want := Session{Token: "tok", Authenticated: true, Username: "alice", Role: "ADMIN"}
	if err := s.Save(ctx, Session{Token: "tok", Username: "alice", Role: "ADMIN"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Session(ctx)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second Clear should be a no-op: %v", err)
	}
	got, _ = s.Session(ctx)
	if diff := cmp.Diff(Session{}, got); diff != "" {
		t.Fatalf("expected empty session (-want +got):\n%s", diff)
	}
}

func TestSaveRequiresToken(t *testing.T) {
	t.Parallel()

	if err := New(store.NewMemory()).Save(context.Background(), Session{Username: "bob"}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestInvalidateRedirectsOncePerEpoch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory())
	if err := s.Save(ctx, Session{Token: "tok", Username: "alice"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, epoch, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	var firsts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := s.Invalidate(ctx, epoch)
			if err != nil {
				t.Errorf("Invalidate: %v", err)
			}
			if first {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	if firsts.Load() != 1 {
		t.Fatalf("expected exactly one first invalidation got %d", firsts.Load())
	}
	if s.IsAuthenticated(ctx) {
		t.Fatalf("expected credentials to be cleared")
	}

	// A later generation redirects again.
	_, next, _ := s.Snapshot(ctx)
	if next <= epoch {
		t.Fatalf("expected epoch to advance past %d got %d", epoch, next)
	}
	if first, _ := s.Invalidate(ctx, next); !first {
		t.Fatalf("expected new epoch to redirect")
	}
}

func TestStaleInvalidateKeepsNewerLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(store.NewMemory())
	if err := s.Save(ctx, Session{Token: "old", Username: "alice"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, stale, _ := s.Snapshot(ctx)
	if err := s.Save(ctx, Session{Token: "new", Username: "alice"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, err := s.Invalidate(ctx, stale)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if first {
		t.Fatalf("a 401 for a replaced credential should not redirect")
	}
	if token, _ := s.Token(ctx); token != "new" {
		t.Fatalf("expected newer login to survive, got token %q", token)
	}

	_, current, _ := s.Snapshot(ctx)
	if first, _ := s.Invalidate(ctx, current); !first {
		t.Fatalf("expected current epoch to redirect")
	}
	if s.IsAuthenticated(ctx) {
		t.Fatalf("expected current credential to be cleared")
	}
}

type failingKV struct {
	*store.Memory
	failKey string
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Memory.Set(ctx, key, value)
}

func TestSaveRollsBackPartialWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := &failingKV{Memory: store.NewMemory(), failKey: KeyUsername}
	s := New(kv)
	if err := s.Save(ctx, Session{Token: "tok", Username: "alice"}); err == nil {
		t.Fatalf("expected save failure")
	}
	for _, key := range Keys {
		if _, ok, _ := kv.Get(ctx, key); ok {
			t.Fatalf("key %s should have been rolled back", key)
		}
	}
}

func TestFileBackedStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := store.Config{Driver: store.DriverFile, DSN: filepath.Join(t.TempDir(), "creds.yaml")}
	s, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(ctx, Session{Token: "tok", Username: "alice", Role: "USER"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = s.Close()

	reopened, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if tok, _ := reopened.Token(ctx); tok != "tok" {
		t.Fatalf("expected persisted token got %q", tok)
	}
	if !reopened.IsAuthenticated(ctx) {
		t.Fatalf("expected persisted authenticated flag")
	}
}
