// Package credentials owns the session credential: the bearer token plus the
// authenticated flag, username and role kept alongside it. It is the only
// component that writes those keys.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oremus-labs/ol-power-client/internal/store"
)

// Storage keys. They match what the browser client kept in localStorage so
// a shared backend stays readable by both.
const (
	KeyToken     = "token"
	KeyLoggedIn  = "isLoggedIn"
	KeyUsername  = "username"
	KeyRole      = "userRole"
	loggedInTrue = "true"
)

// Keys lists every key a teardown removes.
var Keys = []string{KeyToken, KeyLoggedIn, KeyUsername, KeyRole}

// Session is a point-in-time copy of the stored credential.
type Session struct {
	Token         string `json:"token,omitempty"`
	Authenticated bool   `json:"isLoggedIn"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"userRole,omitempty"`
}

// Provider is the capability the request pipeline and stream consumer need.
type Provider interface {
	// Snapshot reads the credential and the epoch it belongs to.
	Snapshot(ctx context.Context) (Session, uint64, error)
	// Invalidate removes every key. It reports true for the first call made
	// on behalf of a given epoch, which is the call that should redirect.
	// An epoch older than the last Save leaves the newer credential alone.
	Invalidate(ctx context.Context, epoch uint64) (bool, error)
}

// Store layers the session contract over a key-value backend.
type Store struct {
	kv store.KV

	mu              sync.Mutex
	epoch           uint64
	lastInvalidated uint64
	// savedEpoch is the epoch started by the last successful Save.
	savedEpoch uint64
}

var _ Provider = (*Store)(nil)

// New wraps kv. The Store takes ownership and closes kv on Close.
func New(kv store.KV) *Store {
	return &Store{kv: kv, epoch: 1}
}

// Open builds the configured backend and wraps it.
func Open(ctx context.Context, cfg store.Config) (*Store, error) {
	kv, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return New(kv), nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil || s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

// Epoch returns the current credential generation.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Store) Snapshot(ctx context.Context) (Session, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.read(ctx)
	return sess, s.epoch, err
}

// Session returns the stored credential.
func (s *Store) Session(ctx context.Context) (Session, error) {
	sess, _, err := s.Snapshot(ctx)
	return sess, err
}

// Token returns the bearer token, empty when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	sess, err := s.Session(ctx)
	return sess.Token, err
}

// IsAuthenticated reports the flag consumed by the navigation guard.
// Read failures count as unauthenticated.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	sess, err := s.Session(ctx)
	return err == nil && sess.Authenticated
}

// Save writes every field and starts a new epoch. A partial write is rolled
// back so the four keys never disagree.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return errors.New("credentials: token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values := map[string]string{
		KeyToken:    sess.Token,
		KeyLoggedIn: loggedInTrue,
		KeyUsername: sess.Username,
		KeyRole:     sess.Role,
	}
	for _, key := range Keys {
		if err := s.kv.Set(ctx, key, values[key]); err != nil {
			_ = s.clear(ctx)
			s.epoch++
			return fmt.Errorf("save credential %s: %w", key, err)
		}
	}
	s.epoch++
	s.savedEpoch = s.epoch
	return nil
}

// Clear removes every key. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.clear(ctx)
	s.epoch++
	return err
}

func (s *Store) Invalidate(ctx context.Context, epoch uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch < s.savedEpoch {
		return false, nil
	}
	err := s.clear(ctx)
	first := epoch > s.lastInvalidated
	if first {
		s.lastInvalidated = epoch
		if s.epoch <= epoch {
			s.epoch = epoch + 1
		}
	}
	return first, err
}

func (s *Store) read(ctx context.Context) (Session, error) {
	var sess Session
	token, _, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return Session{}, err
	}
	flag, _, err := s.kv.Get(ctx, KeyLoggedIn)
	if err != nil {
		return Session{}, err
	}
	username, _, err := s.kv.Get(ctx, KeyUsername)
	if err != nil {
		return Session{}, err
	}
	role, _, err := s.kv.Get(ctx, KeyRole)
	if err != nil {
		return Session{}, err
	}
	sess.Token = token
	sess.Authenticated = flag == loggedInTrue
	sess.Username = username
	sess.Role = role
	return sess, nil
}

func (s *Store) clear(ctx context.Context) error {
	var errs []error
	for _, key := range Keys {
		if err := s.kv.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
