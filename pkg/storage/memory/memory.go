// Package memory provides an in-memory IdentityStore for testing and
// lightweight deployments. All state is lost when the process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/storage"
)

// Store is an in-memory IdentityStore guarded by a single mutex.
type Store struct {
	mu         sync.RWMutex
	profiles   map[string]*api.Profile
	keysByUser map[string]string
	usersByKey map[string]string
	throttles  map[string]map[string]int // username -> category -> count
}

// Ensure Store implements storage.IdentityStore at compile time.
var _ storage.IdentityStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		profiles:   make(map[string]*api.Profile),
		keysByUser: make(map[string]string),
		usersByKey: make(map[string]string),
		throttles:  make(map[string]map[string]int),
	}
}

// FindProfileByUsername returns a copy of the stored profile.
func (s *Store) FindProfileByUsername(_ context.Context, username string) (*api.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyProfile(p), nil
}

// FindProfileByKey resolves the key owner and returns their profile.
func (s *Store) FindProfileByKey(_ context.Context, token string) (*api.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username, ok := s.usersByKey[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p, ok := s.profiles[username]
	if !ok {
		// Key outlived a deleted profile.
		return nil, storage.ErrNotFound
	}
	return copyProfile(p), nil
}

// InsertProfile creates a profile, failing with ErrConflict on duplicates.
func (s *Store) InsertProfile(_ context.Context, profile *api.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.Username]; exists {
		return storage.ErrConflict
	}
	s.profiles[profile.Username] = copyProfile(profile)
	return nil
}

// UpdateProfile replaces the stored profile for profile.Username.
func (s *Store) UpdateProfile(_ context.Context, profile *api.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.Username]; !exists {
		return storage.ErrNotFound
	}
	s.profiles[profile.Username] = copyProfile(profile)
	return nil
}

// DeleteProfile removes the profile. Key mappings are left untouched.
func (s *Store) DeleteProfile(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[username]; !exists {
		return storage.ErrNotFound
	}
	delete(s.profiles, username)
	return nil
}

// UpsertKey binds token to username, replacing any previous token.
func (s *Store) UpsertKey(_ context.Context, username, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.keysByUser[username]; ok {
		delete(s.usersByKey, old)
	}
	s.keysByUser[username] = token
	s.usersByKey[token] = username
	return nil
}

// KeyByUsername returns the live token for username.
func (s *Store) KeyByUsername(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.keysByUser[username]
	if !ok {
		return "", storage.ErrNotFound
	}
	return token, nil
}

// UsernameByKey returns the owner of token.
func (s *Store) UsernameByKey(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username, ok := s.usersByKey[token]
	if !ok {
		return "", storage.ErrNotFound
	}
	return username, nil
}

// DeleteKey removes the mapping for token. No-op when absent.
func (s *Store) DeleteKey(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.usersByKey[token]
	if !ok {
		return nil
	}
	delete(s.usersByKey, token)
	delete(s.keysByUser, username)
	return nil
}

// ThrottleCount returns the count for username and category, zero when absent.
func (s *Store) ThrottleCount(_ context.Context, username, category string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.throttles[username][category], nil
}

// IncrementThrottle adds one to the count, atomically under the store mutex.
func (s *Store) IncrementThrottle(_ context.Context, username, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, ok := s.throttles[username]
	if !ok {
		counts = make(map[string]int)
		s.throttles[username] = counts
	}
	counts[category]++
	return nil
}

// ClearThrottles resets all throttle counters.
func (s *Store) ClearThrottles(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.throttles = make(map[string]map[string]int)
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// copyProfile returns a deep copy so callers never share stored state.
func copyProfile(p *api.Profile) *api.Profile {
	cp := *p
	if p.Roles != nil {
		cp.Roles = append([]string(nil), p.Roles...)
	}
	return &cp
}
