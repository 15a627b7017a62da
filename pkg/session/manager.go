package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/sessionmux/pkg/ports"
)

// Router picks the store serving a session key.
type Router interface {
	// Route returns the store for key. It never fails; an unknown key routes like a new one.
	Route(ctx context.Context, key string) ports.SessionStore
	// Store returns the store registered under name.
	Store(name string) (ports.SessionStore, bool)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager opens sessions through a Router and serializes operations on the same key.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	router Router

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	settings settings
}

// NewManager creates a new Session Manager routing through router.
func NewManager(router Router, opts ...Option) *Manager {
	return &Manager{
		router:   router,
		locks:    make(map[string]*lockEntry),
		settings: newSettings(opts),
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Open returns a session for key, pinned to the store the router picks.
// An empty key opens an unbound session.
func (m *Manager) Open(ctx context.Context, key string) *Session {
	return newSession(m.router.Route(ctx, key), key, m.settings)
}

// Restore rebuilds a session from a snapshot. The store is looked up by name;
// if it is gone the key is routed again.
func (m *Manager) Restore(ctx context.Context, snap Snapshot) *Session {
	store, ok := m.router.Store(snap.Store)
	if !ok {
		store = m.router.Route(ctx, snap.Key)
	}

	s := newSession(store, snap.Key, m.settings)
	s.expiry = snap.Expiry
	s.modified = snap.Modified
	if snap.Values != nil {
		s.values = snap.Values.Clone()
		s.loaded = true
	}
	return s
}

// Save persists s, holding the key's lock when s is bound.
func (m *Manager) Save(ctx context.Context, s *Session, mustCreate bool) error {
	if !s.Bound() {
		// Creation is atomic at the backend; there is nothing to lock yet.
		return s.Save(ctx, mustCreate)
	}
	return m.WithLock(ctx, s.Key(), func(ctx context.Context) error {
		return s.Save(ctx, mustCreate)
	})
}

// Delete removes the session's key under its lock.
func (m *Manager) Delete(ctx context.Context, s *Session) error {
	if !s.Bound() {
		return nil
	}
	return m.WithLock(ctx, s.Key(), func(ctx context.Context) error {
		s.Delete(ctx, "")
		return nil
	})
}

// Update opens key, runs fn and saves the session if fn modified it, all under the key's lock.
// A key that turns out to be absent or unreadable is created under a fresh key;
// the returned session reports which.
func (m *Manager) Update(ctx context.Context, key string, fn func(*Session) error) (*Session, error) {
	var s *Session
	update := func(ctx context.Context) error {
		s = m.Open(ctx, key)
		if err := fn(s); err != nil {
			return err
		}
		if !s.Modified() {
			return nil
		}
		return s.Save(ctx, false)
	}

	var err error
	if key == "" {
		err = update(ctx)
	} else {
		err = m.WithLock(ctx, key, update)
	}
	return s, err
}

// WithLock executes a function while holding the lock for the session key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	// Distributed Locking
	if m.settings.locker != nil {
		unlock, err := m.settings.locker.Lock(ctx, key, m.settings.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.settings.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
