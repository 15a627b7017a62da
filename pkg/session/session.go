package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/ports"
)

// Session is one session bound to a store. An empty key means the session is unbound:
// it has never been persisted, and the next Save creates it under a fresh key.
//
// A Session is not safe for concurrent use; Manager.Update serializes access per key.
type Session struct {
	store ports.SessionStore
	key   string

	values   domain.Payload
	loaded   bool
	modified bool
	expiry   time.Duration

	settings settings
}

// Snapshot is the transportable form of a Session. It never carries a connection.
type Snapshot struct {
	Key      string         `json:"key,omitempty"`
	Store    string         `json:"store"`
	Values   domain.Payload `json:"values,omitempty"`
	Expiry   time.Duration  `json:"expiry,omitempty"`
	Modified bool           `json:"modified,omitempty"`
}

// New creates a session on store. An empty key yields an unbound session.
func New(store ports.SessionStore, key string, opts ...Option) *Session {
	return newSession(store, key, newSettings(opts))
}

func newSession(store ports.SessionStore, key string, st settings) *Session {
	return &Session{store: store, key: key, settings: st}
}

// Key returns the bound key, or "" when unbound.
func (s *Session) Key() string { return s.key }

// Bound reports whether the session has a key.
func (s *Session) Bound() bool { return s.key != "" }

// Store returns the store the session is pinned to.
func (s *Session) Store() ports.SessionStore { return s.store }

// Modified reports whether values changed since the session was loaded.
func (s *Session) Modified() bool { return s.modified }

// SetExpiry overrides the store TTL for the next saves. Zero restores the default.
func (s *Session) SetExpiry(d time.Duration) {
	s.expiry = d
	s.modified = true
}

// Expiry returns the TTL that Save will apply.
func (s *Session) Expiry() time.Duration {
	if s.expiry > 0 {
		return s.expiry
	}
	return s.store.TTL()
}

// load fetches the payload once. Read failures of any kind yield an empty session
// and unbind the key, so the caller sees a fresh anonymous session.
func (s *Session) load(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = domain.Payload{}
	if s.key == "" {
		return
	}

	payload, err := s.store.Load(ctx, s.key)
	if err == nil {
		s.values = payload
		return
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		s.settings.logger.Warn("Session load failed, starting empty",
			"store", s.store.Name(),
			"err", err,
		)
	}
	s.key = ""
}

// Values returns a copy of the session payload, loading it if needed.
func (s *Session) Values(ctx context.Context) domain.Payload {
	s.load(ctx)
	return s.values.Clone()
}

// Get returns one value.
func (s *Session) Get(ctx context.Context, name string) (any, bool) {
	s.load(ctx)
	v, ok := s.values[name]
	return v, ok
}

// Set stores one value and marks the session modified.
func (s *Session) Set(ctx context.Context, name string, value any) {
	s.load(ctx)
	s.values[name] = value
	s.modified = true
}

// Remove deletes one value.
func (s *Session) Remove(ctx context.Context, name string) {
	s.load(ctx)
	if _, ok := s.values[name]; ok {
		delete(s.values, name)
		s.modified = true
	}
}

// Exists reports whether key is stored in the session's store.
// Backend failures count as absent.
func (s *Session) Exists(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		s.settings.logger.Warn("Session exists check failed, assuming absent",
			"store", s.store.Name(),
			"err", err,
		)
		return false
	}
	return ok
}

// Save persists the session. An unbound session is created under a fresh key.
// With mustCreate, the session is written under its own key without loading it first,
// and an existing key yields domain.ErrAlreadyExists.
// Backend failures are returned.
func (s *Session) Save(ctx context.Context, mustCreate bool) error {
	if s.key == "" {
		return s.Create(ctx)
	}
	if mustCreate {
		values := s.values
		if !s.loaded {
			values = domain.Payload{}
		}
		if err := s.store.Save(ctx, s.key, values, s.Expiry(), true); err != nil {
			return err
		}
		s.values, s.loaded = values, true
		return nil
	}
	s.load(ctx)
	if s.key == "" {
		// The load failed and unbound us.
		return s.Create(ctx)
	}
	return s.store.Save(ctx, s.key, s.values, s.Expiry(), mustCreate)
}

// Create binds the session to a new key, retrying on collisions up to the configured
// number of attempts before returning domain.ErrKeyspaceExhausted.
func (s *Session) Create(ctx context.Context) error {
	s.load(ctx)

	for attempt := 1; attempt <= s.settings.maxAttempts; attempt++ {
		key, err := s.settings.keygen()
		if err != nil {
			return fmt.Errorf("failed to generate session key: %w", err)
		}

		err = s.store.Save(ctx, key, s.values, s.Expiry(), true)
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.settings.metrics.CreateCollisions.Inc()
			s.settings.logger.Debug("Session key collision, regenerating",
				"store", s.store.Name(),
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return err
		}

		s.key = key
		s.modified = true
		return nil
	}

	s.settings.metrics.KeyspaceExhausted.Inc()
	return fmt.Errorf("%w: %d attempts on store %q", domain.ErrKeyspaceExhausted, s.settings.maxAttempts, s.store.Name())
}

// Delete removes key from the store, or the session's own key when key is "".
// Backend errors are logged and swallowed. Deleting the own key unbinds the session.
func (s *Session) Delete(ctx context.Context, key string) {
	own := key == "" || key == s.key
	if key == "" {
		key = s.key
	}
	if key == "" {
		return
	}

	if err := s.store.Delete(ctx, key); err != nil {
		s.settings.logger.Warn("Session delete failed",
			"store", s.store.Name(),
			"err", err,
		)
	}

	if own {
		s.key = ""
		s.values = domain.Payload{}
		s.loaded = true
		s.modified = false
	}
}

// Snapshot captures the session for transport. Values are included only once loaded.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Key:      s.key,
		Store:    s.store.Name(),
		Expiry:   s.expiry,
		Modified: s.modified,
	}
	if s.loaded {
		snap.Values = s.values.Clone()
	}
	return snap
}
