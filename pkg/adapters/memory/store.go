package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/sessionmux/pkg/codec"
	"github.com/aretw0/sessionmux/pkg/domain"
)

// DefaultTTL is the expiry applied when none is configured.
const DefaultTTL = 14 * 24 * time.Hour

type entry struct {
	value    []byte
	deadline time.Time
}

// Store implements ports.SessionStore in memory.
// Payloads are kept encoded, so integrity checks run exactly as they would against a backend.
// Safe for concurrent use.
type Store struct {
	name  string
	codec *codec.Codec
	ttl   time.Duration
	now   func() time.Time

	mu   sync.RWMutex
	data map[string]entry
}

type Option func(*Store)

// WithTTL sets the default expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(name string, c *codec.Codec, opts ...Option) *Store {
	s := &Store{
		name:  name,
		codec: c,
		ttl:   DefaultTTL,
		now:   time.Now,
		data:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string       { return s.name }
func (s *Store) TTL() time.Duration { return s.ttl }

// live returns the entry if present and not expired. Callers hold mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok || !s.now().Before(e.deadline) {
		return entry{}, false
	}
	return e, true
}

// Exists reports whether key is stored and not expired.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live(key)
	return ok, nil
}

// Load retrieves and decodes the payload.
func (s *Store) Load(ctx context.Context, key string) (domain.Payload, error) {
	s.mu.RLock()
	e, ok := s.live(key)
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.codec.Decode(e.value)
}

// Save encodes and stores the payload. A non-positive ttl uses the store default.
func (s *Store) Save(ctx context.Context, key string, payload domain.Payload, ttl time.Duration, mustCreate bool) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	data, err := s.codec.Encode(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok && mustCreate {
		return domain.ErrAlreadyExists
	}
	s.data[key] = entry{value: data, deadline: s.now().Add(ttl)}
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the live session keys in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if _, ok := s.live(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Put stores raw bytes under key, bypassing the codec.
// Useful to simulate values written by other processes.
func (s *Store) Put(key string, raw []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: raw, deadline: s.now().Add(ttl)}
}
