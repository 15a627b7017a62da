package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/internal/metrics"
	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/codec"
	"github.com/aretw0/sessionmux/pkg/domain"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultTTL matches a two-week session cookie.
const DefaultTTL = 14 * 24 * time.Hour

// Store implements ports.SessionStore on top of a (possibly sharded) Redis topology.
type Store struct {
	topology     *backend.Topology
	cache        *backend.Cache
	codec        *codec.Codec
	prefix       string
	ttl          time.Duration
	legacyExpire bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Store)

// WithTTL sets the default expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Keys are stored as "<prefix>:<key>", or bare when empty.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLegacyExpire writes with SET followed by EXPIRE instead of SETEX,
// for backends that lack atomic set-with-expiry.
func WithLegacyExpire() Option {
	return func(s *Store) {
		s.legacyExpire = true
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics configures the collectors the Store reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a Redis store. The topology name becomes the store name.
func New(topology *backend.Topology, cache *backend.Cache, c *codec.Codec, opts ...Option) (*Store, error) {
	store := &Store{
		topology: topology,
		cache:    cache,
		codec:    c,
		ttl:      DefaultTTL,
		logger:   logging.NewNop(),
		metrics:  metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	if store.ttl <= 0 {
		return nil, fmt.Errorf("%w: store %q: ttl must be positive", domain.ErrConfiguration, topology.Name())
	}
	return store, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.topology.Name()
}

// TTL returns the default expiry.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Key returns the real key name in Redis for a session key.
func (s *Store) Key(sessionKey string) string {
	if s.prefix == "" {
		return sessionKey
	}
	return s.prefix + ":" + sessionKey
}

// Locate returns where a session key routes to. It performs no I/O.
func (s *Store) Locate(sessionKey string) (backend.Location, error) {
	return s.topology.Resolve(sessionKey)
}

// Locations lists every location the store can route to.
func (s *Store) Locations() []backend.Location {
	return s.topology.Locations()
}

func (s *Store) client(sessionKey string) (*goredis.Client, error) {
	loc, err := s.topology.Resolve(sessionKey)
	if err != nil {
		return nil, err
	}
	return s.cache.Client(loc)
}

// Exists reports whether the session key is stored.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	defer s.observe("exists", time.Now())

	client, err := s.client(key)
	if err != nil {
		return false, err
	}
	n, err := client.Exists(ctx, s.Key(key)).Result()
	if err != nil {
		return false, s.unavailable("exists", err)
	}
	return n > 0, nil
}

// Load retrieves the payload from Redis.
func (s *Store) Load(ctx context.Context, key string) (domain.Payload, error) {
	defer s.observe("load", time.Now())

	client, err := s.client(key)
	if err != nil {
		return nil, err
	}
	data, err := client.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, s.unavailable("load", err)
	}

	payload, err := s.codec.Decode(data)
	if err != nil {
		s.metrics.CorruptPayloads.WithLabelValues(s.Name()).Inc()
		return nil, err
	}
	return payload, nil
}

// Save persists the payload with an expiry. A non-positive ttl uses the store default.
func (s *Store) Save(ctx context.Context, key string, payload domain.Payload, ttl time.Duration, mustCreate bool) error {
	defer s.observe("save", time.Now())

	if ttl <= 0 {
		ttl = s.ttl
	}
	data, err := s.codec.Encode(payload)
	if err != nil {
		return err
	}
	client, err := s.client(key)
	if err != nil {
		return err
	}
	rkey := s.Key(key)

	switch {
	case mustCreate && s.legacyExpire:
		created, err := client.SetNX(ctx, rkey, data, 0).Result()
		if err != nil {
			return s.unavailable("save", err)
		}
		if !created {
			return domain.ErrAlreadyExists
		}
		if err := client.Expire(ctx, rkey, ttl).Err(); err != nil {
			return s.unavailable("save", err)
		}

	case mustCreate:
		// SET NX EX: existence check and write in one command.
		created, err := client.SetNX(ctx, rkey, data, ttl).Result()
		if err != nil {
			return s.unavailable("save", err)
		}
		if !created {
			return domain.ErrAlreadyExists
		}

	case s.legacyExpire:
		_, err := client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, rkey, data, 0)
			pipe.Expire(ctx, rkey, ttl)
			return nil
		})
		if err != nil {
			return s.unavailable("save", err)
		}

	default:
		if err := client.SetEx(ctx, rkey, data, ttl).Err(); err != nil {
			return s.unavailable("save", err)
		}
	}
	return nil
}

// Delete removes the session key.
func (s *Store) Delete(ctx context.Context, key string) error {
	defer s.observe("delete", time.Now())

	client, err := s.client(key)
	if err != nil {
		return err
	}
	if err := client.Del(ctx, s.Key(key)).Err(); err != nil {
		return s.unavailable("delete", err)
	}
	return nil
}

func (s *Store) unavailable(op string, err error) error {
	s.metrics.BackendErrors.WithLabelValues(s.Name(), op).Inc()
	return fmt.Errorf("%w: %s on store %q: %w", domain.ErrBackendUnavailable, op, s.Name(), err)
}

func (s *Store) observe(op string, start time.Time) {
	s.metrics.BackendLatency.WithLabelValues(s.Name(), op).Observe(time.Since(start).Seconds())
}
