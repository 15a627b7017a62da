package sessionmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/internal/metrics"
	"github.com/aretw0/sessionmux/pkg/adapters/redis"
	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/codec"
	"github.com/aretw0/sessionmux/pkg/config"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/migration"
	"github.com/aretw0/sessionmux/pkg/persistence/middleware"
	"github.com/aretw0/sessionmux/pkg/ports"
	"github.com/aretw0/sessionmux/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

// LockPrefix namespaces distributed session locks.
const LockPrefix = "sessionmux:"

// Version is set at build time with -ldflags "-X github.com/aretw0/sessionmux.Version=...".
var Version = "dev"

// Mux is the high-level entry point: it wires the stores, the migration coordinator and
// the session manager described by a Config.
type Mux struct {
	cfg         *config.Config
	cache       *backend.Cache
	codec       *codec.Codec
	stores      []*redis.Store
	coordinator *migration.Coordinator
	manager     *session.Manager
	stateStore  ports.MigrationStateStore

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option defines a functional option for configuring the Mux.
type Option func(*Mux)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mux) {
		m.logger = logger
	}
}

// WithRegisterer registers the Prometheus collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Mux) {
		m.metrics = metrics.New(reg)
	}
}

// New validates cfg and builds every component. No backend is contacted except the
// migration state backend, if one is configured, to load the shared state.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Mux, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Mux{
		cfg:     cfg,
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	serializer, err := codec.SerializerByName(cfg.Session.Serializer)
	if err != nil {
		return nil, err
	}
	fallbacks := make([][]byte, 0, len(cfg.Session.FallbackSecrets))
	for _, s := range cfg.Session.FallbackSecrets {
		fallbacks = append(fallbacks, []byte(s))
	}
	m.codec, err = codec.New([]byte(cfg.Session.Secret),
		codec.WithSerializer(serializer),
		codec.WithFallbackSecrets(fallbacks...),
	)
	if err != nil {
		return nil, err
	}

	m.cache = backend.NewCache(backend.WithLogger(m.logger), backend.WithMetrics(m.metrics))

	wrap, err := storeMiddleware(cfg.Session)
	if err != nil {
		return nil, err
	}

	cur, err := m.buildStore(config.DefaultStoreName, cfg.Stores.Default)
	if err != nil {
		return nil, err
	}
	current := middleware.Chain(cur, wrap...)

	var alternative ports.SessionStore
	if cfg.Stores.Alternative != nil {
		alt, err := m.buildStore(config.AlternativeStoreName, *cfg.Stores.Alternative)
		if err != nil {
			return nil, err
		}
		alternative = middleware.Chain(alt, wrap...)
	}

	coordOpts := []migration.Option{
		migration.WithMigrationMode(cfg.Migration.Mode),
		migration.WithDropOriginal(cfg.Migration.DropOriginalStore),
		migration.WithLogger(m.logger),
		migration.WithMetrics(m.metrics),
	}
	if cfg.Migration.StateBackend != nil {
		client, err := m.singleClient("migration-state", *cfg.Migration.StateBackend)
		if err != nil {
			return nil, err
		}
		m.stateStore = redis.NewStateStore(client, cfg.Migration.StateKey)
		coordOpts = append(coordOpts, migration.WithStateStore(m.stateStore))
	}

	m.coordinator, err = migration.New(current, alternative, coordOpts...)
	if err != nil {
		return nil, err
	}
	if err := m.coordinator.Sync(ctx); err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			return nil, err
		}
		m.logger.Warn("Could not load the shared migration state, using local settings", "err", err)
	}

	sessionOpts := []session.Option{
		session.WithMaxCreateAttempts(cfg.Session.MaxCreateAttempts),
		session.WithLogger(m.logger),
		session.WithMetrics(m.metrics),
	}
	if cfg.Session.DistributedLocking {
		lockCfg := cfg.Stores.Default
		if cfg.Migration.StateBackend != nil {
			lockCfg = *cfg.Migration.StateBackend
		}
		client, err := m.singleClient("locks", lockCfg)
		if err != nil {
			return nil, err
		}
		sessionOpts = append(sessionOpts, session.WithLocker(redis.NewLocker(client, LockPrefix)))
	}
	m.manager = session.NewManager(m.coordinator, sessionOpts...)

	return m, nil
}

// storeMiddleware returns the payload transformations every store gets.
func storeMiddleware(sc config.SessionConfig) ([]middleware.Middleware, error) {
	keys, err := sc.EncryptionKeys()
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:       keys[0],
		FallbackKeys:    keys[1:],
		AcceptPlaintext: sc.AcceptPlaintext,
	})
	if err != nil {
		return nil, err
	}
	return []middleware.Middleware{enc}, nil
}

func (m *Mux) buildStore(name string, sc config.StoreConfig) (*redis.Store, error) {
	topo, err := sc.Topology(name)
	if err != nil {
		return nil, err
	}
	opts := []redis.Option{
		redis.WithTTL(m.cfg.Session.TTL),
		redis.WithPrefix(sc.Prefix),
		redis.WithLogger(m.logger),
		redis.WithMetrics(m.metrics),
	}
	if sc.LegacyExpire {
		opts = append(opts, redis.WithLegacyExpire())
	}
	store, err := redis.New(topo, m.cache, m.codec, opts...)
	if err != nil {
		return nil, err
	}
	m.stores = append(m.stores, store)
	return store, nil
}

// singleClient returns the client of a store's first location. Pools pin their first shard,
// so every process agrees on where locks and state live.
func (m *Mux) singleClient(name string, sc config.StoreConfig) (*goredis.Client, error) {
	topo, err := sc.Topology(name)
	if err != nil {
		return nil, err
	}
	return m.cache.Client(topo.Locations()[0])
}

// Open returns the session for key. An empty key opens a new, unbound session.
func (m *Mux) Open(ctx context.Context, key string) *session.Session {
	return m.manager.Open(ctx, key)
}

// Restore rebuilds a session from a snapshot.
func (m *Mux) Restore(ctx context.Context, snap session.Snapshot) *session.Session {
	return m.manager.Restore(ctx, snap)
}

// Update runs fn on the session for key under its lock and saves it if modified.
func (m *Mux) Update(ctx context.Context, key string, fn func(*session.Session) error) (*session.Session, error) {
	return m.manager.Update(ctx, key, fn)
}

// Coordinator returns the migration coordinator.
func (m *Mux) Coordinator() *migration.Coordinator { return m.coordinator }

// Manager returns the session manager.
func (m *Mux) Manager() *session.Manager { return m.manager }

// Stores returns the configured stores, default first.
func (m *Mux) Stores() []*redis.Store {
	return append([]*redis.Store(nil), m.stores...)
}

// SessionStore returns a store by name as sessions see it, payload encryption included.
func (m *Mux) SessionStore(name string) (ports.SessionStore, bool) {
	return m.coordinator.Store(name)
}

// Store returns the Redis store by name. It reads and writes payloads as stored.
func (m *Mux) Store(name string) (*redis.Store, bool) {
	for _, s := range m.stores {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Codec returns the payload codec shared by the stores.
func (m *Mux) Codec() *codec.Codec { return m.codec }

// Watch keeps the migration state in sync with the shared state backend until ctx is
// done. Without a state backend it only waits for ctx.
func (m *Mux) Watch(ctx context.Context) error {
	if m.stateStore == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.coordinator.Watch(ctx, m.cfg.Migration.SyncInterval)
}

// Close releases every backend connection.
func (m *Mux) Close() error {
	if err := m.cache.Close(); err != nil {
		return fmt.Errorf("failed to close backend connections: %w", err)
	}
	return nil
}
