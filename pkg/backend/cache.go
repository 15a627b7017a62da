package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/internal/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	goredis "github.com/redis/go-redis/v9"
)

// Connector builds a client for a connection variant.
type Connector func(Conn) (*goredis.Client, error)

// Cache memoizes one live client per connection identity.
// Entries are never evicted; Close tears everything down at process exit.
// Safe for concurrent use: a given identity is built at most once.
type Cache struct {
	clients *xsync.MapOf[string, *goredis.Client]
	connect Connector
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithConnector replaces Connect, mostly for tests.
func WithConnector(fn Connector) CacheOption {
	return func(c *Cache) {
		c.connect = fn
	}
}

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics configures the collectors the Cache reports to.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// NewCache creates an empty connection cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		clients: xsync.NewMapOf[string, *goredis.Client](),
		connect: Connect,
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the client for loc, building it on first use.
func (c *Cache) Client(loc Location) (*goredis.Client, error) {
	if client, ok := c.clients.Load(loc.Identity); ok {
		return client, nil
	}

	var buildErr error
	client, _ := c.clients.Compute(loc.Identity, func(old *goredis.Client, loaded bool) (*goredis.Client, bool) {
		if loaded {
			return old, false
		}
		built, err := c.connect(loc.Conn)
		if err != nil {
			buildErr = err
			return nil, true // nothing stored
		}
		c.metrics.ConnectionsBuilt.WithLabelValues(string(loc.Conn.Kind())).Inc()
		c.logger.Debug("Backend client built", "identity", loc.Identity, "kind", loc.Conn.Kind())
		return built, false
	})
	if buildErr != nil {
		return nil, fmt.Errorf("connect %s: %w", loc.Identity, buildErr)
	}
	return client, nil
}

// Len returns the number of cached clients.
func (c *Cache) Len() int {
	return c.clients.Size()
}

// Close closes every cached client and empties the cache.
func (c *Cache) Close() error {
	var errs []error
	c.clients.Range(func(id string, client *goredis.Client) bool {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
		return true
	})
	c.clients.Clear()
	return errors.Join(errs...)
}
