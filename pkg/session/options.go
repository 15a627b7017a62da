package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/internal/metrics"
	"github.com/aretw0/sessionmux/pkg/ports"
)

// DefaultMaxCreateAttempts bounds the create loop.
const DefaultMaxCreateAttempts = 16

// DefaultLockTTL is how long a distributed lock lives if its holder dies.
const DefaultLockTTL = 30 * time.Second

type settings struct {
	keygen      KeyGenerator
	maxAttempts int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	locker      ports.DistributedLocker
	lockTTL     time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		keygen:      RandomKey,
		maxAttempts: DefaultMaxCreateAttempts,
		logger:      logging.NewNop(),
		metrics:     metrics.NewNop(),
		lockTTL:     DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	return s
}

// Option configures sessions and the Manager.
type Option func(*settings)

// WithKeyGenerator replaces RandomKey.
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(s *settings) {
		s.keygen = gen
	}
}

// WithMaxCreateAttempts bounds how many keys Create tries before giving up.
func WithMaxCreateAttempts(n int) Option {
	return func(s *settings) {
		s.maxAttempts = n
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics configures the collectors to report to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithLocker enables distributed locking in the Manager.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *settings) {
		s.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.lockTTL = ttl
	}
}
