package config

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aretw0/sessionmux/internal/logging"
	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/codec"
	"github.com/aretw0/sessionmux/pkg/domain"
)

// Store names used for the two configured stores.
const (
	DefaultStoreName     = "default"
	AlternativeStoreName = "alternative"
)

// Validate reports every structural problem at once. Each one wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrConfiguration}, args...)...))
	}

	// Session
	if c.Session.Secret == "" {
		fail("session.secret is required")
	}
	if c.Session.TTL <= 0 {
		fail("session.ttl must be positive")
	}
	if c.Session.MaxCreateAttempts < 1 {
		fail("session.max_create_attempts must be at least 1")
	}
	if _, err := codec.SerializerByName(c.Session.Serializer); err != nil {
		fail("session.serializer: %v", err)
	}

	if c.Session.EncryptionKey != "" {
		if _, err := c.Session.EncryptionKeys(); err != nil {
			errs = append(errs, err)
		}
	} else if len(c.Session.FallbackEncryptionKeys) > 0 {
		fail("session.fallback_encryption_keys need session.encryption_key")
	}

	// Stores
	if _, err := c.Stores.Default.Topology(DefaultStoreName); err != nil {
		errs = append(errs, fmt.Errorf("stores.default: %w", err))
	}
	if c.Stores.Alternative != nil {
		if _, err := c.Stores.Alternative.Topology(AlternativeStoreName); err != nil {
			errs = append(errs, fmt.Errorf("stores.alternative: %w", err))
		}
	}

	// Migration
	if c.Stores.Alternative == nil && (c.Migration.Mode || c.Migration.DropOriginalStore) {
		fail("migration toggles need stores.alternative")
	}
	if c.Migration.StateBackend != nil {
		if len(c.Migration.StateBackend.Pool) > 0 {
			fail("migration.state_backend must be a single endpoint, not a pool")
		}
		if _, err := c.Migration.StateBackend.Topology("migration-state"); err != nil {
			errs = append(errs, fmt.Errorf("migration.state_backend: %w", err))
		}
		if c.Migration.SyncInterval <= 0 {
			fail("migration.sync_interval must be positive")
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		fail("log.level: %v", err)
	}

	return errors.Join(errs...)
}

// Topology validates the store plan and builds its topology.
func (s StoreConfig) Topology(name string) (*backend.Topology, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	return backend.NewTopology(name, plan)
}

// EncryptionKeys decodes the active and fallback encryption keys.
// It returns nil when encryption is off.
func (s SessionConfig) EncryptionKeys() ([][]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	raw := append([]string{s.EncryptionKey}, s.FallbackEncryptionKeys...)
	keys := make([][]byte, 0, len(raw))
	for i, k := range raw {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("%w: session encryption key %d must be 32 bytes in base64", domain.ErrConfiguration, i)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
