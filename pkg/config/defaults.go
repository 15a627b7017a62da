package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTTL               = 14 * 24 * time.Hour
	DefaultSerializer        = "json"
	DefaultMaxCreateAttempts = 16
	DefaultSocketTimeout     = 100 * time.Millisecond
	DefaultStateKey          = "sessionmux:migration"
	DefaultSyncInterval      = 5 * time.Second
	DefaultAdminAddr         = ":9100"
	DefaultLogLevel          = "info"
)

// Default returns the configuration used before any source is applied.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			TTL:               DefaultTTL,
			Serializer:        DefaultSerializer,
			MaxCreateAttempts: DefaultMaxCreateAttempts,
		},
		Stores: StoresConfig{
			Default: StoreConfig{SocketTimeout: DefaultSocketTimeout},
		},
		Migration: MigrationConfig{
			StateKey:     DefaultStateKey,
			SyncInterval: DefaultSyncInterval,
		},
		Admin: AdminConfig{Addr: DefaultAdminAddr},
		Log:   LogConfig{Level: DefaultLogLevel},
	}
}

// setDefaults registers every scalar key so environment variables can override it.
func setDefaults(v *viper.Viper) {
	// Session
	v.SetDefault("session.ttl", DefaultTTL)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.serializer", DefaultSerializer)
	v.SetDefault("session.max_create_attempts", DefaultMaxCreateAttempts)
	v.SetDefault("session.distributed_locking", false)
	v.SetDefault("session.encryption_key", "")
	v.SetDefault("session.accept_plaintext", false)

	// Default store
	v.SetDefault("stores.default.host", "")
	v.SetDefault("stores.default.port", 0)
	v.SetDefault("stores.default.db", 0)
	v.SetDefault("stores.default.password", "")
	v.SetDefault("stores.default.url", "")
	v.SetDefault("stores.default.unix_domain_socket_path", "")
	v.SetDefault("stores.default.prefix", "")
	v.SetDefault("stores.default.socket_timeout", DefaultSocketTimeout)
	v.SetDefault("stores.default.retry_on_timeout", false)
	v.SetDefault("stores.default.key_byte_order", "")

	// Migration
	v.SetDefault("migration.mode", false)
	v.SetDefault("migration.drop_original_store", false)
	v.SetDefault("migration.state_key", DefaultStateKey)
	v.SetDefault("migration.sync_interval", DefaultSyncInterval)

	v.SetDefault("admin.addr", DefaultAdminAddr)
	v.SetDefault("log.level", DefaultLogLevel)
}
