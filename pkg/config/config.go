// Package config holds the settings of a sessionmux deployment and loads them from
// YAML files, .env files and SESSIONMUX_* environment variables.
package config

import (
	"time"
)

// Config is the full configuration.
type Config struct {
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Stores    StoresConfig    `mapstructure:"stores" yaml:"stores"`
	Migration MigrationConfig `mapstructure:"migration" yaml:"migration"`
	Admin     AdminConfig     `mapstructure:"admin" yaml:"admin"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// SessionConfig covers signing, expiry and key generation. EncryptionKey, when set, is a
// base64 AES-256 key and payloads are encrypted before they are signed.
type SessionConfig struct {
	TTL                    time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Secret                 string        `mapstructure:"secret" yaml:"secret"`
	FallbackSecrets        []string      `mapstructure:"fallback_secrets" yaml:"fallback_secrets,omitempty"`
	Serializer             string        `mapstructure:"serializer" yaml:"serializer"`
	MaxCreateAttempts      int           `mapstructure:"max_create_attempts" yaml:"max_create_attempts"`
	DistributedLocking     bool          `mapstructure:"distributed_locking" yaml:"distributed_locking"`
	EncryptionKey          string        `mapstructure:"encryption_key" yaml:"encryption_key,omitempty"`
	FallbackEncryptionKeys []string      `mapstructure:"fallback_encryption_keys" yaml:"fallback_encryption_keys,omitempty"`
	AcceptPlaintext        bool          `mapstructure:"accept_plaintext" yaml:"accept_plaintext,omitempty"`
}

// StoresConfig names the two stores of a migration. Alternative is nil when no
// migration is planned.
type StoresConfig struct {
	Default     StoreConfig  `mapstructure:"default" yaml:"default"`
	Alternative *StoreConfig `mapstructure:"alternative" yaml:"alternative,omitempty"`
}

// StoreConfig is the connection plan of one store. Precedence: sentinel, pool,
// then the single endpoint (url, host, unix socket).
type StoreConfig struct {
	Host                 string           `mapstructure:"host" yaml:"host,omitempty"`
	Port                 int              `mapstructure:"port" yaml:"port,omitempty"`
	DB                   int              `mapstructure:"db" yaml:"db"`
	Password             string           `mapstructure:"password" yaml:"password,omitempty"`
	URL                  string           `mapstructure:"url" yaml:"url,omitempty"`
	UnixDomainSocketPath string           `mapstructure:"unix_domain_socket_path" yaml:"unix_domain_socket_path,omitempty"`
	Prefix               string           `mapstructure:"prefix" yaml:"prefix,omitempty"`
	SocketTimeout        time.Duration    `mapstructure:"socket_timeout" yaml:"socket_timeout"`
	RetryOnTimeout       bool             `mapstructure:"retry_on_timeout" yaml:"retry_on_timeout"`
	KeyByteOrder         string           `mapstructure:"key_byte_order" yaml:"key_byte_order,omitempty"`
	LegacyExpire         bool             `mapstructure:"legacy_expire" yaml:"legacy_expire,omitempty"`
	Pool                 []EndpointConfig `mapstructure:"pool" yaml:"pool,omitempty"`
	Sentinel             *SentinelConfig  `mapstructure:"sentinel" yaml:"sentinel,omitempty"`
}

// EndpointConfig is one pool member.
type EndpointConfig struct {
	Host                 string `mapstructure:"host" yaml:"host,omitempty"`
	Port                 int    `mapstructure:"port" yaml:"port,omitempty"`
	DB                   int    `mapstructure:"db" yaml:"db"`
	Password             string `mapstructure:"password" yaml:"password,omitempty"`
	URL                  string `mapstructure:"url" yaml:"url,omitempty"`
	UnixDomainSocketPath string `mapstructure:"unix_domain_socket_path" yaml:"unix_domain_socket_path,omitempty"`
	Weight               int    `mapstructure:"weight" yaml:"weight,omitempty"`
}

type SentinelConfig struct {
	Addresses   []string `mapstructure:"addresses" yaml:"addresses"`
	MasterAlias string   `mapstructure:"master_alias" yaml:"master_alias"`
}

type MigrationConfig struct {
	Mode              bool          `mapstructure:"mode" yaml:"mode"`
	DropOriginalStore bool          `mapstructure:"drop_original_store" yaml:"drop_original_store"`
	StateKey          string        `mapstructure:"state_key" yaml:"state_key"`
	SyncInterval      time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`

	// StateBackend persists the migration state. Nil keeps it process-local.
	StateBackend *StoreConfig `mapstructure:"state_backend" yaml:"state_backend,omitempty"`
}

type AdminConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Redacted returns a copy with secrets and passwords masked, for display.
func (c Config) Redacted() Config {
	const mask = "******"
	out := c
	if out.Session.Secret != "" {
		out.Session.Secret = mask
	}
	if out.Session.EncryptionKey != "" {
		out.Session.EncryptionKey = mask
	}
	masked := func(in []string) []string {
		if len(in) == 0 {
			return in
		}
		m := make([]string, len(in))
		for i := range m {
			m[i] = mask
		}
		return m
	}
	out.Session.FallbackSecrets = masked(out.Session.FallbackSecrets)
	out.Session.FallbackEncryptionKeys = masked(out.Session.FallbackEncryptionKeys)

	redact := func(s *StoreConfig) *StoreConfig {
		if s == nil {
			return nil
		}
		r := *s
		if r.Password != "" {
			r.Password = mask
		}
		r.Pool = append([]EndpointConfig(nil), s.Pool...)
		for i := range r.Pool {
			if r.Pool[i].Password != "" {
				r.Pool[i].Password = mask
			}
		}
		return &r
	}
	out.Stores.Default = *redact(&out.Stores.Default)
	out.Stores.Alternative = redact(out.Stores.Alternative)
	out.Migration.StateBackend = redact(out.Migration.StateBackend)
	return out
}
