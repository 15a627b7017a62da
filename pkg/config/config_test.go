package config_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/config"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	cfg := config.Default()
	cfg.Session.Secret = "s3cret"
	return cfg
}

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := config.FromMap(map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "json", cfg.Session.Serializer)
	assert.Equal(t, 16, cfg.Session.MaxCreateAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Stores.Default.SocketTimeout)
	assert.Nil(t, cfg.Stores.Alternative)
	assert.Equal(t, "sessionmux:migration", cfg.Migration.StateKey)
	assert.Equal(t, ":9100", cfg.Admin.Addr)
}

func TestFromMap_Stores(t *testing.T) {
	cfg, err := config.FromMap(map[string]any{
		"session": map[string]any{
			"ttl":              "2w",
			"fallback_secrets": "old1,old2",
		},
		"stores": map[string]any{
			"default": map[string]any{
				"host":           "redis-a",
				"port":           "6380",
				"socket_timeout": 0.25,
				"prefix":         "session",
			},
			"alternative": map[string]any{
				"key_byte_order": "little",
				"pool": []any{
					map[string]any{"host": "shard-0", "weight": 2},
					map[string]any{"url": "redis://shard-1:6379/2"},
				},
				"sentinel": map[string]any{
					"addresses":    []any{"s1:26379", "s2:26379"},
					"master_alias": "mymaster",
				},
			},
		},
		"migration": map[string]any{"mode": "true", "sync_interval": 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"old1", "old2"}, cfg.Session.FallbackSecrets)
	assert.Equal(t, "redis-a", cfg.Stores.Default.Host)
	assert.Equal(t, 6380, cfg.Stores.Default.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Stores.Default.SocketTimeout)

	alt := cfg.Stores.Alternative
	require.NotNil(t, alt)
	require.Len(t, alt.Pool, 2)
	assert.Equal(t, 2, alt.Pool[0].Weight)
	assert.Equal(t, "redis://shard-1:6379/2", alt.Pool[1].URL)
	require.NotNil(t, alt.Sentinel)
	assert.Equal(t, "mymaster", alt.Sentinel.MasterAlias)

	assert.True(t, cfg.Migration.Mode)
	assert.Equal(t, 2*time.Second, cfg.Migration.SyncInterval)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"":      0,
		"100ms": 100 * time.Millisecond,
		"0.1":   100 * time.Millisecond,
		"30":    30 * time.Second,
		"14d":   14 * 24 * time.Hour,
		"2w":    14 * 24 * time.Hour,
		"1h30m": 90 * time.Minute,
	}
	for in, want := range tests {
		got, err := config.ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := config.ParseDuration("soon")
	assert.Error(t, err)
	_, err = config.ParseDuration("xd")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing secret", func(c *config.Config) { c.Session.Secret = "" }},
		{"zero ttl", func(c *config.Config) { c.Session.TTL = 0 }},
		{"no create attempts", func(c *config.Config) { c.Session.MaxCreateAttempts = 0 }},
		{"unknown serializer", func(c *config.Config) { c.Session.Serializer = "pickle" }},
		{"bad byte order", func(c *config.Config) { c.Stores.Default.KeyByteOrder = "middle" }},
		{"ambiguous endpoint", func(c *config.Config) {
			c.Stores.Default.Host = "a"
			c.Stores.Default.URL = "redis://b"
		}},
		{"negative weight", func(c *config.Config) {
			c.Stores.Default.Pool = []config.EndpointConfig{{Host: "a", Weight: -1}}
		}},
		{"sentinel without alias", func(c *config.Config) {
			c.Stores.Default.Sentinel = &config.SentinelConfig{Addresses: []string{"s:26379"}}
		}},
		{"toggle without alternative", func(c *config.Config) { c.Migration.Mode = true }},
		{"drop without alternative", func(c *config.Config) { c.Migration.DropOriginalStore = true }},
		{"pooled state backend", func(c *config.Config) {
			c.Migration.StateBackend = &config.StoreConfig{Pool: []config.EndpointConfig{{Host: "a"}}}
		}},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }},
		{"short encryption key", func(c *config.Config) { c.Session.EncryptionKey = "c2hvcnQ=" }},
		{"fallback key without active key", func(c *config.Config) {
			c.Session.FallbackEncryptionKeys = []string{testKey}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
		})
	}
}

// testKey is 32 zero bytes in base64.
const testKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func TestSessionConfig_EncryptionKeys(t *testing.T) {
	cfg := validConfig()
	keys, err := cfg.Session.EncryptionKeys()
	require.NoError(t, err)
	assert.Nil(t, keys)

	cfg.Session.EncryptionKey = testKey
	cfg.Session.FallbackEncryptionKeys = []string{testKey}
	require.NoError(t, cfg.Validate())

	keys, err = cfg.Session.EncryptionKeys()
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Len(t, keys[0], 32)

	cfg.Session.FallbackEncryptionKeys = []string{"not base64!"}
	assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
}

func TestStoreConfig_Plan(t *testing.T) {
	store := config.StoreConfig{
		DB:             3,
		Password:       "pw",
		RetryOnTimeout: true,
		KeyByteOrder:   "little",
		Pool: []config.EndpointConfig{
			{Host: "a", Port: 7000, Weight: 3},
			{UnixDomainSocketPath: "/tmp/redis.sock", DB: 1},
		},
	}

	plan, err := store.Plan()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSocketTimeout, plan.Options.SocketTimeout)
	assert.True(t, plan.Options.RetryOnTimeout)
	assert.Equal(t, binary.LittleEndian, plan.ByteOrder)
	assert.Equal(t, []backend.Descriptor{
		{Host: "a", Port: 7000, Weight: 3},
		{UnixSocketPath: "/tmp/redis.sock", DB: 1},
	}, plan.Pool)

	topo, err := store.Topology("default")
	require.NoError(t, err)
	assert.True(t, topo.Pooled())
	assert.Len(t, topo.Locations(), 2)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionmux.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  secret: from-file
  ttl: 1h
stores:
  default:
    host: redis-current
    prefix: session
  alternative:
    pool:
      - host: shard-0
      - host: shard-1
        weight: 3
migration:
  mode: true
`), 0o600))

	t.Setenv("SESSIONMUX_SESSION_SECRET", "from-env")
	t.Setenv("SESSIONMUX_STORES_DEFAULT_SOCKET_TIMEOUT", "250ms")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Session.Secret)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "redis-current", cfg.Stores.Default.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Stores.Default.SocketTimeout)
	require.NotNil(t, cfg.Stores.Alternative)
	assert.Len(t, cfg.Stores.Alternative.Pool, 2)
	assert.True(t, cfg.Migration.Mode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("APP_SESSION_SECRET", "x")
	t.Setenv("APP_LOG_LEVEL", "debug")

	cfg, err := config.Load("", "app")
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Session.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Session.FallbackSecrets = []string{"old"}
	cfg.Session.EncryptionKey = testKey
	cfg.Stores.Default.Password = "pw"
	cfg.Stores.Alternative = &config.StoreConfig{Pool: []config.EndpointConfig{{Host: "a", Password: "pw2"}}}

	r := cfg.Redacted()
	assert.Equal(t, "******", r.Session.Secret)
	assert.Equal(t, []string{"******"}, r.Session.FallbackSecrets)
	assert.Equal(t, "******", r.Session.EncryptionKey)
	assert.Empty(t, r.Session.FallbackEncryptionKeys)
	assert.Equal(t, "******", r.Stores.Default.Password)
	assert.Equal(t, "******", r.Stores.Alternative.Pool[0].Password)

	// The original is untouched.
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, "pw2", cfg.Stores.Alternative.Pool[0].Password)
}
