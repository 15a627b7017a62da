package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sessionmux/pkg/adapters/redis"
	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/codec"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostOf(t *testing.T, mr *miniredis.Miniredis) backend.Descriptor {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return backend.Descriptor{Host: mr.Host(), Port: port}
}

func newStore(t *testing.T, plan backend.Plan, opts ...redis.Option) *redis.Store {
	t.Helper()
	c, err := codec.New([]byte("test-secret"))
	require.NoError(t, err)
	topo, err := backend.NewTopology("default", plan)
	require.NoError(t, err)

	cache := backend.NewCache()
	t.Cleanup(func() { _ = cache.Close() })

	store, err := redis.New(topo, cache, c, opts...)
	require.NoError(t, err)
	return store
}

func TestRedisStore_Contract(t *testing.T) {
	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	// Run contract
	store := newStore(t, backend.Plan{Endpoint: hostOf(t, mr)})
	ports.RunSessionStoreContract(t, store)
}

func TestRedisStore_Contract_LegacyExpire(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := newStore(t, backend.Plan{Endpoint: hostOf(t, mr)}, redis.WithLegacyExpire())
	ports.RunSessionStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	ctx := context.Background()

	prefixed := newStore(t, backend.Plan{Endpoint: hostOf(t, mr)}, redis.WithPrefix("session"))
	require.NoError(t, prefixed.Save(ctx, "abcd1234", domain.Payload{"a": "b"}, 0, false))
	assert.True(t, mr.Exists("session:abcd1234"), "Expected key with prefix to exist")

	bare := newStore(t, backend.Plan{Endpoint: backend.Descriptor{URL: "redis://" + mr.Addr()}})
	require.NoError(t, bare.Save(ctx, "efgh5678", domain.Payload{"a": "b"}, 0, false))
	assert.True(t, mr.Exists("efgh5678"), "Expected bare key without prefix")
	assert.Equal(t, "efgh5678", bare.Key("efgh5678"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	for name, opts := range map[string][]redis.Option{
		"setex":  {redis.WithTTL(time.Minute)},
		"legacy": {redis.WithTTL(time.Minute), redis.WithLegacyExpire()},
	} {
		t.Run(name, func(t *testing.T) {
			mr, err := miniredis.Run()
			require.NoError(t, err)
			defer mr.Close()
			ctx := context.Background()

			store := newStore(t, backend.Plan{Endpoint: hostOf(t, mr)}, opts...)

			// 1. Save with the default TTL
			require.NoError(t, store.Save(ctx, "ttlkey01", domain.Payload{"x": 1.0}, 0, false))
			assert.Equal(t, time.Minute, mr.TTL("ttlkey01"))

			exists, err := store.Exists(ctx, "ttlkey01")
			require.NoError(t, err)
			assert.True(t, exists)

			// 2. Fast Forward time in miniredis (for Key Expiration)
			mr.FastForward(2 * time.Minute)

			// 3. Gone without an explicit delete
			exists, err = store.Exists(ctx, "ttlkey01")
			require.NoError(t, err)
			assert.False(t, exists)

			_, err = store.Load(ctx, "ttlkey01")
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestRedisStore_ExplicitTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := newStore(t, backend.Plan{Endpoint: hostOf(t, mr)})
	require.NoError(t, store.Save(context.Background(), "ttlkey02", domain.Payload{}, 30*time.Second, true))
	assert.Equal(t, 30*time.Second, mr.TTL("ttlkey02"))
	assert.Equal(t, redis.DefaultTTL, store.TTL())
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := newStore(t, backend.Plan{Endpoint: hostOf(t, mr)})
	require.NoError(t, mr.Set("badkey01", "definitely not a payload"))

	_, err = store.Load(context.Background(), "badkey01")
	assert.ErrorIs(t, err, domain.ErrCorruptPayload)
}

func TestRedisStore_BackendUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	plan := backend.Plan{
		Endpoint: hostOf(t, mr),
		Options:  backend.Options{SocketTimeout: 200 * time.Millisecond},
	}
	store := newStore(t, plan)
	mr.Close()
	ctx := context.Background()

	_, err = store.Load(ctx, "somekey1")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)

	_, err = store.Exists(ctx, "somekey1")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)

	err = store.Save(ctx, "somekey1", domain.Payload{}, 0, false)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)

	err = store.Delete(ctx, "somekey1")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestRedisStore_PoolRouting(t *testing.T) {
	shards := []*miniredis.Miniredis{miniredis.RunT(t), miniredis.RunT(t)}
	ctx := context.Background()

	store := newStore(t, backend.Plan{Pool: []backend.Descriptor{hostOf(t, shards[0]), hostOf(t, shards[1])}},
		redis.WithPrefix("session"))

	keys := []string{"\x00\x00\x00\x00aaaa", "\x00\x00\x00\x01bbbb", "k3y5kw8h2ldd9qpx", "zz9p0aqd7c1lmxoe"}
	for _, k := range keys {
		require.NoError(t, store.Save(ctx, k, domain.Payload{"k": k}, 0, false))

		loc, err := store.Locate(k)
		require.NoError(t, err)
		assert.True(t, shards[loc.Shard].Exists("session:"+k), "key %q on shard %d", k, loc.Shard)
		assert.False(t, shards[1-loc.Shard].Exists("session:"+k), "key %q leaked to the other shard", k)

		loaded, err := store.Load(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, k, loaded["k"])
	}

	// Even/odd first-word keys land on shard 0/1 with equal weights.
	loc, err := store.Locate("\x00\x00\x00\x00aaaa")
	require.NoError(t, err)
	assert.Equal(t, 0, loc.Shard)
	loc, err = store.Locate("\x00\x00\x00\x01bbbb")
	require.NoError(t, err)
	assert.Equal(t, 1, loc.Shard)
}

func TestRedisStore_PoolRejectsShortKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newStore(t, backend.Plan{Pool: []backend.Descriptor{hostOf(t, mr)}})

	_, err := store.Exists(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrShortKey)
}

func TestNew_RejectsNonPositiveTTL(t *testing.T) {
	c, err := codec.New([]byte("x"))
	require.NoError(t, err)
	topo, err := backend.NewTopology("default", backend.Plan{})
	require.NoError(t, err)

	_, err = redis.New(topo, backend.NewCache(), c, redis.WithTTL(-time.Second))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
