package backend_test

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hosts(weights ...int) []backend.Descriptor {
	out := make([]backend.Descriptor, len(weights))
	for i, w := range weights {
		out[i] = backend.Descriptor{Host: "10.0.0." + string(rune('1'+i)), Weight: w}
	}
	return out
}

func TestSelect_Deterministic(t *testing.T) {
	pool, err := backend.NewPool(hosts(1, 2, 3), nil)
	require.NoError(t, err)

	keys := []string{"abcdefgh", "zzzz", "0000session", "k3y5kw8h2ldd9qpx"}
	for _, k := range keys {
		i1, d1, err := pool.Select([]byte(k))
		require.NoError(t, err)
		for n := 0; n < 10; n++ {
			i2, d2, err := backend.Select([]byte(k), pool)
			require.NoError(t, err)
			assert.Equal(t, i1, i2, k)
			assert.Equal(t, d1, d2, k)
		}
	}
}

func TestSelect_SingleMemberAlwaysWins(t *testing.T) {
	pool, err := backend.NewPool(hosts(7), nil)
	require.NoError(t, err)

	for _, k := range []string{"aaaa", "\xff\xff\xff\xff", "\x00\x00\x00\x00rest"} {
		i, d, err := pool.Select([]byte(k))
		require.NoError(t, err)
		assert.Equal(t, 0, i)
		assert.Equal(t, "10.0.0.1", d.Host)
	}
}

func TestSelect_Intervals(t *testing.T) {
	// Weights 1 and 2: positions {0} -> shard 0, {1, 2} -> shard 1.
	pool, err := backend.NewPool(hosts(1, 2), nil)
	require.NoError(t, err)

	cases := []struct {
		key  []byte
		want int
	}{
		{[]byte{0, 0, 0, 0}, 0},
		{[]byte{0, 0, 0, 1}, 1},
		{[]byte{0, 0, 0, 2}, 1},
		{[]byte{0, 0, 0, 3}, 0},
		{[]byte{0, 0, 0, 4, 'x', 'y'}, 1},
	}
	for _, tc := range cases {
		got, _, err := pool.Select(tc.key)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "key %v", tc.key)
	}
}

func TestSelect_ByteOrder(t *testing.T) {
	// Total weight 10: big-endian reads {0,0,0,1} as 1, little-endian as 2^24 (mod 10 = 6).
	be, err := backend.NewPool(hosts(5, 5), binary.BigEndian)
	require.NoError(t, err)
	le, err := backend.NewPool(hosts(5, 5), binary.LittleEndian)
	require.NoError(t, err)

	key := []byte{0, 0, 0, 1}
	i, _, err := be.Select(key)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, _, err = le.Select(key)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestSelect_ShortKeyRejected(t *testing.T) {
	pool, err := backend.NewPool(hosts(1, 1), nil)
	require.NoError(t, err)

	for _, k := range []string{"", "a", "abc"} {
		_, _, err := pool.Select([]byte(k))
		assert.ErrorIs(t, err, domain.ErrShortKey, "key %q", k)
	}
}

func TestSelect_UnbuiltPoolRejected(t *testing.T) {
	key := []byte{0, 0, 0, 7}

	_, _, err := backend.Select(key, &backend.Pool{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, _, err = backend.Select(key, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSelect_WeightFidelity(t *testing.T) {
	weights := []int{1, 2, 3, 4}
	pool, err := backend.NewPool(hosts(weights...), nil)
	require.NoError(t, err)

	const samples = 200000
	rng := rand.New(rand.NewSource(42))
	counts := make([]int, len(weights))
	key := make([]byte, 16)
	for n := 0; n < samples; n++ {
		rng.Read(key)
		i, _, err := pool.Select(key)
		require.NoError(t, err)
		counts[i]++
	}

	total := 0
	for _, w := range weights {
		total += w
	}
	for i, w := range weights {
		want := float64(w) / float64(total)
		got := float64(counts[i]) / samples
		assert.InDelta(t, want, got, 0.01, "shard %d", i)
	}
}

func TestNewPool_Validation(t *testing.T) {
	_, err := backend.NewPool(nil, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration, "empty pool has zero total weight")

	_, err = backend.NewPool([]backend.Descriptor{{Host: "a", Weight: -1}}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = backend.NewPool([]backend.Descriptor{{Host: "a", URL: "redis://b"}}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration, "ambiguous endpoint")

	_, err = backend.NewPool([]backend.Descriptor{{DB: 1}}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration, "no endpoint")

	pool, err := backend.NewPool([]backend.Descriptor{{Host: "a"}, {UnixSocketPath: "/tmp/r.sock", Weight: 3}}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), pool.TotalWeight())
	assert.Equal(t, 2, pool.Len())
}
