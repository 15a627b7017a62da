package testutils

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sessionmux/pkg/config"
	"github.com/stretchr/testify/require"
)

// Endpoint returns the pool member pointing at mr.
func Endpoint(t *testing.T, mr *miniredis.Miniredis) config.EndpointConfig {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err, "miniredis port is not numeric")
	return config.EndpointConfig{Host: mr.Host(), Port: port}
}

// StartRedis starts a miniredis instance for the test and returns a store config
// pointing at it. The server stops when the test ends.
func StartRedis(t *testing.T, prefix string) (*miniredis.Miniredis, config.StoreConfig) {
	t.Helper()
	mr := miniredis.RunT(t)
	ep := Endpoint(t, mr)
	return mr, config.StoreConfig{
		Host:          ep.Host,
		Port:          ep.Port,
		Prefix:        prefix,
		SocketTimeout: config.DefaultSocketTimeout,
	}
}
