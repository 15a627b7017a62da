package config

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/aretw0/sessionmux/pkg/backend"
	"github.com/aretw0/sessionmux/pkg/domain"
)

// Plan converts the store settings into a backend connection plan.
func (s StoreConfig) Plan() (backend.Plan, error) {
	order, err := ByteOrder(s.KeyByteOrder)
	if err != nil {
		return backend.Plan{}, err
	}

	timeout := s.SocketTimeout
	if timeout == 0 {
		timeout = DefaultSocketTimeout
	}

	plan := backend.Plan{
		Options: backend.Options{
			SocketTimeout:  timeout,
			RetryOnTimeout: s.RetryOnTimeout,
			DB:             s.DB,
			Password:       s.Password,
		},
		ByteOrder: order,
		Endpoint: backend.Descriptor{
			Host:           s.Host,
			Port:           s.Port,
			DB:             s.DB,
			Password:       s.Password,
			URL:            s.URL,
			UnixSocketPath: s.UnixDomainSocketPath,
		},
	}

	if s.Sentinel != nil {
		plan.Sentinel = &backend.Sentinel{
			Addresses:   append([]string(nil), s.Sentinel.Addresses...),
			MasterAlias: s.Sentinel.MasterAlias,
		}
	}
	for _, e := range s.Pool {
		plan.Pool = append(plan.Pool, backend.Descriptor{
			Host:           e.Host,
			Port:           e.Port,
			DB:             e.DB,
			Password:       e.Password,
			URL:            e.URL,
			UnixSocketPath: e.UnixDomainSocketPath,
			Weight:         e.Weight,
		})
	}
	return plan, nil
}

// ByteOrder maps "big" (default) and "little" to the order used to read shard keys.
func ByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(name) {
	case "", "big":
		return binary.BigEndian, nil
	case "little":
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("%w: key_byte_order %q must be big or little", domain.ErrConfiguration, name)
	}
}
