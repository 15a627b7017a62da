package backend

import (
	"fmt"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// Select maps a key onto one member of the pool.
//
// The first four bytes of key are read as an unsigned integer h (in the pool's byte
// order) and position = h mod total weight. Members own consecutive half-open intervals
// [offset, offset+weight) in pool order; the member whose interval holds position wins.
// Select is pure: the same key against the same pool always yields the same shard.
// A pool not built with NewPool yields domain.ErrConfiguration.
func Select(key []byte, pool *Pool) (int, Descriptor, error) {
	if len(key) < 4 {
		return -1, Descriptor{}, fmt.Errorf("%w: got %d bytes, need 4", domain.ErrShortKey, len(key))
	}
	if pool == nil || pool.total == 0 || pool.order == nil {
		return -1, Descriptor{}, fmt.Errorf("%w: pool not built with NewPool", domain.ErrConfiguration)
	}

	h := uint64(pool.order.Uint32(key[:4]))
	position := h % pool.total

	var offset uint64
	for i, m := range pool.members {
		w := uint64(m.EffectiveWeight())
		if position >= offset && position < offset+w {
			return i, m, nil
		}
		offset += w
	}

	return -1, Descriptor{}, fmt.Errorf("%w: position %d outside pool weight %d", domain.ErrConfiguration, position, pool.total)
}

// Select maps a key onto one member of the pool. See the package-level Select.
func (p *Pool) Select(key []byte) (int, Descriptor, error) {
	return Select(key, p)
}
