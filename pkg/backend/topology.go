package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// DefaultHost is used when a store configures no endpoint at all.
const DefaultHost = "localhost"

// Plan is the static connection plan of one store.
// Precedence: Sentinel, then Pool, then Endpoint.
type Plan struct {
	Options  Options
	Sentinel *Sentinel
	Pool     []Descriptor

	// ByteOrder reads the 4-byte key prefix during pool selection. Nil means big-endian.
	ByteOrder binary.ByteOrder

	// Endpoint is used when neither Sentinel nor Pool is set.
	// An endpoint with no form falls back to DefaultHost:DefaultPort.
	Endpoint Descriptor
}

// Location is where a key lives: the connection identity and variant to use.
type Location struct {
	// Identity keys the connection cache. It is unique per store and shard.
	Identity string

	// Shard is the pool index, or -1 when the store is not pooled.
	Shard int

	Conn Conn
}

// Topology resolves session keys to locations for one named store.
// It is immutable after construction and safe for concurrent use.
type Topology struct {
	name   string
	pool   *Pool
	shards []Location
	single *Location
}

// NewTopology validates a plan. Every configuration error surfaces here.
func NewTopology(name string, plan Plan) (*Topology, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: topology needs a name", domain.ErrConfiguration)
	}
	t := &Topology{name: name}

	if plan.Sentinel != nil {
		if err := plan.Sentinel.Validate(); err != nil {
			return nil, fmt.Errorf("store %q: %w", name, err)
		}
		conn := SentinelConn{
			Addresses:   append([]string(nil), plan.Sentinel.Addresses...),
			MasterAlias: plan.Sentinel.MasterAlias,
			Options:     plan.Options,
		}
		t.single = &Location{Identity: identity(name, -1, conn), Shard: -1, Conn: conn}
		return t, nil
	}

	if len(plan.Pool) > 0 {
		pool, err := NewPool(plan.Pool, plan.ByteOrder)
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", name, err)
		}
		t.pool = pool
		t.shards = make([]Location, pool.Len())
		for i := range t.shards {
			conn, err := pool.Member(i).conn(plan.Options)
			if err != nil {
				return nil, fmt.Errorf("store %q: pool member %d: %w", name, i, err)
			}
			t.shards[i] = Location{Identity: identity(name, i, conn), Shard: i, Conn: conn}
		}
		return t, nil
	}

	ep := plan.Endpoint
	if ep.Host == "" && ep.URL == "" && ep.UnixSocketPath == "" {
		ep.Host = DefaultHost
	}
	conn, err := ep.conn(plan.Options)
	if err != nil {
		return nil, fmt.Errorf("store %q: %w", name, err)
	}
	t.single = &Location{Identity: identity(name, -1, conn), Shard: -1, Conn: conn}
	return t, nil
}

func identity(name string, shard int, conn Conn) string {
	if shard < 0 {
		return name + "/" + string(conn.Kind())
	}
	return fmt.Sprintf("%s/pool/%d/%s", name, shard, conn.Kind())
}

// Name returns the store name.
func (t *Topology) Name() string {
	return t.name
}

// Pooled reports whether the store shards keys over a pool.
func (t *Topology) Pooled() bool {
	return t.pool != nil
}

// Resolve returns the location of key. Only pooled topologies can fail (short key).
func (t *Topology) Resolve(key string) (Location, error) {
	if t.pool == nil {
		return *t.single, nil
	}
	i, _, err := t.pool.Select([]byte(key))
	if err != nil {
		return Location{}, err
	}
	return t.shards[i], nil
}

// Locations lists every location the topology can resolve to.
func (t *Topology) Locations() []Location {
	if t.pool == nil {
		return []Location{*t.single}
	}
	return append([]Location(nil), t.shards...)
}
