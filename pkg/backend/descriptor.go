package backend

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// DefaultPort is used when a host is configured without a port.
const DefaultPort = 6379

// Descriptor describes one physical store endpoint.
// Exactly one of Host, URL or UnixSocketPath is authoritative.
type Descriptor struct {
	Host           string
	Port           int
	DB             int
	Password       string
	URL            string
	UnixSocketPath string

	// Weight is the relative selection weight inside a pool. Zero means 1.
	Weight int
}

// EffectiveWeight returns the weight used for selection.
func (d Descriptor) EffectiveWeight() int {
	if d.Weight == 0 {
		return 1
	}
	return d.Weight
}

// Validate checks that the descriptor names exactly one endpoint form.
func (d Descriptor) Validate() error {
	if d.Weight < 0 {
		return fmt.Errorf("%w: negative weight %d", domain.ErrConfiguration, d.Weight)
	}
	forms := 0
	for _, set := range []bool{d.Host != "", d.URL != "", d.UnixSocketPath != ""} {
		if set {
			forms++
		}
	}
	switch forms {
	case 0:
		return fmt.Errorf("%w: descriptor has no host, url or unix socket path", domain.ErrConfiguration)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: descriptor sets more than one of host, url, unix socket path", domain.ErrConfiguration)
	}
}

// conn builds the connection variant for the descriptor.
// Store-wide options supply timeouts; database and password come from the descriptor.
func (d Descriptor) conn(opts Options) (Conn, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opts.DB = d.DB
	opts.Password = d.Password

	switch {
	case d.URL != "":
		return URLConn{URL: d.URL, Options: opts}, nil
	case d.Host != "":
		port := d.Port
		if port == 0 {
			port = DefaultPort
		}
		return HostConn{Addr: net.JoinHostPort(d.Host, strconv.Itoa(port)), Options: opts}, nil
	default:
		return UnixConn{Path: d.UnixSocketPath, Options: opts}, nil
	}
}

// Sentinel describes a sentinel group fronting a master.
type Sentinel struct {
	Addresses   []string
	MasterAlias string
}

// Validate checks that the sentinel group is usable.
func (s Sentinel) Validate() error {
	if len(s.Addresses) == 0 {
		return fmt.Errorf("%w: sentinel group without addresses", domain.ErrConfiguration)
	}
	if s.MasterAlias == "" {
		return fmt.Errorf("%w: sentinel group without master alias", domain.ErrConfiguration)
	}
	return nil
}

// Pool is an ordered, weighted, immutable list of descriptors.
type Pool struct {
	members []Descriptor
	total   uint64
	order   binary.ByteOrder
}

// NewPool validates the members and builds a pool.
// order selects how the 4-byte key prefix is read; nil means big-endian.
func NewPool(members []Descriptor, order binary.ByteOrder) (*Pool, error) {
	if order == nil {
		order = binary.BigEndian
	}

	var total uint64
	for i, m := range members {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("pool member %d: %w", i, err)
		}
		total += uint64(m.EffectiveWeight())
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: pool total weight is zero", domain.ErrConfiguration)
	}

	return &Pool{
		members: append([]Descriptor(nil), members...),
		total:   total,
		order:   order,
	}, nil
}

// Len returns the number of shards.
func (p *Pool) Len() int {
	return len(p.members)
}

// TotalWeight returns the sum of the member weights.
func (p *Pool) TotalWeight() uint64 {
	return p.total
}

// Member returns the descriptor at index i.
func (p *Pool) Member(i int) Descriptor {
	return p.members[i]
}
