package backend

import (
	"fmt"
	"time"

	"github.com/aretw0/sessionmux/pkg/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Kind names a connection variant.
type Kind string

const (
	KindSentinel Kind = "sentinel"
	KindURL      Kind = "redis_url"
	KindHost     Kind = "redis_host"
	KindUnix     Kind = "redis_unix_url"
)

// Options are the connection settings shared by every variant.
type Options struct {
	// SocketTimeout bounds dial, read and write. Zero keeps the client default.
	SocketTimeout time.Duration

	// RetryOnTimeout lets the transport retry a command that timed out.
	RetryOnTimeout bool

	DB       int
	Password string
}

// Conn is one connection variant. The set of variants is closed:
// SentinelConn, URLConn, HostConn and UnixConn.
type Conn interface {
	Kind() Kind
}

// SentinelConn connects to the master of a sentinel group.
type SentinelConn struct {
	Addresses   []string
	MasterAlias string
	Options
}

// URLConn connects using a redis:// or rediss:// URL.
// Database and password embedded in the URL take precedence.
type URLConn struct {
	URL string
	Options
}

// HostConn connects over TCP to host:port.
type HostConn struct {
	Addr string
	Options
}

// UnixConn connects over a unix domain socket.
type UnixConn struct {
	Path string
	Options
}

func (SentinelConn) Kind() Kind { return KindSentinel }
func (URLConn) Kind() Kind      { return KindURL }
func (HostConn) Kind() Kind     { return KindHost }
func (UnixConn) Kind() Kind     { return KindUnix }

// Connect builds a client for the variant. It does not talk to the network.
func Connect(c Conn) (*goredis.Client, error) {
	switch v := c.(type) {
	case SentinelConn:
		opts := &goredis.FailoverOptions{
			MasterName:    v.MasterAlias,
			SentinelAddrs: v.Addresses,
			DB:            v.DB,
			Password:      v.Password,
		}
		opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout = timeouts(v.SocketTimeout)
		opts.MaxRetries = maxRetries(v.RetryOnTimeout)
		return goredis.NewFailoverClient(opts), nil

	case URLConn:
		opts, err := goredis.ParseURL(v.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: bad redis url: %v", domain.ErrConfiguration, err)
		}
		applyCommon(opts, v.Options)
		return goredis.NewClient(opts), nil

	case HostConn:
		opts := &goredis.Options{
			Network:  "tcp",
			Addr:     v.Addr,
			DB:       v.DB,
			Password: v.Password,
		}
		applyCommon(opts, v.Options)
		return goredis.NewClient(opts), nil

	case UnixConn:
		opts := &goredis.Options{
			Network:  "unix",
			Addr:     v.Path,
			DB:       v.DB,
			Password: v.Password,
		}
		applyCommon(opts, v.Options)
		return goredis.NewClient(opts), nil

	default:
		return nil, fmt.Errorf("%w: unknown connection kind %T", domain.ErrConfiguration, c)
	}
}

func applyCommon(opts *goredis.Options, common Options) {
	if common.SocketTimeout > 0 {
		opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout = timeouts(common.SocketTimeout)
	}
	opts.MaxRetries = maxRetries(common.RetryOnTimeout)
}

func timeouts(d time.Duration) (dial, read, write time.Duration) {
	if d <= 0 {
		return 0, 0, 0
	}
	return d, d, d
}

// maxRetries maps the retry flag onto go-redis, where -1 disables retries
// and 0 keeps the library default.
func maxRetries(retryOnTimeout bool) int {
	if retryOnTimeout {
		return 0
	}
	return -1
}
