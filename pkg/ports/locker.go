package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writers of one session key across processes that share
// the same backends. The Manager uses it on top of its in-process lock.
type DistributedLocker interface {
	// Lock blocks until the key is held or ctx is done. The lock expires on its own after
	// ttl if the holder dies; the returned UnlockFunc must be called otherwise.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
