package ports

import (
	"context"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// MigrationStateStore persists the migration state so several processes agree on roles.
type MigrationStateStore interface {
	// Load returns the persisted state. found is false when nothing was persisted yet.
	Load(ctx context.Context) (state domain.MigrationState, found bool, err error)

	// CompareAndSwap stores next only if the persisted generation equals expected
	// (a missing state counts as generation 0). It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, expected uint64, next domain.MigrationState) (bool, error)
}
