package ports

import (
	"context"
	"time"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// SessionStore defines the backend operations of one named session store.
// Implementations report errors faithfully; fail-open policy belongs to the caller.
type SessionStore interface {
	// Name identifies the store (e.g. "default", "alternative").
	Name() string

	// TTL is the expiry applied when a caller does not provide one.
	TTL() time.Duration

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// Load retrieves and decodes the payload for key.
	// Returns domain.ErrSessionNotFound if the key does not exist and
	// domain.ErrCorruptPayload if it fails integrity verification.
	Load(ctx context.Context, key string) (domain.Payload, error)

	// Save encodes and stores the payload with the given expiry in one step.
	// With mustCreate, it returns domain.ErrAlreadyExists instead of overwriting.
	Save(ctx context.Context, key string, payload domain.Payload, ttl time.Duration, mustCreate bool) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
