package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/sessionmux/pkg/domain"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultStateKey is where the migration state lives when no key is configured.
const DefaultStateKey = "sessionmux:migration"

// StateStore implements ports.MigrationStateStore as a JSON document under one key.
// Compare-and-swap uses WATCH/MULTI optimistic transactions.
type StateStore struct {
	client *goredis.Client
	key    string
}

// NewStateStore creates a state store. An empty key uses DefaultStateKey.
func NewStateStore(client *goredis.Client, key string) *StateStore {
	if key == "" {
		key = DefaultStateKey
	}
	return &StateStore{client: client, key: key}
}

// Load returns the persisted migration state.
func (s *StateStore) Load(ctx context.Context) (domain.MigrationState, bool, error) {
	return s.read(ctx, s.client)
}

// CompareAndSwap stores next if the persisted generation equals expected.
func (s *StateStore) CompareAndSwap(ctx context.Context, expected uint64, next domain.MigrationState) (bool, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("failed to marshal migration state: %w", err)
	}

	swapped := false
	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		cur, found, err := s.read(ctx, tx)
		if err != nil {
			return err
		}
		var gen uint64
		if found {
			gen = cur.Generation
		}
		if gen != expected {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, s.key)

	if errors.Is(err, goredis.TxFailedErr) {
		// Someone wrote between WATCH and EXEC.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: migration state: %w", domain.ErrBackendUnavailable, err)
	}
	return swapped, nil
}

func (s *StateStore) read(ctx context.Context, c goredis.Cmdable) (domain.MigrationState, bool, error) {
	data, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.MigrationState{}, false, nil
	}
	if err != nil {
		return domain.MigrationState{}, false, fmt.Errorf("%w: migration state: %w", domain.ErrBackendUnavailable, err)
	}

	var state domain.MigrationState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.MigrationState{}, false, fmt.Errorf("failed to unmarshal migration state: %w", err)
	}
	return state, true, nil
}
