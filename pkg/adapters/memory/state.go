package memory

import (
	"context"
	"sync"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// StateStore implements ports.MigrationStateStore in memory.
// Several coordinators in one process can share it to agree on roles.
type StateStore struct {
	mu    sync.Mutex
	state domain.MigrationState
	found bool
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

func (s *StateStore) Load(ctx context.Context) (domain.MigrationState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.found, nil
}

func (s *StateStore) CompareAndSwap(ctx context.Context, expected uint64, next domain.MigrationState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var gen uint64
	if s.found {
		gen = s.state.Generation
	}
	if gen != expected {
		return false, nil
	}
	s.state = next
	s.found = true
	return true, nil
}
