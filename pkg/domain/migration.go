package domain

// Phase is the migration phase of the coordinator.
type Phase string

const (
	PhaseNoMigration Phase = "NO_MIGRATION" // Steady state, everything on the current store
	PhaseMigrating   Phase = "MIGRATING"    // New sessions are landing on the alternative store
)

// MigrationState is the shared routing state of a migration.
type MigrationState struct {
	// Current is the name of the store holding the "current" role.
	Current string `json:"current" yaml:"current"`

	// Alternative is the name of the store holding the "alternative" role.
	Alternative string `json:"alternative" yaml:"alternative"`

	// Phase drives the cutover.
	Phase Phase `json:"phase" yaml:"phase"`

	// MigrationMode is the external toggle that starts routing new sessions to the alternative store.
	MigrationMode bool `json:"migration_mode" yaml:"migration_mode"`

	// DropOriginal retires the current store: every request goes to the alternative store.
	DropOriginal bool `json:"drop_original_store" yaml:"drop_original_store"`

	// Generation increases on every persisted transition. It is the compare-and-swap token.
	Generation uint64 `json:"generation" yaml:"generation"`
}

// NewMigrationState creates the initial state for a pair of stores.
func NewMigrationState(current, alternative string) MigrationState {
	return MigrationState{
		Current:     current,
		Alternative: alternative,
		Phase:       PhaseNoMigration,
	}
}

// Swapped returns the state after a cutover: roles exchanged, phase reset and both
// toggles cleared. The generation is left to the caller.
func (s MigrationState) Swapped() MigrationState {
	s.Current, s.Alternative = s.Alternative, s.Current
	s.Phase = PhaseNoMigration
	s.MigrationMode = false
	s.DropOriginal = false
	return s
}

// Equal compares two states ignoring the generation.
func (s MigrationState) Equal(o MigrationState) bool {
	s.Generation, o.Generation = 0, 0
	return s == o
}
