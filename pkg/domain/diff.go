package domain

// StateDiff represents the changes between two migration states.
// Operators see it in admin responses and CLI output.
type StateDiff struct {
	// Generation is always present to identify the resulting state.
	Generation uint64 `json:"generation" yaml:"generation"`

	Current       *string `json:"current,omitempty" yaml:"current,omitempty"`
	Alternative   *string `json:"alternative,omitempty" yaml:"alternative,omitempty"`
	Phase         *Phase  `json:"phase,omitempty" yaml:"phase,omitempty"`
	MigrationMode *bool   `json:"migration_mode,omitempty" yaml:"migration_mode,omitempty"`
	DropOriginal  *bool   `json:"drop_original_store,omitempty" yaml:"drop_original_store,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// It returns nil when nothing but the generation changed.
func Diff(oldState, newState MigrationState) *StateDiff {
	diff := &StateDiff{Generation: newState.Generation}

	if oldState.Current != newState.Current {
		diff.Current = &newState.Current
	}
	if oldState.Alternative != newState.Alternative {
		diff.Alternative = &newState.Alternative
	}
	if oldState.Phase != newState.Phase {
		diff.Phase = &newState.Phase
	}
	if oldState.MigrationMode != newState.MigrationMode {
		diff.MigrationMode = &newState.MigrationMode
	}
	if oldState.DropOriginal != newState.DropOriginal {
		diff.DropOriginal = &newState.DropOriginal
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Current == nil &&
		d.Alternative == nil &&
		d.Phase == nil &&
		d.MigrationMode == nil &&
		d.DropOriginal == nil
}

// Swap reports whether the diff exchanged the roles.
func (d *StateDiff) Swap() bool {
	return d != nil && d.Current != nil && d.Alternative != nil
}
