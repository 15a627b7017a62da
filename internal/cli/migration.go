package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/sessionmux"
	"github.com/aretw0/sessionmux/internal/presentation/tui"
	"github.com/aretw0/sessionmux/pkg/domain"
)

// MigrationStatus prints the migration state and the stores.
func MigrationStatus(ctx context.Context, opts Options) error {
	mux, _, _, err := openMux(ctx, opts)
	if err != nil {
		return err
	}
	defer mux.Close()

	w := opts.out()
	st := mux.Coordinator().State()
	fmt.Fprintf(w, "Phase: %s\n\n", tui.Phase(w, st.Phase))
	return tui.Markdown(w, tui.StatusMarkdown(st, storeRows(mux, st)))
}

// SetMigrationMode flips the migration mode toggle.
func SetMigrationMode(ctx context.Context, opts Options, on bool) error {
	return changeMigration(ctx, opts, func(mux *sessionmux.Mux) (domain.MigrationState, error) {
		return mux.Coordinator().SetMigrationMode(ctx, on)
	})
}

// SetDropOriginal flips the drop-original toggle.
func SetDropOriginal(ctx context.Context, opts Options, on bool) error {
	return changeMigration(ctx, opts, func(mux *sessionmux.Mux) (domain.MigrationState, error) {
		return mux.Coordinator().SetDropOriginal(ctx, on)
	})
}

// CompleteMigration swaps the store roles of a migration in progress.
func CompleteMigration(ctx context.Context, opts Options) error {
	return changeMigration(ctx, opts, func(mux *sessionmux.Mux) (domain.MigrationState, error) {
		return mux.Coordinator().CompleteMigration(ctx)
	})
}

// changeMigration applies a state change and prints what moved. Without a shared state
// backend the change only lives as long as this process.
func changeMigration(ctx context.Context, opts Options, change func(*sessionmux.Mux) (domain.MigrationState, error)) error {
	mux, cfg, logger, err := openMux(ctx, opts)
	if err != nil {
		return err
	}
	defer mux.Close()

	if cfg.Migration.StateBackend == nil {
		logger.Warn("No migration state backend configured, the change is not shared with other processes")
	}

	before := mux.Coordinator().State()
	after, err := change(mux)
	if err != nil {
		return err
	}

	w := opts.out()
	diff := domain.Diff(before, after)
	if diff == nil {
		printSystemMessage(w, "Nothing to change.")
		return nil
	}
	printSystemMessage(w, "Migration state is now at generation %d.", after.Generation)
	return encode(w, diff, "yaml")
}

func storeRows(mux *sessionmux.Mux, st domain.MigrationState) []tui.StoreRow {
	var rows []tui.StoreRow
	for _, store := range mux.Stores() {
		role := "alternative"
		if store.Name() == st.Current {
			role = "current"
		}
		row := tui.StoreRow{Name: store.Name(), Role: role}
		for _, loc := range store.Locations() {
			row.Locations = append(row.Locations, loc.Identity)
		}
		rows = append(rows, row)
	}
	return rows
}
