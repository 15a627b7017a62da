package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/muesli/termenv"
)

// StoreRow is one line of the store table.
type StoreRow struct {
	Name      string
	Role      string
	Locations []string
}

// Phase returns the phase label colored for w.
func Phase(w io.Writer, p domain.Phase) string {
	out := termenv.NewOutput(w)
	color := "#22c55e"
	if p == domain.PhaseMigrating {
		color = "#f59e0b"
	}
	return out.String(string(p)).Foreground(out.Color(color)).Bold().String()
}

// StatusMarkdown describes the migration state and the stores as a markdown document.
func StatusMarkdown(st domain.MigrationState, stores []StoreRow) string {
	var b strings.Builder
	b.WriteString("# Migration\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| current | `%s` |\n", st.Current)
	if st.Alternative != "" {
		fmt.Fprintf(&b, "| alternative | `%s` |\n", st.Alternative)
	}
	fmt.Fprintf(&b, "| migration_mode | %t |\n", st.MigrationMode)
	fmt.Fprintf(&b, "| drop_original_store | %t |\n", st.DropOriginal)
	fmt.Fprintf(&b, "| generation | %d |\n", st.Generation)

	if len(stores) > 0 {
		b.WriteString("\n# Stores\n\n| Store | Role | Locations |\n|---|---|---|\n")
		for _, s := range stores {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Name, s.Role, strings.Join(s.Locations, ", "))
		}
	}
	return b.String()
}
