package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner. Colors degrade to plain text when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"                      _                           ", "#818cf8"},
		{"  ___  ___  ___ ___ (_) ___  _ __  _ __ ___  _   ___  __", "#a78bfa"},
		{" / __|/ _ \\/ __/ __|| |/ _ \\| '_ \\| '_ ` _ \\| | | \\ \\/ /", "#c084fc"},
		{" \\__ \\  __/\\__ \\__ \\| | (_) | | | | | | | | | |_| |>  < ", "#e879f9"},
		{" |___/\\___||___/___/|_|\\___/|_| |_|_| |_| |_|\\__,_/_/\\_\\", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, " %s\n\n", out.String("version "+version).Faint())
}
