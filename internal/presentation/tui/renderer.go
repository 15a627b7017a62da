package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Markdown writes md to w, rendered when w is a terminal and raw otherwise.
func Markdown(w io.Writer, md string) error {
	if IsTerminal(w) {
		rendered, err := NewRenderer()(md)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(w, md)
	return err
}
