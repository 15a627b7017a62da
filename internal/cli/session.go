package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/migration"
	"github.com/aretw0/sessionmux/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// SessionReport is what `session inspect` prints.
type SessionReport struct {
	Key     string             `json:"key" yaml:"key"`
	Route   migration.Decision `json:"route" yaml:"route"`
	Present map[string]bool    `json:"present" yaml:"present"`
	Payload domain.Payload     `json:"payload,omitempty" yaml:"payload,omitempty"`
	LoadErr string             `json:"load_error,omitempty" yaml:"load_error,omitempty"`
}

// SessionExists prints in which stores key exists. It returns an error when the key
// exists nowhere.
func SessionExists(ctx context.Context, opts Options, key string) error {
	mux, _, _, err := openMux(ctx, opts)
	if err != nil {
		return err
	}
	defer mux.Close()

	w := opts.out()
	found := false
	for _, store := range mux.Stores() {
		ok, err := store.Exists(ctx, key)
		if err != nil {
			fmt.Fprintf(w, "%s: error: %v\n", store.Name(), err)
			continue
		}
		fmt.Fprintf(w, "%s: %t\n", store.Name(), ok)
		found = found || ok
	}
	if !found {
		return fmt.Errorf("session %q: %w", key, domain.ErrSessionNotFound)
	}
	return nil
}

// InspectSession prints the routing decision and the decoded payload of key.
// format is "yaml" or "json". Payload fields whose name matches one of the redact
// patterns are masked. Inspection never changes the migration state.
func InspectSession(ctx context.Context, opts Options, key, format string, redact []string) error {
	view, err := middleware.NewPIIMiddleware(redact)
	if err != nil {
		return err
	}

	mux, _, _, err := openMux(ctx, opts)
	if err != nil {
		return err
	}
	defer mux.Close()

	report := SessionReport{
		Key:     key,
		Route:   mux.Coordinator().Explain(ctx, key),
		Present: map[string]bool{},
	}
	for _, store := range mux.Stores() {
		ok, err := store.Exists(ctx, key)
		report.Present[store.Name()] = ok && err == nil
	}

	if store, ok := mux.SessionStore(report.Route.Store); ok {
		payload, err := view(store).Load(ctx, key)
		switch {
		case err == nil:
			report.Payload = payload
		case errors.Is(err, domain.ErrSessionNotFound):
		default:
			report.LoadErr = err.Error()
		}
	}

	return encode(opts.out(), report, format)
}

// RemoveSessions deletes every key from every store.
func RemoveSessions(ctx context.Context, opts Options, keys []string) error {
	mux, _, _, err := openMux(ctx, opts)
	if err != nil {
		return err
	}
	defer mux.Close()

	w := opts.out()
	var errs []error
	for _, key := range keys {
		for _, store := range mux.Stores() {
			if err := store.Delete(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("removing %q from %s: %w", key, store.Name(), err))
			}
		}
		printSystemMessage(w, "Removed session '%s'", key)
	}
	return errors.Join(errs...)
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q: must be yaml or json", format)
	}
}
