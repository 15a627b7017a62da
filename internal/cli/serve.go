package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/sessionmux"
	adminhttp "github.com/aretw0/sessionmux/internal/adapters/http"
	"github.com/aretw0/sessionmux/internal/presentation/tui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ShutdownTimeout bounds graceful shutdown of the admin server.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the serve command.
type ServeOptions struct {
	Options
	Addr  string // overrides admin.addr when set
	Quiet bool   // no banner

	// Ready, if set, receives the bound address once the server listens.
	Ready chan<- string
}

// Serve runs the admin server and keeps the migration state in sync until ctx is done.
func Serve(ctx context.Context, opts ServeOptions) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux, cfg, logger, err := openMux(ctx, opts.Options, sessionmux.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer mux.Close()

	addr := cfg.Admin.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	w := opts.out()
	if !opts.Quiet {
		tui.PrintBanner(w, sessionmux.Version)
	}

	locators := make([]adminhttp.Locator, 0, len(mux.Stores()))
	for _, s := range mux.Stores() {
		locators = append(locators, s)
	}
	srv := &http.Server{
		Handler:           adminhttp.NewHandler(mux.Coordinator(), locators, reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Admin server listening", "addr", ln.Addr().String())
		serverErrors <- srv.Serve(ln)
	}()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- mux.Watch(ctx)
	}()

	if opts.Ready != nil {
		opts.Ready <- ln.Addr().String()
	}

	select {
	case err := <-serverErrors:
		cancel()
		<-watchDone
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, stop := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer stop()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			_ = srv.Close()
		}
		if err := <-watchDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Migration state watcher stopped", "err", err)
		}
		logger.Info("Admin server stopped gracefully")
		return nil
	}
}
