// Package httpapi exposes aggregates, estimates and the administrator views
// as JSON over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/clinicbooks/clinicbooks/internal/accounts"
	"github.com/clinicbooks/clinicbooks/internal/consolidate"
	"github.com/clinicbooks/clinicbooks/internal/ledger"
	"github.com/clinicbooks/clinicbooks/internal/period"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

// Dependencies are the services behind the routes.
type Dependencies struct {
	Logger       zerolog.Logger
	Ledger       *ledger.Service
	Accounts     *accounts.Service
	Aggregator   *period.Aggregator
	Estimator    *tax.Estimator
	Parameters   tax.Parameters
	Consolidator *consolidate.Consolidator

	// Now is the clock used for default periods. Nil means time.Now.
	Now func() time.Time
}

// Config holds server settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	Dependencies    Dependencies
}

// WebAPI is the HTTP server.
type WebAPI struct {
	server          *http.Server
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

// New builds the server without starting it.
func New(config Config) *WebAPI {
	return &WebAPI{
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           ConfigureRouter(config),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          config.Dependencies.Logger,
		shutdownTimeout: config.ShutdownTimeout,
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests for
// at most the shutdown timeout.
func (w *WebAPI) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	w.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := w.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	w.logger.Info().Msg("server exited")
	return nil
}

// ConfigureRouter mounts every route on a fresh chi router. Each router
// owns its own metrics registry.
func ConfigureRouter(config Config) http.Handler {
	deps := config.Dependencies
	if deps.Now == nil {
		deps.Now = time.Now
	}
	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	h := &handlers{deps: deps, metrics: m}

	r := chi.NewRouter()
	r.Use(Logger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(m.instrument)
	if len(config.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}).Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/owners/{ownerID}", func(r chi.Router) {
			r.Get("/aggregate", h.getAggregate)
			r.Get("/estimate", h.getEstimate)
			r.Get("/entries", h.listEntries)
			r.Post("/entries", h.createEntry)
		})
		r.Delete("/entries/{entryID}", h.deleteEntry)
		r.Get("/clinics/{clinicID}/accounts", h.listAccounts)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/owners", h.listOwners)
			r.Get("/aggregate", h.getConsolidated)
			r.Get("/stats", h.getStats)
			r.Get("/growth", h.getGrowth)
		})
	})
	return r
}
