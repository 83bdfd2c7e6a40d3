// Package server exposes the dashboard's JSON API over chi.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/port-experimental/port-pr-chart/internal/api"
	"github.com/port-experimental/port-pr-chart/internal/config"
	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/port-experimental/port-pr-chart/internal/token"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Catalog is the read side of the Port API the handlers need.
type Catalog interface {
	GetEntities(ctx context.Context, blueprint string) ([]api.Entity, error)
	GetBlueprints(ctx context.Context) ([]api.Blueprint, error)
}

// Tokens is the token manager surface exposed over HTTP.
type Tokens interface {
	CurrentToken() string
	ValidateToken(ctx context.Context, token string) bool
	Rotate(ctx context.Context) token.Outcome
	GenerateToken(ctx context.Context) (string, error)
	Status() token.Status
}

// Options configures a Server.
type Options struct {
	Version          string
	DefaultBlueprint string
	// AuthRateLimit caps rotate and generate calls per client IP per AuthRateWindow.
	AuthRateLimit  int
	AuthRateWindow time.Duration
	// TrustProxy takes the client IP from X-Forwarded-For and X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// Server routes dashboard requests to the catalog and token manager.
type Server struct {
	catalog Catalog
	tokens  Tokens
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a Server. Zero-valued options take defaults.
func New(catalog Catalog, tokens Tokens, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.DefaultBlueprint == "" {
		opts.DefaultBlueprint = config.DefaultBlueprint
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 10
	}
	if opts.AuthRateWindow <= 0 {
		opts.AuthRateWindow = time.Minute
	}
	return &Server{
		catalog: catalog,
		tokens:  tokens,
		opts:    opts,
		log:     logging.Component("server"),
		now:     time.Now,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	if s.opts.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(accessLog)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/port", func(r chi.Router) {
		r.Use(recordMetrics)
		r.Get("/entities", s.entities)
		r.Get("/blueprints", s.blueprints)
		r.Get("/properties", s.properties)
		r.Get("/values/{property}", s.values)
		r.Get("/chart", s.chartData)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(recordMetrics)
		r.Post("/validate", s.validate)
		r.Get("/status", s.status)

		limited := r.With(httprate.LimitByIP(s.opts.AuthRateLimit, s.opts.AuthRateWindow))
		limited.Post("/rotate", s.rotate)
		limited.Post("/generate", s.generate)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "Not Found", fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// ready, if non-nil, is called with the bound address once the listener is open.
func (s *Server) Run(ctx context.Context, addr string, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if ready != nil {
		ready(ln.Addr().String())
	}

	return g.Wait()
}
