// Package httpapi serves the service operations as a JSON HTTP API.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/service"
)

const (
	defaultAddress      = ":8000"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 120 * time.Second
	shutdownTimeout     = 10 * time.Second
	maxBodyBytes        = 1 << 20
)

// Config HTTP server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP front of the service
type Server struct {
	svc      *service.Service
	cfg      Config
	log      *zap.Logger
	validate *validator.Validate
	mux      *http.ServeMux
}

// New creates the server and registers every route
func New(svc *service.Service, cfg Config, log *zap.Logger) *Server {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		svc:      svc,
		cfg:      cfg,
		log:      log,
		validate: newValidator(),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.post("/agent/pokemon-info", "pokemon_info", s.handlePokemonInfo)
	s.post("/agent/compare", "compare", s.handleCompare)
	s.post("/agent/strategy", "strategy", s.handleStrategy)
	s.post("/agent/team", "team", s.handleTeam)
	s.post("/agent/matchup", "matchup", s.handleMatchup)
	s.post("/agent/team-analysis", "team_analysis", s.handleTeamAnalysis)
	s.post("/agent/bulk", "bulk", s.handleBulk)
	s.post("/agent/competitive", "competitive", s.handleCompetitive)

	s.mux.Handle("GET /health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// post registers path with and without the trailing slash
func (s *Server) post(path, route string, h http.HandlerFunc) {
	handler := s.instrument(route, h)
	s.mux.Handle("POST "+path, handler)
	s.mux.Handle("POST "+path+"/{$}", handler)
}

// Handler returns the root handler with request id and access logging applied
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withAccessLog(s.mux))
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Address)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	return nil
}
