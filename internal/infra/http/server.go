package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Check probes one dependency for the health endpoint.
type Check func(ctx context.Context) error

// Server exposes liveness and Prometheus metrics.
type Server struct {
	port   int
	checks map[string]Check
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(port int, checks map[string]Check, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	if checks == nil {
		checks = map[string]Check{}
	}
	return &Server{port: port, checks: checks, log: &l}
}

// Router builds the chi router; exported for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	for _, mw := range []Middleware{Recover(s.log), TraceID(), RequestLog(s.log)} {
		r.Use(mw)
	}
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.port).Msg("HTTP server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(sctx); err != nil {
			s.log.Error().Err(err).Msg("HTTP shutdown failed")
			return err
		}
		s.log.Info().Msg("HTTP server stopped")
		return nil
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
