// Package status serves /healthz and /metrics for a running sync engine.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// Snapshot is the engine state reported by /healthz
type Snapshot struct {
	Connected     bool      `json:"transfer_connected"`
	Processed     int64     `json:"events_processed"`
	Failed        int64     `json:"events_failed"`
	LastEventAt   time.Time `json:"last_event_at,omitzero"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// Source produces the current Snapshot
type Source func() Snapshot

// Server is the optional status HTTP server
type Server struct {
	cfg     config.StatusConfig
	source  Source
	started time.Time
	srv     *http.Server
	mu      sync.Mutex
	addr    string
	logger  zerolog.Logger
}

// NewServer builds the server. source may be nil.
func NewServer(cfg config.StatusConfig, source Source, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		source:  source,
		started: time.Now(),
		logger:  logger.With().Str("module", "status").Logger(),
	}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler is the chi router serving both endpoints
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.cfg.RequestsPerMinute > 0 {
		r.Use(httprate.Limit(
			s.cfg.RequestsPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
			}),
		))
	}
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var snap Snapshot
	if s.source != nil {
		snap = s.source()
	}
	snap.UptimeSeconds = int64(time.Since(s.started).Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write health response")
	}
}

// Start listens and serves in the background. Addr is valid once it returns.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("status server listen on %s: %w", s.cfg.Listen, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Status server stopped")
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Status server listening")
	return nil
}

// Addr is the bound address after Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
