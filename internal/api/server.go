package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airlink-io/airlink/internal/drone/flight"
	"github.com/airlink-io/airlink/internal/drone/safety"
	"github.com/airlink-io/airlink/internal/drone/telemetry"
	"github.com/airlink-io/airlink/pkg/log"
)

const shutdownGrace = 5 * time.Second

// Server exposes agent health, metrics and read-only flight state over HTTP.
type Server struct {
	addr     string
	timeout  time.Duration
	snap     *flight.Snapshot
	history  *safety.History
	feed     *telemetry.Listener
	log      log.Logger
}

func NewServer(addr string, timeout time.Duration, snap *flight.Snapshot, history *safety.History, feed *telemetry.Listener, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		addr:    addr,
		timeout: timeout,
		snap:    snap,
		history: history,
		feed:    feed,
		log:     logger.WithName("api"),
	}
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/safety/events", s.handleSafetyEvents).Methods(http.MethodGet)
	v1.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      router,
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snap.Status())
}

func (s *Server) handleSafetyEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.history.Recent(limit))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, _ *http.Request) {
	rec, ok := s.feed.Last()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no telemetry received yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(err, "Failed to encode response")
	}
}
