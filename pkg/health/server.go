package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"catmigrate/pkg/checkpoint"
	"catmigrate/pkg/logger"
	"catmigrate/pkg/migrate"
)

const readyMessage = "catalog migration worker is alive"

// Server answers liveness probes independently of the batch worker. It only
// reads the checkpoint file and a counters snapshot, so it can never block
// the worker or be blocked by it.
type Server struct {
	addr        string
	checkpoints *checkpoint.Manager
	counters    *migrate.RunCounters
	logger      logger.Logger
	httpServer  *http.Server
}

// StatusResponse is the body of the status endpoint
type StatusResponse struct {
	Checkpoint *checkpoint.Checkpoint   `json:"checkpoint,omitempty"`
	Message    string                   `json:"message,omitempty"`
	Counters   migrate.CountersSnapshot `json:"counters"`
	Time       time.Time                `json:"time"`
}

// NewServer creates a liveness server bound to addr
func NewServer(addr string, checkpoints *checkpoint.Manager, counters *migrate.RunCounters, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		addr:        addr,
		checkpoints: checkpoints,
		counters:    counters,
		logger:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the HTTP handler (used in tests)
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("liveness endpoint listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("liveness server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, readyMessage)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Time: time.Now(),
	}
	if s.counters != nil {
		resp.Counters = s.counters.Snapshot()
	}

	if cp, found := s.checkpoints.Load(); found {
		resp.Checkpoint = cp
	} else {
		resp.Message = "no checkpoint yet"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithError(err).Warn("failed to encode status response")
	}
}
