// Package health provides the health check and metrics HTTP endpoints
// for the ping probe.
package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/infrasonar/ping-probe/internal/check"
)

// Provider exposes the scheduler state to the health server.
type Provider interface {
	// IsRunning returns true while the scheduler is active.
	IsRunning() bool

	// Stats returns scheduler statistics.
	Stats() Stats

	// Reports returns the latest result per asset.
	Reports() []Report
}

// Stats contains probe health statistics.
type Stats struct {
	Assets       int  `json:"assets"`
	ChecksRun    int  `json:"checks_run"`
	ChecksFailed int  `json:"checks_failed"`
	HubEnabled   bool `json:"hub_enabled"`
}

// Report is the latest check result for one asset.
type Report struct {
	Asset     check.Asset   `json:"asset"`
	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration"`
	State     *check.Report `json:"state,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ServerConfig contains health server configuration.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP reads
	ReadTimeout time.Duration

	// WriteTimeout for HTTP writes
	WriteTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is an HTTP server for health check endpoints.
type Server struct {
	cfg      ServerConfig
	provider Provider
	server   *http.Server
	listener net.Listener
	running  atomic.Bool
}

// NewServer creates a new health check server.
func NewServer(cfg ServerConfig, provider Provider) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/reports", s.handleReports)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.listener = listener
	s.running.Store(true)

	go func() {
		_ = s.server.Serve(listener)
	}()

	return nil
}

// Stop shuts down the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)
	return s.server.Shutdown(ctx)
}

// Address returns the actual listen address (useful when the configured
// port was 0).
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Address
}

// handleHealth serves the full health document.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status string `json:"status"`
		Stats  Stats  `json:"stats"`
	}{
		Status: "ok",
		Stats:  s.provider.Stats(),
	}
	if !s.provider.IsRunning() {
		resp.Status = "stopped"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleHealthz is a minimal liveness endpoint.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleReady reports readiness: the scheduler must be running.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.provider.IsRunning() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

// reportEntry is the wire shape of one /reports element.
type reportEntry struct {
	Asset     check.Asset   `json:"asset"`
	CheckedAt time.Time     `json:"checked_at"`
	Age       string        `json:"age"`
	Duration  string        `json:"duration"`
	State     *check.Report `json:"state,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// handleReports serves the latest report per asset.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports := s.provider.Reports()

	entries := make([]reportEntry, 0, len(reports))
	for _, rep := range reports {
		entries = append(entries, reportEntry{
			Asset:     rep.Asset,
			CheckedAt: rep.CheckedAt,
			Age:       humanize.Time(rep.CheckedAt),
			Duration:  rep.Duration.Round(time.Millisecond).String(),
			State:     rep.State,
			Error:     rep.Error,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
