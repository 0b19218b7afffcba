package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thisisprabha/summary/internal/config"
	"github.com/thisisprabha/summary/internal/metrics"
	"github.com/thisisprabha/summary/internal/session"
	"github.com/thisisprabha/summary/internal/transcription"
	"github.com/thisisprabha/summary/internal/version"
)

// Server provides the diagnostics HTTP endpoints
type Server struct {
	server       *http.Server
	logger       *slog.Logger
	config       *config.Config
	orchestrator *session.Orchestrator
	client       *transcription.Client
	metrics      *metrics.Metrics

	startTime time.Time
}

// NewServer creates a diagnostics server bound to the configured address
func NewServer(cfg config.DiagConfig, logger *slog.Logger,
	appConfig *config.Config, orchestrator *session.Orchestrator, client *transcription.Client, m *metrics.Metrics) *Server {

	s := &Server{
		logger:       logger,
		config:       appConfig,
		orchestrator: orchestrator,
		client:       client,
		metrics:      m,
		startTime:    time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures the diagnostics routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/session", s.withMetrics("/session", s.handleSession))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Prometheus metrics endpoint (not itself instrumented)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		if s.metrics != nil {
			duration := time.Since(startTime).Seconds()
			s.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start begins serving in the background
func (s *Server) Start() error {
	s.logger.Info("Starting diagnostics server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Diagnostics server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping diagnostics server...")

	return s.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint. It reports local process
// health plus the reachability of the remote transcription server.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	serverReachable := s.client.HealthCheck(ctx)

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"service": map[string]interface{}{
			"name":    "meeting-recorder",
			"version": version.String(),
		},
		"components": map[string]interface{}{
			"session": map[string]interface{}{
				"state": s.orchestrator.State().String(),
			},
			"transcription_server": map[string]interface{}{
				"endpoint":  s.client.BaseURL(),
				"reachable": serverReachable,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSession implements the /session endpoint
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.orchestrator.Snapshot()

	response := map[string]interface{}{
		"state":     snap.State.String(),
		"timestamp": time.Now().UTC(),
	}
	if snap.ID != "" {
		response["session_id"] = snap.ID
		response["started_at"] = snap.StartedAt.UTC()
	}
	if snap.State == session.StateRecording {
		response["elapsed"] = s.orchestrator.Elapsed().String()
	}
	if snap.Transcription != nil {
		response["transcription_id"] = snap.Transcription.TranscriptionID
	}
	if snap.Summary != "" {
		response["has_summary"] = true
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitized := map[string]interface{}{
		"server": map[string]interface{}{
			"base_url": s.config.Server.BaseURL,
		},
		"audio": map[string]interface{}{
			"sample_rate": s.config.Audio.SampleRate,
			"channels":    s.config.Audio.Channels,
			"bit_depth":   s.config.Audio.BitDepth,
		},
		"upload": map[string]interface{}{
			"timeout": s.config.Upload.Timeout,
		},
		"progress": map[string]interface{}{
			"enabled":       s.config.Progress.Enabled,
			"jitter_window": s.config.Progress.JitterWindow,
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
		"upload":    s.client.GetStats(),
		"session": map[string]interface{}{
			"state": s.orchestrator.State().String(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Meeting Recorder Diagnostics",
		"version": version.String(),
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Process and server reachability check",
			"GET /session": "Current session state",
			"GET /config":  "Active configuration",
			"GET /stats":   "Upload client statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
