package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"callmonitor/pkg/correlation"
	"callmonitor/pkg/metrics"
	"callmonitor/pkg/version"

	"github.com/sirupsen/logrus"
)

// Config holds HTTP server settings
type Config struct {
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	EnableMetrics bool
	CORSOrigins   []string
}

// DefaultConfig returns the server defaults
func DefaultConfig() *Config {
	return &Config{
		Port:          8000,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  30 * time.Second,
		EnableMetrics: true,
		CORSOrigins:   []string{"*"},
	}
}

// Server serves the REST API, the live websocket and health endpoints
type Server struct {
	config     *Config
	logger     *logrus.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	handler    http.Handler
	startTime  time.Time
	api        *API
	hub        *Hub
}

// NewServer wires the routes. auth may be nil to serve without credentials.
func NewServer(logger *logrus.Logger, config *Config, api *API, hub *Hub, auth *AuthMiddleware) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:    config,
		logger:    logger,
		mux:       http.NewServeMux(),
		startTime: time.Now(),
		api:       api,
		hub:       hub,
	}

	s.mux.HandleFunc("GET /health", s.HealthHandler)
	if config.EnableMetrics {
		metrics.RegisterHandler(s.mux)
		logger.Info("Prometheus metrics endpoint enabled at /metrics")
	} else {
		logger.Info("Metrics endpoint disabled")
	}
	if api != nil {
		api.Register(s.mux)
	}
	if hub != nil {
		s.mux.HandleFunc("GET /api/ws/live", hub.ServeWs)
	}

	// auth is the inner layer so preflight requests never need credentials
	handler := http.Handler(s.mux)
	if auth != nil {
		handler = auth.Middleware(handler)
	}
	handler = CORSMiddleware(config.CORSOrigins)(handler)
	handler = correlation.NewHTTPMiddleware(logger).Middleware(handler)
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", version.ServerHeader())
		handler.ServeHTTP(w, r)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithField("port", s.config.Port).Info("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// CheckResult represents an individual health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
}

// HealthHandler reports the store, simulation and websocket state
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	if s.api != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		_, err := s.api.store.CountCalls(ctx, callsAll)
		cancel()
		if err != nil {
			health.Checks["store"] = CheckResult{Status: "unhealthy", Message: err.Error()}
			health.Status = "unhealthy"
		} else {
			health.Checks["store"] = CheckResult{Status: "healthy"}
		}

		if s.api.sim.IsRunning() {
			health.Checks["simulation"] = CheckResult{Status: "healthy", Message: "Simulation is running"}
		} else {
			health.Checks["simulation"] = CheckResult{Status: "degraded", Message: "Simulation stopped"}
		}
	}

	if s.hub != nil {
		health.Checks["websocket"] = CheckResult{
			Status:  "healthy",
			Message: fmt.Sprintf("%d clients connected", s.hub.ClientCount()),
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
