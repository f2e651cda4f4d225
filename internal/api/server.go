// Package api provides the administrative HTTP surface of the reward
// pipeline.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/0xsequence/sidekick-sub000/internal/job"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/metrics"
	"github.com/0xsequence/sidekick-sub000/internal/service"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// ScheduleServiceInterface is the controller surface the handlers call.
// *service.ScheduleService satisfies it; tests supply fakes.
type ScheduleServiceInterface interface {
	Start(ctx context.Context, chainID types.ChainID, contractAddress string, req *service.StartRequest) (*service.StartResult, error)
	Stop(ctx context.Context, chainID types.ChainID, contractAddress string) (string, error)
	List(ctx context.Context, statusFilter string) ([]*job.Job, error)
	Clean(ctx context.Context) error
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// Server is the admin HTTP server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	schedules  ScheduleServiceInterface
	metrics    *metrics.Metrics
	config     *ServerConfig
}

// NewServer builds the server and its routes. metrics may be nil, which
// disables the /metrics endpoint and request instrumentation.
func NewServer(config *ServerConfig, schedules ScheduleServiceInterface, m *metrics.Metrics) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		schedules: schedules,
		metrics:   m,
		config:    config,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Order matters: logging sees every request, recovery wraps handlers,
	// CORS answers preflights before the limiter spends budget on them.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	if s.metrics != nil {
		s.router.Use(MetricsMiddleware(s.metrics))
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	jobs := s.router.PathPrefix("/jobs").Subrouter()
	jobs.HandleFunc("", s.handleListJobs).Methods(http.MethodGet)
	jobs.HandleFunc("/clean", s.handleClean).Methods(http.MethodPost)
	jobs.HandleFunc("/erc20/rewards/{chainId}/{contractAddress}/start", s.handleStartSchedule).Methods(http.MethodPost)
	jobs.HandleFunc("/erc20/rewards/{chainId}/{contractAddress}/stop", s.handleStopSchedule).Methods(http.MethodPost)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Admin API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
