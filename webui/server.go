// Package webui serves the classifier over HTTP.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"classifier_backend/classifier"
	"classifier_backend/db"
	"classifier_backend/metrics"
	"classifier_backend/session"
)

// Predictor is the classifier surface the server needs. *session.Manager
// implements it.
type Predictor interface {
	State() session.State
	Info() (classifier.Info, error)
	PredictBytesWithID(correlationID string, data []byte, top int) (string, classifier.CandidateList, error)
	ClassName(id int) (string, error)
}

// HistoryStore reads recorded predictions. *db.Repository implements it.
type HistoryStore interface {
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
	PredictionByRequestID(ctx context.Context, requestID string) (db.PredictionRecord, error)
	PredictionsByCorrelationID(ctx context.Context, correlationID string, limit int) ([]db.PredictionRecord, error)
}

// MetricsSource reports prediction aggregates. *metrics.Store implements it.
type MetricsSource interface {
	Snapshot(topN int) metrics.Snapshot
}

// Tracker counts in-flight requests for graceful shutdown.
// *shutdown.OperationTracker implements it.
type Tracker interface {
	Start() bool
	Done()
}

// Server is the HTTP front end for a Predictor.
//
// Routes:
//   - GET  /health             liveness, version and loaded model
//   - POST /predict            multipart "image" upload, optional "top"
//   - GET  /classes/{id}       class name lookup
//   - GET  /recent             predictions held in memory
//   - GET  /history            recorded predictions (when a HistoryStore is set),
//                              optionally filtered by ?correlation_id=
//   - GET  /history/{request}  one recorded prediction
//   - GET  /metrics            prediction counters (when a MetricsSource is set)
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	logger     *zap.Logger
	predictor  Predictor
	history    HistoryStore
	recent     *RecentPredictions
	metrics    MetricsSource
	limiter    *RateLimiter
	auth       *APIKeyAuth
	tracker    Tracker
	loggingMw  *LoggingMiddleware
	startedAt  time.Time
}

// ServerConfig configures the Server.
type ServerConfig struct {
	// Port to listen on (default: 8080)
	Port int

	// Host to bind to (default: all interfaces)
	Host string

	// ReadTimeout for HTTP requests (default: 30s)
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses (default: 60s)
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default: 120s)
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// MaxUploadBytes bounds the /predict request body (default: 32 MiB)
	MaxUploadBytes int64

	// RateLimit is the number of /predict requests allowed per client per
	// minute; 0 disables limiting
	RateLimit int

	// HistoryLimit caps the number of records /history returns (default: 100)
	HistoryLimit int

	// LogSkipPaths are paths to skip logging
	LogSkipPaths []string

	// Version is reported by /health
	Version string

	// APIKeyHash is a bcrypt hash (see HashAPIKey). When set, every route
	// except /health requires the matching key.
	APIKeyHash string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxUploadBytes:  32 << 20,
		HistoryLimit:    100,
		LogSkipPaths:    []string{"/health"},
		Version:         "dev",
	}
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHistory serves /history from store.
func WithHistory(store HistoryStore) Option {
	return func(s *Server) { s.history = store }
}

// WithRecent serves /recent from r. r should also be installed as a
// session.Recorder so it sees predictions.
func WithRecent(r *RecentPredictions) Option {
	return func(s *Server) { s.recent = r }
}

// WithMetrics serves /metrics from m.
func WithMetrics(m MetricsSource) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracker rejects /predict with 503 once t stops accepting operations.
func WithTracker(t Tracker) Option {
	return func(s *Server) { s.tracker = t }
}

// NewServer creates a Server for predictor.
func NewServer(config ServerConfig, predictor Predictor, opts ...Option) (*Server, error) {
	if predictor == nil {
		return nil, errors.New("webui: predictor is required")
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultServerConfig().HistoryLimit
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		logger:    zap.NewNop(),
		predictor: predictor,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	logger := s.logger
	s.loggingMw = NewLoggingMiddleware(logger, config.LogSkipPaths...)
	if config.RateLimit > 0 {
		s.limiter = NewRateLimiter(config.RateLimit, time.Minute)
	}
	if config.APIKeyHash != "" {
		auth, err := NewAPIKeyAuth(config.APIKeyHash, logger)
		if err != nil {
			return nil, err
		}
		s.auth = auth
	}

	s.setupRoutes()

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger.Info("http server created",
		zap.String("addr", addr),
		zap.Bool("history_enabled", s.history != nil),
		zap.Int("rate_limit", config.RateLimit),
		zap.Bool("auth_enabled", s.auth != nil),
	)
	return s, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	var predict http.Handler = http.HandlerFunc(s.handlePredict)
	if s.tracker != nil {
		predict = s.trackOperations(predict)
	}
	if s.limiter != nil {
		predict = s.limiter.Middleware(s.logger, predict)
	}
	s.mux.Handle("POST /predict", predict)

	s.mux.HandleFunc("GET /classes/{id}", s.handleClassName)
	s.mux.HandleFunc("GET /recent", s.handleRecent)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /history/{request_id}", s.handleHistoryItem)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
}

func (s *Server) trackOperations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.tracker.Start() {
			w.Header().Set("Connection", "close")
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		defer s.tracker.Done()
		next.ServeHTTP(w, r)
	})
}

// Handler returns the mux wrapped in middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.auth != nil {
		h = s.requireKey(h)
	}
	return s.loggingMw.Handler(h)
}

// requireKey guards every route except /health.
func (s *Server) requireKey(next http.Handler) http.Handler {
	guarded := s.auth.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		guarded.ServeHTTP(w, r)
	})
}

// Start listens until the server is shut down. It returns nil after a
// graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.StartCleanupTicker(ctx, time.Minute)
	}

	s.logger.Info("http server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultServerConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
