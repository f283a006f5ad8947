package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hte-labs/hte-planner/internal/broadcast"
	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
)

// maxBodySize limits the size of plan submissions.
const maxBodySize = 1 << 20

// JobRegistry is the plan generation job registry used by the API.
type JobRegistry interface {
	Submit(ctx context.Context, p model.Plan) (string, error)
	SubmitAndWait(ctx context.Context, p model.Plan) (model.Event, error)
	Attach(id string) (*broadcast.Subscription, error)
}

// ServerConfig is the configuration for the API server.
type ServerConfig struct {
	ListenAddr string
	Registry   JobRegistry
	// Repository is optional, without it stored goals can't be queried.
	Repository storage.PlanRepository
	// AllowedOrigins are the CORS allowed origins, `*` allows any.
	AllowedOrigins []string
	// MetricsHandler is optional, when set it's served on /metrics.
	MetricsHandler  http.Handler
	ShutdownTimeout time.Duration
	Logger          log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "httpapi.Server"})
	return nil
}

// Server is the plan generation HTTP API.
type Server struct {
	server          *http.Server
	handler         http.Handler
	registry        JobRegistry
	repo            storage.PlanRepository
	origins         map[string]struct{}
	shutdownTimeout time.Duration
	// closing ends when the server starts shutting down, streams stop with it.
	closing     context.Context
	stopStreams context.CancelFunc
	logger          log.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		registry:        cfg.Registry,
		repo:            cfg.Repository,
		origins:         map[string]struct{}{},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
	s.closing, s.stopStreams = context.WithCancel(context.Background())
	for _, o := range cfg.AllowedOrigins {
		s.origins[strings.TrimSpace(o)] = struct{}{}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /plans/generate", s.handleGenerate)
	mux.HandleFunc("POST /plans/generate/sync", s.handleGenerateSync)
	mux.HandleFunc("GET /plans/stream/{goal_id}", s.handleStream)
	if s.repo != nil {
		mux.HandleFunc("GET /goals/{goal_id}", s.handleGetGoal)
	}
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	s.handler = s.cors(mux)
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown doesn't cancel request contexts, without this open streams
	// would hold it until their jobs end.
	s.server.RegisterOnShutdown(s.stopStreams)

	return s, nil
}

// Handler returns the API HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run starts the server and blocks until ctx is cancelled. It performs a
// graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("API listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("api server error: %w", err)
	case <-ctx.Done():
		s.logger.Infof("Shutting down API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown error: %w", err)
		}
		return nil
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	_, allowAll := s.origins["*"]
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			_, ok := s.origins[origin]
			switch {
			case ok:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			case allowAll:
				// Credentials are never allowed for any origin.
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			if ok || allowAll {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
