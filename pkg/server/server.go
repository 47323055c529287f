// Package server exposes community detection over HTTP: JSON endpoints
// for the four detection variants, a GraphQL mirror of the same
// operations, bearer-token auth, Prometheus metrics and graceful
// shutdown.
package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/metrics"
)

// Archiver records finished runs. Wired when the archive is enabled.
type Archiver interface {
	Save(ctx context.Context, rec *archive.Record) error
}

// Server is the HTTP API for community detection.
type Server struct {
	cfg       config.ServerConfig
	solver    config.SolverConfig
	runner    Runner
	archiver  Archiver
	tokens    *TokenManager
	adminID   string
	adminHash []byte
	schema    graphql.Schema
	logger    logging.Logger
	registry  *metrics.Registry
	sem       chan struct{}
	reload    ConfigReloadFunc
	startTime time.Time
	version   string
}

// NewServer creates an API server from a loaded configuration. Solves
// run in-process unless a remote runner is wired with SetRunner.
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.DefaultLogger().With(logging.Component("server"))

	s := &Server{
		cfg:       cfg.Server,
		solver:    cfg.Solver,
		runner:    localRunner{},
		logger:    logger,
		registry:  metrics.DefaultRegistry(),
		sem:       make(chan struct{}, cfg.Solver.ConcurrencyLimit()),
		startTime: time.Now(),
		version:   "1.0.0",
	}

	if !s.cfg.AuthDisabled {
		secret := s.cfg.JWTSecret
		if secret == "" {
			randomBytes := make([]byte, 32)
			if _, err := rand.Read(randomBytes); err != nil {
				return nil, fmt.Errorf("generating development token secret: %w", err)
			}
			secret = fmt.Sprintf("%x", randomBytes)
			logger.Warn("no token secret configured, generated a random development secret; set JWT_SECRET for production")
		}

		tokens, err := NewTokenManager(secret, s.cfg.SessionTTL())
		if err != nil {
			return nil, fmt.Errorf("initializing token manager: %w", err)
		}
		s.tokens = tokens

		if s.cfg.AdminPassword != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.AdminPassword), BcryptCost)
			if err != nil {
				return nil, fmt.Errorf("hashing admin password: %w", err)
			}
			s.adminID = uuid.New().String()
			s.adminHash = hash
		} else {
			logger.Warn("no admin password configured, login is disabled; authenticate with a pre-issued token or API key")
		}
	}

	schema, err := s.buildSchema()
	if err != nil {
		return nil, fmt.Errorf("building graphql schema: %w", err)
	}
	s.schema = schema

	return s, nil
}

// SetRunner replaces the in-process runner, typically with a remote
// client that forwards jobs to a worker.
func (s *Server) SetRunner(r Runner) {
	if r != nil {
		s.runner = r
	}
}

// SetArchiver enables run recording.
func (s *Server) SetArchiver(a Archiver) {
	s.archiver = a
}

// SetReloadFunc installs the configuration reload run on SIGHUP.
func (s *Server) SetReloadFunc(fn ConfigReloadFunc) {
	s.reload = fn
}

// Handler builds the full HTTP handler: routes wrapped in request-ID,
// logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry.Prometheus(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/api/v1/communities", s.requireAuth(s.handleCommunities))
	mux.HandleFunc("/api/v1/subgraph", s.requireAuth(s.handleSubgraph))
	mux.HandleFunc("/api/v1/graphql", s.requireAuth(s.handleGraphQL))

	return s.requestIDMiddleware(s.loggingMiddleware(s.metricsMiddleware(mux)))
}

// Start serves until a shutdown signal arrives.
func (s *Server) Start() error {
	go s.systemMetricsLoop()

	gs := NewGracefulServer(s.cfg.Addr(), s.Handler(), GracefulConfig{
		ReadTimeout:     s.cfg.ReadTimeout.Std(),
		WriteTimeout:    s.cfg.WriteTimeout.Std(),
		IdleTimeout:     s.cfg.IdleTimeout.Std(),
		ShutdownTimeout: s.cfg.ShutdownTimeout.Std(),
	})
	if s.reload != nil {
		gs.SetConfigReloadFunc(s.reload)
	}

	s.logger.Info("http server listening",
		logging.String("addr", s.cfg.Addr()),
		logging.Bool("auth", !s.cfg.AuthDisabled))
	return gs.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).Get(func() {
		s.respondJSON(w, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   s.version,
			Uptime:    time.Since(s.startTime).String(),
		})
	}).NotAllowed()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
