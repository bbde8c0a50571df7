package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-touchnode/internal/journal"
	"github.com/nerrad567/gray-logic-touchnode/internal/node"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Node is the part of the orchestration core the API drives.
type Node interface {
	Status() node.Status
	Press(buttonID int) error
	Release(buttonID int) error
	Subscribe(ctx context.Context) error
	Unsubscribe(ctx context.Context) error
}

// HealthChecker is implemented by infrastructure clients that can report
// their own health (MQTT, SQLite, InfluxDB).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	Logger       *logging.Logger
	Node         Node
	Journal      journal.Repository       // optional: /events returns 503 without it
	Hub          *Hub                     // optional: created from Config.WebSocket when nil
	HealthChecks map[string]HealthChecker // optional
	Version      string
}

// Server is the HTTP API server for the touch node.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	node    Node
	journal journal.Repository
	hub     *Hub
	checks  map[string]HealthChecker
	version string
	server  *http.Server
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Node == nil {
		return nil, ErrNoNode
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Config.WebSocket, logger)
	}

	return &Server{
		cfg:     deps.Config,
		logger:  logger,
		node:    deps.Node,
		journal: deps.Journal,
		hub:     hub,
		checks:  deps.HealthChecks,
		version: deps.Version,
	}, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler { return s.buildRouter() }

// Start begins listening for HTTP connections in a background goroutine.
// The hub runs until Close is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.server != nil {
		return ErrAlreadyStarted
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr, "auth", s.authEnabled())
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

func (s *Server) authEnabled() bool {
	return s.cfg.Auth.JWTSecret != ""
}
