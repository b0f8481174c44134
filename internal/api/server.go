package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smartthings-community/myq-bridge/internal/device"
	"github.com/smartthings-community/myq-bridge/internal/infrastructure/config"
	"github.com/smartthings-community/myq-bridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SessionManager is the session layer the API drives. Satisfied by
// *session.Manager.
type SessionManager interface {
	SetCredentials(email, password string) bool
	EnsureSession(ctx context.Context) ([]device.Device, error)
	Devices() []device.Device
	HasSession() bool
	Execute(ctx context.Context, dev *device.Device, command string) error
}

// UpdateChecker reports whether a newer bridge version has been seen.
// Satisfied by *update.Poller.
type UpdateChecker interface {
	UpdateAvailable() bool
}

// EventPublisher receives device transitions and state snapshots for
// fan-out beyond the hub. Satisfied by *mqtt.Client; optional.
type EventPublisher interface {
	PublishTransition(tr device.Transition) error
	PublishDeviceState(d device.Device) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.ServerConfig
	Logger   *logging.Logger
	Sessions SessionManager
	Cache    *device.Cache
	Updates  UpdateChecker
	Events   EventPublisher // optional, may be nil
	Version  string
}

// Server is the hub-facing HTTP server.
//
// It exposes the device refresh, control, and status endpoints the
// SmartThings Edge driver polls, plus health and discovery metadata.
// Created with New(), started with Start(), stopped with Close().
type Server struct {
	cfg      config.ServerConfig
	logger   *logging.Logger
	sessions SessionManager
	cache    *device.Cache
	updates  UpdateChecker
	events   EventPublisher
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("device cache is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		sessions: deps.Sessions,
		cache:    deps.Cache,
		updates:  deps.Updates,
		events:   deps.Events,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs on a background goroutine; the server is stopped with
// Close(). The hub finds this port either through SSDP discovery or its
// configured server address.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
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

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
