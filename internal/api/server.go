package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"fetalscan/internal/config"
	"fetalscan/internal/lifecycle"
	"fetalscan/internal/logging"
)

// ErrAlreadyRunning is returned when another server holds the data directory lock.
var ErrAlreadyRunning = errors.New("another fetalscan server is already running")

// Server runs the HTTP API.
type Server struct {
	bind     string
	lockPath string
	lock     *flock.Flock
	logger   *slog.Logger
	echo     *echo.Echo

	listener net.Listener
}

// NewServer wires handler routes, authentication, and request logging.
func NewServer(cfg *config.Config, ctrl *lifecycle.Controller, health HealthFunc, logger *slog.Logger) (*Server, error) {
	if cfg == nil || ctrl == nil {
		return nil, errors.New("api server requires config and controller")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 60 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	srv := &Server{
		bind:     bind,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		logger:   logging.NewComponentLogger(logger, "api"),
		echo:     e,
	}
	handler := NewHandler(ctrl, health, logger)

	e.Use(srv.requestLogger)
	e.GET("/health", handler.Health)
	handler.RegisterRoutes(e.Group("/api", authMiddleware(strings.TrimSpace(cfg.Paths.APIToken))))
	return srv, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// LockPath reports the single-instance lock file.
func (s *Server) LockPath() string {
	return s.lockPath
}

// Addr returns the bound address once Run is listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run takes the instance lock, serves until ctx is cancelled, then shuts
// down gracefully and releases the lock. ready, when non-nil, is called with
// the bound address once the listener is open.
func (s *Server) Run(ctx context.Context, ready func(addr string)) error {
	if err := ensureLockDir(s.lockPath); err != nil {
		return err
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.echo.Listener = listener

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()
	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath),
	)
	if ready != nil {
		ready(listener.Addr().String())
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		requestID := req.Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("api request",
			logging.String(logging.FieldCorrelationID, requestID),
			logging.String("method", req.Method),
			logging.String("path", req.URL.Path),
			logging.Int("status", c.Response().Status),
			logging.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

func ensureLockDir(lockPath string) error {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	return nil
}
