package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/config"
)

// requestValidator adapts go-playground/validator to echo's Validator.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Server is the HTTP front of the battle service. It satisfies the lifecycle
// Service interface: Start blocks until Stop drains and closes the listener.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger *zap.Logger
}

// NewServer wires routes, middleware, and timeouts.
//
// Precondition: handler, hub, verifier, and logger must be non-nil.
// Postcondition: Returns a Server ready to Start; no port is bound yet.
func NewServer(cfg config.ServerConfig, handler *Handler, hub *Hub, verifier TokenVerifier, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	e.POST("/api/auth/nonce", handler.IssueNonce)
	e.POST("/api/auth/verify", handler.VerifySignature)
	e.GET("/api/creatures", handler.ListCreatures)

	authed := e.Group("", Authenticate(verifier))
	authed.GET("/api/profile", handler.Profile)
	authed.POST("/api/battles", handler.StartBattle)
	authed.GET("/api/battles", handler.ListBattles)
	authed.GET("/api/battles/:id", handler.GetBattle)
	authed.POST("/api/battles/:id/attack", handler.Attack)
	authed.POST("/api/battles/:id/surrender", handler.Surrender)
	authed.GET("/ws/battles/:id", hub.Serve)

	return &Server{echo: e, cfg: cfg, logger: logger}
}

// Start binds the configured address and serves until Stop. A clean shutdown
// returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr()))
	if err := s.echo.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the shutdown grace period.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
