// Package web exposes the credential lifecycle as a JSON API.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/jornfrank/gatehouse/internal/auth"
	"github.com/jornfrank/gatehouse/internal/token"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger *slog.Logger
	Auth   *auth.Service
	Tokens *token.Service
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	// SecureCookie controls the Secure attribute on the refresh cookie.
	// Only disable this for local development over plain HTTP.
	SecureCookie bool

	// RateLimitMax is the number of requests allowed per RateLimitWindow
	// on the routes that send email.
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type Server struct {
	deps *ServerDeps
	cfg  ServerConfig
	app  *fiber.App
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 5
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = 15 * time.Minute
	}

	s := &Server{
		deps: deps,
		cfg:  cfg,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})

	// The routes that send email are an easy way to spam people,
	// keep them behind a rate limit.
	emailLimit := limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return message(c, fiber.StatusOK, "ok")
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/register", s.handleRegister)
	authGroup.Post("/login", s.handleLogin)
	authGroup.Post("/logout", s.handleLogout)
	authGroup.Get("/refresh", s.handleRefresh)
	authGroup.Get("/current", s.requireAccessToken, s.handleCurrent)

	userGroup := app.Group("/user")
	userGroup.Get("/activate", s.handleActivate)
	userGroup.Post("/resend-verification-email", emailLimit, s.handleResendActivation)
	userGroup.Post("/request-password-change", emailLimit, s.handleRequestPasswordReset)
	userGroup.Post("/change-password", s.handleChangePassword)
	userGroup.Delete("/delete", s.requireAccessToken, s.handleDeleteAccount)

	s.app = app

	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves the API on the provided address until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server, waiting for active
// requests until ctx is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
