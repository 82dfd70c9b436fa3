package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/respond"
	"github.com/coinvault/coinvault/internal/routes"
)

// Server wraps the Fiber application.
type Server struct {
	app  *fiber.App
	addr string
}

// New builds the Fiber app and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               d.Cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: !d.Cfg.IsDevelopment(),
		ErrorHandler:          respond.ErrorHandler(d.Logger),
	})

	if err := routes.Setup(app, d); err != nil {
		return nil, err
	}

	return &Server{app: app, addr: d.Cfg.Address()}, nil
}

// App exposes the underlying Fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
