// Package devserver is a local stand-in for the BoardHub backend: chat
// history, presence over websocket, and translations, all in memory.
package devserver

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type Server struct {
	app    *fiber.App
	hub    *Hub
	store  *Store
	log    zerolog.Logger
	cancel context.CancelFunc
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.log = l } }

func WithStore(st *Store) Option { return func(s *Server) { s.store = st } }

// New builds the app and starts the hub.
func New(opts ...Option) *Server {
	s := &Server{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	s.hub = NewHub(s.log)
	s.app = fiber.New(fiber.Config{
		AppName:               "boardhub-devserver",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.routes()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.hub.Run(ctx)
	return s
}

func (s *Server) App() *fiber.App { return s.app }
func (s *Server) Hub() *Hub       { return s.hub }
func (s *Server) Store() *Store   { return s.store }

func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("listening")
	return s.app.Listen(addr)
}

// Serve runs the app on an existing listener, e.g. a loopback one in tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown closes every chat socket, then drains HTTP.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.hub.Wait()
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler answers in FastAPI's {"detail": ...} shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}
